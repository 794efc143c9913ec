//go:build cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// initDB opens dataSource with the cgo SQLite driver. File databases get a
// busy timeout and a WAL journal unless the data source carries its own
// parameters.
func initDB(dataSource string) (*sql.DB, error) {
	if dataSource != ":memory:" && !strings.Contains(dataSource, "?") {
		dataSource += "?_busy_timeout=5000&_journal_mode=WAL"
	}
	return sql.Open("sqlite3", dataSource)
}
