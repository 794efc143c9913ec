//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// initDB opens dataSource with the pure Go SQLite driver. File databases get a
// busy timeout and a WAL journal unless the data source carries its own
// parameters.
func initDB(dataSource string) (*sql.DB, error) {
	if dataSource != ":memory:" && !strings.Contains(dataSource, "?") {
		dataSource += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return sql.Open("sqlite", dataSource)
}
