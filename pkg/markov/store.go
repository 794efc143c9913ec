package markov

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// EOCTokenID is the token id stored for an end-of-chain follower. Vocabulary
// ids are assigned from 1 upwards, so no word can ever be stored under it.
const EOCTokenID = 0

// SetupSchema initializes the tables used by Store in the provided database.
// It is idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaPrefixes = `
CREATE TABLE IF NOT EXISTS markov_prefixes (
	prefix_id INTEGER PRIMARY KEY,
	prefix_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS markov_chains (
    model_id INTEGER NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency  INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaPrefixes); err != nil {
		return fmt.Errorf("could not create prefixes schema: %w", err)
	}

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaChains); err != nil {
		return fmt.Errorf("could not create chains schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists chain tables as named models in a SQLite database. It holds
// prepared statements for the queries it runs; call Close when done.
type Store struct {
	db                    *sql.DB
	stmtGetModelInfo      *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtPruneModel        *sql.Stmt
	stmtModelGroups       *sql.Stmt
	stmtModelChains       *sql.Stmt
	stmtModelFreq         *sql.Stmt
	stmtModelLineEnds     *sql.Stmt
	stmtGetTokenText      *sql.Stmt
	stmtGetVocabLen       *sql.Stmt
	stmtGetPrefixLen      *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
	logger                *slog.Logger
}

// NewStore creates a Store on db, whose schema must already be set up with
// SetupSchema. It returns an error if any statement fails to prepare.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&s.stmtGetModelInfo, `SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, model_order FROM markov_models;`},
		{&s.stmtAddModel, `INSERT INTO markov_models (model_name, model_order) VALUES (?, ?);`},
		{&s.stmtPruneModel, `DELETE FROM markov_chains WHERE model_id = ? AND frequency <= ?;`},
		{&s.stmtModelGroups, `SELECT COUNT(DISTINCT prefix_id) FROM markov_chains WHERE model_id = ?;`},
		{&s.stmtModelChains, `SELECT COUNT(*) FROM markov_chains WHERE model_id = ?;`},
		{&s.stmtModelFreq, `SELECT coalesce(SUM(frequency), 0) FROM markov_chains WHERE model_id = ?;`},
		{&s.stmtModelLineEnds, `SELECT coalesce(SUM(frequency), 0) FROM markov_chains WHERE model_id = ? AND next_token_id = 0;`},
		{&s.stmtGetTokenText, `SELECT token_text FROM markov_vocabulary WHERE token_id = ?;`},
		{&s.stmtGetVocabLen, `SELECT COUNT(*) FROM markov_vocabulary;`},
		{&s.stmtGetPrefixLen, `SELECT COUNT(*) FROM markov_prefixes;`},
		{&s.stmtInsertVocab, `INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`},
		{&s.stmtGetOrInsertPrefix, `INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`},
	}

	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement %q: %w", st.query, err)
		}
		*st.stmt = stmt
	}

	return s, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo,
		s.stmtGetModels,
		s.stmtAddModel,
		s.stmtPruneModel,
		s.stmtModelGroups,
		s.stmtModelChains,
		s.stmtModelFreq,
		s.stmtModelLineEnds,
		s.stmtGetTokenText,
		s.stmtGetVocabLen,
		s.stmtGetPrefixLen,
		s.stmtInsertVocab,
		s.stmtGetOrInsertPrefix,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
