package markov

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// SaveChain writes every transition of table into model. Transitions the
// model already holds have their frequencies increased, so saving several
// tables into one model merges them. The whole operation runs in a single
// transaction.
func (s *Store) SaveChain(ctx context.Context, model ModelInfo, table *ChainTable) error {
	if table.KeyLength() != model.Order {
		return fmt.Errorf("chain key length %d does not match order %d of model '%s'", table.KeyLength(), model.Order, model.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// All transaction-specific statements will also be closed with this or the .Commit()
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	count, err := s.saveLinks(ctx, tx, model.Id, table.Links())
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Chain saved",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("groups", table.Len()),
		slog.Int("links_saved", count),
	)

	return tx.Commit()
}

// saveLinks inserts links into modelID inside tx and returns how many were written.
func (s *Store) saveLinks(ctx context.Context, tx *sql.Tx, modelID int, links []Link) (int, error) {
	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, s.stmtGetOrInsertPrefix)
	stmtInsertChain, err := tx.PrepareContext(ctx, `
		INSERT INTO markov_chains (model_id, prefix_id, next_token_id, frequency) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET frequency = frequency + excluded.frequency;
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertChain)

	vocabCache := make(map[string]int)
	tokenID := func(text string) (int, error) {
		if id, ok := vocabCache[text]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, text).Scan(&id); err != nil {
			return 0, fmt.Errorf("sql insert vocabulary error for token '%s': %w", text, err)
		}
		vocabCache[text] = id
		return id, nil
	}

	prefixCache := make(map[string]int)
	var keyBuf []byte
	for _, link := range links {
		keyBuf = keyBuf[:0]
		for j, word := range link.Group {
			id, err := tokenID(word)
			if err != nil {
				return 0, err
			}
			if j > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, int64(id), 10)
		}
		prefixKey := string(keyBuf)

		prefixID, ok := prefixCache[prefixKey]
		if !ok {
			if err := stmtGetOrInsertPrefix.QueryRowContext(ctx, prefixKey).Scan(&prefixID); err != nil {
				return 0, fmt.Errorf("failed to get or insert prefix '%s': %w", prefixKey, err)
			}
			prefixCache[prefixKey] = prefixID
		}

		nextID := EOCTokenID
		if !link.Next.EOC {
			if nextID, err = tokenID(link.Next.Text); err != nil {
				return 0, err
			}
		}

		if _, err := stmtInsertChain.ExecContext(ctx, modelID, prefixID, nextID, link.Frequency); err != nil {
			return 0, fmt.Errorf("failed to insert chain link (%s -> %s): %w", link.Group, link.Next, err)
		}
	}
	return len(links), nil
}

// LoadChain rebuilds the ChainTable stored for model. Each stored transition
// contributes as many followers as its frequency.
func (s *Store) LoadChain(ctx context.Context, model ModelInfo) (*ChainTable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.prefix_text, c.next_token_id, c.frequency
		FROM markov_chains c JOIN markov_prefixes p ON p.prefix_id = c.prefix_id
		WHERE c.model_id = ?
		ORDER BY c.prefix_id, c.rowid;
	`, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for model %d: %w", model.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	type storedLink struct {
		prefix string
		nextID int
		freq   int
	}
	var stored []storedLink
	for rows.Next() {
		var l storedLink
		if err := rows.Scan(&l.prefix, &l.nextID, &l.freq); err != nil {
			return nil, err
		}
		stored = append(stored, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	tokenCache := make(map[int]string)
	table := NewChainTable(model.Order)
	group := make(WordGroup, 0, model.Order)
	for _, l := range stored {
		group = group[:0]
		for _, idStr := range strings.Split(l.prefix, " ") {
			id, err := strconv.Atoi(idStr)
			if err != nil {
				return nil, fmt.Errorf("malformed prefix '%s': %w", l.prefix, err)
			}
			text, err := s.getTokenTextWithCache(ctx, id, tokenCache)
			if err != nil {
				return nil, fmt.Errorf("failed to get text for token %d: %w", id, err)
			}
			group = append(group, text)
		}

		next := EOCToken()
		if l.nextID != EOCTokenID {
			text, err := s.getTokenTextWithCache(ctx, l.nextID, tokenCache)
			if err != nil {
				return nil, fmt.Errorf("failed to get text for token %d: %w", l.nextID, err)
			}
			next = WordToken(text)
		}

		for i := 0; i < l.freq; i++ {
			if err := table.Add(group, next); err != nil {
				return nil, fmt.Errorf("stored chain does not fit model '%s': %w", model.Name, err)
			}
		}
	}

	s.logger.DebugContext(ctx, "Chain loaded",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("groups", table.Len()),
		slog.Int("links_loaded", len(stored)),
	)
	return table, nil
}

// getTokenTextWithCache is a helper for loading to minimize DB lookups.
func (s *Store) getTokenTextWithCache(ctx context.Context, id int, cache map[int]string) (string, error) {
	if text, ok := cache[id]; ok {
		return text, nil
	}
	var text string
	if err := s.stmtGetTokenText.QueryRowContext(ctx, id).Scan(&text); err != nil {
		return "", err
	}
	cache[id] = text
	return text, nil
}
