package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/CTAG07/linechain/pkg/markov"
	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
)

// persist saves table into the configured database and handles the model
// flags. Without a database path the model lives in memory for the run, which
// is enough for --export and --stats.
func persist(ctx context.Context, flags *cliFlags, config *Config, table *markov.ChainTable, logger *slog.Logger) error {
	dataSource := config.DatabasePath
	inMemory := dataSource == ""
	if inMemory {
		dataSource = ":memory:"
	}

	db, err := initDB(dataSource)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)
	if inMemory {
		// Every connection to :memory: opens its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err = markov.SetupSchema(db); err != nil {
		return fmt.Errorf("failed to setup markov schema: %w", err)
	}
	store, err := markov.NewStore(db)
	if err != nil {
		return err
	}
	defer store.Close()
	store.SetLogger(logger)

	name := flags.SaveModel
	if name == "" {
		base := filepath.Base(flags.Corpus)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	model, err := store.GetModelInfo(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		model, err = store.InsertModel(ctx, markov.ModelInfo{Name: name, Order: config.KeyLength})
	}
	if err != nil {
		return fmt.Errorf("failed to resolve model '%s': %w", name, err)
	}
	if err = store.SaveChain(ctx, model, table); err != nil {
		return err
	}

	if flags.Prune > 0 {
		if _, err = store.PruneModel(ctx, model, flags.Prune); err != nil {
			return err
		}
		if err = store.CompactVocabulary(ctx); err != nil {
			return err
		}
	}

	if flags.Stats {
		stats, err := store.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}
		ms := stats.Stats[model.Id]
		logger.Info("Model stats",
			"model", model.Name,
			"order", model.Order,
			"groups", humanize.Comma(int64(ms.Groups)),
			"links", humanize.Comma(int64(ms.TotalChains)),
			"windows", humanize.Comma(int64(ms.TotalFrequency)),
			"line_ends", humanize.Comma(int64(ms.LineEnds)),
			"vocabulary", humanize.Comma(int64(stats.VocabSize)),
			"models", len(stats.Models),
		)
	}

	if flags.Export != "" {
		var buf bytes.Buffer
		if err = store.ExportModel(ctx, model, &buf); err != nil {
			return err
		}
		size := buf.Len()
		if err = atomic.WriteFile(flags.Export, &buf); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		logger.Info("Model written", "path", flags.Export, "size", humanize.Bytes(uint64(size)))
	}

	return nil
}
