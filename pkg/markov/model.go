package markov

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ModelInfo holds the metadata of a stored model: its unique ID, name, and
// the order of the chain (the key length of its word groups).
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// ExportedModel is the serializable representation of a stored model, used
// for JSON-based import and export. Words are spelled out so an export can be
// imported into any database.
type ExportedModel struct {
	Name   string          `json:"name"`
	Order  int             `json:"order"`
	Chains []ExportedChain `json:"chains"`
}

// ExportedChain is one transition of an ExportedModel. EOC marks a group that
// ended its line, in which case Next is empty.
type ExportedChain struct {
	Group     []string `json:"group"`
	Next      string   `json:"next,omitempty"`
	EOC       bool     `json:"eoc,omitempty"`
	Frequency int      `json:"frequency"`
}

// GetModelInfos retrieves metadata for all models currently in the database,
// returning them in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Order); err != nil {
			return nil, err
		}
		models[model.Name] = model
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model specified by name.
// It returns sql.ErrNoRows if the model does not exist.
func (s *Store) GetModelInfo(ctx context.Context, modelName string) (ModelInfo, error) {
	var modelId, modelOrder int
	err := s.stmtGetModelInfo.QueryRowContext(ctx, modelName).Scan(&modelId, &modelOrder)
	if err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:    modelId,
		Name:  modelName,
		Order: modelOrder,
	}, nil
}

// InsertModel creates a new model entry in the database. The returned
// ModelInfo carries the assigned ID.
func (s *Store) InsertModel(ctx context.Context, model ModelInfo) (ModelInfo, error) {
	if model.Order < 1 {
		return ModelInfo{}, keyLengthError(model.Order)
	}
	res, err := s.stmtAddModel.ExecContext(ctx, model.Name, model.Order)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to insert model '%s': %w", model.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ModelInfo{}, err
	}
	model.Id = int(id)
	return model, nil
}

// RemoveModel deletes a model and all of its associated chain data from the
// database. The operation is performed within a transaction.
func (s *Store) RemoveModel(ctx context.Context, model ModelInfo) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_chains WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove chains for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", model.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)

	return tx.Commit()
}

// ExportModel serializes a given model into a JSON format and writes it to the
// provided io.Writer. This is useful for backups or for transferring models.
func (s *Store) ExportModel(ctx context.Context, model ModelInfo, w io.Writer) error {
	table, err := s.LoadChain(ctx, model)
	if err != nil {
		return fmt.Errorf("could not load chain for export: %w", err)
	}

	links := table.Links()
	exported := ExportedModel{
		Name:   model.Name,
		Order:  model.Order,
		Chains: make([]ExportedChain, 0, len(links)),
	}
	for _, link := range links {
		exported.Chains = append(exported.Chains, ExportedChain{
			Group:     link.Group,
			Next:      link.Next.Text,
			EOC:       link.Next.EOC,
			Frequency: link.Frequency,
		})
	}

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("groups_exported", table.Len()),
		slog.Int("chains_exported", len(exported.Chains)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportModel reads a JSON representation of a model from an io.Reader and
// merges its data into the database. If the model name already exists, the
// new chain data is merged with the existing data (frequencies are added) as
// long as the orders match. If the model does not exist, it is created. The
// entire operation is transactional.
func (s *Store) ImportModel(ctx context.Context, r io.Reader) (ModelInfo, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return ModelInfo{}, fmt.Errorf("failed to decode json model: %w", err)
	}
	if imported.Name == "" {
		return ModelInfo{}, errors.New("imported model has no name")
	}
	if imported.Order < 1 {
		return ModelInfo{}, keyLengthError(imported.Order)
	}

	links := make([]Link, 0, len(imported.Chains))
	for i, chain := range imported.Chains {
		if len(chain.Group) != imported.Order {
			return ModelInfo{}, fmt.Errorf("import consistency error: chain %d has %d words, model order is %d", i, len(chain.Group), imported.Order)
		}
		if chain.Frequency < 1 {
			return ModelInfo{}, fmt.Errorf("import consistency error: chain %d has frequency %d", i, chain.Frequency)
		}
		next := WordToken(chain.Next)
		if chain.EOC {
			next = EOCToken()
		}
		links = append(links, Link{Group: chain.Group, Next: next, Frequency: chain.Frequency})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	model := ModelInfo{Name: imported.Name, Order: imported.Order}
	var storedOrder int
	err = tx.QueryRowContext(ctx, "SELECT model_id, model_order FROM markov_models WHERE model_name = ?", imported.Name).Scan(&model.Id, &storedOrder)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, "INSERT INTO markov_models (model_name, model_order) VALUES (?, ?)", imported.Name, imported.Order)
		if err != nil {
			return ModelInfo{}, fmt.Errorf("failed to insert new model '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		model.Id = int(newID)
	} else if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to query for model '%s': %w", imported.Name, err)
	} else if storedOrder != imported.Order {
		return ModelInfo{}, fmt.Errorf("cannot merge model '%s': stored order %d, imported order %d", imported.Name, storedOrder, imported.Order)
	}

	count, err := s.saveLinks(ctx, tx, model.Id, links)
	if err != nil {
		return ModelInfo{}, err
	}

	s.logger.InfoContext(ctx, "Model imported successfully",
		slog.String("model_name", model.Name),
		slog.Int("target_model_id", model.Id),
		slog.Int("chains_merged", count),
	)

	if err := tx.Commit(); err != nil {
		return ModelInfo{}, err
	}
	return model, nil
}
