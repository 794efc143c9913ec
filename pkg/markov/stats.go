package markov

import (
	"context"
)

// DBStats holds aggregated statistics for the entire database, including a
// list of all models and their individual stats.
type DBStats struct {
	Models     []ModelInfo        // A list of models in the database
	Stats      map[int]ModelStats // A mapping of model ids to their stats
	VocabSize  int                // The number of unique words in all models
	PrefixSize int                // The number of unique word groups in all models
}

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Groups         int // The number of distinct word groups.
	TotalChains    int // The number of unique group->next_token links.
	TotalFrequency int // The sum of frequencies of all links; the number of trained windows.
	LineEnds       int // How many of those windows ended a line.
}

// GetModelStats returns the statistics of a single model.
func (s *Store) GetModelStats(ctx context.Context, model ModelInfo) (ModelStats, error) {
	var stats ModelStats
	if err := s.stmtModelGroups.QueryRowContext(ctx, model.Id).Scan(&stats.Groups); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelChains.QueryRowContext(ctx, model.Id).Scan(&stats.TotalChains); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelFreq.QueryRowContext(ctx, model.Id).Scan(&stats.TotalFrequency); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelLineEnds.QueryRowContext(ctx, model.Id).Scan(&stats.LineEnds); err != nil {
		return ModelStats{}, err
	}
	return stats, nil
}

// GetStats returns a snapshot of statistics for the entire database,
// including global counts and per-model stats.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := s.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	var vocabLen int
	err = s.stmtGetVocabLen.QueryRowContext(ctx).Scan(&vocabLen)
	if err != nil {
		return nil, err
	}

	var prefixLen int
	err = s.stmtGetPrefixLen.QueryRowContext(ctx).Scan(&prefixLen)
	if err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(modelInfos))
	modelStats := make(map[int]ModelStats)
	for _, v := range modelInfos {
		models = append(models, v)
		stats, err := s.GetModelStats(ctx, v)
		if err != nil {
			return nil, err
		}
		modelStats[v.Id] = stats
	}

	return &DBStats{
		Models:     models,
		Stats:      modelStats,
		VocabSize:  vocabLen,
		PrefixSize: prefixLen,
	}, nil
}
