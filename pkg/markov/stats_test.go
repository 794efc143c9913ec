package markov

import (
	"testing"
)

func TestGetStats(t *testing.T) {
	ctx, s, modelInfo := setupTestDBWithModel(t)

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if len(stats.Models) != 1 || stats.Models[0] != modelInfo {
		t.Errorf("expected only %+v, got %+v", modelInfo, stats.Models)
	}
	// one, fish, two, red, blue
	if stats.VocabSize != 5 {
		t.Errorf("expected vocab size 5, got %d", stats.VocabSize)
	}
	if stats.PrefixSize != 6 {
		t.Errorf("expected 6 prefixes, got %d", stats.PrefixSize)
	}

	want := ModelStats{Groups: 6, TotalChains: 6, TotalFrequency: 8, LineEnds: 4}
	if got := stats.Stats[modelInfo.Id]; got != want {
		t.Errorf("model stats = %+v, want %+v", got, want)
	}
}

func TestGetModelStatsEmpty(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := t.Context()

	model, err := s.InsertModel(ctx, ModelInfo{Name: "empty", Order: 2})
	if err != nil {
		t.Fatalf("InsertModel failed: %v", err)
	}
	stats, err := s.GetModelStats(ctx, model)
	if err != nil {
		t.Fatalf("GetModelStats failed: %v", err)
	}
	if stats != (ModelStats{}) {
		t.Errorf("expected zero stats for an empty model, got %+v", stats)
	}
}
