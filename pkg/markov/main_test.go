package markov

import (
	"context"
	"database/sql"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// scriptedChooser returns a fixed sequence of draws and records the size of
// every range it was asked to draw from.
type scriptedChooser struct {
	t     testing.TB
	mu    sync.Mutex
	draws []int
	sizes []int
}

func newScriptedChooser(t testing.TB, draws ...int) *scriptedChooser {
	return &scriptedChooser{t: t, draws: draws}
}

func (s *scriptedChooser) Choose(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, n)
	if len(s.draws) == 0 {
		s.t.Errorf("unexpected draw from %d items: script exhausted", n)
		return 0
	}
	d := s.draws[0]
	s.draws = s.draws[1:]
	if d < 0 || d >= n {
		s.t.Errorf("scripted draw %d out of range [0, %d)", d, n)
		return 0
	}
	return d
}

// remaining reports how many scripted draws were not consumed.
func (s *scriptedChooser) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.draws)
}

// mustBuild tokenizes text and builds its chain, failing the test on error.
func mustBuild(t testing.TB, text string, keyLength int) (*Corpus, *ChainTable) {
	t.Helper()
	corpus, err := NewLineTokenizer().Tokenize(text, keyLength)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	table, err := BuildChain(corpus.Words(), keyLength)
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}
	return corpus, table
}

// setupTestDB creates a new SQLite database and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestDBWithModel is a convenience helper that also saves a default model.
func setupTestDBWithModel(t *testing.T) (context.Context, *Store, ModelInfo) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	modelInfo, err := s.InsertModel(ctx, ModelInfo{Name: "test_model", Order: 2})
	if err != nil {
		t.Fatalf("setup: InsertModel() failed: %v", err)
	}
	_, table := mustBuild(t, "one fish two fish\nred fish blue fish", 2)
	if err := s.SaveChain(ctx, modelInfo, table); err != nil {
		t.Fatalf("setup: SaveChain() failed: %v", err)
	}
	return ctx, s, modelInfo
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for
// benchmarking. Only lines with at least five words are kept so the corpus is
// valid for key lengths up to five.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking\nit is not very long but will prevent a crash"
				return
			}
			for _, line := range strings.Split(string(content), "\n") {
				line = strings.Join(strings.Fields(line), " ")
				if len(strings.Split(line, " ")) >= 5 {
					sb.WriteString(line)
					sb.WriteString("\n")
				}
			}
		}
		benchmarkCorpus = strings.TrimSuffix(sb.String(), "\n")
	})
	return benchmarkCorpus
}
