package markov

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestGenerateStream(t *testing.T) {
	t.Run("Successful stream", func(t *testing.T) {
		corpus, table := mustBuild(t, "the cat sat\n\nthe dog ran", 2)
		g := NewGenerator(table, newScriptedChooser(t, 0, 0, 2, 0))

		stream, err := g.GenerateStream(context.Background(), corpus)
		if err != nil {
			t.Fatalf("GenerateStream failed: %v", err)
		}

		var lines []string
		for line := range stream {
			lines = append(lines, line)
		}

		expected := []string{"The cat sat", "", "The dog ran"}
		if !reflect.DeepEqual(lines, expected) {
			t.Errorf("expected %q, got %q", expected, lines)
		}
	})

	t.Run("Stream cancellation", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 100; i++ {
			fmt.Fprintf(&sb, "this is line number %d of the stream\n", i)
		}
		corpus, table := mustBuild(t, sb.String(), 2)
		g := NewGenerator(table, nil)

		ctxCancel, cancel := context.WithCancel(context.Background())
		defer cancel()

		streamCancel, err := g.GenerateStream(ctxCancel, corpus)
		if err != nil {
			t.Fatalf("GenerateStream failed: %v", err)
		}

		// Read one line, then cancel
		<-streamCancel
		cancel()

		// At most one more line may already be on its way; the channel should then close quickly.
		received := 1
		timeout := time.After(time.Second)
		for {
			select {
			case _, ok := <-streamCancel:
				if !ok {
					if received >= corpus.LineCount {
						t.Errorf("stream delivered all %d lines despite cancellation", received)
					}
					return
				}
				received++
			case <-timeout:
				t.Fatal("timed out waiting for stream channel to close after cancellation")
			}
		}
	})
}

func BenchmarkGenerateStream(b *testing.B) {
	corpus, table := mustBuild(b, createBenchmarkCorpus(), 2)
	g := NewGenerator(table, NewSeededChooser(1))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stream, err := g.GenerateStream(ctx, corpus, WithBlankLines(false))
		if err != nil {
			b.Fatalf("GenerateStream() failed: %v", err)
		}
		// We must drain the channel to measure the full lifecycle
		var bytes int64
		for line := range stream {
			bytes = bytes + int64(len(line))
		}
		b.SetBytes(bytes)
	}
}
