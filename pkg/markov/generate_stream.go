package markov

import (
	"context"
	"log/slog"
)

// GenerateStream works like Generate but delivers the lines one at a time, in
// order, on the returned channel. The channel is closed once every line has
// been sent or the context is cancelled. Lines are always generated
// sequentially; WithConcurrency is ignored.
//
// An empty chain is reported immediately as an *InvalidStateError.
func (g *Generator) GenerateStream(ctx context.Context, corpus *Corpus, opts ...GenerateOption) (<-chan string, error) {
	if err := g.checkTable(); err != nil {
		return nil, err
	}
	options := newGenerateOptions(opts)
	plans := g.plan(corpus, options)

	lineChan := make(chan string)

	go func() {
		defer close(lineChan)

		for i, p := range plans {
			select {
			case <-ctx.Done():
				g.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("lines_sent", i),
					slog.Int("lines_planned", len(plans)),
				)
				return
			default:
				// continue
			}

			var line string
			if !p.blank {
				var err error
				line, err = g.GenerateLine(p.parts)
				if err != nil {
					g.logger.ErrorContext(ctx, "failed to generate line for stream", slog.Int("line", i), slog.Any("error", err))
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case lineChan <- line:
			}
		}
	}()

	return lineChan, nil
}
