package markov

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Generator produces text from a ChainTable. The table is only read, so a
// single table can back several generators.
type Generator struct {
	table   *ChainTable
	chooser Chooser
	logger  *slog.Logger
}

// NewGenerator creates a Generator drawing from table. A nil chooser selects
// DefaultChooser.
func NewGenerator(table *ChainTable, chooser Chooser) *Generator {
	if chooser == nil {
		chooser = DefaultChooser()
	}
	return &Generator{
		table:   table,
		chooser: chooser,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	blankLines   bool
	sampledParts bool
	concurrency  int
}

// GenerateOption is a function that configures Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithBlankLines sets whether blank lines of the corpus are reproduced as
// empty strings in the output. When disabled, blank lines are skipped.
// Default: true
func WithBlankLines(keep bool) GenerateOption {
	return func(o *generateOptions) { o.blankLines = keep }
}

// WithSampledPartCount makes every generated line use the part count of one
// randomly drawn corpus line instead of the part count of the line it stands
// in for.
// Default: false
func WithSampledPartCount(sampled bool) GenerateOption {
	return func(o *generateOptions) { o.sampledParts = sampled }
}

// WithConcurrency sets how many lines Generate builds in parallel. Values
// above 1 require a Chooser that is safe for concurrent use.
// Default: 1
func WithConcurrency(n int) GenerateOption {
	return func(o *generateOptions) { o.concurrency = n }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		blankLines:  true,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.concurrency < 1 {
		options.concurrency = 1
	}
	return options
}

// PartCount returns how many key-sized parts cover a line of words, rounded up.
func PartCount(words []string, keyLength int) int {
	if keyLength < 1 {
		return 0
	}
	return (len(words) + keyLength - 1) / keyLength
}

// linePlan describes one output line. blank lines are emitted as "".
type linePlan struct {
	parts int
	blank bool
}

func (g *Generator) checkTable() error {
	if g.table == nil || g.table.Len() == 0 {
		return &InvalidStateError{Msg: "cannot generate text", Err: ErrEmptyChain}
	}
	return nil
}

// plan lays out the output lines for corpus.
func (g *Generator) plan(corpus *Corpus, options *generateOptions) []linePlan {
	sampled := 0
	if options.sampledParts && len(corpus.Lines) > 0 {
		sampled = PartCount(choose(g.chooser, corpus.Lines).Words, g.table.KeyLength())
	}

	partsAt := make(map[int]int, len(corpus.Lines))
	for _, line := range corpus.Lines {
		if options.sampledParts {
			partsAt[line.Number] = sampled
		} else {
			partsAt[line.Number] = PartCount(line.Words, g.table.KeyLength())
		}
	}

	plans := make([]linePlan, 0, corpus.LineCount)
	for i := 0; i < corpus.LineCount; i++ {
		parts, ok := partsAt[i]
		if !ok {
			if options.blankLines {
				plans = append(plans, linePlan{blank: true})
			}
			continue
		}
		plans = append(plans, linePlan{parts: parts})
	}
	return plans
}

// Generate produces one line of text for every line of corpus, each about as
// long as the line it replaces. Generation stops with ctx.Err() if the
// context is cancelled.
func (g *Generator) Generate(ctx context.Context, corpus *Corpus, opts ...GenerateOption) ([]string, error) {
	if err := g.checkTable(); err != nil {
		return nil, err
	}
	options := newGenerateOptions(opts)
	plans := g.plan(corpus, options)
	out := make([]string, len(plans))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(options.concurrency)
	for i, p := range plans {
		if p.blank {
			continue
		}
		if err := egCtx.Err(); err != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			line, err := g.GenerateLine(p.parts)
			if err != nil {
				return err
			}
			out[i] = line
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.logger.DebugContext(ctx, "Text generated",
		slog.Int("lines", len(out)),
		slog.Int("key_length", g.table.KeyLength()),
		slog.Int("concurrency", options.concurrency),
	)
	return out, nil
}

// GenerateLine builds a single line out of parts key-sized parts.
//
// The line opens with a random group. After each part a follower of the
// current group is drawn: an EOC follower restarts the walk from a new random
// group, and a word follower continues with a random group starting with that
// word. A word no group starts with is emitted on its own as the next part,
// after which the walk restarts. Only the first word of the line is
// capitalized. No draw is made after the last part.
func (g *Generator) GenerateLine(parts int) (string, error) {
	if err := g.checkTable(); err != nil {
		return "", err
	}
	if parts <= 0 {
		return "", nil
	}

	entries := g.table.entries
	key := choose(g.chooser, entries).group
	deadEnd := false
	words := make([]string, 0, parts*g.table.KeyLength())
	restarts := 0

	for part := 0; part < parts; part++ {
		words = append(words, key...)
		if part == parts-1 {
			break
		}

		if deadEnd {
			key = choose(g.chooser, entries).group
			deadEnd = false
			restarts++
			continue
		}

		next := choose(g.chooser, g.table.Followers(key))
		if next.EOC {
			key = choose(g.chooser, entries).group
			restarts++
			continue
		}

		candidates := g.table.byFirst[next.Text]
		if len(candidates) == 0 {
			key = WordGroup{next.Text}
			deadEnd = true
			continue
		}
		key = entries[choose(g.chooser, candidates)].group
	}

	words[0] = capitalize(words[0])
	line := strings.TrimRightFunc(strings.Join(words, " "), unicode.IsSpace)

	g.logger.Debug("Line generated",
		slog.Int("parts", parts),
		slog.Int("words", len(words)),
		slog.Int("restarts", restarts),
	)
	return line, nil
}

// capitalize upper-cases the first letter of word and leaves the rest alone.
func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 || r == utf8.RuneError {
		return word
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return word
	}
	return string(upper) + word[size:]
}
