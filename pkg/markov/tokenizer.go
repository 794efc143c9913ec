package markov

import (
	"fmt"
	"io"
	"strings"
)

// Line is a single non-blank line of a corpus, split into words.
type Line struct {
	Number int // 0-based position of the line in the original text
	Words  []string
}

// Corpus is a tokenized text. Blank lines are not part of Lines but are still
// counted by LineCount so output can mirror the original layout.
type Corpus struct {
	Lines     []Line
	LineCount int
}

// Words returns the word slices of every non-blank line, in order.
func (c *Corpus) Words() [][]string {
	words := make([][]string, len(c.Lines))
	for i, line := range c.Lines {
		words[i] = line.Words
	}
	return words
}

// BlankLines returns the 0-based numbers of the lines that were empty in the
// original text.
func (c *Corpus) BlankLines() []int {
	var blank []int
	next := 0
	for _, line := range c.Lines {
		for ; next < line.Number; next++ {
			blank = append(blank, next)
		}
		next = line.Number + 1
	}
	for ; next < c.LineCount; next++ {
		blank = append(blank, next)
	}
	return blank
}

// LineTokenizer splits raw text into lines and lines into words. Both
// separators are literal strings, so consecutive word separators produce
// empty words rather than being collapsed.
type LineTokenizer struct {
	separator     string
	lineSeparator string
}

// Option Is a function that configures a LineTokenizer.
type Option func(*LineTokenizer)

// WithSeparator sets the string words are split on.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *LineTokenizer) {
		t.separator = sep
	}
}

// WithLineSeparator sets the string lines are split on. With the default
// "\n", a trailing "\r" is also removed from every line so CRLF text
// tokenizes like LF text.
// Default: "\n"
func WithLineSeparator(sep string) Option {
	return func(t *LineTokenizer) {
		t.lineSeparator = sep
	}
}

// NewLineTokenizer creates a tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewLineTokenizer(opts ...Option) *LineTokenizer {
	t := &LineTokenizer{
		separator:     " ",
		lineSeparator: "\n",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize splits text into a Corpus and checks that every non-blank line has
// at least keyLength words. A failed check returns a *ValidationError naming
// the first offending line.
func (t *LineTokenizer) Tokenize(text string, keyLength int) (*Corpus, error) {
	if keyLength < 1 {
		return nil, keyLengthError(keyLength)
	}

	rawLines := strings.Split(text, t.lineSeparator)
	corpus := &Corpus{
		Lines:     make([]Line, 0, len(rawLines)),
		LineCount: len(rawLines),
	}

	for i, raw := range rawLines {
		if t.lineSeparator == "\n" {
			raw = strings.TrimSuffix(raw, "\r")
		}
		if raw == "" {
			continue
		}
		words := strings.Split(raw, t.separator)
		if len(words) < keyLength {
			return nil, shortLineError(i+1, words, raw, keyLength)
		}
		corpus.Lines = append(corpus.Lines, Line{Number: i, Words: words})
	}

	return corpus, nil
}

// TokenizeReader reads all of r and tokenizes it with Tokenize.
func (t *LineTokenizer) TokenizeReader(r io.Reader, keyLength int) (*Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return t.Tokenize(string(data), keyLength)
}
