package markov

import (
	"errors"
	"fmt"
)

// ErrEmptyChain is reported (wrapped in an InvalidStateError) when text is
// requested from a ChainTable that holds no word groups.
var ErrEmptyChain = errors.New("chain table is empty")

// ValidationError reports a corpus that cannot be used with the requested key
// length. Line is the 1-based number of the offending line, or 0 when the
// problem is not tied to a single line.
type ValidationError struct {
	Line      int
	Text      string
	KeyLength int
	Msg       string
}

func (e *ValidationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("invalid corpus: %s", e.Msg)
	}
	return fmt.Sprintf("invalid corpus: line %d %q: %s", e.Line, e.Text, e.Msg)
}

// InvalidStateError reports a generation request that cannot be served by the
// current chain, such as one built from an empty corpus.
type InvalidStateError struct {
	Msg string
	Err error
}

func (e *InvalidStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid state: %s: %v", e.Msg, e.Err)
	}
	return "invalid state: " + e.Msg
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

func shortLineError(line int, words []string, text string, keyLength int) *ValidationError {
	return &ValidationError{
		Line:      line,
		Text:      text,
		KeyLength: keyLength,
		Msg:       fmt.Sprintf("has %d words, fewer than the key length %d", len(words), keyLength),
	}
}

func keyLengthError(keyLength int) *ValidationError {
	return &ValidationError{
		KeyLength: keyLength,
		Msg:       fmt.Sprintf("key length must be at least 1, got %d", keyLength),
	}
}
