package markov

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name      string
		text      string
		keyLength int
		wantLines []Line
		wantCount int
		wantBlank []int
	}{
		{
			name:      "Two lines",
			text:      "the cat sat\nthe dog ran",
			keyLength: 2,
			wantLines: []Line{
				{Number: 0, Words: []string{"the", "cat", "sat"}},
				{Number: 1, Words: []string{"the", "dog", "ran"}},
			},
			wantCount: 2,
		},
		{
			name:      "Blank lines are filtered and remembered",
			text:      "a b\n\nc d\n\n\ne f\n",
			keyLength: 2,
			wantLines: []Line{
				{Number: 0, Words: []string{"a", "b"}},
				{Number: 2, Words: []string{"c", "d"}},
				{Number: 5, Words: []string{"e", "f"}},
			},
			wantCount: 7,
			wantBlank: []int{1, 3, 4, 6},
		},
		{
			name:      "CRLF line endings are removed",
			text:      "a b\r\n\r\nc d\r\n",
			keyLength: 2,
			wantLines: []Line{
				{Number: 0, Words: []string{"a", "b"}},
				{Number: 2, Words: []string{"c", "d"}},
			},
			wantCount: 4,
			wantBlank: []int{1, 3},
		},
		{
			name:      "Consecutive spaces yield empty words",
			text:      "a  b",
			keyLength: 3,
			wantLines: []Line{
				{Number: 0, Words: []string{"a", "", "b"}},
			},
			wantCount: 1,
		},
		{
			name:      "Empty corpus",
			text:      "",
			keyLength: 2,
			wantLines: []Line{},
			wantCount: 1,
			wantBlank: []int{0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			corpus, err := NewLineTokenizer().Tokenize(tc.text, tc.keyLength)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			if !reflect.DeepEqual(corpus.Lines, tc.wantLines) {
				t.Errorf("Lines = %+v, want %+v", corpus.Lines, tc.wantLines)
			}
			if corpus.LineCount != tc.wantCount {
				t.Errorf("LineCount = %d, want %d", corpus.LineCount, tc.wantCount)
			}
			if got := corpus.BlankLines(); !reflect.DeepEqual(got, tc.wantBlank) {
				t.Errorf("BlankLines() = %v, want %v", got, tc.wantBlank)
			}
		})
	}
}

func TestTokenizeValidation(t *testing.T) {
	testCases := []struct {
		name      string
		text      string
		keyLength int
		wantLine  int
		wantText  string
	}{
		{name: "Short first line", text: "one\ntwo words", keyLength: 2, wantLine: 1, wantText: "one"},
		{name: "Short line after blank", text: "a b c\n\nd e", keyLength: 3, wantLine: 3, wantText: "d e"},
		{name: "Zero key length", text: "a b", keyLength: 0},
		{name: "Negative key length", text: "a b", keyLength: -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			corpus, err := NewLineTokenizer().Tokenize(tc.text, tc.keyLength)
			if corpus != nil {
				t.Errorf("expected no corpus on failure, got %+v", corpus)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if vErr.Line != tc.wantLine {
				t.Errorf("Line = %d, want %d", vErr.Line, tc.wantLine)
			}
			if vErr.Text != tc.wantText {
				t.Errorf("Text = %q, want %q", vErr.Text, tc.wantText)
			}
			if tc.wantText != "" && !strings.Contains(err.Error(), tc.wantText) {
				t.Errorf("error %q does not mention the offending line", err.Error())
			}
		})
	}
}

func TestTokenizerOptions(t *testing.T) {
	tokenizer := NewLineTokenizer(WithSeparator(","), WithLineSeparator("\r\n"))
	corpus, err := tokenizer.Tokenize("a,b c\r\nd,e", 2)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want := [][]string{{"a", "b c"}, {"d", "e"}}
	if got := corpus.Words(); !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %q, want %q", got, want)
	}

	// Carriage returns are only stripped for the default line separator.
	corpus, err = NewLineTokenizer(WithLineSeparator("|")).Tokenize("a b\r|c d", 2)
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want = [][]string{{"a", "b\r"}, {"c", "d"}}
	if got := corpus.Words(); !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %q, want %q", got, want)
	}
}

func TestTokenizeReader(t *testing.T) {
	corpus, err := NewLineTokenizer().TokenizeReader(strings.NewReader("x y z"), 2)
	if err != nil {
		t.Fatalf("TokenizeReader() error = %v", err)
	}
	if len(corpus.Lines) != 1 || len(corpus.Lines[0].Words) != 3 {
		t.Errorf("unexpected corpus %+v", corpus)
	}

	readErr := errors.New("disk on fire")
	_, err = NewLineTokenizer().TokenizeReader(iotest.ErrReader(readErr), 2)
	if !errors.Is(err, readErr) {
		t.Errorf("expected read error to be wrapped, got %v", err)
	}
}
