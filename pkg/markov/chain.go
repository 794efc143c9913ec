package markov

import (
	"strconv"
	"strings"
)

// EOCTokenText is how an end-of-chain token is spelled in exports and logs.
// It is only a label: EOC tokens are identified by Token.EOC, never by text.
const EOCTokenText = "<EOC>"

// Token is a follower observed after a word group. When EOC is set the group
// ended its line and Text is empty.
type Token struct {
	Text string
	EOC  bool
}

// EOCToken returns the end-of-chain token.
func EOCToken() Token {
	return Token{EOC: true}
}

// WordToken returns a token holding a real word.
func WordToken(text string) Token {
	return Token{Text: text}
}

// String returns the word, or EOCTokenText for the end-of-chain token.
func (t Token) String() string {
	if t.EOC {
		return EOCTokenText
	}
	return t.Text
}

// WordGroup is an ordered run of consecutive words used as a chain key.
type WordGroup []string

// key encodes the group as a map key. Each word is prefixed with its byte
// length, so distinct groups never share a key whatever their words contain.
func (g WordGroup) key() string {
	var buf []byte
	for _, w := range g {
		buf = strconv.AppendInt(buf, int64(len(w)), 10)
		buf = append(buf, ':')
		buf = append(buf, w...)
	}
	return string(buf)
}

// String joins the group with single spaces.
func (g WordGroup) String() string {
	return strings.Join(g, " ")
}

// Link is one distinct group -> token transition together with the number of
// times it was observed.
type Link struct {
	Group     WordGroup
	Next      Token
	Frequency int
}

type chainEntry struct {
	group     WordGroup
	followers []Token
}

// ChainTable maps word groups of a fixed length to the tokens that followed
// them. Follower lists keep duplicates, so a uniform draw from a list is
// weighted by observed frequency. A ChainTable is not modified by generation
// and may be shared by concurrent readers once built.
type ChainTable struct {
	keyLength int
	entries   []*chainEntry
	index     map[string]int
	byFirst   map[string][]int
}

// NewChainTable returns an empty table for groups of keyLength words.
func NewChainTable(keyLength int) *ChainTable {
	return &ChainTable{
		keyLength: keyLength,
		index:     make(map[string]int),
		byFirst:   make(map[string][]int),
	}
}

// Add appends next to the follower list of group, creating the entry if
// needed. Groups whose length differs from the table's key length are
// rejected with a *ValidationError.
func (c *ChainTable) Add(group WordGroup, next Token) error {
	if len(group) != c.keyLength {
		return &ValidationError{
			Text:      group.String(),
			KeyLength: c.keyLength,
			Msg:       "word group length does not match the key length",
		}
	}
	c.add(group, next)
	return nil
}

func (c *ChainTable) add(group WordGroup, next Token) {
	k := group.key()
	if i, ok := c.index[k]; ok {
		c.entries[i].followers = append(c.entries[i].followers, next)
		return
	}
	owned := make(WordGroup, len(group))
	copy(owned, group)
	i := len(c.entries)
	c.entries = append(c.entries, &chainEntry{group: owned, followers: []Token{next}})
	c.index[k] = i
	c.byFirst[owned[0]] = append(c.byFirst[owned[0]], i)
}

// KeyLength returns the number of words in every group of the table.
func (c *ChainTable) KeyLength() int {
	return c.keyLength
}

// Len returns the number of distinct word groups.
func (c *ChainTable) Len() int {
	return len(c.entries)
}

// Groups returns every distinct word group in the order it was first seen.
func (c *ChainTable) Groups() []WordGroup {
	groups := make([]WordGroup, len(c.entries))
	for i, e := range c.entries {
		groups[i] = e.group
	}
	return groups
}

// Followers returns the follower list of group, or nil if the group is not in
// the table. The returned slice must not be modified.
func (c *ChainTable) Followers(group WordGroup) []Token {
	i, ok := c.index[group.key()]
	if !ok {
		return nil
	}
	return c.entries[i].followers
}

// GroupsStartingWith returns the groups whose first word is word, in the
// order they were first seen.
func (c *ChainTable) GroupsStartingWith(word string) []WordGroup {
	indexes := c.byFirst[word]
	if len(indexes) == 0 {
		return nil
	}
	groups := make([]WordGroup, len(indexes))
	for i, idx := range indexes {
		groups[i] = c.entries[idx].group
	}
	return groups
}

// Links aggregates the table into distinct transitions with frequencies.
// Groups appear in first-seen order and, within a group, tokens appear in the
// order they were first observed.
func (c *ChainTable) Links() []Link {
	var links []Link
	for _, e := range c.entries {
		start := len(links)
		pos := make(map[Token]int)
		for _, t := range e.followers {
			if i, ok := pos[t]; ok {
				links[start+i].Frequency++
				continue
			}
			pos[t] = len(links) - start
			links = append(links, Link{Group: e.group, Next: t, Frequency: 1})
		}
	}
	return links
}

// BuildChain builds a ChainTable from tokenized lines. Every word position of
// every line contributes one window of keyLength words and the token after
// it, or an EOC token when the window ends the line. Windows that would run
// past the end of a line are shifted back to end on its last word, so the
// final group of a line is counted once for each of the last keyLength
// positions.
//
// The lines are validated before anything is built; on failure no table is
// returned. A *ValidationError from BuildChain sets Line to the 1-based
// position in lines, empty entries included. It is not a corpus line number:
// lines from Corpus.Words have blank lines removed, and Tokenize already
// reports short lines by their original number.
func BuildChain(lines [][]string, keyLength int) (*ChainTable, error) {
	if keyLength < 1 {
		return nil, keyLengthError(keyLength)
	}
	for i, words := range lines {
		if len(words) > 0 && len(words) < keyLength {
			return nil, shortLineError(i+1, words, strings.Join(words, " "), keyLength)
		}
	}

	table := NewChainTable(keyLength)
	for _, words := range lines {
		n := len(words)
		for i := 0; i < n; i++ {
			start := i
			if start+keyLength > n {
				start = n - keyLength
			}
			end := start + keyLength

			next := EOCToken()
			if end < n {
				next = WordToken(words[end])
			}
			table.add(words[start:end], next)
		}
	}
	return table, nil
}
