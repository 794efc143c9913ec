/*
Package markov builds fixed-order Markov chains over the lines of a text
corpus and walks them to generate new lines of comparable length.

A corpus is split into lines and space separated words by a LineTokenizer.
BuildChain turns the lines into a ChainTable, mapping every group of
keyLength consecutive words to the words observed right after it, and a
Generator draws from that table to produce text. Randomness is supplied by a
Chooser so callers can seed or script every draw.

Chains can be persisted to SQLite through a Store, which also supports JSON
export and import, pruning and statistics.
*/
package markov
