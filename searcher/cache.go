package searcher

import "connect4/game"

type TranspositionEntry struct {
	Score int
	Depth int
}

// TranspositionCache memoises minimax results by position hash. It belongs
// to one Minimax and is not safe for concurrent use.
type TranspositionCache struct {
	entries map[game.StateHash]TranspositionEntry
}

func NewTranspositionCache() *TranspositionCache {
	return &TranspositionCache{entries: make(map[game.StateHash]TranspositionEntry)}
}

// Lookup returns the cached score if it was searched at least depth plies.
func (c *TranspositionCache) Lookup(hash game.StateHash, depth int) (int, bool) {
	entry, ok := c.entries[hash]
	if !ok || entry.Depth < depth {
		return 0, false
	}
	return entry.Score, true
}

// Store always overwrites, so a shallower result can replace a deeper one.
func (c *TranspositionCache) Store(hash game.StateHash, score, depth int) {
	c.entries[hash] = TranspositionEntry{Score: score, Depth: depth}
}

func (c *TranspositionCache) Size() int {
	return len(c.entries)
}

func (c *TranspositionCache) Clear() {
	clear(c.entries)
}
