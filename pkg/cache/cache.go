// Package cache memoizes discovered source-to-replacement transformations
// so later search rounds can substitute a known-optimal replacement
// instead of re-running the enumerator and verifier over instruction
// sequences that are structurally the same one already solved.
package cache

import (
	"bytes"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/oisee/phaistos/pkg/cpu"
)

// Entry is one discovered transformation: source replaced by
// Replacement, saving BytesSaved bytes and CyclesSaved cycles.
type Entry struct {
	Source      []uint8
	Replacement []uint8
	BytesSaved  int
	CyclesSaved int
}

// Cache stores transformations keyed by structural equality: two byte
// sequences that decode to the same multiset of instructions, in any
// order, share a cache slot. This lets a permuted instruction ordering
// the enumerator happens to emit second reuse the rule found for the
// first ordering, generalizing the teacher's result.Table slice (which
// kept every discovered Rule rather than deduplicating by structure).
type Cache struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{index: map[string]int{}}
}

// Add records e, keeping the best-known entry (most bytes saved, ties
// broken by cycles saved) when an entry with the same structural key
// already exists.
func (c *Cache) Add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := structuralKey(e.Source)
	if i, ok := c.index[key]; ok {
		cur := c.entries[i]
		if betterEntry(e, cur) {
			c.entries[i] = e
		}
		return
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, e)
}

func betterEntry(a, b Entry) bool {
	if a.BytesSaved != b.BytesSaved {
		return a.BytesSaved > b.BytesSaved
	}
	return a.CyclesSaved > b.CyclesSaved
}

// FindOptimal returns the best known transformation for source, if any
// sequence structurally equal to it has been cached.
func (c *Cache) FindOptimal(source []uint8) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[structuralKey(source)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Substitute returns the cached replacement bytes for source, if any.
func (c *Cache) Substitute(source []uint8) ([]uint8, bool) {
	e, ok := c.FindOptimal(source)
	if !ok {
		return nil, false
	}
	return e.Replacement, true
}

// Len returns the number of distinct structural keys cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.index = map[string]int{}
}

// structuralKey decodes seq into its instructions and sorts copies of
// their byte encodings, so any permutation of the same instructions
// maps to the same key.
func structuralKey(seq []uint8) string {
	insns := splitInstructions(seq)
	sorted := make([][]uint8, len(insns))
	copy(sorted, insns)
	slices.SortFunc(sorted, func(a, b []uint8) int { return bytes.Compare(a, b) })

	var buf bytes.Buffer
	for _, in := range sorted {
		buf.WriteByte(byte(len(in)))
		buf.Write(in)
	}
	return buf.String()
}

func splitInstructions(seq []uint8) [][]uint8 {
	var out [][]uint8
	for i := 0; i < len(seq); {
		size := cpu.Catalog[seq[i]].Size()
		if i+size > len(seq) {
			size = len(seq) - i
		}
		out = append(out, seq[i:i+size])
		i += size
	}
	return out
}
