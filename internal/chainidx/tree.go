package chainidx

import (
	"sort"
	"sync"

	"github.com/Techspire/neutron/internal/codec"
)

// Tree is the node-owning, hash-keyed in-memory block tree: prev/next are
// pointers into the same map rather than separately owned structures.
// Get, Count, Empty and byHeightThenHash take the shared lock. insertOrGet
// takes no lock, and the loader does not hold mu while it inserts nodes;
// loading runs once, before any concurrent reader exists.
type Tree struct {
	mu    sync.RWMutex
	nodes map[codec.Hash]*BlockIndex
}

func NewTree() *Tree {
	return &Tree{nodes: make(map[codec.Hash]*BlockIndex)}
}

// insertOrGet returns the existing node for hash, or creates and stores a
// placeholder one. A zero hash (meaning "no parent") always returns nil.
// The same map doubles as an identity cache during streaming load, so a
// record seen before its parent still gets a stable pointer to link to.
func (t *Tree) insertOrGet(hash codec.Hash) *BlockIndex {
	if hash.IsZero() {
		return nil
	}
	if n, ok := t.nodes[hash]; ok {
		return n
	}
	n := newBlockIndex(hash)
	t.nodes[hash] = n
	return n
}

// Get returns the node for hash without creating one.
func (t *Tree) Get(hash codec.Hash) (*BlockIndex, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[hash]
	return n, ok
}

// Count returns the number of nodes currently in the tree.
func (t *Tree) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Empty reports whether the tree holds no nodes at all — used by the
// loader's tip-resolution phase to distinguish a fresh node from one
// lacking a best-chain pointer despite having blocks.
func (t *Tree) Empty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes) == 0
}

// byHeightThenHash returns every node, stably sorted by height ascending
// and, within equal heights, by block hash lexicographic order — the
// deterministic tie-break chain-trust computation requires.
func (t *Tree) byHeightThenHash() []*BlockIndex {
	t.mu.RLock()
	all := make([]*BlockIndex, 0, len(t.nodes))
	for _, n := range t.nodes {
		all = append(all, n)
	}
	t.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Height != all[j].Height {
			return all[i].Height < all[j].Height
		}
		return all[i].BlockHash.Cmp(all[j].BlockHash) < 0
	})
	return all
}
