package dataset

import (
	"github.com/google/btree"

	"github.com/hupe1980/strata/model"
)

const sorterDegree = 32

// Sorter stages unordered records in a btree. Adding a key that is already
// present replaces its value, so the last write wins.
type Sorter[K model.Key, V any] struct {
	tree     *btree.BTreeG[model.Entry[K, V]]
	replaced int
}

// NewSorter returns an empty Sorter.
func NewSorter[K model.Key, V any]() *Sorter[K, V] {
	return &Sorter[K, V]{
		tree: btree.NewG(sorterDegree, func(a, b model.Entry[K, V]) bool { return a.Key < b.Key }),
	}
}

// Add stages one record.
func (s *Sorter[K, V]) Add(key K, value V) {
	if _, ok := s.tree.ReplaceOrInsert(model.Entry[K, V]{Key: key, Value: value}); ok {
		s.replaced++
	}
}

// AddAll stages every record of entries in order.
func (s *Sorter[K, V]) AddAll(entries []model.Entry[K, V]) {
	for _, e := range entries {
		s.Add(e.Key, e.Value)
	}
}

// Len returns the number of distinct keys.
func (s *Sorter[K, V]) Len() int { return s.tree.Len() }

// Replaced returns how many records overwrote an earlier value.
func (s *Sorter[K, V]) Replaced() int { return s.replaced }

// Entries returns the staged records sorted strictly ascending by key.
func (s *Sorter[K, V]) Entries() []model.Entry[K, V] {
	out := make([]model.Entry[K, V], 0, s.tree.Len())
	s.tree.Ascend(func(e model.Entry[K, V]) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Sorted reports whether entries are strictly ascending by key.
func Sorted[K model.Key, V any](entries []model.Entry[K, V]) bool {
	for i := 1; i < len(entries); i++ {
		if !(entries[i-1].Key < entries[i].Key) {
			return false
		}
	}
	return true
}
