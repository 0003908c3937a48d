// Package orderedmap is a map that iterates in insertion order. DTD
// element declarations and element attributes both need it.
package orderedmap

import (
	"errors"
	"iter"
)

var ErrDuplicateEntry = errors.New("duplicate entry")

type pair[K comparable, V any] struct {
	key   K
	value V
}

// Map never overwrites: the first value stored under a key wins.
type Map[K comparable, V any] struct {
	pairs []pair[K, V]
	index map[K]int
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{index: map[K]int{}}
}

// Set stores value under key unless key is already present
func (m *Map[K, V]) Set(key K, value V) error {
	if _, ok := m.index[key]; ok {
		return ErrDuplicateEntry
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, pair[K, V]{key: key, value: value})
	return nil
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	if m != nil {
		if i, ok := m.index[key]; ok {
			return m.pairs[i].value, true
		}
	}
	var zero V
	return zero, false
}

func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

func (m *Map[K, V]) Range() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for _, p := range m.pairs {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}
