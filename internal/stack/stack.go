// Package stack holds the LIFO containers used by the SGML reader for
// open entities and namespace scopes.
package stack

import "errors"

var ErrDuplicateItem = errors.New("item already exists")

// Stack is a LIFO backed by a slice
type Stack[T any] []T

func (s *Stack[T]) Push(v T) {
	*s = append(*s, v)
}

// Pop discards the top n items (1 if unspecified)
func (s *Stack[T]) Pop(n ...int) {
	*s = pop(*s, n)
}

func (s Stack[T]) Top() (T, bool) {
	return top(s)
}

func (s Stack[T]) Len() int {
	return len(s)
}

// Keyed is implemented by items of a Unique stack
type Keyed interface {
	Key() string
}

// Unique is a Stack that refuses a second item with the same key.
// Entity expansion uses it to catch self reference.
type Unique[T Keyed] []T

func (s *Unique[T]) Push(v T) error {
	if _, ok := s.Lookup(v.Key()); ok {
		return ErrDuplicateItem
	}
	*s = append(*s, v)
	return nil
}

func (s *Unique[T]) Pop(n ...int) {
	*s = pop(*s, n)
}

func (s Unique[T]) Top() (T, bool) {
	return top(s)
}

func (s Unique[T]) Len() int {
	return len(s)
}

// Lookup searches from the top down
func (s Unique[T]) Lookup(key string) (T, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Key() == key {
			return s[i], true
		}
	}
	var zero T
	return zero, false
}

func top[T any](s []T) (T, bool) {
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	return s[len(s)-1], true
}

func pop[T any](s []T, n []int) []T {
	count := 1
	if len(n) > 0 {
		count = n[0]
	}
	if count <= 0 {
		return s
	}
	count = min(count, len(s))
	clear(s[len(s)-count:])
	s = s[:len(s)-count]

	// give back memory after a deep document
	if cap(s) > 32 && cap(s) > 2*len(s) {
		s = append([]T(nil), s...)
	}
	return s
}
