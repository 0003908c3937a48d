package sgml

import "github.com/lestrrat-go/ofx/internal/stack"

type nsBinding struct {
	prefix string
	uri    string
}

// nsScope tracks xmlns declarations on the open elements. Inner
// declarations shadow outer ones.
type nsScope struct {
	bindings stack.Stack[nsBinding]
}

func (s *nsScope) Push(prefix, uri string) {
	s.bindings.Push(nsBinding{prefix: prefix, uri: uri})
}

func (s *nsScope) Pop(n int) {
	if n > 0 {
		s.bindings.Pop(n)
	}
}

func (s *nsScope) Len() int {
	return s.bindings.Len()
}

func (s *nsScope) Lookup(prefix string) (string, bool) {
	for i := len(s.bindings) - 1; i >= 0; i-- {
		if s.bindings[i].prefix == prefix {
			return s.bindings[i].uri, true
		}
	}
	return "", false
}
