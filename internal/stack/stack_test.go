package stack_test

import (
	"testing"

	"github.com/lestrrat-go/ofx/internal/stack"
	"github.com/stretchr/testify/require"
)

type entityName string

func (n entityName) Key() string { return string(n) }

func TestStack(t *testing.T) {
	var s stack.Stack[string]
	for _, tag := range []string{"OFX", "BANKMSGSRSV1", "STMTTRNRS", "STMTRS", "BANKTRANLIST"} {
		s.Push(tag)
	}
	require.Equal(t, 5, s.Len())

	tag, ok := s.Top()
	require.True(t, ok)
	require.Equal(t, "BANKTRANLIST", tag)

	s.Pop(3)
	tag, _ = s.Top()
	require.Equal(t, "BANKMSGSRSV1", tag)

	s.Pop(10)
	require.Zero(t, s.Len(), "popping past the bottom empties the stack")
	_, ok = s.Top()
	require.False(t, ok)

	s.Pop(0)
	require.Zero(t, s.Len())
}

func TestStackShrinks(t *testing.T) {
	var s stack.Stack[int]
	for i := range 100 {
		s.Push(i)
	}
	s.Pop(95)
	require.Equal(t, 5, s.Len())
	require.Less(t, cap(s), 100, "a mostly empty stack releases its backing array")
	top, _ := s.Top()
	require.Equal(t, 4, top)
}

func TestUnique(t *testing.T) {
	var s stack.Unique[entityName]
	require.NoError(t, s.Push("ofxdecl"))
	require.NoError(t, s.Push("leaf"))
	require.ErrorIs(t, s.Push("ofxdecl"), stack.ErrDuplicateItem, "an entity already being expanded is refused")

	v, ok := s.Lookup("ofxdecl")
	require.True(t, ok)
	require.Equal(t, entityName("ofxdecl"), v)

	s.Pop()
	_, ok = s.Lookup("leaf")
	require.False(t, ok)
	require.NoError(t, s.Push("leaf"), "a finished entity may be expanded again")
}
