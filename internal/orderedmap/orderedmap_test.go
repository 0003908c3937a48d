package orderedmap_test

import (
	"testing"

	"github.com/lestrrat-go/ofx/internal/orderedmap"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	m := orderedmap.New[string, string]()
	require.NoError(t, m.Set("STMTTRN", "- - (TRNTYPE, DTPOSTED, TRNAMT, FITID)"))
	require.NoError(t, m.Set("TRNTYPE", "- o (#PCDATA)"))
	require.NoError(t, m.Set("DTPOSTED", "- o (#PCDATA)"))
	require.ErrorIs(t, m.Set("TRNTYPE", "- - ANY"), orderedmap.ErrDuplicateEntry, "redeclaration is refused")

	v, ok := m.Get("TRNTYPE")
	require.True(t, ok)
	require.Equal(t, "- o (#PCDATA)", v, "first declaration wins")

	_, ok = m.Get("MEMO")
	require.False(t, ok)

	var keys []string
	for k := range m.Range() {
		keys = append(keys, k)
		if len(keys) == 2 {
			break
		}
	}
	require.Equal(t, []string{"STMTTRN", "TRNTYPE"}, keys, "iteration follows declaration order and stops early")
	require.Equal(t, 3, m.Len())
}

func TestNilMap(t *testing.T) {
	var m *orderedmap.Map[string, int]
	require.Zero(t, m.Len())
	_, ok := m.Get("x")
	require.False(t, ok)
	for range m.Range() {
		t.Fatal("nil map yields nothing")
	}
}
