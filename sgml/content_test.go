package sgml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentModelBuild(t *testing.T) {
	var cm ContentModel
	cm.PushGroup()
	require.Equal(t, 1, cm.CurrentDepth)
	require.NoError(t, cm.AddSymbol("A"))
	require.NoError(t, cm.AddConnector(','))
	cm.PushGroup()
	require.Equal(t, 2, cm.CurrentDepth)
	require.NoError(t, cm.AddSymbol("B"))
	require.NoError(t, cm.AddConnector('|'))
	require.NoError(t, cm.AddSymbol("C"))
	depth, err := cm.PopGroup()
	require.NoError(t, err)
	require.Equal(t, 1, depth)
	require.NoError(t, cm.AddOccurrence('*'), "applies to the nested group")
	depth, err = cm.PopGroup()
	require.NoError(t, err)
	require.Equal(t, 0, depth)
	require.NoError(t, cm.AddOccurrence('+'), "applies to the whole model")

	require.Equal(t, ConnectorSequence, cm.Model.Connector)
	require.Equal(t, OccurrenceOneOrMore, cm.Model.Occurrence)
	require.Len(t, cm.Model.Members, 2)
	require.Equal(t, OccurrenceZeroOrMore, cm.Model.Members[1].Occurrence)
	require.Equal(t, ConnectorOr, cm.Model.Members[1].Group.Connector)

	require.True(t, cm.CanContain("A", nil))
	require.True(t, cm.CanContain("C", nil), "nested groups are searched")
	require.False(t, cm.CanContain("D", nil))
	require.False(t, cm.TextOnly())

	_, err = cm.PopGroup()
	require.True(t, errors.Is(err, ErrMalformedDTD), "unbalanced groups are rejected")
}

func TestContentModelErrors(t *testing.T) {
	var cm ContentModel
	require.True(t, errors.Is(cm.AddSymbol("A"), ErrMalformedDTD), "symbols need a group")

	cm.PushGroup()
	require.NoError(t, cm.AddConnector(','))
	require.True(t, errors.Is(cm.AddConnector('|'), ErrMixedConnectors))
	require.True(t, errors.Is(cm.AddOccurrence('!'), ErrMalformedDTD))

	require.True(t, errors.Is(cm.SetDeclaredContent("BOGUS"), ErrUnknownContentModel))
}

func TestDeclaredContent(t *testing.T) {
	inputs := map[string]DeclaredContent{
		"EMPTY":  ContentEmpty,
		"cdata":  ContentCDATA,
		"RCDATA": ContentRCDATA,
		"ANY":    ContentAny,
	}
	for input, expected := range inputs {
		var cm ContentModel
		require.NoError(t, cm.SetDeclaredContent(input), "SetDeclaredContent should accept %s", input)
		require.Equal(t, expected, cm.DeclaredContent)
		require.Equal(t, expected == ContentAny, cm.CanContain("X", nil), "only ANY accepts arbitrary children")
	}
}

func TestTextOnly(t *testing.T) {
	var cm ContentModel
	cm.PushGroup()
	require.NoError(t, cm.AddSymbol("#PCDATA"))
	_, err := cm.PopGroup()
	require.NoError(t, err)
	require.True(t, cm.TextOnly())

	decl := &ElementDecl{Name: "MEMO", ContentModel: &cm}
	require.True(t, decl.TextOnly())
	require.False(t, decl.CanContain("NAME", nil))

	var mixed ContentModel
	mixed.PushGroup()
	require.NoError(t, mixed.AddSymbol("#PCDATA"))
	require.NoError(t, mixed.AddConnector('|'))
	require.NoError(t, mixed.AddSymbol("B"))
	_, err = mixed.PopGroup()
	require.NoError(t, err)
	require.False(t, mixed.TextOnly(), "mixed content with elements is not text only")
	require.True(t, mixed.Model.Mixed)

	var nilDecl *ElementDecl
	require.False(t, nilDecl.TextOnly())
}

func TestElementDeclInclusionsExclusions(t *testing.T) {
	var cm ContentModel
	cm.PushGroup()
	require.NoError(t, cm.AddSymbol("A"))
	require.NoError(t, cm.AddConnector('|'))
	require.NoError(t, cm.AddSymbol("B"))
	_, err := cm.PopGroup()
	require.NoError(t, err)

	decl := &ElementDecl{
		Name:         "X",
		ContentModel: &cm,
		Inclusions:   []string{"C"},
		Exclusions:   []string{"B", "C"},
	}
	require.True(t, decl.CanContain("A", nil))
	require.False(t, decl.CanContain("B", nil), "exclusions override the model")
	require.False(t, decl.CanContain("C", nil), "exclusions are checked before inclusions")

	decl.Exclusions = nil
	require.True(t, decl.CanContain("C", nil), "inclusions extend the model")
}

func TestAddAttDefs(t *testing.T) {
	decl := &ElementDecl{Name: "X"}
	decl.AddAttDefs([]*AttDef{
		{Name: "id", Type: AttrID},
		{Name: "kind", Type: AttrCDATA, Default: "first"},
	})
	decl.AddAttDefs([]*AttDef{
		{Name: "kind", Type: AttrNmtoken, Default: "second"},
		{Name: "extra"},
	})

	require.Equal(t, 3, decl.AttList.Len())
	kind := decl.FindAttribute("kind")
	require.NotNil(t, kind)
	require.Equal(t, "first", kind.Default, "the first definition wins")
	require.Equal(t, AttrCDATA, kind.Type)
	require.Nil(t, decl.FindAttribute("missing"))

	var names []string
	for name := range decl.AttList.Range() {
		names = append(names, name)
	}
	require.Equal(t, []string{"id", "kind", "extra"}, names, "declaration order is kept")
}
