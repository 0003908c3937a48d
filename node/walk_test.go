package node_test

import (
	"testing"

	"github.com/lestrrat-go/ofx/node"
	"github.com/stretchr/testify/require"
)

func TestWalk(t *testing.T) {
	doc := buildStatement(t)

	var names []string
	err := node.Walk(doc, func(n node.Node) error {
		if e, ok := n.(*node.Element); ok {
			names = append(names, e.Name())
			if e.Name() == "SIGNONMSGSRSV1" {
				return node.ErrSkipChildren
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"OFX", "SIGNONMSGSRSV1", "BANKTRANLIST", "STMTTRN", "FITID", "STMTTRN", "FITID", "STMTTRN", "FITID"}, names)
}

func TestTrimText(t *testing.T) {
	doc := node.NewDocument()
	root := doc.CreateElement("STMTTRN")
	require.NoError(t, doc.SetDocumentElement(root))
	require.NoError(t, root.AddContent([]byte("\n  ")))
	name := doc.CreateElement("NAME")
	require.NoError(t, root.AddChild(name))
	require.NoError(t, name.AddContent([]byte("  COFFEE SHOP \r\n")))

	node.TrimText(doc)
	require.Equal(t, name, root.FirstChild(), "whitespace only text is removed")
	require.Equal(t, "COFFEE SHOP", name.Text())
}

func TestCloneDocument(t *testing.T) {
	doc := buildStatement(t)
	doc.SetEncoding("windows-1252")
	root := doc.DocumentElement()
	require.NoError(t, root.SetAttribute("id", "1"))

	clone := node.CloneDocument(doc)
	require.Equal(t, "windows-1252", clone.Encoding())
	croot := clone.DocumentElement()
	require.NotSame(t, root, croot)
	require.Equal(t, clone, croot.OwnerDocument())
	require.Equal(t, "0", croot.ChildText("SIGNONMSGSRSV1/SONRS/STATUS/CODE"))
	v, _ := croot.GetAttribute("id")
	require.Equal(t, "1", v)

	croot.Lookup("SIGNONMSGSRSV1/SONRS/STATUS/CODE").SetText("15500")
	require.Equal(t, "0", root.ChildText("SIGNONMSGSRSV1/SONRS/STATUS/CODE"), "the original is untouched")
}
