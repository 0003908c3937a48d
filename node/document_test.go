package node_test

import (
	"testing"

	"github.com/lestrrat-go/ofx/node"
	"github.com/stretchr/testify/require"
)

func TestDocument(t *testing.T) {
	t.Run("NewDocument", func(t *testing.T) {
		doc := node.NewDocument()
		require.NotNil(t, doc)
		require.Equal(t, node.DocumentNodeType, doc.Type())
		require.Equal(t, "#document", doc.LocalName())
		require.Equal(t, "utf-8", doc.Encoding())
		require.Nil(t, doc.DocumentElement())
	})

	t.Run("Create", func(t *testing.T) {
		doc := node.NewDocument()
		for _, n := range []node.Node{
			doc.CreateElement("test"),
			doc.CreateText([]byte("hello")),
			doc.CreateCDATASection([]byte("raw")),
			doc.CreateComment([]byte("test comment")),
			doc.CreatePI("OFX", `OFXHEADER="200"`),
			doc.CreateDocumentType("OFX", "", "", ""),
		} {
			require.Equal(t, doc, n.OwnerDocument(), "%s is owned by the document", n.Type())
		}
	})

	t.Run("SetDocumentElement", func(t *testing.T) {
		doc := node.NewDocument()
		dt := doc.CreateDocumentType("OFX", "-//OFX//DTD", "ofx.dtd", "")
		require.NoError(t, doc.AddChild(dt))

		root := doc.CreateElement("OFX")
		require.NoError(t, doc.SetDocumentElement(root))
		require.Equal(t, root, doc.DocumentElement())
		require.Equal(t, doc, root.Parent())
		require.Equal(t, dt, doc.DocumentType())
		require.Equal(t, "ofx.dtd", doc.DocumentType().SystemID())

		other := doc.CreateElement("OTHER")
		require.NoError(t, doc.SetDocumentElement(other))
		require.Equal(t, other, doc.DocumentElement(), "the root is replaced")
		require.Equal(t, dt, doc.FirstChild())
	})
}
