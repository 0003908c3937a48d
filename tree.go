package ofx

import (
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/sax"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// TreeBuilder is a sax.Handler that builds a node.Document. Both the
// SGML reader and the XML path feed it.
type TreeBuilder struct {
	doc  *node.Document
	node node.Node
}

var _ sax.Handler = (*TreeBuilder)(nil)

func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{}
}

// Document returns the document built so far
func (t *TreeBuilder) Document() *node.Document {
	return t.doc
}

func (t *TreeBuilder) StartDocument(_ sax.Context) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	t.doc = node.NewDocument()
	t.node = nil
	return nil
}

func (t *TreeBuilder) EndDocument(_ sax.Context) error {
	t.node = nil
	return nil
}

func (t *TreeBuilder) DocumentType(_ sax.Context, name, publicID, systemID, internalSubset string) error {
	return t.doc.AddChild(t.doc.CreateDocumentType(name, publicID, systemID, internalSubset))
}

func (t *TreeBuilder) add(n node.Node) error {
	if t.node == nil {
		return t.doc.AddChild(n)
	}
	return t.node.AddChild(n)
}

func (t *TreeBuilder) StartElementNS(_ sax.Context, localname, prefix, uri string, attrs []sax.Attribute) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
		pdebug.Printf("element %s", localname)
	}

	e := t.doc.CreateElementNS(localname, prefix, uri)
	for _, attr := range attrs {
		// the reader already drops duplicates
		_ = e.SetAttributeNS(attr.LocalName(), attr.Prefix(), attr.URI(), attr.Value(), attr.IsDefault())
	}

	if err := t.add(e); err != nil {
		return err
	}
	t.node = e
	return nil
}

func (t *TreeBuilder) EndElementNS(_ sax.Context, localname, prefix, _ string, _ bool) error {
	// close the nearest open element with that name; anything opened
	// inside it is closed along with it
	for n := t.node; n != nil; n = n.Parent() {
		e, ok := n.(*node.Element)
		if !ok {
			break
		}
		if e.LocalName() == localname && e.Prefix() == prefix {
			parent := e.Parent()
			if _, ok := parent.(*node.Document); ok {
				parent = nil
			}
			t.node = parent
			return nil
		}
	}
	return nil
}

func (t *TreeBuilder) Characters(_ sax.Context, data []byte) error {
	if t.node == nil {
		// text outside the root element
		return nil
	}
	if last, ok := t.node.LastChild().(*node.Text); ok {
		return last.AddContent(data)
	}
	return t.node.AddChild(t.doc.CreateText(append([]byte(nil), data...)))
}

func (t *TreeBuilder) IgnorableWhitespace(_ sax.Context, _ []byte) error {
	return nil
}

func (t *TreeBuilder) CDataBlock(_ sax.Context, data []byte) error {
	if t.node == nil {
		return nil
	}
	return t.node.AddChild(t.doc.CreateCDATASection(append([]byte(nil), data...)))
}

func (t *TreeBuilder) Comment(_ sax.Context, data []byte) error {
	return t.add(t.doc.CreateComment(append([]byte(nil), data...)))
}

func (t *TreeBuilder) ProcessingInstruction(_ sax.Context, target, data string) error {
	return t.add(t.doc.CreatePI(target, data))
}
