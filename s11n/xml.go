package s11n

import (
	"io"

	"github.com/beevik/etree"
	"github.com/lestrrat-go/ofx/node"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// XMLWriter writes a tree as well formed XML. Processing instructions
// at the top level, such as <?xml?> and <?OFX?>, are written in order
// before the root element.
type XMLWriter struct {
	// Indent is the number of spaces per level. Zero writes the
	// document on one line.
	Indent int
}

// ToETree converts doc into an etree document
func ToETree(doc *node.Document) *etree.Document {
	dst := etree.NewDocument()
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *node.ProcessingInstruction:
			dst.CreateProcInst(v.Target(), v.Data())
		case *node.Comment:
			content, _ := v.Content(nil)
			dst.CreateComment(string(content))
		case *node.Element:
			copyElement(dst.CreateElement(v.Name()), v)
		}
	}
	return dst
}

func copyElement(dst *etree.Element, src *node.Element) {
	for _, attr := range src.Attributes(nil) {
		dst.CreateAttr(attr.Name(), attr.Value())
	}
	for c := src.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *node.Element:
			copyElement(dst.CreateElement(v.Name()), v)
		case *node.Text:
			dst.CreateText(v.Value())
		case *node.CDATASection:
			content, _ := v.Content(nil)
			dst.CreateCData(string(content))
		case *node.Comment:
			content, _ := v.Content(nil)
			dst.CreateComment(string(content))
		case *node.ProcessingInstruction:
			dst.CreateProcInst(v.Target(), v.Data())
		}
	}
}

func (xw *XMLWriter) WriteDoc(out io.Writer, doc *node.Document) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	dst := ToETree(doc)
	if xw.Indent > 0 {
		dst.Indent(xw.Indent)
	}
	_, err := dst.WriteTo(out)
	return err
}
