package s11n

import (
	"io"
	"strings"

	"github.com/lestrrat-go/ofx/node"
)

// Dumper writes a tree as markup, one top level node per line. It is
// meant for inspecting parse results rather than for the wire.
type Dumper struct {
	// Indent, when not empty, puts every element on its own line
	// indented by one copy of Indent per level
	Indent string
}

func (d *Dumper) DumpDoc(out io.Writer, doc *node.Document) error {
	for e := doc.FirstChild(); e != nil; e = e.NextSibling() {
		if err := d.dumpNode(out, e, 0); err != nil {
			return err
		}
		_, _ = io.WriteString(out, "\n")
	}
	return nil
}

func (d *Dumper) dumpDocType(out io.Writer, n *node.DocumentType) error {
	_, _ = io.WriteString(out, "<!DOCTYPE ")
	_, _ = io.WriteString(out, n.LocalName())
	switch {
	case n.PublicID() != "":
		_, _ = io.WriteString(out, " PUBLIC ")
		if err := DumpQuotedString(out, n.PublicID()); err != nil {
			return err
		}
		if n.SystemID() != "" {
			_, _ = io.WriteString(out, " ")
			if err := DumpQuotedString(out, n.SystemID()); err != nil {
				return err
			}
		}
	case n.SystemID() != "":
		_, _ = io.WriteString(out, " SYSTEM ")
		if err := DumpQuotedString(out, n.SystemID()); err != nil {
			return err
		}
	}
	if subset := n.InternalSubset(); subset != "" {
		_, _ = io.WriteString(out, " [")
		_, _ = io.WriteString(out, subset)
		_, _ = io.WriteString(out, "]")
	}
	_, _ = io.WriteString(out, ">")
	return nil
}

func (d *Dumper) DumpNode(out io.Writer, n node.Node) error {
	return d.dumpNode(out, n, 0)
}

func (d *Dumper) newline(out io.Writer, level int) {
	if d.Indent == "" {
		return
	}
	_, _ = io.WriteString(out, "\n")
	_, _ = io.WriteString(out, strings.Repeat(d.Indent, level))
}

func (d *Dumper) dumpNode(out io.Writer, n node.Node, level int) error {
	switch n.Type() {
	case node.DocumentNodeType:
		return d.DumpDoc(out, n.(*node.Document))
	case node.DocumentTypeNodeType:
		return d.dumpDocType(out, n.(*node.DocumentType))
	case node.CommentNodeType:
		_, _ = io.WriteString(out, "<!--")
		content, err := n.Content(nil)
		if err != nil {
			return err
		}
		_, _ = out.Write(content)
		_, _ = io.WriteString(out, "-->")
		return nil
	case node.ProcessingInstructionNodeType:
		pi := n.(*node.ProcessingInstruction)
		_, _ = io.WriteString(out, "<?")
		_, _ = io.WriteString(out, pi.Target())
		if data := pi.Data(); data != "" {
			_, _ = io.WriteString(out, " ")
			_, _ = io.WriteString(out, data)
		}
		_, _ = io.WriteString(out, "?>")
		return nil
	case node.CDATASectionNodeType:
		c, err := n.Content(nil)
		if err != nil {
			return err
		}
		_, _ = io.WriteString(out, "<![CDATA[")
		_, _ = out.Write(c)
		_, _ = io.WriteString(out, "]]>")
		return nil
	case node.TextNodeType:
		c, err := n.Content(nil)
		if err != nil {
			return err
		}
		return EscapeText(out, c, false) // no recursing down
	}

	e, ok := n.(*node.Element)
	if !ok {
		return nil
	}

	name := e.Name()
	_, _ = io.WriteString(out, "<")
	_, _ = io.WriteString(out, name)

	for _, attr := range e.Attributes(nil) {
		_, _ = io.WriteString(out, " ")
		_, _ = io.WriteString(out, attr.Name())
		_, _ = io.WriteString(out, `="`)
		if err := EscapeAttrValue(out, []byte(attr.Value())); err != nil {
			return err
		}
		_, _ = io.WriteString(out, `"`)
	}

	if e.FirstChild() == nil {
		_, _ = io.WriteString(out, "/>")
		return nil
	}
	_, _ = io.WriteString(out, ">")

	leaf := isLeaf(e)
	for child := e.FirstChild(); child != nil; child = child.NextSibling() {
		if !leaf {
			d.newline(out, level+1)
		}
		if err := d.dumpNode(out, child, level+1); err != nil {
			return err
		}
	}
	if !leaf {
		d.newline(out, level)
	}

	_, _ = io.WriteString(out, "</")
	_, _ = io.WriteString(out, name)
	_, _ = io.WriteString(out, ">")
	return nil
}

// isLeaf reports an element holding only character data
func isLeaf(e *node.Element) bool {
	if e.FirstChild() == nil {
		return false
	}
	for c := e.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Type() {
		case node.TextNodeType, node.CDATASectionNodeType:
		default:
			return false
		}
	}
	return true
}
