package s11n

import (
	"bufio"
	"io"
	"strings"

	"github.com/lestrrat-go/ofx/node"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// SGMLWriter writes a tree in the version 1 OFX style: elements that
// hold only text get no end tag, aggregates are closed explicitly and
// nothing is self-closing. Text is written as-is.
type SGMLWriter struct {
	// Newline separates tags. The default is CRLF.
	Newline string
}

func (sw *SGMLWriter) newline() string {
	if sw.Newline == "" {
		return "\r\n"
	}
	return sw.Newline
}

// WriteDoc writes the elements of doc. Processing instructions,
// comments and the document type are skipped.
func (sw *SGMLWriter) WriteDoc(out io.Writer, doc *node.Document) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	root := doc.DocumentElement()
	if root == nil {
		return nil
	}
	return sw.WriteElement(out, root)
}

// WriteElement writes e and everything below it
func (sw *SGMLWriter) WriteElement(out io.Writer, e *node.Element) error {
	bw := bufio.NewWriter(out)
	if err := sw.writeElement(bw, e); err != nil {
		return err
	}
	return bw.Flush()
}

func (sw *SGMLWriter) writeElement(out *bufio.Writer, e *node.Element) error {
	nl := sw.newline()
	sw.startTag(out, e)
	if isLeaf(e) {
		_, _ = out.WriteString(e.Text())
		_, _ = out.WriteString(nl)
		return nil
	}
	_, _ = out.WriteString(nl)
	for c := range e.ChildElements() {
		if err := sw.writeElement(out, c); err != nil {
			return err
		}
	}
	_, _ = out.WriteString("</")
	_, _ = out.WriteString(e.Name())
	_, _ = out.WriteString(">")
	_, _ = out.WriteString(nl)
	return nil
}

func (sw *SGMLWriter) startTag(out *bufio.Writer, e *node.Element) {
	_ = out.WriteByte('<')
	_, _ = out.WriteString(e.Name())
	for _, attr := range e.Attributes(nil) {
		_ = out.WriteByte(' ')
		_, _ = out.WriteString(attr.Name())
		_, _ = out.WriteString(`="`)
		_, _ = out.WriteString(strings.ReplaceAll(attr.Value(), `"`, "&quot;"))
		_ = out.WriteByte('"')
	}
	_ = out.WriteByte('>')
}
