package node

import (
	"errors"
	"strings"
)

// ErrSkipChildren may be returned from a WalkFunc to skip the children
// of the node just visited
var ErrSkipChildren = errors.New("skip children")

type WalkFunc func(Node) error

// Walk visits n and its descendants in document order. Attributes are
// not visited.
func Walk(n Node, fn WalkFunc) error {
	if err := fn(n); err != nil {
		if errors.Is(err, ErrSkipChildren) {
			return nil
		}
		return err
	}
	if n.Type() == AttributeNodeType {
		return nil
	}
	for c := n.FirstChild(); c != nil; {
		// fn may unlink c
		next := c.NextSibling()
		if err := Walk(c, fn); err != nil {
			return err
		}
		c = next
	}
	return nil
}

// TrimText trims surrounding whitespace from every text node under n
// and removes text nodes left empty
func TrimText(n Node) {
	_ = Walk(n, func(c Node) error {
		t, ok := c.(*Text)
		if !ok {
			return nil
		}
		v := strings.TrimSpace(string(t.content))
		if v == "" {
			Unlink(t)
			return nil
		}
		t.SetValue(v)
		return nil
	})
}

// CloneDocument returns a deep copy of doc. The copy shares nothing
// with the original.
func CloneDocument(doc *Document) *Document {
	dst := NewDocument()
	dst.encoding = doc.encoding
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		_ = dst.AddChild(cloneNode(dst, c))
	}
	return dst
}

// Clone returns a deep copy of n owned by doc
func Clone(doc *Document, n Node) Node {
	return cloneNode(doc, n)
}

func cloneNode(doc *Document, n Node) Node {
	switch v := n.(type) {
	case *Element:
		e := doc.CreateElementNS(v.name, v.prefix, v.uri)
		for _, a := range v.attrs.Range() {
			_ = e.SetAttributeNS(a.name, a.prefix, a.uri, a.Value(), a.implicit)
		}
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			_ = e.AddChild(cloneNode(doc, c))
		}
		return e
	case *Text:
		return doc.CreateText(append([]byte(nil), v.content...))
	case *CDATASection:
		return doc.CreateCDATASection(append([]byte(nil), v.content...))
	case *Comment:
		return doc.CreateComment(append([]byte(nil), v.content...))
	case *ProcessingInstruction:
		return doc.CreatePI(v.target, v.data)
	case *DocumentType:
		return doc.CreateDocumentType(v.name, v.publicID, v.systemID, v.internalSubset)
	case *Attribute:
		a := newAttribute(doc, v.name, v.prefix, v.uri, v.Value())
		a.implicit = v.implicit
		return a
	case *Document:
		return CloneDocument(v)
	}
	return nil
}
