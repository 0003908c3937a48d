package ofx

import (
	"github.com/lestrrat-go/ofx/node"
)

// Document is a parsed OFX document
type Document struct {
	Header Header
	// Version is the VERSION header as a number, such as 102 or 211.
	// It is zero when the document carried no header.
	Version int
	Tree    *node.Document
}

// Major returns 2 for XML documents and 1 otherwise
func (d *Document) Major() int {
	if d.Version >= 200 {
		return 2
	}
	return 1
}

// Root returns the OFX element
func (d *Document) Root() *node.Element {
	if d == nil || d.Tree == nil {
		return nil
	}
	return d.Tree.DocumentElement()
}

// Lookup follows a slash separated path of element names starting
// below the root, as in "SIGNONMSGSRSV1/SONRS/STATUS"
func (d *Document) Lookup(path string) *node.Element {
	root := d.Root()
	if root == nil {
		return nil
	}
	return root.Lookup(path)
}
