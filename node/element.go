package node

import (
	"errors"
	"iter"
	"strings"

	"github.com/lestrrat-go/ofx/internal/orderedmap"
)

type Element struct {
	links
	name   string
	prefix string
	uri    string
	attrs  *orderedmap.Map[string, *Attribute]
}

var _ Node = (*Element)(nil)

// NewElement creates an element that belongs to no document.
// Document.CreateElement is usually what you want.
func NewElement(name string) *Element {
	e := &Element{
		name:  name,
		attrs: orderedmap.New[string, *Attribute](),
	}
	e.self = e
	return e
}

func (*Element) Type() NodeType {
	return ElementNodeType
}

func (e *Element) LocalName() string {
	return e.name
}

func (e *Element) AddChild(child Node) error {
	return addChild(e, child)
}

func (e *Element) AddContent(b []byte) error {
	return addContent(e, b)
}

// SetAttribute sets the attribute with the given name. If the name
// of the attribute already exists, the first value is kept and
// ErrDuplicateAttribute is returned.
func (e *Element) SetAttribute(name, value string) error {
	_, err := e.setAttribute(name, "", "", value)
	return err
}

// SetAttributeNS is SetAttribute for a namespaced attribute. name is
// the local name.
func (e *Element) SetAttributeNS(name, prefix, uri, value string, isDefault bool) error {
	attr, err := e.setAttribute(name, prefix, uri, value)
	if err != nil {
		return err
	}
	attr.SetDefault(isDefault)
	return nil
}

func (e *Element) setAttribute(name, prefix, uri, value string) (*Attribute, error) {
	attr := newAttribute(e.doc, name, prefix, uri, value)
	if err := e.attrs.Set(attr.Name(), attr); err != nil {
		if errors.Is(err, orderedmap.ErrDuplicateEntry) {
			return nil, ErrDuplicateAttribute
		}
		return nil, err
	}
	attr.parent = e
	return attr, nil
}

// GetAttribute returns the value of the attribute with the given
// qualified name
func (e *Element) GetAttribute(name string) (string, bool) {
	attr, ok := e.attrs.Get(name)
	if !ok {
		return "", false
	}
	return attr.Value(), true
}

// Attributes populates the given slice with the attributes
// of the element. If the slice is nil, it will create a new slice
// and return it. If the element has no attributes, it will return
// an empty slice.
func (e *Element) Attributes(dst []*Attribute) []*Attribute {
	if dst == nil {
		dst = make([]*Attribute, 0, e.attrs.Len())
	} else {
		dst = dst[:0]
	}
	for _, attr := range e.attrs.Range() {
		dst = append(dst, attr)
	}
	return dst
}

func (e *Element) Name() string {
	if e.prefix == "" {
		return e.name
	}
	return e.prefix + ":" + e.name
}

func (e *Element) Prefix() string {
	return e.prefix
}

func (e *Element) URI() string {
	return e.uri
}

// SetNamespace sets the namespace for the element
func (e *Element) SetNamespace(prefix, uri string) {
	e.prefix = prefix
	e.uri = uri
}

// ChildElements iterates over the element children of e
func (e *Element) ChildElements() iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		if e == nil {
			return
		}
		for c := e.firstChild; c != nil; c = c.NextSibling() {
			if ce, ok := c.(*Element); ok {
				if !yield(ce) {
					return
				}
			}
		}
	}
}

// FindChild returns the first child element with the given name
func (e *Element) FindChild(name string) *Element {
	if e == nil {
		return nil
	}
	for c := range e.ChildElements() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// FindChildren returns every child element with the given name
func (e *Element) FindChildren(name string) []*Element {
	if e == nil {
		return nil
	}
	var list []*Element
	for c := range e.ChildElements() {
		if c.Name() == name {
			list = append(list, c)
		}
	}
	return list
}

// Lookup follows a slash separated path of child element names, as in
// "SIGNONMSGSRSV1/SONRS/STATUS/CODE". It returns nil when any step is
// missing.
func (e *Element) Lookup(path string) *Element {
	cur := e
	for step := range strings.SplitSeq(path, "/") {
		if step == "" {
			continue
		}
		if cur = cur.FindChild(step); cur == nil {
			return nil
		}
	}
	return cur
}

// Text returns the character data directly under e
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	var buf []byte
	for c := e.firstChild; c != nil; c = c.NextSibling() {
		switch c.Type() {
		case TextNodeType, CDATASectionNodeType:
			buf, _ = c.Content(buf)
		}
	}
	return string(buf)
}

// ChildText returns the text of the element found at path, or the
// empty string
func (e *Element) ChildText(path string) string {
	return e.Lookup(path).Text()
}

// SetText replaces the character data directly under e, leaving child
// elements in place
func (e *Element) SetText(s string) {
	for c := e.firstChild; c != nil; {
		next := c.NextSibling()
		switch c.Type() {
		case TextNodeType, CDATASectionNodeType:
			Unlink(c)
		}
		c = next
	}
	t := NewText([]byte(s))
	t.doc = e.doc
	if e.firstChild == nil {
		_ = addChild(e, t)
		return
	}
	first := e.firstChild
	ft := first.getTreeNode()
	t.next = first
	t.parent = e
	ft.prev = t
	e.firstChild = t
}
