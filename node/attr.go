package node

// Attribute is an attribute of an element. The value is held as text
// children.
type Attribute struct {
	links
	name     string
	prefix   string
	uri      string
	implicit bool
}

func newAttribute(doc *Document, name, prefix, uri, value string) *Attribute {
	a := &Attribute{name: name, prefix: prefix, uri: uri}
	a.self, a.doc = a, doc
	_ = addContent(a, []byte(value))
	return a
}

func (*Attribute) Type() NodeType { return AttributeNodeType }

func (n *Attribute) LocalName() string { return n.name }
func (n *Attribute) Prefix() string    { return n.prefix }
func (n *Attribute) URI() string       { return n.uri }

// Name is the qualified name
func (n *Attribute) Name() string {
	if n.prefix == "" {
		return n.name
	}
	return n.prefix + ":" + n.name
}

func (n *Attribute) AddChild(cur Node) error {
	return addChild(n, cur)
}

func (n *Attribute) AddContent(b []byte) error {
	return addContent(n, b)
}

// IsDefault reports whether the value came from the DTD rather than
// the document
func (n *Attribute) IsDefault() bool   { return n.implicit }
func (n *Attribute) SetDefault(b bool) { n.implicit = b }

func (n *Attribute) Value() string {
	b, _ := n.Content(nil)
	return string(b)
}

func (n *Attribute) SetValue(v string) {
	RemoveChildren(n)
	_ = addContent(n, []byte(v))
}
