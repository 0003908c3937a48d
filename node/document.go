package node

// Document represents the root document node
type Document struct {
	links
	encoding string
}

func NewDocument() *Document {
	doc := &Document{encoding: "utf-8"}
	doc.self, doc.doc = doc, doc
	return doc
}

func (*Document) Type() NodeType {
	return DocumentNodeType
}

func (*Document) LocalName() string {
	return "#document"
}

// Encoding is the character set the document was decoded from
func (d *Document) Encoding() string {
	return d.encoding
}

func (d *Document) SetEncoding(s string) {
	d.encoding = s
}

func (d *Document) AddChild(cur Node) error {
	return addChild(d, cur)
}

func (d *Document) AddContent(_ []byte) error {
	return ErrInvalidOperation
}

func (d *Document) AddSibling(_ Node) error {
	return ErrInvalidOperation
}

func (d *Document) Replace(_ Node) error {
	return ErrInvalidOperation
}

func (d *Document) CreateElement(name string) *Element {
	e := NewElement(name)
	e.doc = d
	return e
}

func (d *Document) CreateElementNS(localname, prefix, uri string) *Element {
	e := d.CreateElement(localname)
	e.SetNamespace(prefix, uri)
	return e
}

func (d *Document) CreateText(value []byte) *Text {
	t := NewText(value)
	t.doc = d
	return t
}

func (d *Document) CreateCDATASection(value []byte) *CDATASection {
	t := NewCDATASection(value)
	t.doc = d
	return t
}

func (d *Document) CreateComment(value []byte) *Comment {
	c := NewComment(value)
	c.doc = d
	return c
}

func (d *Document) CreatePI(target, data string) *ProcessingInstruction {
	pi := NewProcessingInstruction(target, data)
	pi.doc = d
	return pi
}

func (d *Document) CreateDocumentType(name, publicID, systemID, internalSubset string) *DocumentType {
	dt := NewDocumentType(name, publicID, systemID, internalSubset)
	dt.doc = d
	return dt
}

// DocumentElement returns the root element
func (d *Document) DocumentElement() *Element {
	for c := d.firstChild; c != nil; c = c.NextSibling() {
		if e, ok := c.(*Element); ok {
			return e
		}
	}
	return nil
}

// DocumentType returns the document type declaration, if any
func (d *Document) DocumentType() *DocumentType {
	for c := d.firstChild; c != nil; c = c.NextSibling() {
		if dt, ok := c.(*DocumentType); ok {
			return dt
		}
	}
	return nil
}

// SetDocumentElement makes root the document element, replacing any
// existing one
func (d *Document) SetDocumentElement(root *Element) error {
	if root == nil {
		return ErrInvalidOperation
	}
	root.doc = d
	if old := d.DocumentElement(); old != nil {
		return replaceNode(old, root)
	}
	return addChild(d, root)
}
