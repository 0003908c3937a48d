package node

// charData is the base of the nodes that hold a run of bytes
type charData struct {
	links
	content []byte
}

func (n *charData) Content(dst []byte) ([]byte, error) {
	return append(dst, n.content...), nil
}

func (n *charData) AddChild(Node) error {
	return ErrInvalidOperation
}

func (n *charData) AddContent(b []byte) error {
	n.content = append(n.content, b...)
	return nil
}

func (n *charData) Value() string {
	return string(n.content)
}

func (n *charData) SetValue(v string) {
	n.content = append(n.content[:0], v...)
}

// Text is character data
type Text struct{ charData }

func NewText(content []byte) *Text {
	t := &Text{}
	t.self, t.content = t, content
	return t
}

func (*Text) Type() NodeType    { return TextNodeType }
func (*Text) LocalName() string { return "#text" }

// AddChild merges another text node into n
func (n *Text) AddChild(child Node) error {
	if child == nil || child.Type() != TextNodeType {
		return ErrInvalidOperation
	}
	var err error
	n.content, err = child.Content(n.content)
	return err
}

// CDATASection is character data that was marked as raw in the source
type CDATASection struct{ charData }

func NewCDATASection(content []byte) *CDATASection {
	t := &CDATASection{}
	t.self, t.content = t, content
	return t
}

func (*CDATASection) Type() NodeType    { return CDATASectionNodeType }
func (*CDATASection) LocalName() string { return "#cdata-section" }

type Comment struct{ charData }

func NewComment(content []byte) *Comment {
	c := &Comment{}
	c.self, c.content = c, content
	return c
}

func (*Comment) Type() NodeType    { return CommentNodeType }
func (*Comment) LocalName() string { return "#comment" }
