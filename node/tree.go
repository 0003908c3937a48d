package node

// links is the tree position shared by every node type. self points
// back at the node that embeds it so the sibling operations can be
// implemented once.
type links struct {
	self       Node
	doc        *Document
	parent     Node
	firstChild Node
	lastChild  Node
	prev       Node
	next       Node
}

func (l *links) getTreeNode() *links           { return l }
func (l *links) OwnerDocument() *Document      { return l.doc }
func (l *links) Parent() Node                  { return l.parent }
func (l *links) FirstChild() Node              { return l.firstChild }
func (l *links) LastChild() Node               { return l.lastChild }
func (l *links) NextSibling() Node             { return l.next }
func (l *links) PrevSibling() Node             { return l.prev }
func (l *links) AddSibling(sibling Node) error { return appendSibling(l.self, sibling) }
func (l *links) Replace(with Node) error       { return replaceNode(l.self, with) }

// Content concatenates the content of the children
func (l *links) Content(dst []byte) ([]byte, error) {
	var err error
	for c := l.firstChild; c != nil; c = c.NextSibling() {
		if dst, err = c.Content(dst); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func appendSibling(n, sibling Node) error {
	if n == nil || sibling == nil {
		return ErrNilNode
	}
	last := n.getTreeNode()
	for last.next != nil {
		last = last.next.getTreeNode()
	}
	s := sibling.getTreeNode()
	last.next = sibling
	s.prev = last.self
	if s.doc == nil {
		s.doc = last.doc
	}
	if p := last.parent; p != nil {
		s.parent = p
		p.getTreeNode().lastChild = sibling
	}
	return nil
}

func addChild(parent, child Node) error {
	if child == nil {
		return ErrNilNode
	}
	p := parent.getTreeNode()
	if p.lastChild != nil {
		return appendSibling(p.lastChild, child)
	}
	c := child.getTreeNode()
	if c.doc == nil {
		c.doc = p.doc
	}
	c.parent = parent
	p.firstChild, p.lastChild = child, child
	return nil
}

func addContent(n Node, content []byte) error {
	return n.AddChild(NewText(content))
}

// replaceNode puts with where n was and detaches n
func replaceNode(n, with Node) error {
	if with == nil {
		return ErrNilNode
	}
	old := n.getTreeNode()
	w := with.getTreeNode()
	w.prev, w.next, w.parent = old.prev, old.next, old.parent
	if old.prev != nil {
		old.prev.getTreeNode().next = with
	}
	if old.next != nil {
		old.next.getTreeNode().prev = with
	}
	if p := old.parent; p != nil {
		pl := p.getTreeNode()
		if pl.firstChild == n {
			pl.firstChild = with
		}
		if pl.lastChild == n {
			pl.lastChild = with
		}
	}
	old.parent, old.next, old.prev = nil, nil, nil
	return nil
}

// Unlink detaches n from its parent and siblings.
func Unlink(n Node) {
	l := n.getTreeNode()
	if l.prev != nil {
		l.prev.getTreeNode().next = l.next
	}
	if l.next != nil {
		l.next.getTreeNode().prev = l.prev
	}
	if p := l.parent; p != nil {
		pl := p.getTreeNode()
		if pl.firstChild == n {
			pl.firstChild = l.next
		}
		if pl.lastChild == n {
			pl.lastChild = l.prev
		}
	}
	l.parent, l.next, l.prev = nil, nil, nil
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n Node) {
	l := n.getTreeNode()
	for c := l.firstChild; c != nil; {
		cl := c.getTreeNode()
		c = cl.next
		cl.parent, cl.next, cl.prev = nil, nil, nil
	}
	l.firstChild, l.lastChild = nil, nil
}
