// Package node is the document tree produced by the OFX parsers.
package node

import "errors"

type NodeType int

const (
	ElementNodeType NodeType = iota + 1
	AttributeNodeType
	TextNodeType
	CDATASectionNodeType
	ProcessingInstructionNodeType
	CommentNodeType
	DocumentNodeType
	DocumentTypeNodeType
)

var nodeTypeNames = [...]string{
	ElementNodeType:               "Element",
	AttributeNodeType:             "Attribute",
	TextNodeType:                  "Text",
	CDATASectionNodeType:          "CDATASection",
	ProcessingInstructionNodeType: "ProcessingInstruction",
	CommentNodeType:               "Comment",
	DocumentNodeType:              "Document",
	DocumentTypeNodeType:          "DocumentType",
}

func (t NodeType) String() string {
	if t > 0 && int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

var (
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrDuplicateAttribute = errors.New("duplicate attribute")
	ErrNilNode            = errors.New("nil node")
)

// Node is implemented by everything in a document tree
type Node interface {
	getTreeNode() *links

	Type() NodeType
	LocalName() string
	OwnerDocument() *Document

	Parent() Node
	FirstChild() Node
	LastChild() Node
	NextSibling() Node
	PrevSibling() Node

	AddChild(Node) error
	AddContent([]byte) error
	AddSibling(Node) error
	Replace(Node) error

	// Content appends the character content of the node and its
	// descendants to dst
	Content(dst []byte) ([]byte, error)
}
