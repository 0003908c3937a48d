package node

// ProcessingInstruction represents a processing instruction such as
// the <?OFX ...?> header of a version 2 document
type ProcessingInstruction struct {
	links
	target string
	data   string
}

func NewProcessingInstruction(target, data string) *ProcessingInstruction {
	pi := &ProcessingInstruction{target: target, data: data}
	pi.self = pi
	return pi
}

func (*ProcessingInstruction) Type() NodeType { return ProcessingInstructionNodeType }

func (n *ProcessingInstruction) LocalName() string { return n.target }
func (n *ProcessingInstruction) Target() string    { return n.target }
func (n *ProcessingInstruction) Data() string      { return n.data }

func (n *ProcessingInstruction) Content(dst []byte) ([]byte, error) {
	return append(dst, n.data...), nil
}

func (n *ProcessingInstruction) AddChild(Node) error {
	return ErrInvalidOperation
}

func (n *ProcessingInstruction) AddContent(b []byte) error {
	n.data += string(b)
	return nil
}

// DocumentType holds a <!DOCTYPE> declaration. The internal subset is
// kept as written.
type DocumentType struct {
	links
	name           string
	publicID       string
	systemID       string
	internalSubset string
}

func NewDocumentType(name, publicID, systemID, internalSubset string) *DocumentType {
	dt := &DocumentType{
		name:           name,
		publicID:       publicID,
		systemID:       systemID,
		internalSubset: internalSubset,
	}
	dt.self = dt
	return dt
}

func (*DocumentType) Type() NodeType { return DocumentTypeNodeType }

func (n *DocumentType) LocalName() string      { return n.name }
func (n *DocumentType) PublicID() string       { return n.publicID }
func (n *DocumentType) SystemID() string       { return n.systemID }
func (n *DocumentType) InternalSubset() string { return n.internalSubset }

func (n *DocumentType) Content(dst []byte) ([]byte, error) { return dst, nil }
func (n *DocumentType) AddChild(Node) error                { return ErrInvalidOperation }
func (n *DocumentType) AddContent([]byte) error            { return ErrInvalidOperation }
