package sax

// SAX2 is the callback based Handler. Events without a registered
// function return ErrHandlerUnspecified.
type SAX2 struct {
	StartDocumentHandler         StartDocumentFunc
	EndDocumentHandler           EndDocumentFunc
	DocumentTypeHandler          DocumentTypeFunc
	StartElementNSHandler        StartElementNSFunc
	EndElementNSHandler          EndElementNSFunc
	CharactersHandler            CharactersFunc
	IgnorableWhitespaceHandler   IgnorableWhitespaceFunc
	CDataBlockHandler            CDataBlockFunc
	CommentHandler               CommentFunc
	ProcessingInstructionHandler ProcessingInstructionFunc
}

// New creates a new instance of SAX2. All callbacks are
// uninitialized.
func New() *SAX2 {
	return &SAX2{}
}

func (s SAX2) StartDocument(ctx Context) error {
	if h := s.StartDocumentHandler; h != nil {
		return h(ctx)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) EndDocument(ctx Context) error {
	if h := s.EndDocumentHandler; h != nil {
		return h(ctx)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) DocumentType(ctx Context, name, publicID, systemID, internalSubset string) error {
	if h := s.DocumentTypeHandler; h != nil {
		return h(ctx, name, publicID, systemID, internalSubset)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) StartElementNS(ctx Context, localname, prefix, uri string, attrs []Attribute) error {
	if h := s.StartElementNSHandler; h != nil {
		return h(ctx, localname, prefix, uri, attrs)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) EndElementNS(ctx Context, localname, prefix, uri string, simulated bool) error {
	if h := s.EndElementNSHandler; h != nil {
		return h(ctx, localname, prefix, uri, simulated)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) Characters(ctx Context, ch []byte) error {
	if h := s.CharactersHandler; h != nil {
		return h(ctx, ch)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) IgnorableWhitespace(ctx Context, ch []byte) error {
	if h := s.IgnorableWhitespaceHandler; h != nil {
		return h(ctx, ch)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) CDataBlock(ctx Context, value []byte) error {
	if h := s.CDataBlockHandler; h != nil {
		return h(ctx, value)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) Comment(ctx Context, value []byte) error {
	if h := s.CommentHandler; h != nil {
		return h(ctx, value)
	}
	return ErrHandlerUnspecified
}

func (s SAX2) ProcessingInstruction(ctx Context, target, data string) error {
	if h := s.ProcessingInstructionHandler; h != nil {
		return h(ctx, target, data)
	}
	return ErrHandlerUnspecified
}
