package sax

// Context is passed through to every callback untouched. Tree builders
// usually pass themselves.
type Context = any

// Attribute describes one attribute of a start tag.
type Attribute interface {
	Name() string
	Prefix() string
	LocalName() string
	URI() string
	Value() string
	IsDefault() bool
}

// Handler receives document events. Returning ErrHandlerUnspecified
// from a method means the event is not interesting and is not an error.
type Handler interface {
	StartDocument(ctx Context) error
	EndDocument(ctx Context) error
	DocumentType(ctx Context, name, publicID, systemID, internalSubset string) error
	StartElementNS(ctx Context, localname, prefix, uri string, attrs []Attribute) error
	EndElementNS(ctx Context, localname, prefix, uri string, simulated bool) error
	Characters(ctx Context, ch []byte) error
	IgnorableWhitespace(ctx Context, ch []byte) error
	CDataBlock(ctx Context, value []byte) error
	Comment(ctx Context, value []byte) error
	ProcessingInstruction(ctx Context, target, data string) error
}

type attribute struct {
	name      string
	prefix    string
	localname string
	uri       string
	value     string
	isDefault bool
}

// NewAttribute creates an Attribute. name is the qualified name as
// written in the document.
func NewAttribute(name, prefix, localname, uri, value string, isDefault bool) Attribute {
	return &attribute{
		name:      name,
		prefix:    prefix,
		localname: localname,
		uri:       uri,
		value:     value,
		isDefault: isDefault,
	}
}

func (a *attribute) Name() string      { return a.name }
func (a *attribute) Prefix() string    { return a.prefix }
func (a *attribute) LocalName() string { return a.localname }
func (a *attribute) URI() string       { return a.uri }
func (a *attribute) Value() string     { return a.value }
func (a *attribute) IsDefault() bool   { return a.isDefault }
