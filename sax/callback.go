package sax

import "errors"

// ErrHandlerUnspecified is returned when there is no handler
// registered for that particular event callback. This is not
// a fatal error per se, and can be ignored if the implementation
// chooses to do so.
var ErrHandlerUnspecified = errors.New("handler unspecified")

// StartDocumentFunc defines the function type for SAX2.StartDocumentHandler
type StartDocumentFunc func(ctx Context) error

// EndDocumentFunc defines the function type for SAX2.EndDocumentHandler
type EndDocumentFunc func(ctx Context) error

// DocumentTypeFunc defines the function type for SAX2.DocumentTypeHandler
type DocumentTypeFunc func(ctx Context, name, publicID, systemID, internalSubset string) error

// StartElementNSFunc defines the function type for SAX2.StartElementNSHandler
type StartElementNSFunc func(ctx Context, localname, prefix, uri string, attrs []Attribute) error

// EndElementNSFunc defines the function type for SAX2.EndElementNSHandler
type EndElementNSFunc func(ctx Context, localname, prefix, uri string, simulated bool) error

// CharactersFunc defines the function type for SAX2.CharactersHandler
type CharactersFunc func(ctx Context, content []byte) error

// IgnorableWhitespaceFunc defines the function type for SAX2.IgnorableWhitespaceHandler
type IgnorableWhitespaceFunc func(ctx Context, content []byte) error

// CDataBlockFunc defines the function type for SAX2.CDataBlockHandler
type CDataBlockFunc func(ctx Context, content []byte) error

// CommentFunc defines the function type for SAX2.CommentHandler
type CommentFunc func(ctx Context, content []byte) error

// ProcessingInstructionFunc defines the function type for SAX2.ProcessingInstructionHandler
type ProcessingInstructionFunc func(ctx Context, target, data string) error
