package sgml

import (
	"log/slog"

	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identCaseFolding struct{}
type identDTD struct{}
type identIgnoreCase struct{}
type identResolver struct{}
type identTraceLogger struct{}
type identWhitespace struct{}

// ReaderOption configures a Reader
type ReaderOption interface {
	Option
	readerOption()
}

// DTDOption configures ParseDTD
type DTDOption interface {
	Option
	dtdOption()
}

// ParseOption can be passed to both NewReader and ParseDTD
type ParseOption interface {
	ReaderOption
	DTDOption
}

type readerOption struct{ Option }

func (*readerOption) readerOption() {}

type dtdOption struct{ Option }

func (*dtdOption) dtdOption() {}

type parseOption struct{ Option }

func (*parseOption) readerOption() {}
func (*parseOption) dtdOption()    {}

// WhitespaceHandling controls whether whitespace-only text is reported
type WhitespaceHandling int

const (
	WhitespaceAll WhitespaceHandling = iota
	WhitespaceNone
)

// CaseFolding controls how element and attribute names are normalized
type CaseFolding int

const (
	CaseFoldNone CaseFolding = iota
	CaseFoldUpper
	CaseFoldLower
)

// WithDTD specifies the DTD used to infer omitted tags
func WithDTD(v *DTD) ReaderOption {
	return &readerOption{option.New(identDTD{}, v)}
}

// WithWhitespace specifies if whitespace-only text nodes are reported
func WithWhitespace(v WhitespaceHandling) ReaderOption {
	return &readerOption{option.New(identWhitespace{}, v)}
}

// WithCaseFolding specifies how names are normalized
func WithCaseFolding(v CaseFolding) ReaderOption {
	return &readerOption{option.New(identCaseFolding{}, v)}
}

// WithIgnoreCase makes element and attribute lookups in the DTD case
// insensitive, as HTML-like DTDs expect
func WithIgnoreCase(v bool) DTDOption {
	return &dtdOption{option.New(identIgnoreCase{}, v)}
}

// WithResolver specifies how external entities are opened
func WithResolver(v Resolver) ParseOption {
	return &parseOption{option.New(identResolver{}, v)}
}

// WithTraceLogger specifies where diagnostics are logged
func WithTraceLogger(v *slog.Logger) ParseOption {
	return &parseOption{option.New(identTraceLogger{}, v)}
}
