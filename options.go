package ofx

import (
	"github.com/lestrrat-go/ofx/sgml"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identDTD struct{}
type identEnforceSecurity struct{}

// ParseOption configures Parse
type ParseOption interface {
	Option
	parseOption()
}

type parseOption struct {
	Option
}

func (parseOption) parseOption() {}

// WithEnforceSecurity makes Parse reject documents whose SECURITY
// header is anything but NONE
func WithEnforceSecurity(b bool) ParseOption {
	return parseOption{option.New(identEnforceSecurity{}, b)}
}

// WithDTD replaces the bundled OFX grammar used for version 1
// documents
func WithDTD(dtd *sgml.DTD) ParseOption {
	return parseOption{option.New(identDTD{}, dtd)}
}
