package sgml

import (
	"errors"
	"fmt"
)

var (
	ErrGtRequired          = errors.New("'>' was required here")
	ErrInvalidCharRef      = errors.New("invalid character reference")
	ErrInvalidCharacter    = errors.New("invalid character")
	ErrInvalidDeclaration  = errors.New("invalid declaration")
	ErrMalformedDTD        = errors.New("malformed DTD")
	ErrMixedConnectors     = errors.New("connectors must not be mixed within a group")
	ErrNoResolver          = errors.New("no resolver available for external entity")
	ErrNotImplemented      = errors.New("not implemented")
	ErrRecursiveEntity     = errors.New("recursive entity reference")
	ErrUndeclaredElement   = errors.New("undeclared element")
	ErrUndeclaredEntity    = errors.New("undeclared entity")
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
	ErrUnknownContentModel = errors.New("unknown declared content")
)

// ErrParseError decorates an error with the position in the entity
// where it was detected.
type ErrParseError struct {
	Err        error
	Entity     string
	LineNumber int
	Column     int
}

func (e ErrParseError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s at line %d, column %d", e.Err, e.LineNumber, e.Column)
	}
	return fmt.Sprintf("%s at line %d, column %d (in %s)", e.Err, e.LineNumber, e.Column, e.Entity)
}

func (e ErrParseError) Unwrap() error {
	return e.Err
}
