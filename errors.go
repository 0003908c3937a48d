package ofx

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCancelled is reported when a request was aborted by the user.
	// It is not a failure and callers normally suppress it.
	ErrCancelled = errors.New("operation cancelled")

	ErrUnsupportedSecurity = errors.New("unsupported security")
	ErrNoRoot              = errors.New("document has no root element")
)

// TransportError is an HTTP level failure. Body and Header are kept so
// the server's response can be shown to the user.
type TransportError struct {
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ofx: request to %s failed: %s", e.URL, e.Err)
	}
	return fmt.Sprintf("ofx: request to %s failed: %s", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTMLResponseError is returned when a server answers with a web page
// instead of an OFX document, typically a login or maintenance page
type HTMLResponseError struct {
	// StatusCode is set when the page came with an HTTP error status
	StatusCode int
	Body       []byte
}

func (e *HTMLResponseError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ofx: server returned an HTML page instead of an OFX response (HTTP %d)", e.StatusCode)
	}
	return "ofx: server returned an HTML page instead of an OFX response"
}

// ProtocolHeaderError names a header field with an unsupported value
type ProtocolHeaderError struct {
	Key   string
	Value string
	Err   error
}

func (e *ProtocolHeaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ofx: unsupported header %s:%s: %s", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("ofx: unsupported header %s:%s", e.Key, e.Value)
}

func (e *ProtocolHeaderError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the document body cannot be parsed
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "ofx: failed to parse document: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusError is a well formed response carrying a non-zero status.
// Any payload that came with it must not be used.
type StatusError struct {
	Status
	// Element is the aggregate the status was found in, for example
	// SONRS or STMTTRNRS
	Element string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = StatusMessage(e.Code)
	}
	if e.Element != "" {
		return fmt.Sprintf("ofx: %s status %d (%s): %s", e.Element, e.Code, e.Severity, msg)
	}
	return fmt.Sprintf("ofx: status %d (%s): %s", e.Code, e.Severity, msg)
}

// AccountResolutionError is returned when a downloaded account matches
// no local account and none was chosen by the resolver
type AccountResolutionError struct {
	AccountID string
	Kind      string
}

func (e *AccountResolutionError) Error() string {
	return fmt.Sprintf("ofx: no local account for %s account %s", e.Kind, e.AccountID)
}

// AccountTypeMismatchError is returned when the resolved account's type
// does not fit the statement it is receiving
type AccountTypeMismatchError struct {
	AccountID string
	Expected  string
	Actual    string
}

func (e *AccountTypeMismatchError) Error() string {
	return fmt.Sprintf("ofx: account %s is a %s account but received a %s statement", e.AccountID, e.Actual, e.Expected)
}
