package transport

import (
	"net/http"
	"time"

	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identHTTPClient struct{}
type identTimeout struct{}
type identUserAgent struct{}

// WithHTTPClient replaces the HTTP client. Its Timeout is left alone.
func WithHTTPClient(c *http.Client) Option {
	return option.New(identHTTPClient{}, c)
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return option.New(identTimeout{}, d)
}

// WithUserAgent sets the User-Agent header sent with every request,
// except to servers whose quirks omit it
func WithUserAgent(s string) Option {
	return option.New(identUserAgent{}, s)
}
