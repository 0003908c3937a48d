// Package transport submits OFX requests over HTTP
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lestrrat-go/ofx"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

const (
	ContentType      = "application/x-ofx"
	DefaultUserAgent = "ofx/1.0"
	DefaultTimeout   = 60 * time.Second
)

// Quirks are per server deviations from the default request shape
type Quirks struct {
	// Minimal omits User-Agent and Accept and closes the connection
	// after the request. Some servers reject anything else.
	Minimal bool
}

// minimalFIDs lists institutions whose servers need Quirks.Minimal
var minimalFIDs = map[string]struct{}{
	"7101": {},
}

// QuirksFor returns the quirks of the institution with the given FID
func QuirksFor(fid string) Quirks {
	_, minimal := minimalFIDs[fid]
	return Quirks{Minimal: minimal}
}

// Client posts OFX documents. It is safe for concurrent use.
type Client struct {
	client    *http.Client
	userAgent string
}

func New(options ...Option) *Client {
	c := &Client{userAgent: DefaultUserAgent}
	timeout := DefaultTimeout
	for _, o := range options {
		switch o.Ident() {
		case identHTTPClient{}:
			c.client = o.Value().(*http.Client)
		case identTimeout{}:
			timeout = o.Value().(time.Duration)
		case identUserAgent{}:
			c.userAgent = o.Value().(string)
		}
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: timeout}
	}
	return c
}

// Post sends body to url and returns the response body. HTTP failures
// are reported as *ofx.TransportError. A request aborted through ctx
// returns ofx.ErrCancelled.
func (c *Client) Post(ctx context.Context, url string, body []byte, q Quirks) ([]byte, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	ctx, span := ofx.StartSpan(ctx, "transport.Post")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ofx.TransportError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", ContentType)
	if q.Minimal {
		// an empty User-Agent is not sent at all
		req.Header.Set("User-Agent", "")
		req.Close = true
	} else {
		req.Header.Set("Accept", ContentType)
		req.Header.Set("User-Agent", c.userAgent)
	}

	ofx.TraceEvent(ctx, "posting request",
		slog.String("url", url),
		slog.Int("size", len(body)),
		slog.Bool("minimal", q.Minimal))

	res, err := c.client.Do(req)
	if err != nil {
		if isCancelled(ctx, err) {
			return nil, ofx.ErrCancelled
		}
		return nil, &ofx.TransportError{URL: url, Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		if isCancelled(ctx, err) {
			return nil, ofx.ErrCancelled
		}
		return nil, &ofx.TransportError{
			URL:        url,
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Header:     res.Header,
			Body:       resBody,
			Err:        err,
		}
	}

	if res.StatusCode != http.StatusOK {
		if ofx.IsHTML(resBody) {
			return nil, &ofx.HTMLResponseError{StatusCode: res.StatusCode, Body: resBody}
		}
		return nil, &ofx.TransportError{
			URL:        url,
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Header:     res.Header,
			Body:       resBody,
		}
	}

	ofx.TraceEvent(ctx, "received response",
		slog.Int("status", res.StatusCode),
		slog.Int("size", len(resBody)))
	return resBody, nil
}

func isCancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}
