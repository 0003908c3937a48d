// Package client talks to OFX servers on behalf of configured logins
// and applies what they send to a store
package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/process"
	"github.com/lestrrat-go/ofx/request"
	"github.com/lestrrat-go/ofx/store"
	"github.com/lestrrat-go/ofx/transport"
	pdebug "github.com/lestrrat-go/pdebug/v3"
	"github.com/pkg/errors"
)

var (
	ErrNoResponse  = errors.New("response does not answer the request")
	ErrNoChallenge = errors.New("server sent no challenge questions")
)

// MFAPrompt asks the user to answer the challenge questions of a
// login's server. Returning ofx.ErrCancelled reports the operation as
// cancelled rather than failed.
type MFAPrompt func(ctx context.Context, login *Login, challenges []ofx.MFAChallenge) ([]ofx.MFAChallengeAnswer, error)

// Login is one set of credentials at one institution, along with the
// accounts downloaded through it
type Login struct {
	Name        string
	Institution request.Institution
	Credentials *request.Credentials

	// Version is the preferred OFX version: 0 or 1 for version 1, 2 for
	// version 2, or a full version number. It changes when the server
	// only answers the other major version.
	Version   int
	ClientUID string
	Accounts  []request.Target
}

// DisplayName names the login in results and log files
func (l *Login) DisplayName() string {
	switch {
	case l.Name != "":
		return l.Name
	case l.Institution.Name != "":
		return l.Institution.Name
	default:
		return l.Institution.FID
	}
}

// Client runs downloads for logins. All of its methods are safe for
// concurrent use, but the store is only touched by Sync and Import on
// their calling goroutine.
type Client struct {
	store          store.Store
	transport      *transport.Client
	processor      *process.Processor
	requestOptions []request.Option
	parseOptions   []ofx.ParseOption
	resolver       process.Resolver
	mfaPrompt      MFAPrompt
	onComplete     func(*download.Result)
	logDir         string
	profileDir     string
	limit          int

	active atomic.Int64

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
	nextID   uint64

	logMu sync.Mutex
}

func New(s store.Store, options ...Option) *Client {
	c := &Client{
		store:    s,
		inflight: make(map[uint64]context.CancelFunc),
	}
	var processOptions []process.Option
	for _, o := range options {
		switch o.Ident() {
		case identConcurrency{}:
			c.limit = o.Value().(int)
		case identLogDir{}:
			c.logDir = o.Value().(string)
		case identMFAPrompt{}:
			c.mfaPrompt = o.Value().(MFAPrompt)
		case identOnComplete{}:
			c.onComplete = o.Value().(func(*download.Result))
		case identParseOptions{}:
			c.parseOptions = append(c.parseOptions, o.Value().([]ofx.ParseOption)...)
		case identProcessOptions{}:
			processOptions = append(processOptions, o.Value().([]process.Option)...)
		case identProfileDir{}:
			c.profileDir = o.Value().(string)
		case identRequestOptions{}:
			c.requestOptions = append(c.requestOptions, o.Value().([]request.Option)...)
		case identResolver{}:
			c.resolver = o.Value().(process.Resolver)
		case identTransport{}:
			c.transport = o.Value().(*transport.Client)
		}
	}
	if c.transport == nil {
		c.transport = transport.New()
	}
	c.processor = process.New(s, processOptions...)
	return c
}

// Busy reports whether a Sync or Import is running
func (c *Client) Busy() bool {
	return c.active.Load() > 0
}

// Cancel aborts every request in flight. The operations they belong to
// record them as cancelled.
func (c *Client) Cancel() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.inflight))
	for _, fn := range c.inflight {
		cancels = append(cancels, fn)
	}
	c.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}
}

// track makes ctx cancellable through Cancel until release is called
func (c *Client) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.inflight[id] = cancel
	c.mu.Unlock()

	return ctx, func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		cancel()
	}
}

func (c *Client) builder(login *Login) *request.Builder {
	if login.Credentials == nil {
		login.Credentials = &request.Credentials{}
	}
	options := c.requestOptions
	if login.ClientUID != "" {
		options = append(append([]request.Option(nil), options...), request.WithClientUID(login.ClientUID))
	}
	return request.New(login.Institution, login.Credentials, options...)
}

// Send posts req to the login's server and parses the answer. If that
// fails for any reason other than an HTML page or cancellation, the
// request is sent once more using the other major version, which
// becomes the login's preference when the retry succeeds. A failed
// retry returns the first error.
func (c *Client) Send(ctx context.Context, login *Login, req *request.Request) (*ofx.Document, error) {
	doc, _, err := c.sendWithFallback(ctx, login, req)
	return doc, err
}

func (c *Client) sendWithFallback(ctx context.Context, login *Login, req *request.Request) (*ofx.Document, []byte, error) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	version := request.ResolveVersion(login.Version)
	doc, raw, err := c.send(ctx, login, req, version)
	if err == nil {
		return doc, raw, nil
	}

	var herr *ofx.HTMLResponseError
	if errors.As(err, &herr) || errors.Is(err, ofx.ErrCancelled) {
		return nil, nil, err
	}

	flipped := 2
	if version >= 200 {
		flipped = 1
	}
	ofx.TraceError(ctx, err, "retrying with the other OFX version",
		slog.String("login", login.DisplayName()),
		slog.Int("version", version),
		slog.Int("retry", flipped))

	doc, raw, rerr := c.send(ctx, login, req, flipped)
	if rerr != nil {
		ofx.TraceError(ctx, rerr, "retry failed", slog.String("login", login.DisplayName()))
		return nil, nil, err
	}
	login.Version = flipped
	return doc, raw, nil
}

func (c *Client) send(ctx context.Context, login *Login, req *request.Request, version int) (*ofx.Document, []byte, error) {
	body, err := req.Marshal(version)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal request")
	}
	c.logExchange(ctx, login, "request", body)

	ctx, release := c.track(ctx)
	defer release()

	raw, err := c.transport.Post(ctx, login.Institution.URL, body, transport.QuirksFor(login.Institution.FID))
	if err != nil {
		var terr *ofx.TransportError
		var herr *ofx.HTMLResponseError
		switch {
		case errors.As(err, &terr) && len(terr.Body) > 0:
			c.logExchange(ctx, login, "error response", terr.Body)
		case errors.As(err, &herr):
			c.logExchange(ctx, login, "error response", herr.Body)
		}
		return nil, nil, err
	}
	c.logExchange(ctx, login, "response", raw)

	doc, err := ofx.Parse(ctx, raw, c.parseOptions...)
	if err != nil {
		return nil, nil, err
	}
	return doc, raw, nil
}

// exchange sends the request made by build. When the server wants its
// challenge questions answered first, they are fetched, passed to
// prompt, and the request is built and sent again with the answers.
func (c *Client) exchange(ctx context.Context, login *Login, build func(*request.Builder) *request.Request, prompt MFAPrompt) (*request.Request, *ofx.Document, []byte, error) {
	b := c.builder(login)
	req := build(b)
	doc, raw, err := c.sendWithFallback(ctx, login, req)
	if err != nil {
		return nil, nil, nil, err
	}

	son := doc.SignOnResponse()
	if son != nil && son.Status.Code == ofx.StatusMFARequired && prompt != nil {
		answers, err := c.challenge(ctx, login, b, prompt)
		if err != nil {
			return nil, nil, nil, err
		}
		login.Credentials.SetMFAAnswers(answers)

		req = build(b)
		if doc, raw, err = c.sendWithFallback(ctx, login, req); err != nil {
			return nil, nil, nil, err
		}
		son = doc.SignOnResponse()
	}
	login.Credentials.UpdateFromSignOn(son)
	return req, doc, raw, nil
}

func (c *Client) challenge(ctx context.Context, login *Login, b *request.Builder, prompt MFAPrompt) ([]ofx.MFAChallengeAnswer, error) {
	doc, _, err := c.sendWithFallback(ctx, login, b.MFAChallenge())
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch challenge questions")
	}
	res := doc.MFAChallengeResponse()
	if res == nil {
		return nil, errors.Wrap(ErrNoResponse, "MFACHALLENGETRNRS")
	}
	if err := res.Status.Err("MFACHALLENGETRNRS"); err != nil {
		return nil, err
	}
	if len(res.Challenges) == 0 {
		return nil, ErrNoChallenge
	}
	return prompt(ctx, login, res.Challenges)
}

// signOnError returns the error carried by the sign-on status of doc
func signOnError(doc *ofx.Document) error {
	son := doc.SignOnResponse()
	if son == nil {
		return errors.Wrap(ErrNoResponse, "SONRS")
	}
	return son.Status.Err("SONRS")
}
