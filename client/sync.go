package client

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/process"
	"github.com/lestrrat-go/ofx/request"
	pdebug "github.com/lestrrat-go/pdebug/v3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// messages posted by workers to the coordinating goroutine

type syncResult struct {
	login *Login
	req   *request.Request
	doc   *ofx.Document
	err   error
}

type importResult struct {
	path string
	doc  *ofx.Document
	err  error
}

type promptRequest struct {
	login      *Login
	challenges []ofx.MFAChallenge
	reply      chan promptReply
}

type promptReply struct {
	answers []ofx.MFAChallengeAnswer
	err     error
}

// Sync downloads statements for every login and applies them to the
// store. Each login gets its own goroutine, unless WithConcurrency
// limits them. The calling goroutine coordinates: it alone touches
// the store and sink, runs the resolver and answers MFA prompts, one
// message at a time. Sync returns once every login is done. Failures
// are recorded in sink, one child per login, and never stop the other
// logins.
func (c *Client) Sync(ctx context.Context, logins []*Login, sink *download.Result) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	ctx, span := ofx.StartSpan(ctx, "client.Sync")
	defer span.End()

	c.active.Add(1)
	defer c.active.Add(-1)

	c.fillLastSync(ctx, logins)

	msgs := make(chan any)
	go func() {
		var eg errgroup.Group
		if c.limit > 0 {
			eg.SetLimit(c.limit)
		}
		for _, login := range logins {
			eg.Go(func() error {
				c.syncLogin(ctx, login, msgs)
				return nil
			})
		}
		_ = eg.Wait()
		close(msgs)
	}()

	c.coordinate(ctx, msgs, len(logins), sink)
}

// fillLastSync copies the last sync time of each target's local
// account into the target, so the request starts where the last
// download ended
func (c *Client) fillLastSync(ctx context.Context, logins []*Login) {
	accounts, err := c.store.Accounts(ctx)
	if err != nil {
		ofx.TraceError(ctx, err, "failed to load accounts")
		return
	}
	lastSync := make(map[string]int, len(accounts))
	for i, a := range accounts {
		lastSync[a.ID] = i
	}
	for _, login := range logins {
		for i := range login.Accounts {
			t := &login.Accounts[i]
			if idx, ok := lastSync[t.LocalID]; ok && t.LastSync.IsZero() {
				t.LastSync = accounts[idx].LastSync
			}
		}
	}
}

func (c *Client) syncLogin(ctx context.Context, login *Login, msgs chan<- any) {
	var prompt MFAPrompt
	if c.mfaPrompt != nil {
		prompt = func(_ context.Context, login *Login, challenges []ofx.MFAChallenge) ([]ofx.MFAChallengeAnswer, error) {
			reply := make(chan promptReply, 1)
			msgs <- &promptRequest{login: login, challenges: challenges, reply: reply}
			r := <-reply
			return r.answers, r.err
		}
	}

	req, doc, _, err := c.exchange(ctx, login, func(b *request.Builder) *request.Request {
		return b.Statements(login.Accounts)
	}, prompt)
	msgs <- &syncResult{login: login, req: req, doc: doc, err: err}
}

// Import reads OFX files and applies them to the store. Files are read
// and parsed on a goroutine of their own; the calling goroutine
// applies them, as in Sync. Each file gets a child of sink named after
// it.
func (c *Client) Import(ctx context.Context, paths []string, sink *download.Result) {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	ctx, span := ofx.StartSpan(ctx, "client.Import")
	defer span.End()

	c.active.Add(1)
	defer c.active.Add(-1)

	msgs := make(chan any)
	go func() {
		defer close(msgs)
		for _, path := range paths {
			doc, err := c.readFile(ctx, path)
			msgs <- &importResult{path: path, doc: doc, err: err}
		}
	}()

	c.coordinate(ctx, msgs, len(paths), sink)
}

func (c *Client) readFile(ctx context.Context, path string) (*ofx.Document, error) {
	if ctx.Err() != nil {
		return nil, ofx.ErrCancelled
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return ofx.Parse(ctx, b, c.parseOptions...)
}

// coordinate handles worker messages until msgs is closed. The
// completion callback runs when the last of total results is in.
func (c *Client) coordinate(ctx context.Context, msgs <-chan any, total int, sink *download.Result) {
	var done atomic.Int64
	complete := func() {
		if done.Add(1) == int64(total) && c.onComplete != nil {
			c.onComplete(sink)
		}
	}
	if total == 0 && c.onComplete != nil {
		c.onComplete(sink)
	}
	// resolver refusals hold for the whole batch
	declined := make(map[string]bool)

	for m := range msgs {
		switch m := m.(type) {
		case *promptRequest:
			answers, err := c.mfaPrompt(ctx, m.login, m.challenges)
			m.reply <- promptReply{answers: answers, err: err}
		case *syncResult:
			res := sink.NewChild(m.login.DisplayName())
			var pctx *process.Context
			if m.req != nil {
				pctx = &process.Context{
					TrnUIDs:  m.req.TrnUIDs,
					Resolver: c.resolver,
					Since:    m.req.EarliestStart,
					Login:    m.login.Name,
					Declined: declined,
				}
			}
			c.apply(ctx, res, m.doc, pctx, m.err)
			complete()
		case *importResult:
			res := sink.NewChild(filepath.Base(m.path))
			c.apply(ctx, res, m.doc, &process.Context{Resolver: c.resolver, Declined: declined}, m.err)
			complete()
		}
	}
}

func (c *Client) apply(ctx context.Context, res *download.Result, doc *ofx.Document, pctx *process.Context, err error) {
	if err != nil {
		ofx.TraceError(ctx, err, "download failed", slog.String("name", res.Name))
		res.Fail(err)
		return
	}
	if err := c.processor.ProcessResponse(ctx, doc, pctx, res); err != nil {
		ofx.TraceError(ctx, err, "failed to process response", slog.String("name", res.Name))
	}
}
