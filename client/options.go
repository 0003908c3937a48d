package client

import (
	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/process"
	"github.com/lestrrat-go/ofx/request"
	"github.com/lestrrat-go/ofx/transport"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identConcurrency struct{}
type identLogDir struct{}
type identMFAPrompt struct{}
type identOnComplete struct{}
type identParseOptions struct{}
type identProcessOptions struct{}
type identProfileDir struct{}
type identRequestOptions struct{}
type identResolver struct{}
type identTransport struct{}

// WithConcurrency limits the number of logins synced at once. Zero,
// the default, starts them all together.
func WithConcurrency(n int) Option {
	return option.New(identConcurrency{}, n)
}

// WithLogDir enables the exchange logs. Every request and response is
// appended, with secrets masked, to <dir>/<login>.log.
func WithLogDir(dir string) Option {
	return option.New(identLogDir{}, dir)
}

// WithMFAPrompt sets the function asked for answers when a server
// wants its challenge questions answered. During Sync it runs on the
// goroutine that called Sync.
func WithMFAPrompt(fn MFAPrompt) Option {
	return option.New(identMFAPrompt{}, fn)
}

// WithOnComplete sets a callback run once a Sync or Import has handled
// every login or file
func WithOnComplete(fn func(*download.Result)) Option {
	return option.New(identOnComplete{}, fn)
}

func WithParseOptions(options ...ofx.ParseOption) Option {
	return option.New(identParseOptions{}, options)
}

func WithProcessOptions(options ...process.Option) Option {
	return option.New(identProcessOptions{}, options)
}

// WithProfileDir sets where FetchProfile caches server profiles
func WithProfileDir(dir string) Option {
	return option.New(identProfileDir{}, dir)
}

// WithRequestOptions sets options applied to every request builder,
// such as the application id
func WithRequestOptions(options ...request.Option) Option {
	return option.New(identRequestOptions{}, options)
}

// WithResolver sets the callback for downloaded accounts that match no
// local account
func WithResolver(fn process.Resolver) Option {
	return option.New(identResolver{}, fn)
}

func WithTransport(t *transport.Client) Option {
	return option.New(identTransport{}, t)
}
