package process

import (
	"time"

	"github.com/lestrrat-go/ofx/store"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identAliases struct{}
type identClock struct{}

// WithAliases sets the payee aliases applied while merging
func WithAliases(a store.Aliases) Option {
	return option.New(identAliases{}, a)
}

// WithClock replaces time.Now, used to stamp the last sync time
func WithClock(fn func() time.Time) Option {
	return option.New(identClock{}, fn)
}
