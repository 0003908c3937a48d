package request

import (
	"time"

	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identAppID struct{}
type identClientUID struct{}
type identClock struct{}
type identLanguage struct{}
type identUIDGenerator struct{}

type appID struct {
	id      string
	version string
}

// WithAppID sets APPID and APPVER. Servers often only accept the
// values of well known finance applications.
func WithAppID(id, version string) Option {
	return option.New(identAppID{}, appID{id: id, version: version})
}

// WithClientUID sets CLIENTUID, required by some servers to recognize
// a previously authorized installation
func WithClientUID(uid string) Option {
	return option.New(identClientUID{}, uid)
}

// WithClock replaces time.Now
func WithClock(fn func() time.Time) Option {
	return option.New(identClock{}, fn)
}

// WithLanguage sets LANGUAGE. The default is ENG.
func WithLanguage(lang string) Option {
	return option.New(identLanguage{}, lang)
}

// WithUIDGenerator replaces the generator of TRNUID and NEWFILEUID
// values
func WithUIDGenerator(fn func() string) Option {
	return option.New(identUIDGenerator{}, fn)
}
