package client

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/request"
	"github.com/pkg/errors"
)

// ProfilePath returns the profile cache file of login, or "" when
// profiles are not cached
func (c *Client) ProfilePath(login *Login) string {
	if c.profileDir == "" {
		return ""
	}
	return filepath.Join(c.profileDir, fileName(login.DisplayName())+".profile.ofx")
}

// FetchProfile returns the server profile of login. With a profile
// directory, the server is asked only for a profile newer than the
// cached one. Its "up to date" answer (status 1) returns the cached
// profile and leaves the cache alone; a new profile replaces it.
func (c *Client) FetchProfile(ctx context.Context, login *Login) (*ofx.ProfileResponse, error) {
	ctx, span := ofx.StartSpan(ctx, "client.FetchProfile")
	defer span.End()

	path := c.ProfilePath(login)
	cached := c.cachedProfile(ctx, path)
	var since time.Time
	if cached != nil {
		since = cached.Updated
	}

	_, doc, raw, err := c.exchange(ctx, login, func(b *request.Builder) *request.Request {
		return b.Profile(since)
	}, c.mfaPrompt)
	if err != nil {
		return nil, err
	}
	if err := signOnError(doc); err != nil {
		return nil, err
	}

	prof := doc.ProfileResponse()
	if prof == nil {
		return nil, errors.Wrap(ErrNoResponse, "PROFTRNRS")
	}
	if prof.Status.Code == ofx.StatusClientUpToDate && cached != nil {
		ofx.TraceEvent(ctx, "cached profile is up to date")
		return cached, nil
	}
	if err := prof.Status.Err("PROFTRNRS"); err != nil {
		return nil, err
	}

	if path != "" {
		if err := writeFileAtomic(path, ofx.RedactBytes(raw)); err != nil {
			return nil, errors.Wrap(err, "failed to cache profile")
		}
	}
	return prof, nil
}

// cachedProfile parses the cache file. A missing or broken cache is no
// cache.
func (c *Client) cachedProfile(ctx context.Context, path string) *ofx.ProfileResponse {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			ofx.TraceError(ctx, err, "failed to read cached profile")
		}
		return nil
	}
	doc, err := ofx.Parse(ctx, b, c.parseOptions...)
	if err != nil {
		ofx.TraceError(ctx, err, "ignoring broken profile cache")
		return nil
	}
	prof := doc.ProfileResponse()
	if prof == nil || !prof.Status.OK() {
		return nil
	}
	return prof
}

// writeFileAtomic replaces path with b through a rename, so readers
// never see a partial file
func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
