package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/ofx"
)

// LogPath returns the exchange log of login, or "" when logging is off
func (c *Client) LogPath(login *Login) string {
	if c.logDir == "" {
		return ""
	}
	return filepath.Join(c.logDir, fileName(login.DisplayName())+".log")
}

// fileName makes s safe to use as a file name
func fileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
	if s == "" || strings.Trim(s, ".") == "" {
		return "unnamed"
	}
	return s
}

// logExchange appends payload to the login's log with secrets masked.
// Failing to write the log never fails the exchange.
func (c *Client) logExchange(ctx context.Context, login *Login, what string, payload []byte) {
	path := c.LogPath(login)
	if path == "" {
		return
	}

	c.logMu.Lock()
	defer c.logMu.Unlock()

	if err := os.MkdirAll(c.logDir, 0o700); err != nil {
		ofx.TraceError(ctx, err, "failed to create log directory")
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		ofx.TraceError(ctx, err, "failed to open exchange log")
		return
	}
	defer f.Close()

	redacted := ofx.RedactBytes(payload)
	fmt.Fprintf(f, "==== %s %s\n", what, time.Now().Format(time.RFC3339))
	f.Write(redacted)
	if len(redacted) == 0 || redacted[len(redacted)-1] != '\n' {
		f.Write([]byte{'\n'})
	}
}
