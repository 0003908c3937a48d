package client

import (
	"context"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/request"
	"github.com/pkg/errors"
)

// ListAccounts asks the server which accounts login can download
func (c *Client) ListAccounts(ctx context.Context, login *Login) ([]ofx.AccountInfo, error) {
	ctx, span := ofx.StartSpan(ctx, "client.ListAccounts")
	defer span.End()

	_, doc, _, err := c.exchange(ctx, login, func(b *request.Builder) *request.Request {
		return b.SignUp(time.Time{})
	}, c.mfaPrompt)
	if err != nil {
		return nil, err
	}
	if err := signOnError(doc); err != nil {
		return nil, err
	}

	res := doc.SignUpResponse()
	if res == nil {
		return nil, errors.Wrap(ErrNoResponse, "ACCTINFOTRNRS")
	}
	if err := res.Status.Err("ACCTINFOTRNRS"); err != nil {
		return nil, err
	}
	return res.Accounts, nil
}

// ChangePin changes the password of login. The credentials take the
// new password once the server has accepted it.
func (c *Client) ChangePin(ctx context.Context, login *Login, newPassword string) error {
	ctx, span := ofx.StartSpan(ctx, "client.ChangePin")
	defer span.End()

	_, doc, _, err := c.exchange(ctx, login, func(b *request.Builder) *request.Request {
		return b.PinChange(newPassword)
	}, c.mfaPrompt)
	if err != nil {
		return err
	}
	if err := signOnError(doc); err != nil {
		return err
	}

	res := doc.PinChangeResponse()
	if res == nil {
		return errors.Wrap(ErrNoResponse, "PINCHTRNRS")
	}
	if err := res.Status.Err("PINCHTRNRS"); err != nil {
		return err
	}
	login.Credentials.Password = newPassword
	return nil
}
