package ofx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lestrrat-go/ofx"
	"github.com/stretchr/testify/require"
)

func TestStatusFromElement(t *testing.T) {
	const input = "<OFX><SIGNONMSGSRSV1><SONRS><STATUS><CODE>15500<SEVERITY>ERROR<MESSAGE>Bad password</STATUS></SONRS></SIGNONMSGSRSV1></OFX>"
	doc, err := ofx.Parse(context.Background(), []byte(input))
	require.NoError(t, err)

	sonrs := doc.Lookup("SIGNONMSGSRSV1/SONRS")
	st := ofx.StatusFromElement(sonrs)
	require.Equal(t, ofx.Status{Code: 15500, Severity: "ERROR", Message: "Bad password"}, st)
	require.False(t, st.OK())
	require.Equal(t, st, ofx.StatusFromElement(sonrs.FindChild("STATUS")), "the STATUS element itself decodes the same")

	err = st.Err("SONRS")
	var serr *ofx.StatusError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 15500, serr.Code)
	require.Contains(t, err.Error(), "Bad password")

	missing := ofx.StatusFromElement(nil)
	require.True(t, missing.OK(), "a missing STATUS is success")
	require.NoError(t, missing.Err("SONRS"))
}

func TestStatusMessage(t *testing.T) {
	require.Equal(t, "Signon invalid", ofx.StatusMessage(15500))
	require.Equal(t, "Client is up-to-date", ofx.StatusMessage(1))
	require.Equal(t, "Unknown status code 99999", ofx.StatusMessage(99999))

	err := (&ofx.StatusError{Status: ofx.Status{Code: 2003, Severity: "ERROR"}, Element: "STMTTRNRS"}).Error()
	require.Contains(t, err, "Account not found", "the table fills in missing messages")
	require.Contains(t, err, "STMTTRNRS")
}
