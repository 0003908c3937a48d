package ofx_test

import (
	"context"
	"testing"

	"github.com/lestrrat-go/ofx"
	"github.com/stretchr/testify/require"
)

const signOnRequest = "OFXHEADER:100\r\nDATA:OFXSGML\r\nVERSION:102\r\n\r\n" +
	"<OFX><SIGNONMSGSRQV1><SONRQ><DTCLIENT>20240115120000<USERID>jdoe<USERPASS>hunter2" +
	"<LANGUAGE>ENG<FI><ORG>Example Bank<FID>1234</FI><APPID>QWIN<APPVER>2700" +
	"<USERCRED1>extra<MFACHALLENGEANSWER><MFAPHRASEID>MFA1<MFAPHRASEA>blue</MFACHALLENGEANSWER>" +
	"<ACCESSKEY>secret-key</SONRQ></SIGNONMSGSRQV1></OFX>"

func TestRedact(t *testing.T) {
	doc, err := ofx.Parse(context.Background(), []byte(signOnRequest))
	require.NoError(t, err)

	masked := ofx.Redact(doc)
	require.NotSame(t, doc.Tree, masked.Tree, "Redact works on a copy")
	require.Equal(t, doc.Header, masked.Header)

	sonrq := masked.Lookup("SIGNONMSGSRQV1/SONRQ")
	for _, path := range []string{"USERID", "USERPASS", "USERCRED1", "ACCESSKEY", "MFACHALLENGEANSWER/MFAPHRASEA"} {
		require.Equal(t, ofx.RedactedValue, sonrq.ChildText(path), "%s is masked", path)
	}
	require.Equal(t, "MFA1", sonrq.ChildText("MFACHALLENGEANSWER/MFAPHRASEID"), "phrase ids are not secret")
	require.Equal(t, "QWIN", sonrq.ChildText("APPID"))

	require.Equal(t, "hunter2", doc.Lookup("SIGNONMSGSRQV1/SONRQ/USERPASS").Text(), "the original is untouched")

	again := ofx.Redact(masked)
	require.Equal(t, flatten(masked), flatten(again), "redacting twice gives the same output")

	require.Nil(t, ofx.Redact(nil))
}

func TestRedactBytes(t *testing.T) {
	in := []byte("<SONRQ><USERID>jdoe\r\n<userpass>hunter2</USERPASS><SESSCOOKIE></SESSCOOKIE><APPID>QWIN")
	out := ofx.RedactBytes(in)
	require.Equal(t, "<SONRQ><USERID>********\r\n<userpass>********</USERPASS><SESSCOOKIE></SESSCOOKIE><APPID>QWIN", string(out))
	require.Equal(t, out, ofx.RedactBytes(out), "redaction is idempotent")
	require.True(t, ofx.IsSecretElement("authtoken"))
	require.False(t, ofx.IsSecretElement("APPID"))
}
