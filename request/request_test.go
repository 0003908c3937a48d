package request_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/request"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newBuilder(creds *request.Credentials, options ...request.Option) *request.Builder {
	var n int
	options = append([]request.Option{
		request.WithClock(func() time.Time { return now }),
		request.WithUIDGenerator(func() string {
			n++
			return "uid-" + strconv.Itoa(n)
		}),
	}, options...)
	inst := request.Institution{Name: "Example", Org: "Example Bank", FID: "1234", BrokerID: "example.com"}
	return request.New(inst, creds, options...)
}

func sonrq(req *request.Request) *node.Element {
	return req.Root().Lookup("SIGNONMSGSRQV1/SONRQ")
}

func TestSignOn(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		req := newBuilder(nil).SignOn()
		s := sonrq(req)
		require.Equal(t, request.AnonymousUserID, s.ChildText("USERID"))
		require.Equal(t, request.AnonymousPassword, s.ChildText("USERPASS"))
		require.Equal(t, "20240315120000.000[0:GMT]", s.ChildText("DTCLIENT"))
		require.Equal(t, "Example Bank", s.ChildText("FI/ORG"))
		require.Equal(t, "1234", s.ChildText("FI/FID"))
		require.Equal(t, "QWIN", s.ChildText("APPID"))
		require.Equal(t, "2700", s.ChildText("APPVER"))
		require.Nil(t, s.FindChild("CLIENTUID"))
	})
	t.Run("user key", func(t *testing.T) {
		creds := &request.Credentials{UserID: "jdoe", Password: "pw", UserKey: "key", UserKeyExpires: now.Add(time.Hour)}
		s := sonrq(newBuilder(creds).SignOn())
		require.Equal(t, "key", s.ChildText("USERKEY"))
		require.Nil(t, s.FindChild("USERID"), "a valid user key replaces the password")

		creds.UserKeyExpires = now.Add(-time.Hour)
		s = sonrq(newBuilder(creds).SignOn())
		require.Nil(t, s.FindChild("USERKEY"), "expired keys are not sent")
		require.Equal(t, "jdoe", s.ChildText("USERID"))
		require.Equal(t, "pw", s.ChildText("USERPASS"))
	})
	t.Run("options", func(t *testing.T) {
		creds := &request.Credentials{UserID: "jdoe", Password: "pw", SessionCookie: "c", UserCred1: "one", UserCred2: "two"}
		s := sonrq(newBuilder(creds, request.WithAppID("QBKS", "2500"), request.WithClientUID("cuid"), request.WithLanguage("FRA")).SignOn())
		require.Equal(t, "QBKS", s.ChildText("APPID"))
		require.Equal(t, "2500", s.ChildText("APPVER"))
		require.Equal(t, "cuid", s.ChildText("CLIENTUID"))
		require.Equal(t, "FRA", s.ChildText("LANGUAGE"))
		require.Equal(t, "c", s.ChildText("SESSCOOKIE"))
		require.Equal(t, "one", s.ChildText("USERCRED1"))
		require.Equal(t, "two", s.ChildText("USERCRED2"))
	})
	t.Run("MFA answers before access key before auth token", func(t *testing.T) {
		creds := &request.Credentials{UserID: "jdoe", Password: "pw", AccessKey: "ak", AuthToken: "at"}
		creds.SetMFAAnswers([]ofx.MFAChallengeAnswer{{PhraseID: "MFA13", Answer: "blue"}, {PhraseID: "MFA107", Answer: "7"}})
		b := newBuilder(creds)

		s := sonrq(b.SignOn())
		answers := s.FindChildren("MFACHALLENGEANSWER")
		require.Len(t, answers, 2)
		require.Equal(t, "blue", answers[0].ChildText("MFAPHRASEA"))
		require.Nil(t, s.FindChild("ACCESSKEY"))
		require.Nil(t, s.FindChild("AUTHTOKEN"))

		s = sonrq(b.SignOn())
		require.Empty(t, s.FindChildren("MFACHALLENGEANSWER"), "answers are sent once")
		require.Equal(t, "ak", s.ChildText("ACCESSKEY"))
		require.Nil(t, s.FindChild("AUTHTOKEN"))

		creds.AccessKey = ""
		s = sonrq(b.SignOn())
		require.Equal(t, "at", s.ChildText("AUTHTOKEN"))
	})
}

func TestUpdateFromSignOn(t *testing.T) {
	creds := &request.Credentials{}
	creds.UpdateFromSignOn(&ofx.SignOnResponse{UserKey: "k", UserKeyExpires: now, SessionCookie: "c"})
	require.Equal(t, "k", creds.UserKey)
	require.Equal(t, "c", creds.SessionCookie)

	creds.UpdateFromSignOn(&ofx.SignOnResponse{Status: ofx.Status{Code: 15500}, UserKey: "other"})
	require.Equal(t, "k", creds.UserKey, "failed sign-ons change nothing")
	creds.UpdateFromSignOn(nil)
}

func TestStatements(t *testing.T) {
	b := newBuilder(&request.Credentials{UserID: "jdoe", Password: "pw"})
	lastSync := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	targets := []request.Target{
		{AccountRef: ofx.AccountRef{Kind: ofx.AccountBank, BankID: "121000248", AccountID: "111", AccountType: "SAVINGS"}, LocalID: "savings", LastSync: lastSync},
		{AccountRef: ofx.AccountRef{Kind: ofx.AccountCreditCard, AccountID: "4111"}, LocalID: "card"},
		{AccountRef: ofx.AccountRef{Kind: ofx.AccountInvestment, AccountID: "Z1"}, LocalID: "brokerage", LastSync: lastSync},
		{AccountRef: ofx.AccountRef{Kind: ofx.AccountBank, BankID: "121000248", AccountID: "222"}, LocalID: "checking", LastSync: lastSync},
		{AccountRef: ofx.AccountRef{Kind: ofx.AccountUnknown}, LocalID: "skipped"},
	}
	req := b.Statements(targets)
	root := req.Root()

	bank := root.Lookup("BANKMSGSRQV1").FindChildren("STMTTRNRQ")
	require.Len(t, bank, 2, "bank accounts are batched together")
	require.Equal(t, "SAVINGS", bank[0].ChildText("STMTRQ/BANKACCTFROM/ACCTTYPE"))
	require.Equal(t, "CHECKING", bank[1].ChildText("STMTRQ/BANKACCTFROM/ACCTTYPE"), "account type defaults to checking")
	require.Equal(t, "20240220", bank[0].ChildText("STMTRQ/INCTRAN/DTSTART"), "ten days before the last sync")

	cc := root.Lookup("CREDITCARDMSGSRQV1/CCSTMTTRNRQ")
	require.Equal(t, "4111", cc.ChildText("CCSTMTRQ/CCACCTFROM/ACCTID"))
	require.Equal(t, "20240214", cc.ChildText("CCSTMTRQ/INCTRAN/DTSTART"), "thirty days back without a previous sync")

	inv := root.Lookup("INVSTMTMSGSRQV1/INVSTMTTRNRQ/INVSTMTRQ")
	require.Equal(t, "example.com", inv.ChildText("INVACCTFROM/BROKERID"), "the institution broker id is the default")
	require.Equal(t, "Y", inv.ChildText("INCPOS/INCLUDE"))
	require.Equal(t, "Y", inv.ChildText("INCBAL"))

	require.Len(t, req.TrnUIDs, 4)
	seen := map[string]bool{}
	for trnuid, local := range req.TrnUIDs {
		require.NotEmpty(t, trnuid)
		seen[local] = true
	}
	require.Equal(t, map[string]bool{"savings": true, "card": true, "brokerage": true, "checking": true}, seen)
	require.Equal(t, "savings", req.TrnUIDs[bank[0].ChildText("TRNUID")], "TRNUIDs map back to the target")
	require.True(t, now.Add(-30*24*time.Hour).Equal(req.EarliestStart), "the earliest start across targets is kept")
}

func TestOtherRequests(t *testing.T) {
	creds := &request.Credentials{UserID: "jdoe", Password: "pw"}
	b := newBuilder(creds)

	prof := b.Profile(time.Time{}).Root().Lookup("PROFMSGSRQV1/PROFTRNRQ/PROFRQ")
	require.Equal(t, "MSGSET", prof.ChildText("CLIENTROUTING"))
	require.Equal(t, "19900101000000.000[0:GMT]", prof.ChildText("DTPROFUP"))

	su := b.SignUp(now).Root().Lookup("SIGNUPMSGSRQV1/ACCTINFOTRNRQ/ACCTINFORQ")
	require.Equal(t, "20240315120000.000[0:GMT]", su.ChildText("DTACCTUP"))

	pin := b.PinChange("new-secret").Root().Lookup("SIGNONMSGSRQV1/PINCHTRNRQ")
	require.NotEmpty(t, pin.ChildText("TRNUID"))
	require.Equal(t, "jdoe", pin.ChildText("PINCHRQ/USERID"))
	require.Equal(t, "new-secret", pin.ChildText("PINCHRQ/NEWUSERPASS"))

	mfa := b.MFAChallenge().Root().Lookup("SIGNONMSGSRQV1")
	require.NotNil(t, mfa.FindChild("SONRQ"))
	require.NotEmpty(t, mfa.ChildText("MFACHALLENGETRNRQ/MFACHALLENGERQ/DTCLIENT"))
}

func TestMarshal(t *testing.T) {
	creds := &request.Credentials{UserID: "jdoe", Password: "pässword"}
	req := newBuilder(creds).Statements([]request.Target{
		{AccountRef: ofx.AccountRef{Kind: ofx.AccountBank, BankID: "1", AccountID: "2"}, LocalID: "a"},
	})

	t.Run("version 1", func(t *testing.T) {
		b, err := req.Marshal(1)
		require.NoError(t, err)
		require.Contains(t, string(b), "OFXHEADER:100\r\nDATA:OFXSGML\r\nVERSION:102\r\n")
		require.Contains(t, string(b), "<USERID>jdoe\r\n")
		require.Contains(t, string(b), "</SONRQ>\r\n")
		require.Contains(t, string(b), "p\xe4ssword", "the body is encoded in the declared code page")

		doc, err := ofx.Parse(context.Background(), b)
		require.NoError(t, err, "the request parses")
		require.Equal(t, 102, doc.Version)
		require.Equal(t, "pässword", doc.Lookup("SIGNONMSGSRQV1/SONRQ/USERPASS").Text())
		require.Equal(t, "2", doc.Lookup("BANKMSGSRQV1/STMTTRNRQ/STMTRQ/BANKACCTFROM/ACCTID").Text())
	})
	t.Run("version 2", func(t *testing.T) {
		b, err := req.Marshal(2)
		require.NoError(t, err)
		require.Contains(t, string(b), `<?OFX OFXHEADER="200" VERSION="211" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="uid-`)

		doc, err := ofx.Parse(context.Background(), b)
		require.NoError(t, err)
		require.Equal(t, 211, doc.Version)
		require.Equal(t, "pässword", doc.Lookup("SIGNONMSGSRQV1/SONRQ/USERPASS").Text())
	})

	require.Equal(t, 102, request.ResolveVersion(0))
	require.Equal(t, 102, request.ResolveVersion(1))
	require.Equal(t, 211, request.ResolveVersion(2))
	require.Equal(t, 160, request.ResolveVersion(160))
}
