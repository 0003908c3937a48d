// Package request builds OFX request documents
package request

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/node"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

// Anonymous credentials are sent when an account has none, for
// requests such as the profile that do not need a login
const (
	AnonymousUserID   = "anonymous00000000000000000000000"
	AnonymousPassword = "anonymous00000000000000000000000"
)

const (
	// fetch this far back before the last sync
	syncOverlap = 10 * 24 * time.Hour
	// fetch this far back on the first sync
	firstSyncWindow = 30 * 24 * time.Hour
)

// Institution is the server side of a connection
type Institution struct {
	Name     string
	Org      string
	FID      string
	URL      string
	BrokerID string
}

// Credentials are the sign-on secrets of one login. They are shared
// by the requests of that login and may be updated from responses.
type Credentials struct {
	UserID         string
	Password       string
	UserKey        string
	UserKeyExpires time.Time
	SessionCookie  string
	UserCred1      string
	UserCred2      string
	AccessKey      string
	AuthToken      string

	mu         sync.Mutex
	mfaAnswers []ofx.MFAChallengeAnswer
}

// SetMFAAnswers stores answers for the next sign-on
func (c *Credentials) SetMFAAnswers(answers []ofx.MFAChallengeAnswer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mfaAnswers = append([]ofx.MFAChallengeAnswer(nil), answers...)
}

// takeMFAAnswers returns the stored answers and forgets them
func (c *Credentials) takeMFAAnswers() []ofx.MFAChallengeAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()
	answers := c.mfaAnswers
	c.mfaAnswers = nil
	return answers
}

// UpdateFromSignOn keeps the user key and session cookie handed out by
// a sign-on response
func (c *Credentials) UpdateFromSignOn(son *ofx.SignOnResponse) {
	if son == nil || !son.Status.OK() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if son.UserKey != "" {
		c.UserKey = son.UserKey
		c.UserKeyExpires = son.UserKeyExpires
	}
	if son.SessionCookie != "" {
		c.SessionCookie = son.SessionCookie
	}
	if son.AccessKey != "" {
		c.AccessKey = son.AccessKey
	}
}

// Target is an account to download a statement for
type Target struct {
	ofx.AccountRef
	// LocalID identifies the account in the store. Responses are
	// matched back to it through the TRNUID.
	LocalID string
	// LastSync is the time of the last successful download, zero if
	// there was none
	LastSync time.Time
}

// Request is a built request document
type Request struct {
	Tree *node.Document
	// TrnUIDs maps each statement TRNUID to the LocalID of its target
	TrnUIDs map[string]string
	// EarliestStart is the earliest DTSTART across all statements
	EarliestStart time.Time

	newUID func() string
}

// Root returns the OFX element
func (r *Request) Root() *node.Element {
	return r.Tree.DocumentElement()
}

// Builder creates requests for one institution and login
type Builder struct {
	inst      Institution
	creds     *Credentials
	appID     string
	appVer    string
	clientUID string
	language  string
	now       func() time.Time
	newUID    func() string
}

func New(inst Institution, creds *Credentials, options ...Option) *Builder {
	b := &Builder{
		inst:     inst,
		creds:    creds,
		appID:    "QWIN",
		appVer:   "2700",
		language: "ENG",
		now:      time.Now,
		newUID:   uuid.NewString,
	}
	for _, o := range options {
		switch o.Ident() {
		case identAppID{}:
			v := o.Value().(appID)
			b.appID, b.appVer = v.id, v.version
		case identClientUID{}:
			b.clientUID = o.Value().(string)
		case identClock{}:
			b.now = o.Value().(func() time.Time)
		case identLanguage{}:
			b.language = o.Value().(string)
		case identUIDGenerator{}:
			b.newUID = o.Value().(func() string)
		}
	}
	if b.creds == nil {
		b.creds = &Credentials{}
	}
	return b
}

// StartDate returns the DTSTART used for a target: ten days before the
// last sync, or thirty days back when there was none
func (b *Builder) StartDate(t Target) time.Time {
	if t.LastSync.IsZero() {
		return b.now().Add(-firstSyncWindow)
	}
	return t.LastSync.Add(-syncOverlap)
}

func (b *Builder) newRequest() (*Request, *node.Element) {
	doc := node.NewDocument()
	root := doc.CreateElement("OFX")
	_ = doc.SetDocumentElement(root)
	return &Request{Tree: doc, TrnUIDs: make(map[string]string), newUID: b.newUID}, root
}

func add(parent *node.Element, name string) *node.Element {
	e := parent.OwnerDocument().CreateElement(name)
	_ = parent.AddChild(e)
	return e
}

func addText(parent *node.Element, name, value string) *node.Element {
	e := add(parent, name)
	e.SetText(value)
	return e
}

func addOptional(parent *node.Element, name, value string) {
	if value != "" {
		addText(parent, name, value)
	}
}

// signOn adds SIGNONMSGSRQV1 with its SONRQ
func (b *Builder) signOn(root *node.Element) *node.Element {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	now := b.now()
	msgs := add(root, "SIGNONMSGSRQV1")
	sonrq := add(msgs, "SONRQ")
	addText(sonrq, "DTCLIENT", ofx.FormatDate(now))

	c := b.creds
	c.mu.Lock()
	userKey, keyExpires := c.UserKey, c.UserKeyExpires
	c.mu.Unlock()
	if userKey != "" && (keyExpires.IsZero() || now.Before(keyExpires)) {
		addText(sonrq, "USERKEY", userKey)
	} else {
		userID, password := c.UserID, c.Password
		if strings.TrimSpace(userID) == "" {
			userID, password = AnonymousUserID, AnonymousPassword
		}
		addText(sonrq, "USERID", userID)
		addText(sonrq, "USERPASS", password)
	}

	addText(sonrq, "LANGUAGE", b.language)
	if b.inst.Org != "" || b.inst.FID != "" {
		fi := add(sonrq, "FI")
		addText(fi, "ORG", b.inst.Org)
		addOptional(fi, "FID", b.inst.FID)
	}
	addOptional(sonrq, "SESSCOOKIE", c.SessionCookie)
	addText(sonrq, "APPID", b.appID)
	addText(sonrq, "APPVER", b.appVer)
	addOptional(sonrq, "CLIENTUID", b.clientUID)
	addOptional(sonrq, "USERCRED1", c.UserCred1)
	addOptional(sonrq, "USERCRED2", c.UserCred2)

	if answers := c.takeMFAAnswers(); len(answers) > 0 {
		for _, a := range answers {
			ans := add(sonrq, "MFACHALLENGEANSWER")
			addText(ans, "MFAPHRASEID", a.PhraseID)
			addText(ans, "MFAPHRASEA", a.Answer)
		}
	} else if c.AccessKey != "" {
		addText(sonrq, "ACCESSKEY", c.AccessKey)
	} else if c.AuthToken != "" {
		addText(sonrq, "AUTHTOKEN", c.AuthToken)
	}
	return msgs
}

func (b *Builder) transaction(parent *node.Element, name string) *node.Element {
	trn := add(parent, name)
	addText(trn, "TRNUID", b.newUID())
	return trn
}

// SignOn builds a request holding only the sign-on
func (b *Builder) SignOn() *Request {
	req, root := b.newRequest()
	b.signOn(root)
	return req
}

// Statements builds one statement request per target, grouped by
// account kind. Targets of unknown kind are skipped.
func (b *Builder) Statements(targets []Target) *Request {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	req, root := b.newRequest()
	b.signOn(root)

	var bank, cc, inv []Target
	for _, t := range targets {
		switch t.Kind {
		case ofx.AccountBank:
			bank = append(bank, t)
		case ofx.AccountCreditCard:
			cc = append(cc, t)
		case ofx.AccountInvestment:
			inv = append(inv, t)
		}
	}

	stmt := func(msgs *node.Element, t Target, trnName, rqName, fromName string) *node.Element {
		trn := b.transaction(msgs, trnName)
		req.TrnUIDs[trn.ChildText("TRNUID")] = t.LocalID
		rq := add(trn, rqName)
		from := add(rq, fromName)
		switch t.Kind {
		case ofx.AccountBank:
			addText(from, "BANKID", t.BankID)
			addOptional(from, "BRANCHID", t.BranchID)
			addText(from, "ACCTID", t.AccountID)
			acctType := t.AccountType
			if acctType == "" {
				acctType = "CHECKING"
			}
			addText(from, "ACCTTYPE", acctType)
		case ofx.AccountCreditCard:
			addText(from, "ACCTID", t.AccountID)
		case ofx.AccountInvestment:
			broker := t.BrokerID
			if broker == "" {
				broker = b.inst.BrokerID
			}
			addText(from, "BROKERID", broker)
			addText(from, "ACCTID", t.AccountID)
		}

		start := b.StartDate(t)
		if req.EarliestStart.IsZero() || start.Before(req.EarliestStart) {
			req.EarliestStart = start
		}
		inc := add(rq, "INCTRAN")
		addText(inc, "DTSTART", ofx.FormatDay(start))
		addText(inc, "INCLUDE", "Y")
		return rq
	}

	if len(bank) > 0 {
		msgs := add(root, "BANKMSGSRQV1")
		for _, t := range bank {
			stmt(msgs, t, "STMTTRNRQ", "STMTRQ", "BANKACCTFROM")
		}
	}
	if len(cc) > 0 {
		msgs := add(root, "CREDITCARDMSGSRQV1")
		for _, t := range cc {
			stmt(msgs, t, "CCSTMTTRNRQ", "CCSTMTRQ", "CCACCTFROM")
		}
	}
	if len(inv) > 0 {
		msgs := add(root, "INVSTMTMSGSRQV1")
		for _, t := range inv {
			rq := stmt(msgs, t, "INVSTMTTRNRQ", "INVSTMTRQ", "INVACCTFROM")
			addText(rq, "INCOO", "N")
			pos := add(rq, "INCPOS")
			addText(pos, "INCLUDE", "Y")
			addText(rq, "INCBAL", "Y")
		}
	}
	return req
}

// Profile builds a profile request. dtprofup is the date of the cached
// profile, zero when there is none.
func (b *Builder) Profile(dtprofup time.Time) *Request {
	req, root := b.newRequest()
	b.signOn(root)
	if dtprofup.IsZero() {
		dtprofup = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	msgs := add(root, "PROFMSGSRQV1")
	trn := b.transaction(msgs, "PROFTRNRQ")
	rq := add(trn, "PROFRQ")
	addText(rq, "CLIENTROUTING", "MSGSET")
	addText(rq, "DTPROFUP", ofx.FormatDate(dtprofup))
	return req
}

// SignUp builds an account list request. dtacctup is the date of the
// last known list, zero for a full list.
func (b *Builder) SignUp(dtacctup time.Time) *Request {
	req, root := b.newRequest()
	b.signOn(root)
	if dtacctup.IsZero() {
		dtacctup = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	msgs := add(root, "SIGNUPMSGSRQV1")
	trn := b.transaction(msgs, "ACCTINFOTRNRQ")
	rq := add(trn, "ACCTINFORQ")
	addText(rq, "DTACCTUP", ofx.FormatDate(dtacctup))
	return req
}

// PinChange builds a password change request
func (b *Builder) PinChange(newPassword string) *Request {
	req, root := b.newRequest()
	msgs := b.signOn(root)
	trn := b.transaction(msgs, "PINCHTRNRQ")
	rq := add(trn, "PINCHRQ")
	addText(rq, "USERID", b.creds.UserID)
	addText(rq, "NEWUSERPASS", newPassword)
	return req
}

// MFAChallenge builds a request for the server's challenge questions
func (b *Builder) MFAChallenge() *Request {
	req, root := b.newRequest()
	msgs := b.signOn(root)
	trn := b.transaction(msgs, "MFACHALLENGETRNRQ")
	rq := add(trn, "MFACHALLENGERQ")
	addText(rq, "DTCLIENT", ofx.FormatDate(b.now()))
	return req
}
