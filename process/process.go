// Package process applies parsed OFX responses to a store
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/store"
	pdebug "github.com/lestrrat-go/pdebug/v3"
)

var (
	ErrInvalidRoot = errors.New("response root is not an OFX element")
)

// Resolver asks for the local account a downloaded account belongs
// to. template carries what the download knows about it. A nil result
// means the user declined.
type Resolver func(ctx context.Context, template *store.Account) *store.Account

// Context is what the caller knows about the request a response
// answers
type Context struct {
	// TrnUIDs maps statement TRNUIDs to local account ids. It is nil
	// for imported files.
	TrnUIDs map[string]string
	// Resolver is consulted for downloaded accounts that match no local
	// account
	Resolver Resolver
	// Since is the earliest statement start that was requested.
	// Downloaded transactions older than that which match nothing are
	// treated as history the user already removed and are dropped.
	Since time.Time
	// Login names the login the response was downloaded with. Accounts
	// created through the resolver record it.
	Login string
	// Declined holds the account numbers the user declined to resolve.
	// It is created when nil; share one Context, or one Declined map,
	// across the responses of a batch to ask only once.
	Declined map[string]bool
}

// Processor maps statements into a store. It holds no state between
// calls to ProcessResponse.
type Processor struct {
	store   store.Store
	aliases store.Aliases
	now     func() time.Time
}

func New(s store.Store, options ...Option) *Processor {
	p := &Processor{store: s, now: time.Now}
	for _, o := range options {
		switch o.Ident() {
		case identAliases{}:
			p.aliases = o.Value().(store.Aliases)
		case identClock{}:
			p.now = o.Value().(func() time.Time)
		}
	}
	return p
}

// batch is the state of one ProcessResponse call
type batch struct {
	*Processor
	pctx       *Context
	accounts   []*store.Account
	seen       map[int64]bool
	// from SECLIST, by unique id
	secinfo    map[string]*securityInfo
	securities map[string]*store.Security
}

// ProcessResponse applies doc to the store and records the outcome in
// sink, one child per statement. A failed sign-on stops processing
// and is returned; failures of single statements are only recorded.
func (p *Processor) ProcessResponse(ctx context.Context, doc *ofx.Document, pctx *Context, sink *download.Result) error {
	if pdebug.Enabled {
		g := pdebug.FuncMarker()
		defer g.End()
	}

	ctx, span := ofx.StartSpan(ctx, "process.ProcessResponse")
	defer span.End()

	if pctx == nil {
		pctx = &Context{}
	}
	if pctx.Declined == nil {
		pctx.Declined = make(map[string]bool)
	}

	root := doc.Root()
	if root == nil || root.LocalName() != "OFX" || root.URI() != "" || root.Prefix() != "" {
		err := &ofx.ParseError{Err: ErrInvalidRoot}
		sink.Fail(err)
		return err
	}

	if sonrs := root.Lookup("SIGNONMSGSRSV1/SONRS"); sonrs != nil {
		if err := ofx.StatusFromElement(sonrs).Err("SONRS"); err != nil {
			sink.Fail(err)
			return err
		}
	}

	accounts, err := p.store.Accounts(ctx)
	if err != nil {
		sink.Fail(err)
		return err
	}

	b := &batch{
		Processor:  p,
		pctx:       pctx,
		accounts:   accounts,
		seen:       make(map[int64]bool),
		securities: make(map[string]*store.Security),
	}
	b.secinfo = readSecurityList(root)

	if err := p.store.BeginUpdate(ctx); err != nil {
		sink.Fail(err)
		return err
	}
	defer func() {
		if err := p.store.EndUpdate(ctx); err != nil {
			ofx.TraceError(ctx, err, "failed to end update")
		}
	}()

	for msgs := range root.ChildElements() {
		switch msgs.LocalName() {
		case "BANKMSGSRSV1":
			b.statements(ctx, msgs, "STMTTRNRS", "STMTRS", ofx.AccountBank, sink)
		case "CREDITCARDMSGSRSV1":
			b.statements(ctx, msgs, "CCSTMTTRNRS", "CCSTMTRS", ofx.AccountCreditCard, sink)
		case "INVSTMTMSGSRSV1":
			b.statements(ctx, msgs, "INVSTMTTRNRS", "INVSTMTRS", ofx.AccountInvestment, sink)
		default:
			ofx.TraceEvent(ctx, "skipping message set", slog.String("name", msgs.LocalName()))
		}
	}
	return nil
}

func (b *batch) statements(ctx context.Context, msgs *node.Element, wrapperName, stmtName string, kind ofx.AccountKind, sink *download.Result) {
	for _, wrapper := range msgs.FindChildren(wrapperName) {
		res := sink.NewChild(fmt.Sprintf("%s %s", kind, wrapper.ChildText("TRNUID")))
		if err := b.statement(ctx, wrapper, stmtName, kind, res); err != nil {
			res.Fail(err)
			ofx.TraceError(ctx, err, "statement failed", slog.String("trnuid", wrapper.ChildText("TRNUID")))
		}
	}
}

func (b *batch) statement(ctx context.Context, wrapper *node.Element, stmtName string, kind ofx.AccountKind, res *download.Result) error {
	if err := ofx.StatusFromElement(wrapper).Err(wrapper.LocalName()); err != nil {
		return err
	}
	stmt := wrapper.FindChild(stmtName)
	if stmt == nil {
		res.Info("no statement")
		return nil
	}

	var ref ofx.AccountRef
	for c := range stmt.ChildElements() {
		switch c.LocalName() {
		case "BANKACCTFROM", "CCACCTFROM", "INVACCTFROM":
			ref = ofx.DecodeAccountRef(c)
		}
	}
	ref.Kind = kind

	acct, err := b.resolveAccount(ctx, wrapper.ChildText("TRNUID"), ref)
	if err != nil {
		return err
	}
	res.Name = acct.Name
	if res.Name == "" {
		res.Name = acct.ID
	}
	if err := checkAccountType(acct, kind); err != nil {
		return err
	}

	switch kind {
	case ofx.AccountInvestment:
		if err := b.investmentStatement(ctx, stmt, acct, res); err != nil {
			return err
		}
	default:
		if err := b.bankStatement(ctx, stmt, acct, res); err != nil {
			return err
		}
	}

	acct.LastSync = b.now()
	if err := b.store.Rebalance(ctx, acct); err != nil {
		return err
	}
	return b.store.UpdateAccount(ctx, acct)
}

// offer merges t into the store, adding it as a new unreviewed
// download on a miss
func (b *batch) offer(ctx context.Context, t *store.Transaction, res *download.Result) error {
	hit, err := b.store.Merge(ctx, b.aliases, t, b.seen)
	if err != nil {
		return err
	}
	if hit != nil {
		return nil
	}
	if !b.pctx.Since.IsZero() && t.Date.Before(b.pctx.Since) {
		ofx.TraceEvent(ctx, "dropping old transaction", slog.String("fitid", t.FITID))
		return nil
	}
	t.Status = store.StatusElectronic
	t.Unaccepted = true
	if err := b.store.AddTransaction(ctx, t); err != nil {
		return err
	}
	res.Add(t)
	return nil
}
