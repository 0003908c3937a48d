package process

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/store"
	"github.com/shopspring/decimal"
)

type signPolicy int

const (
	signAsSupplied signPolicy = iota
	signNegative
)

func (p signPolicy) apply(d decimal.Decimal) decimal.Decimal {
	if p == signNegative {
		return d.Abs().Neg()
	}
	return d
}

// variant describes one kind of investment transaction element
type variant struct {
	kind     store.InvestmentType
	sign     signPolicy
	category string
	// fields names the child holding INVTRAN, SECID and the amounts,
	// when they are not direct children
	fields string
	payee  string
}

var variants = map[string]variant{
	"BUYDEBT":        {kind: store.InvestmentBuy, sign: signNegative, fields: "INVBUY"},
	"BUYMF":          {kind: store.InvestmentBuy, sign: signNegative, fields: "INVBUY"},
	"BUYOPT":         {kind: store.InvestmentBuy, sign: signNegative, fields: "INVBUY"},
	"BUYOTHER":       {kind: store.InvestmentBuy, sign: signNegative, fields: "INVBUY"},
	"BUYSTOCK":       {kind: store.InvestmentBuy, sign: signNegative, fields: "INVBUY"},
	"SELLDEBT":       {kind: store.InvestmentSell, fields: "INVSELL"},
	"SELLMF":         {kind: store.InvestmentSell, fields: "INVSELL"},
	"SELLOPT":        {kind: store.InvestmentSell, fields: "INVSELL"},
	"SELLOTHER":      {kind: store.InvestmentSell, fields: "INVSELL"},
	"SELLSTOCK":      {kind: store.InvestmentSell, fields: "INVSELL"},
	"INCOME":         {kind: store.InvestmentDividend},
	"REINVEST":       {kind: store.InvestmentBuy, sign: signNegative},
	"RETOFCAP":       {kind: store.InvestmentDividend, category: "Investments:Return of Capital"},
	"INVEXPENSE":     {category: "Investments:Expenses", payee: "Investment Expense"},
	"MARGININTEREST": {category: "Investments:Margin Interest", payee: "Margin Interest"},
	"JRNLFUND":       {category: "Transfer", payee: "Journal"},
	"JRNLSEC":        {kind: store.InvestmentAdd},
	"TRANSFER":       {kind: store.InvestmentAdd},
}

var incomeCategories = map[string]string{
	"DIV":      "Investments:Dividends",
	"INTEREST": "Investments:Interest",
	"CGLONG":   "Investments:Long Term Capital Gains",
	"CGSHORT":  "Investments:Short Term Capital Gains",
	"MISC":     "Investments:Other Income",
}

// invFields are the fields shared by every variant
type invFields struct {
	FITID      string
	Memo       string
	Date       time.Time
	SecurityID string
	Units      decimal.Decimal
	UnitPrice  decimal.Decimal
	Commission decimal.Decimal
	Fees       decimal.Decimal
	Total      decimal.Decimal
	HasTotal   bool
}

func readInvFields(e *node.Element, v variant) invFields {
	base := e
	if v.fields != "" {
		if f := e.FindChild(v.fields); f != nil {
			base = f
		}
	}
	invtran := base.FindChild("INVTRAN")
	f := invFields{
		FITID:      invtran.ChildText("FITID"),
		Memo:       invtran.ChildText("MEMO"),
		Date:       ofx.DateText(invtran, "DTTRADE"),
		SecurityID: base.ChildText("SECID/UNIQUEID"),
	}
	if f.Date.IsZero() {
		f.Date = ofx.DateText(invtran, "DTSETTLE")
	}
	f.Units, _ = ofx.AmountText(base, "UNITS")
	f.UnitPrice, _ = ofx.AmountText(base, "UNITPRICE")
	f.Commission, _ = ofx.AmountText(base, "COMMISSION")
	f.Fees, _ = ofx.AmountText(base, "FEES")
	f.Total, f.HasTotal = ofx.AmountText(base, "TOTAL")
	if !f.HasTotal && !f.Units.IsZero() && !f.UnitPrice.IsZero() {
		f.Total = f.Units.Abs().Mul(f.UnitPrice).Add(f.Commission).Add(f.Fees)
	}
	return f
}

func (b *batch) investmentStatement(ctx context.Context, stmt *node.Element, acct *store.Account, res *download.Result) error {
	if err := b.updatePrices(ctx, stmt); err != nil {
		return err
	}

	for e := range stmt.FindChild("INVTRANLIST").ChildElements() {
		tag := e.LocalName()
		if tag == "INVBANKTRAN" {
			st := e.FindChild("STMTTRN")
			if st == nil {
				continue
			}
			t := b.store.NewTransaction(acct)
			mapStatementTransaction(st, t)
			if err := b.offer(ctx, t, res); err != nil {
				return err
			}
			continue
		}
		v, ok := variants[tag]
		if !ok {
			ofx.TraceEvent(ctx, "skipping investment transaction", slog.String("tag", tag))
			continue
		}
		if err := b.investmentTransaction(ctx, e, v, acct, res); err != nil {
			return err
		}
	}

	if bal := stmt.FindChild("INVBAL"); bal != nil {
		if cash, ok := ofx.AmountText(bal, "AVAILCASH"); ok {
			acct.StatementBalance = cash
			acct.StatementBalanceDate = ofx.DateText(stmt, "DTASOF")
		}
	}
	return nil
}

func (b *batch) investmentTransaction(ctx context.Context, e *node.Element, v variant, acct *store.Account, res *download.Result) error {
	f := readInvFields(e, v)
	sec, err := b.security(ctx, f.SecurityID)
	if err != nil {
		return err
	}

	kind := v.kind
	switch e.LocalName() {
	case "TRANSFER":
		if strings.EqualFold(e.ChildText("TFERACTION"), "OUT") {
			kind = store.InvestmentRemove
		}
	case "JRNLSEC":
		if f.Units.IsNegative() {
			kind = store.InvestmentRemove
		}
	}
	category := v.category
	if c, ok := incomeCategories[strings.ToUpper(e.ChildText("INCOMETYPE"))]; ok && category == "" {
		category = c
	}

	unitPrice := f.UnitPrice
	if unitPrice.IsZero() {
		switch {
		case sec != nil && sec.Price.IsPositive():
			unitPrice = sec.Price
		case !f.Units.IsZero() && f.HasTotal:
			unitPrice = f.Total.Abs().Div(f.Units.Abs()).Round(6)
		}
	}

	payee := v.payee
	if sec != nil {
		payee = sec.Name
	}

	if e.LocalName() == "REINVEST" {
		// the income that paid for the reinvestment
		dep := b.store.NewTransaction(acct)
		if f.FITID != "" {
			dep.FITID = f.FITID + "-deposit"
		}
		dep.Date = f.Date
		dep.Amount = f.Total.Abs()
		dep.Payee = payee
		dep.Memo = f.Memo
		dep.Category = category
		dep.Investment = &store.Investment{Type: store.InvestmentDividend, Security: sec}
		if err := b.offer(ctx, dep, res); err != nil {
			return err
		}
	}

	t := b.store.NewTransaction(acct)
	t.FITID = f.FITID
	t.Date = f.Date
	t.Amount = v.sign.apply(f.Total)
	t.Payee = payee
	t.Memo = f.Memo
	t.Category = category
	if kind == store.InvestmentAdd || kind == store.InvestmentRemove {
		t.Amount = decimal.Zero
	}
	if kind != store.InvestmentNone || sec != nil {
		t.Investment = &store.Investment{
			Type:       kind,
			Security:   sec,
			Units:      f.Units.Abs(),
			UnitPrice:  unitPrice,
			Commission: f.Commission,
			Fees:       f.Fees,
		}
	}
	return b.offer(ctx, t, res)
}
