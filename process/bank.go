package process

import (
	"context"
	"regexp"
	"strings"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/store"
)

var billPaymentRx = regexp.MustCompile(`(?i)^\s*(bill\s+payment)\s*#?\s*(\d+)\s*$`)

// splitBillPayment turns "Bill Payment 1042" into "Bill Payment" and
// the number 1042
func splitBillPayment(s string) (string, string, bool) {
	m := billPaymentRx.FindStringSubmatch(s)
	if m == nil {
		return s, "", false
	}
	return m[1], m[2], true
}

// mapStatementTransaction fills t from a STMTTRN element. The payee is
// NAME, then PAYEE/NAME, then MEMO; the number is CHECKNUM, then
// REFNUM.
func mapStatementTransaction(e *node.Element, t *store.Transaction) {
	t.FITID = e.ChildText("FITID")
	t.Date = ofx.DateText(e, "DTPOSTED")
	if t.Date.IsZero() {
		t.Date = ofx.DateText(e, "DTUSER")
	}
	if amt, ok := ofx.AmountText(e, "TRNAMT"); ok {
		t.Amount = amt
	}

	t.Number = e.ChildText("CHECKNUM")
	if t.Number == "" {
		t.Number = e.ChildText("REFNUM")
	}

	t.Memo = e.ChildText("MEMO")
	t.Payee = e.ChildText("NAME")
	if t.Payee == "" {
		t.Payee = e.ChildText("PAYEE/NAME")
	}
	if t.Payee == "" {
		t.Payee, t.Memo = t.Memo, ""
	}

	if memo, num, ok := splitBillPayment(t.Memo); ok {
		t.Memo = memo
		if t.Number == "" {
			t.Number = num
		}
	}
	if payee, num, ok := splitBillPayment(t.Payee); ok {
		t.Payee = payee
		if t.Number == "" {
			t.Number = num
		}
	}
	t.Payee = strings.TrimSpace(t.Payee)
}

func (b *batch) bankStatement(ctx context.Context, stmt *node.Element, acct *store.Account, res *download.Result) error {
	if list := stmt.FindChild("BANKTRANLIST"); list != nil {
		for _, e := range list.FindChildren("STMTTRN") {
			t := b.store.NewTransaction(acct)
			mapStatementTransaction(e, t)
			if err := b.offer(ctx, t, res); err != nil {
				return err
			}
		}
	}

	if bal := stmt.FindChild("LEDGERBAL"); bal != nil {
		if amt, ok := ofx.AmountText(bal, "BALAMT"); ok {
			acct.StatementBalance = amt
			acct.StatementBalanceDate = ofx.DateText(bal, "DTASOF")
		}
	}
	return nil
}
