package process

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/store"
)

// resolveAccount finds the local account a statement belongs to: by
// TRNUID, then by exact account number, then by a masked number, and
// finally by asking the resolver. A declined prompt is remembered in
// Context.Declined.
func (b *batch) resolveAccount(ctx context.Context, trnuid string, ref ofx.AccountRef) (*store.Account, error) {
	if id, ok := b.pctx.TrnUIDs[trnuid]; ok && trnuid != "" {
		for _, a := range b.accounts {
			if a.ID == id {
				return a, nil
			}
		}
		ofx.TraceEvent(ctx, "TRNUID names an unknown account", slog.String("trnuid", trnuid), slog.String("account", id))
	}

	if a := ExactMatch(ref.AccountID, b.accounts); a != nil {
		return a, nil
	}
	if a := FuzzyMatch(ref.AccountID, b.accounts); a != nil {
		ofx.TraceEvent(ctx, "matched masked account number", slog.String("account", a.ID))
		return a, nil
	}

	notFound := &ofx.AccountResolutionError{AccountID: ref.AccountID, Kind: ref.Kind.String()}
	if b.pctx.Resolver == nil || b.pctx.Declined[ref.AccountID] {
		return nil, notFound
	}

	template := &store.Account{
		AccountID: ref.AccountID,
		Type:      templateType(ref),
		BankID:    ref.BankID,
		BranchID:  ref.BranchID,
		BrokerID:  ref.BrokerID,

		OnlineAccount: b.pctx.Login,
	}
	a := b.pctx.Resolver(ctx, template)
	if a == nil {
		b.pctx.Declined[ref.AccountID] = true
		return nil, notFound
	}

	if a.AccountID == "" {
		a.AccountID = ref.AccountID
	}
	known := false
	for _, cur := range b.accounts {
		if cur.ID == a.ID {
			known = true
			break
		}
	}
	if known {
		if err := b.store.UpdateAccount(ctx, a); err != nil {
			return nil, err
		}
	} else {
		if err := b.store.AddAccount(ctx, a); err != nil {
			return nil, err
		}
		b.accounts = append(b.accounts, a)
	}
	return a, nil
}

func templateType(ref ofx.AccountRef) store.AccountType {
	switch ref.Kind {
	case ofx.AccountCreditCard:
		return store.AccountTypeCredit
	case ofx.AccountInvestment:
		return store.AccountTypeBrokerage
	}
	if t := store.ParseAccountType(ref.AccountType); t != store.AccountTypeUnknown {
		return t
	}
	return store.AccountTypeChecking
}

// ExactMatch returns the account whose number is id
func ExactMatch(id string, accounts []*store.Account) *store.Account {
	if id == "" {
		return nil
	}
	for _, a := range accounts {
		if a.AccountID == id {
			return a
		}
	}
	return nil
}

func normalizeAccountID(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-':
			return -1
		}
		return r
	}, s)
}

// fuzzyEqual compares a masked number such as XXXX4321 with a local
// one. Both must have the same length and the local number must end
// in the trailing digits of the masked one.
func fuzzyEqual(masked, local string) bool {
	masked = normalizeAccountID(masked)
	local = normalizeAccountID(local)
	if len(masked) != len(local) || masked == "" {
		return false
	}
	i := len(masked)
	for i > 0 && masked[i-1] >= '0' && masked[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(masked) {
		return false
	}
	return strings.HasSuffix(local, masked[i:])
}

// FuzzyMatch returns the only account whose number matches the masked
// id. More than one candidate is no match.
func FuzzyMatch(id string, accounts []*store.Account) *store.Account {
	var found *store.Account
	for _, a := range accounts {
		if !fuzzyEqual(id, a.AccountID) {
			continue
		}
		if found != nil {
			return nil
		}
		found = a
	}
	return found
}

// checkAccountType rejects statements sent to an account of the
// wrong kind. Accounts of unknown type take anything.
func checkAccountType(a *store.Account, kind ofx.AccountKind) error {
	ok := true
	switch kind {
	case ofx.AccountBank:
		ok = !a.Type.IsInvestment() && a.Type != store.AccountTypeCredit
	case ofx.AccountCreditCard:
		switch a.Type {
		case store.AccountTypeCredit, store.AccountTypeCreditLine:
		default:
			ok = false
		}
	case ofx.AccountInvestment:
		ok = a.Type.IsInvestment()
	}
	if ok || a.Type == store.AccountTypeUnknown {
		return nil
	}
	return &ofx.AccountTypeMismatchError{AccountID: a.ID, Expected: kind.String(), Actual: a.Type.String()}
}
