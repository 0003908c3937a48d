// Package store defines the financial records that downloads are
// merged into and the narrow interface used to mutate them
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNotInUpdate     = errors.New("EndUpdate without BeginUpdate")
)

type AccountType int

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeChecking
	AccountTypeSavings
	AccountTypeMoneyMarket
	AccountTypeCreditLine
	AccountTypeCredit
	AccountTypeBrokerage
	AccountTypeRetirement
	AccountTypeCash
)

var accountTypeNames = []string{
	"Unknown",
	"Checking",
	"Savings",
	"MoneyMarket",
	"CreditLine",
	"Credit",
	"Brokerage",
	"Retirement",
	"Cash",
}

func (t AccountType) String() string {
	if int(t) < 0 || int(t) >= len(accountTypeNames) {
		return "Unknown"
	}
	return accountTypeNames[t]
}

// ParseAccountType is the inverse of String. It also accepts the OFX
// ACCTTYPE values.
func ParseAccountType(s string) AccountType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHECKING":
		return AccountTypeChecking
	case "SAVINGS":
		return AccountTypeSavings
	case "MONEYMARKET", "MONEYMRKT":
		return AccountTypeMoneyMarket
	case "CREDITLINE":
		return AccountTypeCreditLine
	case "CREDIT", "CREDITCARD":
		return AccountTypeCredit
	case "BROKERAGE", "INVESTMENT":
		return AccountTypeBrokerage
	case "RETIREMENT":
		return AccountTypeRetirement
	case "CASH":
		return AccountTypeCash
	}
	return AccountTypeUnknown
}

// IsInvestment reports whether accounts of this type hold securities
func (t AccountType) IsInvestment() bool {
	return t == AccountTypeBrokerage || t == AccountTypeRetirement
}

type Account struct {
	// ID is the local identifier
	ID   string
	Name string
	// AccountID is the number the institution knows the account by
	AccountID string
	Type      AccountType
	BankID    string
	BranchID  string
	BrokerID  string
	// OnlineAccount names the login the account is downloaded with
	OnlineAccount string

	Balance decimal.Decimal
	// StatementBalance is the ledger balance reported by the last
	// download
	StatementBalance     decimal.Decimal
	StatementBalanceDate time.Time
	LastSync             time.Time
}

type Status int

const (
	StatusNone Status = iota
	StatusElectronic
	StatusCleared
	StatusReconciled
)

type Transaction struct {
	ID        int64
	AccountID string
	Date      time.Time
	Amount    decimal.Decimal
	// FITID is the institution's id of the transaction. It is the
	// merge key.
	FITID    string
	Number   string
	Payee    string
	Memo     string
	Category string
	Status   Status
	// Unaccepted marks downloaded transactions the user has not
	// reviewed yet
	Unaccepted bool
	Investment *Investment
}

type InvestmentType int

const (
	InvestmentNone InvestmentType = iota
	InvestmentBuy
	InvestmentSell
	InvestmentAdd
	InvestmentRemove
	InvestmentDividend
)

var investmentTypeNames = []string{"None", "Buy", "Sell", "Add", "Remove", "Dividend"}

func (t InvestmentType) String() string {
	if int(t) < 0 || int(t) >= len(investmentTypeNames) {
		return "None"
	}
	return investmentTypeNames[t]
}

type Investment struct {
	Type       InvestmentType
	Security   *Security
	Units      decimal.Decimal
	UnitPrice  decimal.Decimal
	Commission decimal.Decimal
	Fees       decimal.Decimal
}

type Security struct {
	ID           int64
	Name         string
	Symbol       string
	UniqueID     string
	UniqueIDType string
	Price        decimal.Decimal
	PriceDate    time.Time
}

// Aliases map payee names as the bank writes them to the names the
// user prefers. Keys are compared without case.
type Aliases map[string]string

// Resolve returns the preferred name of payee, or payee itself
func (a Aliases) Resolve(payee string) string {
	if len(a) == 0 {
		return payee
	}
	if v, ok := a[payee]; ok {
		return v
	}
	for k, v := range a {
		if strings.EqualFold(k, payee) {
			return v
		}
	}
	return payee
}

// Store is the mutation interface downloads are applied through. All
// calls between BeginUpdate and EndUpdate form one batch.
type Store interface {
	BeginUpdate(ctx context.Context) error
	EndUpdate(ctx context.Context) error

	Accounts(ctx context.Context) ([]*Account, error)
	AddAccount(ctx context.Context, a *Account) error
	UpdateAccount(ctx context.Context, a *Account) error

	// NewTransaction returns an unsaved transaction for a
	NewTransaction(a *Account) *Transaction
	AddTransaction(ctx context.Context, t *Transaction) error
	Transactions(ctx context.Context, accountID string) ([]*Transaction, error)
	// Merge looks for an existing transaction that t is a new copy
	// of. On a hit the existing record is updated and returned. seen
	// holds the ids matched earlier in the same batch; Merge adds to
	// it. A miss returns nil and leaves t unsaved.
	Merge(ctx context.Context, aliases Aliases, t *Transaction, seen map[int64]bool) (*Transaction, error)
	// Rebalance recomputes the balance of a from its transactions
	Rebalance(ctx context.Context, a *Account) error

	FindSymbol(ctx context.Context, symbol string) (*Security, error)
	FindSecurityByID(ctx context.Context, uniqueID string) (*Security, error)
	// FindSecurity looks a security up by name, creating it when add
	// is true
	FindSecurity(ctx context.Context, name string, add bool) (*Security, error)
	UpdateSecurity(ctx context.Context, s *Security) error
}
