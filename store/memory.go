package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is a Store that keeps everything in memory
type Memory struct {
	mu           sync.Mutex
	depth        int
	batches      int
	accounts     []*Account
	transactions map[string][]*Transaction
	securities   []*Security
	nextTxnID    int64
	nextSecID    int64
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{transactions: make(map[string][]*Transaction)}
}

func (m *Memory) BeginUpdate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth++
	return nil
}

func (m *Memory) EndUpdate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 {
		return ErrNotInUpdate
	}
	m.depth--
	if m.depth == 0 {
		m.batches++
	}
	return nil
}

// Batches returns the number of completed outermost updates
func (m *Memory) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func (m *Memory) Accounts(context.Context) ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Account(nil), m.accounts...), nil
}

func (m *Memory) AddAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, a)
	return nil
}

func (m *Memory) UpdateAccount(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.accounts {
		if cur.ID == a.ID {
			m.accounts[i] = a
			return nil
		}
	}
	return ErrAccountNotFound
}

func (m *Memory) NewTransaction(a *Account) *Transaction {
	return &Transaction{AccountID: a.ID}
}

func (m *Memory) AddTransaction(_ context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxnID++
	t.ID = m.nextTxnID
	m.transactions[t.AccountID] = append(m.transactions[t.AccountID], t)
	return nil
}

// Transactions returns the transactions of an account ordered by date
func (m *Memory) Transactions(_ context.Context, accountID string) ([]*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]*Transaction(nil), m.transactions[accountID]...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date.Before(list[j].Date)
	})
	return list, nil
}

func (m *Memory) Merge(_ context.Context, aliases Aliases, t *Transaction, seen map[int64]bool) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Payee = aliases.Resolve(t.Payee)
	e := FindMatch(m.transactions[t.AccountID], t, seen)
	if e == nil {
		return nil, nil
	}
	ApplyMerge(e, t)
	seen[e.ID] = true
	return e, nil
}

func (m *Memory) Rebalance(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, t := range m.transactions[a.ID] {
		sum = sum.Add(t.Amount)
	}
	a.Balance = sum
	return nil
}

func (m *Memory) FindSymbol(_ context.Context, symbol string) (*Security, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.securities {
		if symbol != "" && strings.EqualFold(s.Symbol, symbol) {
			return s, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindSecurityByID(_ context.Context, uniqueID string) (*Security, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.securities {
		if uniqueID != "" && s.UniqueID == uniqueID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindSecurity(_ context.Context, name string, add bool) (*Security, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.securities {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	if !add || name == "" {
		return nil, nil
	}
	m.nextSecID++
	s := &Security{ID: m.nextSecID, Name: name}
	m.securities = append(m.securities, s)
	return s, nil
}

func (m *Memory) UpdateSecurity(context.Context, *Security) error {
	return nil
}
