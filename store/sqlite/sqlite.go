// Package sqlite implements store.Store on a SQLite database
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/ofx/store"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	account_id TEXT NOT NULL DEFAULT '',
	type INTEGER NOT NULL DEFAULT 0,
	bank_id TEXT NOT NULL DEFAULT '',
	branch_id TEXT NOT NULL DEFAULT '',
	broker_id TEXT NOT NULL DEFAULT '',
	online_account TEXT NOT NULL DEFAULT '',
	balance TEXT NOT NULL DEFAULT '0',
	statement_balance TEXT NOT NULL DEFAULT '0',
	statement_balance_date TEXT NOT NULL DEFAULT '',
	last_sync TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS securities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	symbol TEXT NOT NULL DEFAULT '',
	unique_id TEXT NOT NULL DEFAULT '',
	unique_id_type TEXT NOT NULL DEFAULT '',
	price TEXT NOT NULL DEFAULT '0',
	price_date TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT NOT NULL,
	date TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL DEFAULT '0',
	fitid TEXT NOT NULL DEFAULT '',
	number TEXT NOT NULL DEFAULT '',
	payee TEXT NOT NULL DEFAULT '',
	memo TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	status INTEGER NOT NULL DEFAULT 0,
	unaccepted INTEGER NOT NULL DEFAULT 0,
	inv_type INTEGER NOT NULL DEFAULT 0,
	security_id INTEGER,
	units TEXT NOT NULL DEFAULT '0',
	unit_price TEXT NOT NULL DEFAULT '0',
	commission TEXT NOT NULL DEFAULT '0',
	fees TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_fitid ON transactions(account_id, fitid);
`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store keeps accounts, transactions and securities in SQLite. Calls
// between BeginUpdate and EndUpdate run in one database transaction.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	depth int
	tx    *sql.Tx
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, `failed to open database %q`, path)
	}
	// one connection so that an open transaction sees every call
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, `failed to ping database`)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, `failed to create schema`)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q() querier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *Store) BeginUpdate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, `failed to begin transaction`)
		}
		s.tx = tx
	}
	s.depth++
	return nil
}

func (s *Store) EndUpdate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth == 0 {
		return store.ErrNotInUpdate
	}
	s.depth--
	if s.depth > 0 {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, `failed to commit transaction`)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

const accountColumns = `id, name, account_id, type, bank_id, branch_id, broker_id, online_account, balance, statement_balance, statement_balance_date, last_sync`

func (s *Store) Accounts(ctx context.Context) ([]*store.Account, error) {
	rows, err := s.q().QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, `failed to query accounts`)
	}
	defer rows.Close()

	var list []*store.Account
	for rows.Next() {
		var a store.Account
		var balance, stmtBalance, stmtDate, lastSync string
		if err := rows.Scan(&a.ID, &a.Name, &a.AccountID, &a.Type, &a.BankID, &a.BranchID, &a.BrokerID, &a.OnlineAccount, &balance, &stmtBalance, &stmtDate, &lastSync); err != nil {
			return nil, errors.Wrap(err, `failed to scan account`)
		}
		a.Balance = parseDecimal(balance)
		a.StatementBalance = parseDecimal(stmtBalance)
		a.StatementBalanceDate = parseTime(stmtDate)
		a.LastSync = parseTime(lastSync)
		list = append(list, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, `failed to read accounts`)
	}
	return list, nil
}

func (s *Store) AddAccount(ctx context.Context, a *store.Account) error {
	_, err := s.q().ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.AccountID, int(a.Type), a.BankID, a.BranchID, a.BrokerID, a.OnlineAccount,
		a.Balance.String(), a.StatementBalance.String(), formatTime(a.StatementBalanceDate), formatTime(a.LastSync))
	if err != nil {
		return errors.Wrapf(err, `failed to add account %q`, a.ID)
	}
	return nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *store.Account) error {
	res, err := s.q().ExecContext(ctx, `UPDATE accounts SET name = ?, account_id = ?, type = ?, bank_id = ?, branch_id = ?, broker_id = ?, online_account = ?, balance = ?, statement_balance = ?, statement_balance_date = ?, last_sync = ? WHERE id = ?`,
		a.Name, a.AccountID, int(a.Type), a.BankID, a.BranchID, a.BrokerID, a.OnlineAccount,
		a.Balance.String(), a.StatementBalance.String(), formatTime(a.StatementBalanceDate), formatTime(a.LastSync), a.ID)
	if err != nil {
		return errors.Wrapf(err, `failed to update account %q`, a.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(store.ErrAccountNotFound, `failed to update account %q`, a.ID)
	}
	return nil
}

func (s *Store) NewTransaction(a *store.Account) *store.Transaction {
	return &store.Transaction{AccountID: a.ID}
}

func investmentArgs(t *store.Transaction) []any {
	inv := t.Investment
	if inv == nil {
		return []any{0, nil, "0", "0", "0", "0"}
	}
	var secID any
	if inv.Security != nil {
		secID = inv.Security.ID
	}
	return []any{int(inv.Type), secID, inv.Units.String(), inv.UnitPrice.String(), inv.Commission.String(), inv.Fees.String()}
}

func (s *Store) AddTransaction(ctx context.Context, t *store.Transaction) error {
	args := []any{t.AccountID, formatTime(t.Date), t.Amount.String(), t.FITID, t.Number, t.Payee, t.Memo, t.Category, int(t.Status), t.Unaccepted}
	args = append(args, investmentArgs(t)...)
	res, err := s.q().ExecContext(ctx, `INSERT INTO transactions (account_id, date, amount, fitid, number, payee, memo, category, status, unaccepted, inv_type, security_id, units, unit_price, commission, fees) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return errors.Wrap(err, `failed to add transaction`)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, `failed to read transaction id`)
	}
	t.ID = id
	return nil
}

func (s *Store) updateTransaction(ctx context.Context, t *store.Transaction) error {
	args := []any{formatTime(t.Date), t.Amount.String(), t.FITID, t.Number, t.Payee, t.Memo, t.Category, int(t.Status), t.Unaccepted}
	args = append(args, investmentArgs(t)...)
	args = append(args, t.ID)
	_, err := s.q().ExecContext(ctx, `UPDATE transactions SET date = ?, amount = ?, fitid = ?, number = ?, payee = ?, memo = ?, category = ?, status = ?, unaccepted = ?, inv_type = ?, security_id = ?, units = ?, unit_price = ?, commission = ?, fees = ? WHERE id = ?`, args...)
	if err != nil {
		return errors.Wrapf(err, `failed to update transaction %d`, t.ID)
	}
	return nil
}

func (s *Store) Transactions(ctx context.Context, accountID string) ([]*store.Transaction, error) {
	rows, err := s.q().QueryContext(ctx, `SELECT t.id, t.account_id, t.date, t.amount, t.fitid, t.number, t.payee, t.memo, t.category, t.status, t.unaccepted,
		t.inv_type, t.units, t.unit_price, t.commission, t.fees,
		s.id, s.name, s.symbol, s.unique_id, s.unique_id_type, s.price, s.price_date
		FROM transactions t LEFT JOIN securities s ON s.id = t.security_id
		WHERE t.account_id = ? ORDER BY t.date, t.id`, accountID)
	if err != nil {
		return nil, errors.Wrapf(err, `failed to query transactions of %q`, accountID)
	}
	defer rows.Close()

	var list []*store.Transaction
	for rows.Next() {
		var t store.Transaction
		var date, amount string
		var invType int
		var units, unitPrice, commission, fees string
		var secID sql.NullInt64
		var secName, secSymbol, secUID, secUIDType, secPrice, secPriceDate sql.NullString
		if err := rows.Scan(&t.ID, &t.AccountID, &date, &amount, &t.FITID, &t.Number, &t.Payee, &t.Memo, &t.Category, &t.Status, &t.Unaccepted,
			&invType, &units, &unitPrice, &commission, &fees,
			&secID, &secName, &secSymbol, &secUID, &secUIDType, &secPrice, &secPriceDate); err != nil {
			return nil, errors.Wrap(err, `failed to scan transaction`)
		}
		t.Date = parseTime(date)
		t.Amount = parseDecimal(amount)
		if invType != 0 || secID.Valid {
			t.Investment = &store.Investment{
				Type:       store.InvestmentType(invType),
				Units:      parseDecimal(units),
				UnitPrice:  parseDecimal(unitPrice),
				Commission: parseDecimal(commission),
				Fees:       parseDecimal(fees),
			}
			if secID.Valid {
				t.Investment.Security = &store.Security{
					ID:           secID.Int64,
					Name:         secName.String,
					Symbol:       secSymbol.String,
					UniqueID:     secUID.String,
					UniqueIDType: secUIDType.String,
					Price:        parseDecimal(secPrice.String),
					PriceDate:    parseTime(secPriceDate.String),
				}
			}
		}
		list = append(list, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, `failed to read transactions`)
	}
	return list, nil
}

func (s *Store) Merge(ctx context.Context, aliases store.Aliases, t *store.Transaction, seen map[int64]bool) (*store.Transaction, error) {
	t.Payee = aliases.Resolve(t.Payee)
	existing, err := s.Transactions(ctx, t.AccountID)
	if err != nil {
		return nil, err
	}
	e := store.FindMatch(existing, t, seen)
	if e == nil {
		return nil, nil
	}
	store.ApplyMerge(e, t)
	if err := s.updateTransaction(ctx, e); err != nil {
		return nil, err
	}
	seen[e.ID] = true
	return e, nil
}

func (s *Store) Rebalance(ctx context.Context, a *store.Account) error {
	rows, err := s.q().QueryContext(ctx, `SELECT amount FROM transactions WHERE account_id = ?`, a.ID)
	if err != nil {
		return errors.Wrapf(err, `failed to rebalance %q`, a.ID)
	}
	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			rows.Close()
			return errors.Wrap(err, `failed to scan amount`)
		}
		sum = sum.Add(parseDecimal(amount))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, `failed to read amounts`)
	}
	a.Balance = sum
	_, err = s.q().ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, sum.String(), a.ID)
	return errors.Wrapf(err, `failed to save balance of %q`, a.ID)
}

func (s *Store) findSecurity(ctx context.Context, where string, arg any) (*store.Security, error) {
	var sec store.Security
	var price, priceDate string
	err := s.q().QueryRowContext(ctx, `SELECT id, name, symbol, unique_id, unique_id_type, price, price_date FROM securities WHERE `+where+` ORDER BY id LIMIT 1`, arg).
		Scan(&sec.ID, &sec.Name, &sec.Symbol, &sec.UniqueID, &sec.UniqueIDType, &price, &priceDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, `failed to query security`)
	}
	sec.Price = parseDecimal(price)
	sec.PriceDate = parseTime(priceDate)
	return &sec, nil
}

func (s *Store) FindSymbol(ctx context.Context, symbol string) (*store.Security, error) {
	if symbol == "" {
		return nil, nil
	}
	return s.findSecurity(ctx, `symbol = ? COLLATE NOCASE`, symbol)
}

func (s *Store) FindSecurityByID(ctx context.Context, uniqueID string) (*store.Security, error) {
	if uniqueID == "" {
		return nil, nil
	}
	return s.findSecurity(ctx, `unique_id = ?`, uniqueID)
}

func (s *Store) FindSecurity(ctx context.Context, name string, add bool) (*store.Security, error) {
	sec, err := s.findSecurity(ctx, `name = ? COLLATE NOCASE`, name)
	if err != nil || sec != nil {
		return sec, err
	}
	if !add || strings.TrimSpace(name) == "" {
		return nil, nil
	}
	res, err := s.q().ExecContext(ctx, `INSERT INTO securities (name) VALUES (?)`, name)
	if err != nil {
		return nil, errors.Wrapf(err, `failed to add security %q`, name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, `failed to read security id`)
	}
	return &store.Security{ID: id, Name: name}, nil
}

func (s *Store) UpdateSecurity(ctx context.Context, sec *store.Security) error {
	_, err := s.q().ExecContext(ctx, `UPDATE securities SET name = ?, symbol = ?, unique_id = ?, unique_id_type = ?, price = ?, price_date = ? WHERE id = ?`,
		sec.Name, sec.Symbol, sec.UniqueID, sec.UniqueIDType, sec.Price.String(), formatTime(sec.PriceDate), sec.ID)
	return errors.Wrapf(err, `failed to update security %d`, sec.ID)
}
