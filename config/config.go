// Package config loads the YAML file describing institutions, logins
// and the accounts to download
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/client"
	"github.com/lestrrat-go/ofx/request"
	"github.com/lestrrat-go/ofx/store"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownInstitution = errors.New("unknown institution")
	ErrMissingField       = errors.New("missing required field")
)

type Config struct {
	AppID       string        `yaml:"app_id,omitempty"`
	AppVersion  string        `yaml:"app_version,omitempty"`
	ClientUID   string        `yaml:"client_uid,omitempty"`
	LogDir      string        `yaml:"log_dir,omitempty"`
	ProfileDir  string        `yaml:"profile_dir,omitempty"`
	Database    string        `yaml:"database,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`

	// Aliases rename downloaded payees
	Aliases      map[string]string `yaml:"aliases,omitempty"`
	Institutions []*Institution    `yaml:"institutions"`
	Logins       []*Login          `yaml:"logins"`
}

type Institution struct {
	Name     string `yaml:"name"`
	FID      string `yaml:"fid,omitempty"`
	Org      string `yaml:"org,omitempty"`
	URL      string `yaml:"url"`
	BrokerID string `yaml:"broker_id,omitempty"`

	// Version is the OFX version to start with: 1, 2, or a full
	// version number such as 103
	Version int `yaml:"version,omitempty"`
}

// Login is a set of credentials at an institution. Secrets may refer
// to environment variables as $NAME or ${NAME}.
type Login struct {
	Name        string     `yaml:"name"`
	Institution string     `yaml:"institution"`
	UserID      string     `yaml:"user_id,omitempty"`
	Password    string     `yaml:"password,omitempty"`
	UserCred1   string     `yaml:"user_cred1,omitempty"`
	UserCred2   string     `yaml:"user_cred2,omitempty"`
	AuthToken   string     `yaml:"auth_token,omitempty"`
	ClientUID   string     `yaml:"client_uid,omitempty"`
	Version     int        `yaml:"version,omitempty"`
	Accounts    []*Account `yaml:"accounts"`
}

// Account is a local account and the number it has at the institution
type Account struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name,omitempty"`
	Type      string `yaml:"type"`
	AccountID string `yaml:"account_id"`
	BankID    string `yaml:"bank_id,omitempty"`
	BranchID  string `yaml:"branch_id,omitempty"`
}

// Load reads and validates the configuration at path
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %s", path)
	}
	return cfg, nil
}

func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for i, inst := range c.Institutions {
		if inst.Name == "" {
			return errors.Wrapf(ErrMissingField, "institution #%d: name", i+1)
		}
		if inst.URL == "" {
			return errors.Wrapf(ErrMissingField, "institution %q: url", inst.Name)
		}
	}
	for i, l := range c.Logins {
		if l.Name == "" {
			return errors.Wrapf(ErrMissingField, "login #%d: name", i+1)
		}
		if c.FindInstitution(l.Institution) == nil {
			return errors.Wrapf(ErrUnknownInstitution, "login %q: %q", l.Name, l.Institution)
		}
		for j, a := range l.Accounts {
			if a.ID == "" || a.AccountID == "" {
				return errors.Wrapf(ErrMissingField, "login %q account #%d: id and account_id", l.Name, j+1)
			}
		}
	}
	return nil
}

// FindInstitution returns the institution named name, or nil
func (c *Config) FindInstitution(name string) *Institution {
	for _, inst := range c.Institutions {
		if strings.EqualFold(inst.Name, name) {
			return inst
		}
	}
	return nil
}

// RequestOptions returns the request builder options set by c
func (c *Config) RequestOptions() []request.Option {
	var options []request.Option
	if c.AppID != "" && c.AppVersion != "" {
		options = append(options, request.WithAppID(c.AppID, c.AppVersion))
	}
	if c.ClientUID != "" {
		options = append(options, request.WithClientUID(c.ClientUID))
	}
	return options
}

// Kind is the OFX account aggregate used for the account
func (a *Account) Kind() ofx.AccountKind {
	t := store.ParseAccountType(a.Type)
	switch {
	case t == store.AccountTypeCredit:
		return ofx.AccountCreditCard
	case t.IsInvestment():
		return ofx.AccountInvestment
	}
	return ofx.AccountBank
}

// bankAccountType is the ACCTTYPE sent for bank accounts
func (a *Account) bankAccountType() string {
	switch store.ParseAccountType(a.Type) {
	case store.AccountTypeSavings:
		return "SAVINGS"
	case store.AccountTypeMoneyMarket:
		return "MONEYMRKT"
	case store.AccountTypeCreditLine:
		return "CREDITLINE"
	}
	return "CHECKING"
}

// StoreAccount returns a new store account downloaded through the named
// login.
func (a *Account) StoreAccount(login string) *store.Account {
	name := a.Name
	if name == "" {
		name = a.ID
	}
	return &store.Account{
		ID:            a.ID,
		Name:          name,
		AccountID:     a.AccountID,
		Type:          store.ParseAccountType(a.Type),
		BankID:        a.BankID,
		BranchID:      a.BranchID,
		OnlineAccount: login,
	}
}

// ClientLogins converts the logins for use with a client.Client
func (c *Config) ClientLogins() ([]*client.Login, error) {
	logins := make([]*client.Login, 0, len(c.Logins))
	for _, l := range c.Logins {
		inst := c.FindInstitution(l.Institution)
		if inst == nil {
			return nil, errors.Wrapf(ErrUnknownInstitution, "login %q: %q", l.Name, l.Institution)
		}
		version := l.Version
		if version == 0 {
			version = inst.Version
		}
		login := &client.Login{
			Name: l.Name,
			Institution: request.Institution{
				Name:     inst.Name,
				Org:      inst.Org,
				FID:      inst.FID,
				URL:      inst.URL,
				BrokerID: inst.BrokerID,
			},
			Credentials: &request.Credentials{
				UserID:    os.ExpandEnv(l.UserID),
				Password:  os.ExpandEnv(l.Password),
				UserCred1: os.ExpandEnv(l.UserCred1),
				UserCred2: os.ExpandEnv(l.UserCred2),
				AuthToken: os.ExpandEnv(l.AuthToken),
			},
			Version:   version,
			ClientUID: l.ClientUID,
		}
		for _, a := range l.Accounts {
			login.Accounts = append(login.Accounts, request.Target{
				AccountRef: ofx.AccountRef{
					Kind:        a.Kind(),
					BankID:      a.BankID,
					BranchID:    a.BranchID,
					BrokerID:    inst.BrokerID,
					AccountID:   a.AccountID,
					AccountType: a.bankAccountType(),
				},
				LocalID: a.ID,
			})
		}
		logins = append(logins, login)
	}
	return logins, nil
}

// UpdateVersions copies version preferences learned during a sync back
// into c. It reports whether anything changed.
func (c *Config) UpdateVersions(logins []*client.Login) bool {
	changed := false
	for _, login := range logins {
		for _, l := range c.Logins {
			if l.Name != login.Name || login.Version == 0 {
				continue
			}
			current := l.Version
			if current == 0 {
				if inst := c.FindInstitution(l.Institution); inst != nil {
					current = inst.Version
				}
			}
			if request.ResolveVersion(current) != request.ResolveVersion(login.Version) {
				l.Version = login.Version
				changed = true
			}
		}
	}
	return changed
}

// Save writes c to path, replacing the file through a rename
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode YAML")
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "failed to write configuration")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to write configuration")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to replace configuration")
	}
	return nil
}
