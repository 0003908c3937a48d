package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/config"
	"github.com/lestrrat-go/ofx/store"
	"github.com/stretchr/testify/require"
)

const sample = `
app_id: QWIN
app_version: "2700"
log_dir: /var/log/ofx
database: money.db
concurrency: 2
timeout: 45s
aliases:
  AMZN MKTP US: Amazon
institutions:
  - name: Example Bank
    fid: "1234"
    org: Example Bank
    url: https://ofx.example.com/
  - name: Example Brokerage
    url: https://ofx.example.net/
    broker_id: example.net
    version: 2
logins:
  - name: household
    institution: example bank
    user_id: jdoe
    password: ${OFX_TEST_PASSWORD}
    accounts:
      - id: checking
        name: Checking
        type: checking
        account_id: "00014321"
        bank_id: "121000248"
      - id: savings
        type: savings
        account_id: "00015555"
        bank_id: "121000248"
      - id: card
        type: credit
        account_id: "4111000011112222"
  - name: retirement
    institution: Example Brokerage
    user_id: jdoe
    accounts:
      - id: ira
        type: retirement
        account_id: Z123
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ofx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sample))
	require.NoError(t, err)

	require.Equal(t, "2700", cfg.AppVersion)
	require.Equal(t, 2, cfg.Concurrency)
	require.Equal(t, 45*time.Second, cfg.Timeout)
	require.Equal(t, "Amazon", cfg.Aliases["AMZN MKTP US"])
	require.Len(t, cfg.Institutions, 2)
	require.Len(t, cfg.Logins, 2)
	require.NotNil(t, cfg.FindInstitution("EXAMPLE BANK"), "institutions are found regardless of case")
	require.Len(t, cfg.RequestOptions(), 1)

	card := cfg.Logins[0].Accounts[2]
	require.Equal(t, ofx.AccountCreditCard, card.Kind())
	require.Equal(t, ofx.AccountInvestment, cfg.Logins[1].Accounts[0].Kind())

	acct := cfg.Logins[0].Accounts[0].StoreAccount(cfg.Logins[0].Name)
	require.Equal(t, "Checking", acct.Name)
	require.Equal(t, store.AccountTypeChecking, acct.Type)
	require.Equal(t, "household", acct.OnlineAccount)
	require.Equal(t, "savings", cfg.Logins[0].Accounts[1].StoreAccount("household").Name, "the id names unnamed accounts")
}

func TestLoadErrors(t *testing.T) {
	testcases := map[string]struct {
		input    string
		expected error
	}{
		"unknown institution": {
			input:    "logins:\n  - name: x\n    institution: nowhere\n",
			expected: config.ErrUnknownInstitution,
		},
		"institution without url": {
			input:    "institutions:\n  - name: x\n",
			expected: config.ErrMissingField,
		},
		"account without number": {
			input:    "institutions:\n  - name: x\n    url: https://x\nlogins:\n  - name: y\n    institution: x\n    accounts:\n      - id: a\n",
			expected: config.ErrMissingField,
		},
	}
	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.input))
			require.True(t, errors.Is(err, tc.expected), "expected %v, got %v", tc.expected, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestClientLogins(t *testing.T) {
	t.Setenv("OFX_TEST_PASSWORD", "from-env")
	cfg, err := config.Load(writeConfig(t, sample))
	require.NoError(t, err)

	logins, err := cfg.ClientLogins()
	require.NoError(t, err)
	require.Len(t, logins, 2)

	household := logins[0]
	require.Equal(t, "https://ofx.example.com/", household.Institution.URL)
	require.Equal(t, "from-env", household.Credentials.Password, "secrets are read from the environment")
	require.Zero(t, household.Version)
	require.Len(t, household.Accounts, 3)
	require.Equal(t, "checking", household.Accounts[0].LocalID)
	require.Equal(t, "CHECKING", household.Accounts[0].AccountType)
	require.Equal(t, "SAVINGS", household.Accounts[1].AccountType)
	require.Equal(t, ofx.AccountCreditCard, household.Accounts[2].Kind)

	retirement := logins[1]
	require.Equal(t, 2, retirement.Version, "the institution version is the default")
	require.Equal(t, "example.net", retirement.Accounts[0].BrokerID)
}

func TestUpdateVersions(t *testing.T) {
	path := writeConfig(t, sample)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	logins, err := cfg.ClientLogins()
	require.NoError(t, err)

	require.False(t, cfg.UpdateVersions(logins), "nothing changed yet")

	logins[0].Version = 2
	logins[1].Version = 2
	require.True(t, cfg.UpdateVersions(logins))
	require.Equal(t, 2, cfg.Logins[0].Version)
	require.Zero(t, cfg.Logins[1].Version, "a login already on its institution's version is left alone")

	require.NoError(t, cfg.Save(path))
	saved, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, saved.Logins[0].Version)
	require.Equal(t, "${OFX_TEST_PASSWORD}", saved.Logins[0].Password, "secrets are saved unexpanded")
}
