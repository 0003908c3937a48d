package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/client"
	"github.com/lestrrat-go/ofx/config"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/process"
	"github.com/lestrrat-go/ofx/store"
	"github.com/lestrrat-go/ofx/store/sqlite"
	"github.com/lestrrat-go/ofx/transport"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

type cmdopts struct {
	Config       string   `short:"c" long:"config" description:"configuration file" required:"true"`
	Database     string   `long:"db" description:"sqlite database, overrides the configuration"`
	Import       []string `long:"import" description:"import an OFX file instead of downloading (repeatable)"`
	ListAccounts bool     `long:"list-accounts" description:"list the accounts each login can download"`
	Profile      bool     `long:"profile" description:"fetch and print each server profile"`
	Verbose      bool     `short:"v" long:"verbose" description:"log protocol details to stderr"`
}

func main() {
	os.Exit(_main())
}

func _main() int {
	opts := cmdopts{}
	if _, err := flags.ParseArgs(&opts, os.Args[1:]); err != nil {
		return 1
	}

	if err := run(opts); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

func run(opts cmdopts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if opts.Verbose {
		ctx = ofx.WithTraceLogger(ctx, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	if dbPath == "" {
		dbPath = "ofx.db"
	}
	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", dbPath)
	}
	defer db.Close()

	if err := addAccounts(ctx, db, cfg); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	var transportOptions []transport.Option
	if cfg.Timeout > 0 {
		transportOptions = append(transportOptions, transport.WithTimeout(cfg.Timeout))
	}
	options := []client.Option{
		client.WithTransport(transport.New(transportOptions...)),
		client.WithRequestOptions(cfg.RequestOptions()...),
		client.WithProcessOptions(process.WithAliases(store.Aliases(cfg.Aliases))),
		client.WithConcurrency(cfg.Concurrency),
	}
	if cfg.LogDir != "" {
		options = append(options, client.WithLogDir(cfg.LogDir))
	}
	if cfg.ProfileDir != "" {
		options = append(options, client.WithProfileDir(cfg.ProfileDir))
	}
	if interactive {
		options = append(options,
			client.WithMFAPrompt(mfaPrompt(in)),
			client.WithResolver(resolver(db, in)),
		)
	}
	c := client.New(db, options...)

	// interrupting stops the requests in flight; they are reported as
	// cancelled
	go func() {
		<-ctx.Done()
		c.Cancel()
	}()

	logins, err := cfg.ClientLogins()
	if err != nil {
		return err
	}

	switch {
	case opts.Profile:
		return printProfiles(ctx, c, logins)
	case opts.ListAccounts:
		return printAccounts(ctx, c, logins)
	}

	sink := download.NewResult("sync")
	if len(opts.Import) > 0 {
		sink.Name = "import"
		c.Import(ctx, opts.Import, sink)
	} else {
		c.Sync(ctx, logins, sink)
		if cfg.UpdateVersions(logins) {
			if err := cfg.Save(opts.Config); err != nil {
				return err
			}
		}
	}

	printResult(os.Stdout, sink)
	if sink.HasErrors() {
		return errors.New("some downloads failed")
	}
	return nil
}

// addAccounts creates the configured accounts missing from the store
func addAccounts(ctx context.Context, s store.Store, cfg *config.Config) error {
	existing, err := s.Accounts(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		known[a.ID] = struct{}{}
	}
	for _, l := range cfg.Logins {
		for _, a := range l.Accounts {
			if _, ok := known[a.ID]; ok {
				continue
			}
			if err := s.AddAccount(ctx, a.StoreAccount(l.Name)); err != nil {
				return errors.Wrapf(err, "failed to add account %s", a.ID)
			}
			known[a.ID] = struct{}{}
		}
	}
	return nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func mfaPrompt(in *bufio.Reader) client.MFAPrompt {
	return func(_ context.Context, login *client.Login, challenges []ofx.MFAChallenge) ([]ofx.MFAChallengeAnswer, error) {
		color.New(color.Bold).Printf("%s asks for more information\n", login.DisplayName())
		answers := make([]ofx.MFAChallengeAnswer, 0, len(challenges))
		for _, ch := range challenges {
			label := ch.Label
			if label == "" {
				label = ch.PhraseID
			}
			fmt.Printf("  %s: ", label)
			answer, err := readLine(in)
			if err != nil {
				return nil, ofx.ErrCancelled
			}
			answers = append(answers, ofx.MFAChallengeAnswer{PhraseID: ch.PhraseID, Answer: answer})
		}
		return answers, nil
	}
}

// resolver asks which local account an unknown download belongs to.
// An empty answer declines.
func resolver(s store.Store, in *bufio.Reader) process.Resolver {
	return func(ctx context.Context, template *store.Account) *store.Account {
		accounts, err := s.Accounts(ctx)
		if err != nil {
			return nil
		}
		color.New(color.Bold).Printf("Downloaded %s account %s matches no account\n", template.Type, template.AccountID)
		for _, a := range accounts {
			fmt.Printf("  %-12s %s (%s)\n", a.ID, a.Name, a.AccountID)
		}
		fmt.Print("Account id to use, a new id to create one, or empty to skip: ")
		answer, err := readLine(in)
		if err != nil || answer == "" {
			return nil
		}
		for _, a := range accounts {
			if a.ID == answer {
				return a
			}
		}
		created := *template
		created.ID = answer
		created.Name = answer
		return &created
	}
}

func printProfiles(ctx context.Context, c *client.Client, logins []*client.Login) error {
	var failed bool
	for _, login := range logins {
		prof, err := c.FetchProfile(ctx, login)
		if err != nil {
			color.New(color.FgRed).Printf("%s: %s\n", login.DisplayName(), err)
			failed = true
			continue
		}
		color.New(color.Bold).Printf("%s\n", login.DisplayName())
		fmt.Printf("  %s, updated %s\n", prof.FIName, prof.Updated.Format("2006-01-02"))
		for _, ms := range prof.MessageSets {
			fmt.Printf("  %-20s v%s %s\n", ms.Name, ms.Version, ms.URL)
		}
	}
	if failed {
		return errors.New("some profiles could not be fetched")
	}
	return nil
}

func printAccounts(ctx context.Context, c *client.Client, logins []*client.Login) error {
	var failed bool
	for _, login := range logins {
		accounts, err := c.ListAccounts(ctx, login)
		if err != nil {
			color.New(color.FgRed).Printf("%s: %s\n", login.DisplayName(), err)
			failed = true
			continue
		}
		color.New(color.Bold).Printf("%s\n", login.DisplayName())
		for _, a := range accounts {
			fmt.Printf("  %-12s %-16s %-10s %s\n", a.Kind, a.AccountID, a.AccountType, a.Description)
		}
	}
	if failed {
		return errors.New("some account lists could not be fetched")
	}
	return nil
}

func printResult(w io.Writer, sink *download.Result) {
	ok := color.New(color.FgGreen)
	info := color.New(color.FgCyan)
	bad := color.New(color.FgRed)
	cancelled := color.New(color.FgYellow)

	sink.Walk(func(res *download.Result, depth int) bool {
		if depth == 0 {
			return true
		}
		indent := strings.Repeat("  ", depth-1)
		var c *color.Color
		switch res.Kind {
		case download.Info:
			c = info
		case download.Error:
			c = bad
		case download.Cancelled:
			c = cancelled
		default:
			c = ok
		}
		c.Fprintf(w, "%s%s", indent, res.Name)
		if res.Message != "" {
			fmt.Fprintf(w, ": %s", res.Message)
		}
		if n := len(res.Added); n > 0 {
			fmt.Fprintf(w, " (%d new)", n)
		}
		fmt.Fprintln(w)
		return true
	})
}
