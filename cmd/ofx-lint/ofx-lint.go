package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/s11n"
	"github.com/mattn/go-isatty"
)

type cmdopts struct {
	Dump            bool `long:"dump" description:"print the parsed tree"`
	EnforceSecurity bool `long:"enforce-security" description:"reject headers with SECURITY other than NONE"`
	Redact          bool `long:"redact" description:"mask credentials before printing"`
	SGML            bool `long:"sgml" description:"print the document as version 1 SGML"`
	XML             bool `long:"xml" description:"print the document as version 2 XML"`
	Verbose         bool `short:"v" long:"verbose" description:"log parser diagnostics to stderr"`
}

func main() {
	os.Exit(_main())
}

func showUsage() {
	fmt.Printf(`Usage : ofx-lint [options] OFXfiles ...
	Parse the OFX files and report whether they could be read
	--dump             : print the parsed tree
	--enforce-security : reject headers with SECURITY other than NONE
	--redact           : mask credentials before printing
	--sgml, --xml      : print the document in the given form
	--verbose          : log parser diagnostics to stderr
`)
}

type input struct {
	name string
	r    io.Reader
}

func _main() int {
	opts := cmdopts{}
	args, err := flags.ParseArgs(&opts, os.Args[1:])
	if err != nil {
		showUsage()
		return 1
	}

	inputCh := make(chan input)
	errCh := make(chan error, 1)
	switch {
	case len(args) > 0:
		go func() {
			defer close(inputCh)
			for _, f := range args {
				fh, err := os.Open(f)
				if err != nil {
					errCh <- err
					return
				}
				inputCh <- input{name: f, r: fh}
			}
		}()
	case !isatty.IsTerminal(os.Stdin.Fd()):
		go func() {
			defer close(inputCh)
			inputCh <- input{name: "-", r: os.Stdin}
		}()
	default:
		showUsage()
		return 1
	}

	ctx := context.Background()
	if opts.Verbose {
		ctx = ofx.WithTraceLogger(ctx, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	status := 0
	for in := range inputCh {
		buf, err := io.ReadAll(in.r)
		if c, ok := in.r.(io.Closer); ok && in.r != os.Stdin {
			c.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", in.name, err)
			return 1
		}

		doc, err := ofx.Parse(ctx, buf, ofx.WithEnforceSecurity(opts.EnforceSecurity))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", in.name, err)
			status = 1
			continue
		}
		if opts.Redact {
			doc = ofx.Redact(doc)
		}

		switch {
		case opts.Dump:
			d := s11n.Dumper{}
			err = d.DumpDoc(os.Stdout, doc.Tree)
		case opts.XML:
			w := s11n.XMLWriter{}
			err = w.WriteDoc(os.Stdout, doc.Tree)
		case opts.SGML:
			w := s11n.SGMLWriter{}
			err = w.WriteDoc(os.Stdout, doc.Tree)
		default:
			fmt.Printf("%s: OFX version %d, root %s\n", in.name, doc.Version, doc.Root().Name())
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", in.name, err)
			status = 1
		}
	}

	select {
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	default:
	}

	return status
}
