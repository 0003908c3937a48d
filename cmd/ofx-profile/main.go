package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime/pprof"

	"github.com/jessevdk/go-flags"
	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/s11n"
	"github.com/pkg/errors"
)

const usage = `ofx-profile - profile parsing of an OFX file

Usage:
  ofx-profile [options] <ofx-file>

Options:
  --iterations N   number of parses (default: 2000)
  --profile TYPE   cpu or mem (default: cpu)
  --out FILE       profile output (default: ofx_<type>.prof)
  --http ADDR      open the profile with "go tool pprof -http ADDR"
`

type cmdopts struct {
	Iterations int    `long:"iterations" default:"2000"`
	Profile    string `long:"profile" default:"cpu" choice:"cpu" choice:"mem"`
	Out        string `long:"out"`
	HTTP       string `long:"http"`
}

func main() {
	os.Exit(_main())
}

func _main() int {
	opts := cmdopts{}
	args, err := flags.ParseArgs(&opts, os.Args[1:])
	if err != nil || len(args) != 1 {
		fmt.Print(usage)
		return 1
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	out := opts.Out
	if out == "" {
		out = fmt.Sprintf("ofx_%s.prof", opts.Profile)
	}

	ctx := context.Background()
	if opts.Profile == "mem" {
		err = memProfile(ctx, data, opts.Iterations, out)
	} else {
		err = cpuProfile(ctx, data, opts.Iterations, out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	fmt.Printf("profile written to %s\n", out)

	if opts.HTTP != "" {
		cmd := exec.Command("go", "tool", "pprof", "-http", opts.HTTP, out)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return 1
		}
	}
	return 0
}

// workload parses data and writes it back out, as a download does
// before logging it
func workload(ctx context.Context, data []byte) (*ofx.Document, error) {
	doc, err := ofx.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	w := s11n.SGMLWriter{}
	if err := w.WriteDoc(io.Discard, ofx.Redact(doc).Tree); err != nil {
		return nil, err
	}
	return doc, nil
}

func cpuProfile(ctx context.Context, data []byte, iterations int, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := pprof.StartCPUProfile(f); err != nil {
		return err
	}
	defer pprof.StopCPUProfile()

	for i := range iterations {
		if _, err := workload(ctx, data); err != nil {
			return errors.Wrapf(err, "iteration %d", i)
		}
	}
	return nil
}

func memProfile(ctx context.Context, data []byte, iterations int, out string) error {
	docs := make([]*ofx.Document, 0, iterations)
	for i := range iterations {
		doc, err := workload(ctx, data)
		if err != nil {
			return errors.Wrapf(err, "iteration %d", i)
		}
		docs = append(docs, doc)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return err
	}
	_ = len(docs)
	return nil
}
