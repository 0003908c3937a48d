//go:build debug

package debug

import (
	"log"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

const Enabled = true

var logger = log.New(os.Stderr, "|SGML| ", 0)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// OpenElements prints the open element stack, outermost first, at the
// point the reader made a decision about it
func OpenElements(event string, names []string) {
	logger.Printf("%s: %s", event, strings.Join(names, " > "))
}

// Dump prints v with go-spew
func Dump(label string, v ...any) {
	logger.Printf("%s:\n%s", label, dumper.Sdump(v...))
}
