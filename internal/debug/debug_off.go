//go:build !debug

package debug

const Enabled = false

// OpenElements is a no-op unless built with the debug tag
func OpenElements(string, []string) {}

// Dump is a no-op unless built with the debug tag
func Dump(string, ...any) {}
