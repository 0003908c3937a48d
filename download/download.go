// Package download holds the result tree of a sync or import
package download

import (
	"errors"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/store"
)

type Kind int

const (
	OK Kind = iota
	Info
	Error
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case Info:
		return "Info"
	case Error:
		return "Error"
	case Cancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// Result is one node of the tree. There is one root child per account
// or file, with children for the messages found while processing it.
// A tree is only mutated by the goroutine coordinating the operation.
type Result struct {
	Name     string
	Message  string
	Kind     Kind
	Err      error
	Added    []*store.Transaction
	Children []*Result
}

func NewResult(name string) *Result {
	return &Result{Name: name}
}

// NewChild appends a child named name and returns it
func (r *Result) NewChild(name string) *Result {
	c := &Result{Name: name}
	r.Children = append(r.Children, c)
	return c
}

// Find returns the direct child named name, or nil
func (r *Result) Find(name string) *Result {
	for _, c := range r.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Fail records err. Cancellation is recorded as Cancelled rather than
// Error.
func (r *Result) Fail(err error) {
	r.Err = err
	if errors.Is(err, ofx.ErrCancelled) {
		r.Kind = Cancelled
		r.Message = "cancelled"
		return
	}
	r.Kind = Error
	r.Message = err.Error()
}

// Info records an informational message
func (r *Result) Info(msg string) {
	if r.Kind == OK {
		r.Kind = Info
	}
	r.Message = msg
}

// Add records newly added transactions
func (r *Result) Add(list ...*store.Transaction) {
	r.Added = append(r.Added, list...)
}

// Walk calls fn on r and its descendants, depth first. depth is 0 for
// r.
func (r *Result) Walk(fn func(res *Result, depth int) bool) {
	r.walk(fn, 0)
}

func (r *Result) walk(fn func(*Result, int) bool, depth int) bool {
	if !fn(r, depth) {
		return false
	}
	for _, c := range r.Children {
		if !c.walk(fn, depth+1) {
			return false
		}
	}
	return true
}

// HasErrors reports whether any node in the tree failed. Cancelled
// nodes do not count.
func (r *Result) HasErrors() bool {
	var found bool
	r.Walk(func(res *Result, _ int) bool {
		if res.Kind == Error {
			found = true
			return false
		}
		return true
	})
	return found
}

// AddedCount is the number of transactions added across the tree
func (r *Result) AddedCount() int {
	var n int
	r.Walk(func(res *Result, _ int) bool {
		n += len(res.Added)
		return true
	})
	return n
}
