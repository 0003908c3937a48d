package download_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/download"
	"github.com/lestrrat-go/ofx/store"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	root := download.NewResult("sync")
	bank := root.NewChild("bank")
	bank.NewChild("checking").Add(&store.Transaction{FITID: "1"}, &store.Transaction{FITID: "2"})
	card := root.NewChild("card")
	card.Fail(fmt.Errorf("send: %w", ofx.ErrCancelled))

	require.Same(t, bank, root.Find("bank"))
	require.Nil(t, root.Find("nope"))
	require.Equal(t, download.Cancelled, card.Kind)
	require.False(t, root.HasErrors(), "cancellation is not an error")
	require.Equal(t, 2, root.AddedCount())

	broken := bank.NewChild("savings")
	broken.Fail(errors.New("boom"))
	require.Equal(t, download.Error, broken.Kind)
	require.Equal(t, "boom", broken.Message)
	require.True(t, root.HasErrors())

	var names []string
	var depths []int
	root.Walk(func(r *download.Result, depth int) bool {
		names = append(names, r.Name)
		depths = append(depths, depth)
		return true
	})
	require.Equal(t, []string{"sync", "bank", "checking", "savings", "card"}, names)
	require.Equal(t, []int{0, 1, 2, 2, 1}, depths)

	info := root.NewChild("profile")
	info.Info("up to date")
	require.Equal(t, download.Info, info.Kind)
	require.Equal(t, "Info", info.Kind.String())
}
