package pool_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/lestrrat-go/ofx/internal/pool"
	"github.com/stretchr/testify/require"
)

func TestByteSliceReuse(t *testing.T) {
	p := pool.ByteSlice()
	b := p.Get()
	require.Empty(t, b)
	require.GreaterOrEqual(t, cap(b), 64)

	b = append(b, "<TRNAMT>-12.50"...)
	p.Put(b)

	b = p.Get()
	require.Empty(t, b, "returned buffers come back empty")

	big := p.GetCapacity(4096)
	require.GreaterOrEqual(t, cap(big), 4096)
	p.Put(big)

	// oversized buffers are dropped rather than pooled
	p.Put(make([]byte, 0, 128*1024))
	require.LessOrEqual(t, cap(p.GetCapacity(1)), 64*1024)
}

func TestByteSliceParallel(t *testing.T) {
	p := pool.ByteSlice()
	tags := []string{"NAME", "MEMO", "FITID", "TRNAMT", "DTPOSTED", "CHECKNUM"}
	out := make([]string, len(tags)*8)

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := p.GetCapacity(256)
			defer p.Put(b)
			for range 20 {
				b = append(b, tags[i%len(tags)]...)
			}
			out[i] = string(b)
		}()
	}
	wg.Wait()

	for i, s := range out {
		require.Equal(t, strings.Repeat(tags[i%len(tags)], 20), s, "buffer %d was not shared", i)
	}
}
