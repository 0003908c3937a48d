package ofx_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	testcases := map[string]time.Time{
		"20240131":                    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		"202401311205":                time.Date(2024, 1, 31, 12, 5, 0, 0, time.UTC),
		"20240131120000":              time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
		"20240131120000.5":            time.Date(2024, 1, 31, 12, 0, 0, 500*int(time.Millisecond), time.UTC),
		"20240131120000.123[0:GMT]":   time.Date(2024, 1, 31, 12, 0, 0, 123*int(time.Millisecond), time.UTC),
		"20240115120000.000[-5:EST]":  time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC),
		"20240115120000[+5.5:IST]":    time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC),
		"20240115120000[-3.5]":        time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC),
		" 20240115 ":                  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	for input, expected := range testcases {
		got, err := ofx.ParseDate(input)
		require.NoError(t, err, "ParseDate(%q)", input)
		require.True(t, expected.Equal(got), "ParseDate(%q): expected %s, got %s", input, expected, got)
	}

	for _, input := range []string{"", "2024", "2024013", "20241301", "20240131[x:EST]", "20240131120000.ab"} {
		_, err := ofx.ParseDate(input)
		require.True(t, errors.Is(err, ofx.ErrInvalidDate), "ParseDate(%q) should fail", input)
	}

	named, err := ofx.ParseDate("20240115120000[-5:EST]")
	require.NoError(t, err)
	name, offset := named.Zone()
	require.Equal(t, "EST", name)
	require.Equal(t, -5*3600, offset)
}

func TestFormatDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	v := time.Date(2024, 1, 15, 12, 0, 0, 250*int(time.Millisecond), est)
	require.Equal(t, "20240115170000.250[0:GMT]", ofx.FormatDate(v))

	back, err := ofx.ParseDate(ofx.FormatDate(v))
	require.NoError(t, err)
	require.True(t, v.Equal(back), "formatted dates parse back")
	require.Equal(t, "20240115", ofx.FormatDay(v))
}
