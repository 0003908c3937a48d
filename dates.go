package ofx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid OFX date")

// ParseDate reads an OFX date such as 20240131, 20240131120000 or
// 20240131120000.000[-5:EST]. A missing offset means GMT. Offsets may
// be fractional hours, as in [+5.5:IST].
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := time.UTC
	if i := strings.IndexByte(s, '['); i >= 0 {
		tz := strings.TrimSuffix(s[i+1:], "]")
		s = s[:i]
		offset, name, _ := strings.Cut(tz, ":")
		hours, err := strconv.ParseFloat(strings.TrimSpace(offset), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad offset %q", ErrInvalidDate, tz)
		}
		if name == "" {
			name = offset
		}
		loc = time.FixedZone(name, int(hours*3600))
	}

	var frac string
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s, frac = s[:i], s[i+1:]
	}
	if len(s) < 8 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	layout := "20060102"
	switch len(s) {
	case 8:
	case 12:
		layout = "200601021504"
	case 14:
		layout = "20060102150405"
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, err)
	}
	if frac != "" {
		ms, err := strconv.Atoi(frac)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad fraction %q", ErrInvalidDate, frac)
		}
		for i := len(frac); i < 3; i++ {
			ms *= 10
		}
		for i := len(frac); i > 3; i-- {
			ms /= 10
		}
		t = t.Add(time.Duration(ms) * time.Millisecond)
	}
	return t, nil
}

// FormatDate renders t in UTC as 20060102150405.000[0:GMT]
func FormatDate(t time.Time) string {
	return t.UTC().Format("20060102150405.000") + "[0:GMT]"
}

// FormatDay renders the date part of t, as used in DTSTART
func FormatDay(t time.Time) string {
	return t.Format("20060102")
}
