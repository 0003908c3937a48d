package store

import (
	"time"
)

// manual entries this close to a download may be the same transaction
const mergeWindow = 5 * 24 * time.Hour

// FindMatch picks the transaction in existing that t duplicates. A
// FITID match always wins. Otherwise an entry without a FITID, with the
// same amount and a date within a few days, is taken; the closest date
// wins and entries already in seen are skipped.
func FindMatch(existing []*Transaction, t *Transaction, seen map[int64]bool) *Transaction {
	if t.FITID != "" {
		for _, e := range existing {
			if e.FITID == t.FITID {
				return e
			}
		}
	}

	var best *Transaction
	var bestDelta time.Duration
	for _, e := range existing {
		if e.FITID != "" || seen[e.ID] || !e.Amount.Equal(t.Amount) {
			continue
		}
		delta := e.Date.Sub(t.Date)
		if delta < 0 {
			delta = -delta
		}
		if delta > mergeWindow {
			continue
		}
		if best == nil || delta < bestDelta {
			best, bestDelta = e, delta
		}
	}
	return best
}

// ApplyMerge links e to the download t. Fields the user filled in are
// kept.
func ApplyMerge(e, t *Transaction) {
	if e.FITID == "" {
		e.FITID = t.FITID
	}
	if e.Number == "" {
		e.Number = t.Number
	}
	if e.Payee == "" {
		e.Payee = t.Payee
	}
	if e.Memo == "" {
		e.Memo = t.Memo
	}
	if e.Status == StatusNone {
		e.Status = StatusElectronic
	}
	if e.Unaccepted {
		e.Date = t.Date
		e.Amount = t.Amount
	}
}
