// Package prospect classifies prospects into lifecycle states based on how
// long they have gone without contact.
package prospect

import (
	"cmp"
	"slices"
	"time"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/recency"
	"github.com/lmsales/sales-hub/internal/visit"
)

// Thresholds in days. A prospect reaches the next state on the threshold day.
const (
	NewOK         = 7  // never contacted: active below this
	NewRisk       = 21 // never contacted: lost from this
	ContactedOK   = 14 // contacted: active below this
	ContactedRisk = 30 // contacted: lost from this
)

// State is a prospect lifecycle state.
type State string

const (
	Active State = "active"
	AtRisk State = "at_risk"
	Lost   State = "lost"
)

// Label returns a human-readable label for the state.
func (s State) Label() string {
	switch s {
	case Active:
		return "Active"
	case AtRisk:
		return "At risk"
	case Lost:
		return "Lost"
	default:
		return string(s)
	}
}

func (s State) rank() int {
	switch s {
	case Lost:
		return 0
	case AtRisk:
		return 1
	default:
		return 2
	}
}

// Health is the classification of one prospect.
type Health struct {
	State       State `json:"state"`
	DaysElapsed int   `json:"days_elapsed"`
}

// Classify places a prospect on one of two threshold ladders. A prospect that
// was never contacted is measured from createdAt against NewOK and NewRisk;
// one that was contacted is measured from lastContact against ContactedOK
// and ContactedRisk.
func Classify(createdAt time.Time, lastContact *time.Time, now time.Time) Health {
	from, ok, risk := createdAt, NewOK, NewRisk
	if lastContact != nil {
		from, ok, risk = *lastContact, ContactedOK, ContactedRisk
	}

	days := recency.DaysBetween(from, now)
	switch {
	case days < ok:
		return Health{State: Active, DaysElapsed: days}
	case days < risk:
		return Health{State: AtRisk, DaysElapsed: days}
	default:
		return Health{State: Lost, DaysElapsed: days}
	}
}

// Entry is one prospect on the board.
type Entry struct {
	Account     account.Account `json:"account"`
	LastContact *time.Time      `json:"last_contact,omitempty"`
	Health
}

// Board classifies every account with the prospect classification. The last
// contact is the later of the manual contact mark and the latest completed
// visit. Entries are ordered lost first, then at risk, then active, and
// within a state by days elapsed, longest first.
func Board(accounts []account.Account, visits []visit.Visit, now time.Time) []Entry {
	entries := []Entry{}
	for _, a := range accounts {
		if a.Classification != account.Prospect {
			continue
		}
		last := recency.Later(a.LastContactAt, account.LastCompletedVisit(a.ID, visits))
		entries = append(entries, Entry{
			Account:     a,
			LastContact: last,
			Health:      Classify(a.CreatedAt, last, now),
		})
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.State.rank(), b.State.rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.DaysElapsed, a.DaysElapsed)
	})
	return entries
}

// Summary counts board entries per state.
type Summary struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	AtRisk int `json:"at_risk"`
	Lost   int `json:"lost"`
}

// Summarize counts entries per state.
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.State {
		case Active:
			s.Active++
		case AtRisk:
			s.AtRisk++
		case Lost:
			s.Lost++
		}
	}
	return s
}
