// Package agenda turns account and visit snapshots into a prioritised daily
// visit plan. Everything here is pure: the caller supplies the snapshot and
// the evaluation instant, and nothing is read from the clock or written back.
package agenda

import (
	"log/slog"
	"time"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/recency"
	"github.com/lmsales/sales-hub/internal/visit"
)

// Set is a set of account IDs.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s Set) Add(id string) { s[id] = struct{}{} }

// State is the per-account classification derived from one snapshot at one instant.
type State struct {
	Now       time.Time
	LastVisit map[string]time.Time // latest completed visit per account
	Overdue   Set                  // frequency overdue
	Stale     Set                  // no visit of any status in the trailing window
	Reasons   map[string]account.OverdueReason
}

// BuildState classifies every account in the snapshot.
//
// Accounts whose frequency is not recognized are left out of the overdue
// set and reported through logger at warn level; a nil logger uses
// slog.Default().
func BuildState(accounts []account.Account, visits []visit.Visit, now time.Time, logger *slog.Logger) State {
	if logger == nil {
		logger = slog.Default()
	}

	st := State{
		Now:       now,
		LastVisit: lastCompletedByAccount(visits),
		Overdue:   make(Set),
		Stale:     make(Set),
		Reasons:   make(map[string]account.OverdueReason, len(accounts)),
	}

	byAccount := make(map[string][]visit.Visit)
	for _, v := range visits {
		byAccount[v.AccountID] = append(byAccount[v.AccountID], v)
	}

	cutoff := account.StaleCutoff(now)
	for _, a := range accounts {
		var last *time.Time
		if d, ok := st.LastVisit[a.ID]; ok {
			last = &d
		}

		check := account.CheckOverdue(a, last, now)
		st.Reasons[a.ID] = check.Reason
		if check.Reason == account.ReasonUnknownPolicy {
			logger.Warn("unrecognized visit frequency, account excluded from overdue detection",
				"account_id", a.ID,
				"frequency", string(a.Frequency),
			)
		}
		if check.Overdue {
			st.Overdue.Add(a.ID)
		}

		if account.LacksRecentContact(a, byAccount[a.ID], cutoff) {
			st.Stale.Add(a.ID)
		}
	}

	return st
}

// DaysSinceLastVisit returns the days since the account's last completed
// visit. The second result is false when the account was never visited.
func (st State) DaysSinceLastVisit(accountID string) (int, bool) {
	last, ok := st.LastVisit[accountID]
	if !ok {
		return 0, false
	}
	return recency.DaysBetween(last, st.Now), true
}

func lastCompletedByAccount(visits []visit.Visit) map[string]time.Time {
	last := make(map[string]time.Time)
	for _, v := range visits {
		if !v.IsCompleted() {
			continue
		}
		d := v.Date()
		if cur, ok := last[v.AccountID]; !ok || d.After(cur) {
			last[v.AccountID] = d
		}
	}
	return last
}
