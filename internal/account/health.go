package account

import (
	"time"

	"github.com/lmsales/sales-hub/internal/visit"
)

// StaleWindowDays is the trailing window without any visit after which an
// account counts as stale.
const StaleWindowDays = 7

// OverdueReason explains an overdue decision.
type OverdueReason string

const (
	ReasonNoPolicy      OverdueReason = "no_policy"
	ReasonUnknownPolicy OverdueReason = "unknown_policy"
	ReasonNeverVisited  OverdueReason = "never_visited"
	ReasonPastDeadline  OverdueReason = "past_deadline"
	ReasonWithinPolicy  OverdueReason = "within_policy"
)

// OverdueCheck is the outcome of a frequency-overdue evaluation.
type OverdueCheck struct {
	Overdue  bool          `json:"overdue"`
	Reason   OverdueReason `json:"reason"`
	Deadline *time.Time    `json:"deadline,omitempty"`
}

// CheckOverdue evaluates an account against its frequency policy.
//
// Accounts without a policy, or with one that is not recognized, are never
// overdue; the reason tells the two apart so callers can report corrupt
// policies. A policy-bound account that was never visited is overdue.
// Otherwise it is overdue when now is strictly after the policy deadline.
func CheckOverdue(a Account, lastCompleted *time.Time, now time.Time) OverdueCheck {
	switch {
	case a.Frequency == None || a.Frequency == "":
		return OverdueCheck{Reason: ReasonNoPolicy}
	case !a.Frequency.IsValid():
		return OverdueCheck{Reason: ReasonUnknownPolicy}
	case lastCompleted == nil:
		return OverdueCheck{Overdue: true, Reason: ReasonNeverVisited}
	}

	deadline, _ := a.Frequency.Deadline(*lastCompleted)
	if now.After(deadline) {
		return OverdueCheck{Overdue: true, Reason: ReasonPastDeadline, Deadline: &deadline}
	}
	return OverdueCheck{Reason: ReasonWithinPolicy, Deadline: &deadline}
}

// IsOverdue reports whether the account has missed its visit cadence.
func IsOverdue(a Account, lastCompleted *time.Time, now time.Time) bool {
	return CheckOverdue(a, lastCompleted, now).Overdue
}

// StaleCutoff returns the conventional cutoff for LacksRecentContact.
func StaleCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -StaleWindowDays)
}

// LacksRecentContact reports whether the account's most recent visit, in any
// status, is older than cutoff. Accounts without visits lack contact.
func LacksRecentContact(a Account, visits []visit.Visit, cutoff time.Time) bool {
	var latest time.Time
	found := false
	for _, v := range visits {
		if v.AccountID != a.ID {
			continue
		}
		d := v.Date()
		if !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	if !found {
		return true
	}
	return latest.Before(cutoff)
}

// LastCompletedVisit returns the latest scheduled date among the account's
// completed visits, or nil when it has none.
func LastCompletedVisit(accountID string, visits []visit.Visit) *time.Time {
	var last *time.Time
	for _, v := range visits {
		if v.AccountID != accountID || !v.IsCompleted() {
			continue
		}
		d := v.Date()
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last
}
