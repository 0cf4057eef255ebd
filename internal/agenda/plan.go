package agenda

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/recency"
	"github.com/lmsales/sales-hub/internal/visit"
)

// DefaultCapacity is the number of visits in a daily plan.
const DefaultCapacity = 6

// neverVisited sorts accounts without a completed visit ahead of every
// account that has one. It is a sort key only and never shown to users.
const neverVisited = math.MaxInt

// SortPendingVisits orders pending visits for the agenda: by urgency tier,
// then by days since the account's last completed visit (longest first,
// never visited first of all), then by scheduled date. The sort is stable.
// Visits that are not pending are dropped; the input is not modified.
func SortPendingVisits(visits []visit.Visit, st State) []visit.Visit {
	type keyed struct {
		v     visit.Visit
		score int
		stale int
		date  time.Time
	}

	items := make([]keyed, 0, len(visits))
	for _, v := range visits {
		if !v.IsPending() {
			continue
		}
		stale := neverVisited
		if days, ok := st.DaysSinceLastVisit(v.AccountID); ok {
			stale = days
		}
		items = append(items, keyed{
			v:     v,
			score: UrgencyScore(v.AccountID, st.Overdue, st.Stale),
			stale: stale,
			date:  v.Date(),
		})
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		if c := cmp.Compare(a.score, b.score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.stale, a.stale); c != 0 {
			return c
		}
		return a.date.Compare(b.date)
	})

	out := make([]visit.Visit, len(items))
	for i, it := range items {
		out[i] = it.v
	}
	return out
}

// SelectDailyPlan returns the first capacity visits of an already sorted list.
func SelectDailyPlan(sorted []visit.Visit, capacity int) []visit.Visit {
	if capacity <= 0 {
		return []visit.Visit{}
	}
	n := min(capacity, len(sorted))
	return sorted[:n:n]
}

// Entry is one visit in a daily plan with its explanation.
type Entry struct {
	Visit              visit.Visit `json:"visit"`
	AccountName        string      `json:"account_name"`
	Score              int         `json:"urgency_score"`
	Urgency            string      `json:"urgency"`
	Label              string      `json:"label,omitempty"`
	DaysSinceLastVisit *int        `json:"days_since_last_visit,omitempty"` // nil when never visited
}

// Flag is an account listed on the agenda as overdue or stale.
type Flag struct {
	AccountID          string                `json:"account_id"`
	AccountName        string                `json:"account_name"`
	Frequency          account.Frequency     `json:"frequency"`
	Reason             account.OverdueReason `json:"reason,omitempty"`
	Label              string                `json:"label"`
	DaysSinceLastVisit *int                  `json:"days_since_last_visit,omitempty"`
}

// Plan is the agenda for one day.
type Plan struct {
	Date         string  `json:"date"`
	Capacity     int     `json:"capacity"`
	PendingTotal int     `json:"pending_total"`
	Entries      []Entry `json:"entries"`
	Overdue      []Flag  `json:"overdue"`
	Stale        []Flag  `json:"stale"`
}

// NeverVisitedLabel is shown for overdue accounts without a completed visit.
const NeverVisitedLabel = "Frequency overdue — never visited"

// BuildPlan classifies the snapshot at now and selects the daily plan.
func BuildPlan(accounts []account.Account, visits []visit.Visit, now time.Time, capacity int, logger *slog.Logger) Plan {
	st := BuildState(accounts, visits, now, logger)

	byID := make(map[string]account.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	sorted := SortPendingVisits(visits, st)
	selected := SelectDailyPlan(sorted, capacity)

	plan := Plan{
		Date:         recency.FormatDate(now),
		Capacity:     capacity,
		PendingTotal: len(sorted),
		Entries:      make([]Entry, 0, len(selected)),
		Overdue:      []Flag{},
		Stale:        []Flag{},
	}

	for _, v := range selected {
		score := UrgencyScore(v.AccountID, st.Overdue, st.Stale)
		plan.Entries = append(plan.Entries, Entry{
			Visit:              v,
			AccountName:        byID[v.AccountID].Name,
			Score:              score,
			Urgency:            UrgencyName(score),
			Label:              labelFor(v.AccountID, st),
			DaysSinceLastVisit: daysPtr(st, v.AccountID),
		})
	}

	for _, a := range accounts {
		switch {
		case st.Overdue.Has(a.ID):
			plan.Overdue = append(plan.Overdue, flagFor(a, st))
		case st.Stale.Has(a.ID):
			plan.Stale = append(plan.Stale, flagFor(a, st))
		}
	}
	sortFlags(plan.Overdue)
	sortFlags(plan.Stale)

	return plan
}

func labelFor(accountID string, st State) string {
	if label, ok := UrgencyLabel(accountID, st); ok {
		return label
	}
	if st.Overdue.Has(accountID) {
		return NeverVisitedLabel
	}
	return ""
}

func flagFor(a account.Account, st State) Flag {
	return Flag{
		AccountID:          a.ID,
		AccountName:        a.Name,
		Frequency:          a.Frequency,
		Reason:             st.Reasons[a.ID],
		Label:              labelFor(a.ID, st),
		DaysSinceLastVisit: daysPtr(st, a.ID),
	}
}

func daysPtr(st State, accountID string) *int {
	days, ok := st.DaysSinceLastVisit(accountID)
	if !ok {
		return nil
	}
	return &days
}

// sortFlags puts never-visited accounts first, then the longest gaps.
func sortFlags(flags []Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		di, dj := neverVisited, neverVisited
		if flags[i].DaysSinceLastVisit != nil {
			di = *flags[i].DaysSinceLastVisit
		}
		if flags[j].DaysSinceLastVisit != nil {
			dj = *flags[j].DaysSinceLastVisit
		}
		return di > dj
	})
}
