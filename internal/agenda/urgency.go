package agenda

import "fmt"

// Urgency tiers. Lower is more urgent.
const (
	Critical = 0
	Warning  = 1
	Normal   = 2
)

// UrgencyScore returns the priority tier of an account: Critical when it is
// frequency overdue, Warning when it is only stale, Normal otherwise.
// Overdue always wins over stale.
func UrgencyScore(accountID string, overdue, stale Set) int {
	switch {
	case overdue.Has(accountID):
		return Critical
	case stale.Has(accountID):
		return Warning
	default:
		return Normal
	}
}

// UrgencyName returns the display name of a tier.
func UrgencyName(score int) string {
	switch score {
	case Critical:
		return "critical"
	case Warning:
		return "warning"
	default:
		return "normal"
	}
}

// UrgencyLabel explains why an account is urgent. It returns false when the
// account is in neither set, and also when it is overdue but was never
// visited: there is no day count to show, so callers word that case themselves.
func UrgencyLabel(accountID string, st State) (string, bool) {
	if st.Overdue.Has(accountID) {
		days, ok := st.DaysSinceLastVisit(accountID)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Frequency overdue — %d days ago", days), true
	}
	if st.Stale.Has(accountID) {
		return "No visit this week", true
	}
	return "", false
}
