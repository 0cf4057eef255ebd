package account

import (
	"testing"
	"time"

	"github.com/lmsales/sales-hub/internal/visit"
)

var day0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time { return day0.AddDate(0, 0, days) }

func ptr(t time.Time) *time.Time { return &t }

func TestFrequencyDeadline(t *testing.T) {
	last := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		freq   Frequency
		want   time.Time
		wantOK bool
	}{
		{Weekly, time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC), true},
		{Biweekly, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), true},
		// one calendar month from Jan 31 normalizes past the end of February
		{Monthly, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), true},
		{None, time.Time{}, false},
		{"fortnightly", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			got, ok := tt.freq.Deadline(last)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !got.Equal(tt.want) {
				t.Errorf("deadline = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOverdueNeverVisited(t *testing.T) {
	for _, f := range []Frequency{Weekly, Biweekly, Monthly} {
		a := Account{ID: "a", Frequency: f}
		for _, now := range []time.Time{at(0), at(1), at(400)} {
			if !IsOverdue(a, nil, now) {
				t.Errorf("%s account with no completed visit should be overdue at %v", f, now)
			}
		}
	}
}

func TestIsOverdueDeadlineIsStrict(t *testing.T) {
	tests := []struct {
		freq     Frequency
		interval time.Duration
	}{
		{Weekly, 7 * 24 * time.Hour},
		{Biweekly, 15 * 24 * time.Hour},
	}

	last := at(0)
	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			a := Account{ID: "a", Frequency: tt.freq}
			deadline := last.Add(tt.interval)
			if IsOverdue(a, &last, deadline) {
				t.Error("exactly at the deadline is not overdue")
			}
			if !IsOverdue(a, &last, deadline.Add(time.Second)) {
				t.Error("just after the deadline is overdue")
			}
		})
	}

	t.Run("monthly", func(t *testing.T) {
		a := Account{ID: "a", Frequency: Monthly}
		last := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
		deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		if IsOverdue(a, &last, deadline) {
			t.Error("exactly one month later is not overdue")
		}
		if !IsOverdue(a, &last, deadline.Add(time.Minute)) {
			t.Error("past one month is overdue")
		}
	})
}

func TestIsOverdueScenarios(t *testing.T) {
	t.Run("weekly visited 10 days ago", func(t *testing.T) {
		a := Account{ID: "A", Frequency: Weekly}
		if !IsOverdue(a, ptr(at(0)), at(10)) {
			t.Error("expected overdue (10 > 7)")
		}
	})

	t.Run("monthly visited 20 days ago", func(t *testing.T) {
		a := Account{ID: "B", Frequency: Monthly}
		if IsOverdue(a, ptr(at(0)), at(20)) {
			t.Error("expected not overdue (20 < ~30)")
		}
	})
}

func TestCheckOverdueReasons(t *testing.T) {
	tests := []struct {
		name string
		freq Frequency
		last *time.Time
		now  time.Time
		want OverdueReason
	}{
		{"no policy", None, nil, at(50), ReasonNoPolicy},
		{"empty policy", "", nil, at(50), ReasonNoPolicy},
		{"unknown policy", "quarterly", ptr(at(0)), at(500), ReasonUnknownPolicy},
		{"never visited", Weekly, nil, at(0), ReasonNeverVisited},
		{"past deadline", Weekly, ptr(at(0)), at(8), ReasonPastDeadline},
		{"within policy", Biweekly, ptr(at(0)), at(8), ReasonWithinPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckOverdue(Account{ID: "x", Frequency: tt.freq}, tt.last, tt.now)
			if got.Reason != tt.want {
				t.Errorf("reason = %q, want %q", got.Reason, tt.want)
			}
			wantOverdue := tt.want == ReasonNeverVisited || tt.want == ReasonPastDeadline
			if got.Overdue != wantOverdue {
				t.Errorf("overdue = %v, want %v", got.Overdue, wantOverdue)
			}
		})
	}
}

func TestLacksRecentContact(t *testing.T) {
	a := Account{ID: "acc"}
	now := at(20)
	cutoff := StaleCutoff(now)

	tests := []struct {
		name   string
		visits []visit.Visit
		want   bool
	}{
		{"no visits at all", nil, true},
		{"only other accounts", []visit.Visit{{AccountID: "other", ScheduledDate: "2026-03-20"}}, true},
		{"old completed visit", []visit.Visit{{AccountID: "acc", ScheduledDate: "2026-03-02", Status: visit.StatusCompleted}}, true},
		{"recent pending visit counts", []visit.Visit{
			{AccountID: "acc", ScheduledDate: "2026-03-02", Status: visit.StatusCompleted},
			{AccountID: "acc", ScheduledDate: "2026-03-18", Status: visit.StatusPending},
		}, false},
		{"future visit counts", []visit.Visit{{AccountID: "acc", ScheduledDate: "2026-04-02", Status: visit.StatusPending}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Visit dates parse as local midnight; compare against a local cutoff.
			local := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 12, 0, 0, 0, time.Local)
			if got := LacksRecentContact(a, tt.visits, local); got != tt.want {
				t.Errorf("LacksRecentContact = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLastCompletedVisit(t *testing.T) {
	visits := []visit.Visit{
		{AccountID: "acc", ScheduledDate: "2026-02-01", Status: visit.StatusCompleted},
		{AccountID: "acc", ScheduledDate: "2026-02-20", Status: visit.StatusCompleted},
		{AccountID: "acc", ScheduledDate: "2026-03-01", Status: visit.StatusPending},
		{AccountID: "other", ScheduledDate: "2026-03-05", Status: visit.StatusCompleted},
	}

	got := LastCompletedVisit("acc", visits)
	if got == nil {
		t.Fatal("expected a last visit")
	}
	if got.Format("2006-01-02") != "2026-02-20" {
		t.Errorf("last = %s, want 2026-02-20", got.Format("2006-01-02"))
	}

	if LastCompletedVisit("nobody", visits) != nil {
		t.Error("expected nil for account without completed visits")
	}
}
