package prospect

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lmsales/sales-hub/internal/account"
	"github.com/lmsales/sales-hub/internal/visit"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func ago(days int) time.Time { return now.AddDate(0, 0, -days) }

func agoPtr(days int) *time.Time {
	t := ago(days)
	return &t
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		created     time.Time
		lastContact *time.Time
		want        Health
	}{
		{"new today", now, nil, Health{Active, 0}},
		{"new 6 days", ago(6), nil, Health{Active, 6}},
		{"new exactly 7 days", ago(7), nil, Health{AtRisk, 7}},
		{"new 20 days", ago(20), nil, Health{AtRisk, 20}},
		{"new exactly 21 days", ago(21), nil, Health{Lost, 21}},
		{"contacted 13 days ago", ago(90), agoPtr(13), Health{Active, 13}},
		{"contacted exactly 14 days ago", ago(90), agoPtr(14), Health{AtRisk, 14}},
		{"contacted 29 days ago", ago(90), agoPtr(29), Health{AtRisk, 29}},
		{"contacted exactly 30 days ago", ago(90), agoPtr(30), Health{Lost, 30}},
		{"contact ladder ignores age", ago(400), agoPtr(1), Health{Active, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.created, tt.lastContact, now)
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassifyPartialDay(t *testing.T) {
	// 6 days and 23 hours is still under the threshold
	created := now.Add(-(7*24 - 1) * time.Hour)
	if got := Classify(created, nil, now); got.State != Active || got.DaysElapsed != 6 {
		t.Errorf("Classify() = %+v, want active after 6 days", got)
	}
}

func TestBoard(t *testing.T) {
	accounts := []account.Account{
		{ID: "fresh", Name: "Fresh", Classification: account.Prospect, CreatedAt: ago(2)},
		{ID: "ghost", Name: "Ghost", Classification: account.Prospect, CreatedAt: ago(40)},
		{ID: "called", Name: "Called", Classification: account.Prospect, CreatedAt: ago(60), LastContactAt: agoPtr(3)},
		{ID: "visited", Name: "Visited", Classification: account.Prospect, CreatedAt: ago(60), LastContactAt: agoPtr(50)},
		{ID: "drifting", Name: "Drifting", Classification: account.Prospect, CreatedAt: ago(10)},
		{ID: "customer", Name: "Customer", Classification: account.ActiveCustomer, CreatedAt: ago(300)},
	}
	visits := []visit.Visit{
		{AccountID: "visited", ScheduledDate: ago(20).Format("2006-01-02"), Status: visit.StatusCompleted},
		{AccountID: "visited", ScheduledDate: ago(1).Format("2006-01-02"), Status: visit.StatusPending},
		{AccountID: "ghost", ScheduledDate: ago(2).Format("2006-01-02"), Status: visit.StatusPending},
	}

	entries := Board(accounts, visits, now)

	type row struct {
		ID    string
		State State
	}
	var got []row
	for _, e := range entries {
		got = append(got, row{e.Account.ID, e.State})
	}
	want := []row{
		{"ghost", Lost},
		{"visited", AtRisk},
		{"drifting", AtRisk},
		{"called", Active},
		{"fresh", Active},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("board mismatch (-want +got):\n%s", diff)
	}

	for _, e := range entries {
		if e.Account.ID == "visited" && (e.LastContact == nil || e.DaysElapsed < 19 || e.DaysElapsed > 20) {
			t.Errorf("visited: last contact should come from the completed visit, got %+v", e)
		}
	}

	sum := Summarize(entries)
	if diff := cmp.Diff(Summary{Total: 5, Active: 2, AtRisk: 2, Lost: 1}, sum); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBoardEmpty(t *testing.T) {
	entries := Board(nil, nil, now)
	if entries == nil || len(entries) != 0 {
		t.Errorf("Board(nil) = %v, want empty non-nil slice", entries)
	}
	if s := Summarize(entries); s != (Summary{}) {
		t.Errorf("Summarize(empty) = %+v", s)
	}
}
