// Package visit provides the scheduled visit domain model and data access.
package visit

import (
	"errors"
	"fmt"
	"time"

	"github.com/lmsales/sales-hub/internal/recency"
)

// Category represents what a scheduled visit is for.
type Category string

const (
	CategoryVisit      Category = "visit"
	CategoryQuote      Category = "quote"
	CategoryCollection Category = "collection"
	CategoryFollowUp   Category = "follow_up"
)

// ValidCategories is the set of allowed visit categories.
var ValidCategories = []Category{CategoryVisit, CategoryQuote, CategoryCollection, CategoryFollowUp}

// IsValid checks if a category is recognized.
func (c Category) IsValid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryVisit:
		return "Visit"
	case CategoryQuote:
		return "Quote"
	case CategoryCollection:
		return "Collection"
	case CategoryFollowUp:
		return "Follow-up"
	default:
		return string(c)
	}
}

// Status is where a visit is in its lifecycle. Completed is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted
}

var (
	// ErrNotFound is returned when a visit does not exist.
	ErrNotFound = errors.New("visit not found")
	// ErrAlreadyCompleted is returned when completing a visit twice.
	ErrAlreadyCompleted = errors.New("visit already completed")
	// ErrDuplicate is returned when the account already has a visit of the
	// same category in the same date and time slot.
	ErrDuplicate = errors.New("visit already scheduled")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid visit")
)

// Visit is a scheduled appointment with an account.
type Visit struct {
	ID            int64      `json:"id"`
	AccountID     string     `json:"account_id"`
	ScheduledDate string     `json:"scheduled_date"`           // YYYY-MM-DD
	ScheduledTime string     `json:"scheduled_time,omitempty"` // display only
	Category      Category   `json:"category"`
	Status        Status     `json:"status"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Date returns the scheduled date as local midnight. A malformed date yields
// the zero time; records are validated before they are stored.
func (v Visit) Date() time.Time {
	d, err := recency.ParseDate(v.ScheduledDate)
	if err != nil {
		return time.Time{}
	}
	return d
}

// IsPending reports whether the visit is still open.
func (v Visit) IsPending() bool { return v.Status == StatusPending }

// IsCompleted reports whether the visit has been carried out.
func (v Visit) IsCompleted() bool { return v.Status == StatusCompleted }

// Validate checks the fields a stored visit must carry.
func (v Visit) Validate() error {
	if v.AccountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalid)
	}
	if _, err := recency.ParseDate(v.ScheduledDate); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !v.Category.IsValid() {
		return fmt.Errorf("%w: category %q", ErrInvalid, v.Category)
	}
	if !v.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrInvalid, v.Status)
	}
	return nil
}
