// Package account provides the account (customer or prospect) domain model,
// its data access, and the visit-cadence health rules.
package account

import (
	"errors"
	"time"
)

// Classification is the commercial relationship with an account.
type Classification string

const (
	ActiveCustomer Classification = "active_customer"
	Prospect       Classification = "prospect"
	Inactive       Classification = "inactive"
)

// ValidClassifications is the set of allowed classifications.
var ValidClassifications = []Classification{ActiveCustomer, Prospect, Inactive}

// IsValid checks if a classification is recognized.
func (c Classification) IsValid() bool {
	for _, v := range ValidClassifications {
		if c == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the classification.
func (c Classification) Label() string {
	switch c {
	case ActiveCustomer:
		return "Customer"
	case Prospect:
		return "Prospect"
	case Inactive:
		return "Inactive"
	default:
		return string(c)
	}
}

// Frequency is the expected visit cadence for an account.
type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	None     Frequency = "none"
)

// ValidFrequencies is the set of recognized frequency policies.
var ValidFrequencies = []Frequency{Weekly, Biweekly, Monthly, None}

// IsValid checks if a frequency is recognized.
func (f Frequency) IsValid() bool {
	for _, v := range ValidFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the frequency.
func (f Frequency) Label() string {
	switch f {
	case Weekly:
		return "Weekly"
	case Biweekly:
		return "Every two weeks"
	case Monthly:
		return "Monthly"
	case None, "":
		return "No cadence"
	default:
		return string(f)
	}
}

// Deadline returns the date by which the next visit is due after last.
// Weekly adds 7 days, biweekly 15 days and monthly one calendar month.
// The second result is false for None and for unrecognized values.
func (f Frequency) Deadline(last time.Time) (time.Time, bool) {
	switch f {
	case Weekly:
		return last.AddDate(0, 0, 7), true
	case Biweekly:
		return last.AddDate(0, 0, 15), true
	case Monthly:
		return last.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("account not found")

// Account is a customer or prospect tracked for sales follow-up.
type Account struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	City           string         `json:"city,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	Classification Classification `json:"classification"`
	Frequency      Frequency      `json:"frequency"`
	CreatedAt      time.Time      `json:"created_at"`
	LastContactAt  *time.Time     `json:"last_contact_at,omitempty"`
}
