// Package note provides follow-up notes on accounts and their data access.
package note

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a note does not exist.
var ErrNotFound = errors.New("note not found")

// Note is a free-text follow-up entry recorded against an account.
type Note struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
