package note

import (
	"database/sql"
	"fmt"
	"strings"
)

// Repository provides CRUD operations for notes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a note repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Add records a note on an account.
func (r *Repository) Add(accountID, text, author string) (*Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("note text is required")
	}

	result, err := r.db.Exec(
		"INSERT INTO notes (account_id, text, author) VALUES (?, ?, ?)",
		accountID, text, author,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	var n Note
	err = r.db.QueryRow(
		"SELECT id, account_id, text, author, created_at FROM notes WHERE id = ?", id,
	).Scan(&n.ID, &n.AccountID, &n.Text, &n.Author, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading back note: %w", err)
	}

	return &n, nil
}

// ListByAccountID returns all notes for an account, newest first.
func (r *Repository) ListByAccountID(accountID string) (notes []*Note, err error) {
	rows, err := r.db.Query(
		"SELECT id, account_id, text, author, created_at FROM notes WHERE account_id = ? ORDER BY id DESC",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Text, &n.Author, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}

	return notes, nil
}

// Delete removes a note by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}

	return nil
}
