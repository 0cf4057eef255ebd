package account

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository provides CRUD operations for accounts.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an account repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, name, city, phone, email, classification, frequency, created_at, last_contact_at`

// Save inserts the account, or replaces it when the ID already exists.
// An empty ID gets a fresh UUID and a zero CreatedAt is set to now.
func (r *Repository) Save(a *Account) (*Account, error) {
	if strings.TrimSpace(a.Name) == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if !a.Classification.IsValid() {
		return nil, fmt.Errorf("invalid classification: %q", a.Classification)
	}

	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}
	frequency := a.Frequency
	if frequency == "" {
		frequency = None
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO accounts (id, name, city, phone, email, classification, frequency, created_at, last_contact_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name,
		     city = excluded.city,
		     phone = excluded.phone,
		     email = excluded.email,
		     classification = excluded.classification,
		     frequency = excluded.frequency,
		     last_contact_at = COALESCE(excluded.last_contact_at, accounts.last_contact_at)`,
		id, a.Name, a.City, a.Phone, a.Email, string(a.Classification), string(frequency), createdAt, a.LastContactAt,
	)
	if err != nil {
		return nil, fmt.Errorf("saving account: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns an account by its ID.
func (r *Repository) GetByID(id string) (*Account, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM accounts WHERE id = ?", selectColumns), id)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %s: %w", id, err)
	}
	return a, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Classification Classification // empty = all
}

// List returns accounts ordered by name.
func (r *Repository) List(opts ListOptions) ([]*Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts", selectColumns)
	var args []interface{}
	if opts.Classification != "" {
		query += " WHERE classification = ?"
		args = append(args, string(opts.Classification))
	}
	query += " ORDER BY name COLLATE NOCASE ASC, id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

// MarkContacted records a contact (call, e-mail) with the account at the given time.
func (r *Repository) MarkContacted(id string, at time.Time) error {
	result, err := r.db.Exec("UPDATE accounts SET last_contact_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("updating last contact: %w", err)
	}
	return expectOneRow(result, id)
}

// Delete removes an account by ID. Visits and notes cascade.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanAccount(row interface{ Scan(...interface{}) error }) (*Account, error) {
	var a Account
	var lastContact sql.NullTime
	err := row.Scan(
		&a.ID, &a.Name, &a.City, &a.Phone, &a.Email,
		&a.Classification, &a.Frequency, &a.CreatedAt, &lastContact,
	)
	if err != nil {
		return nil, err
	}
	if lastContact.Valid {
		a.LastContactAt = &lastContact.Time
	}
	return &a, nil
}
