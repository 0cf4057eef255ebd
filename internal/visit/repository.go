package visit

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository provides CRUD operations for scheduled visits.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a visit repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, account_id, scheduled_date, scheduled_time, category, status, notes, created_at, completed_at`

// Add schedules a new pending visit for an account.
func (r *Repository) Add(accountID, scheduledDate, scheduledTime string, category Category, notes string) (*Visit, error) {
	return r.Insert(&Visit{
		AccountID:     accountID,
		ScheduledDate: scheduledDate,
		ScheduledTime: scheduledTime,
		Category:      category,
		Status:        StatusPending,
		Notes:         notes,
	})
}

// Insert stores a visit as given, including already completed ones coming
// from an import, and returns it with its generated ID. A visit in a slot
// the account already holds is not stored and yields ErrDuplicate.
func (r *Repository) Insert(v *Visit) (*Visit, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}

	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO visits (account_id, scheduled_date, scheduled_time, category, status, notes, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, scheduled_date, scheduled_time, category) DO NOTHING`,
		v.AccountID, v.ScheduledDate, v.ScheduledTime, string(v.Category), string(v.Status), v.Notes, createdAt, v.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s %s on %s: %w", v.AccountID, v.Category, v.ScheduledDate, ErrDuplicate)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns a visit by its ID.
func (r *Repository) GetByID(id int64) (*Visit, error) {
	row := r.db.QueryRow(fmt.Sprintf("SELECT %s FROM visits WHERE id = ?", selectColumns), id)

	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visit %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying visit %d: %w", id, err)
	}
	return v, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Status    Status // empty = all
	AccountID string // empty = all
}

// List returns visits ordered by scheduled date, earliest first.
func (r *Repository) List(opts ListOptions) ([]*Visit, error) {
	query := fmt.Sprintf("SELECT %s FROM visits", selectColumns)
	var args []interface{}
	var conditions []string

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, opts.AccountID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scheduled_date ASC, id ASC"

	return r.query(query, args...)
}

// ListByAccountID returns all visits for an account, newest first.
func (r *Repository) ListByAccountID(accountID string) ([]*Visit, error) {
	return r.query(
		fmt.Sprintf("SELECT %s FROM visits WHERE account_id = ? ORDER BY scheduled_date DESC, id DESC", selectColumns),
		accountID,
	)
}

// LastCompletedByAccount returns the latest completed scheduled date for
// each account that has one. Returns a map of account_id -> YYYY-MM-DD.
func (r *Repository) LastCompletedByAccount() (map[string]string, error) {
	rows, err := r.db.Query(
		`SELECT account_id, MAX(scheduled_date) FROM visits
		 WHERE status = ? GROUP BY account_id`,
		string(StatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("querying last visits: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	result := make(map[string]string)
	for rows.Next() {
		var accountID, date string
		if err := rows.Scan(&accountID, &date); err != nil {
			return nil, fmt.Errorf("scanning last visit: %w", err)
		}
		result[accountID] = date
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating last visits: %w", err)
	}

	return result, nil
}

// Complete marks a pending visit as completed and stores the outcome notes.
// Completed visits are terminal: completing one again returns ErrAlreadyCompleted.
func (r *Repository) Complete(id int64, notes string, at time.Time) (*Visit, error) {
	result, err := r.db.Exec(
		"UPDATE visits SET status = ?, notes = ?, completed_at = ? WHERE id = ? AND status = ?",
		string(StatusCompleted), notes, at, id, string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("completing visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		existing, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		if existing.IsCompleted() {
			return nil, fmt.Errorf("visit %d: %w", id, ErrAlreadyCompleted)
		}
		return nil, fmt.Errorf("visit %d was not updated", id)
	}

	return r.GetByID(id)
}

// Delete removes a visit by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM visits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("visit %d: %w", id, ErrNotFound)
	}

	return nil
}

func (r *Repository) query(query string, args ...interface{}) ([]*Visit, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}

	return visits, nil
}

func scanVisit(row interface{ Scan(...interface{}) error }) (*Visit, error) {
	var v Visit
	var completedAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.AccountID, &v.ScheduledDate, &v.ScheduledTime,
		&v.Category, &v.Status, &v.Notes, &v.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		v.CompletedAt = &completedAt.Time
	}
	return &v, nil
}
