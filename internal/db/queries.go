package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/iapod/internal/errors"
)

// Run is one reconciliation pass.
type Run struct {
	ID         string `json:"id"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
	Entries    int    `json:"entries"`
	Unchanged  int    `json:"unchanged"`
	Updated    int    `json:"updated"`
	Published  int    `json:"published"`
	Skipped    int    `json:"skipped"`
	Truncated  bool   `json:"truncated"`
}

// Delivery is one channel attempt for one episode.
type Delivery struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// DeliveryFilter narrows ListDeliveries. Zero fields match everything.
type DeliveryFilter struct {
	Identifier string
	Channel    string
	RunID      string
	Limit      int
}

const defaultListLimit = 50

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID string. IDs from one process sort in creation order.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// StartRun inserts a new run row and returns it.
func StartRun(ctx context.Context, db *sql.DB) (*Run, error) {
	r := &Run{ID: NewID(), StartedAt: time.Now().Unix()}
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		r.ID, r.StartedAt,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// FinishRun stores the final counters of r and stamps finished_at.
func FinishRun(ctx context.Context, db *sql.DB, r *Run) error {
	r.FinishedAt = time.Now().Unix()
	res, err := db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, entries = ?, unchanged = ?, updated = ?,
			published = ?, skipped = ?, truncated = ?
		WHERE id = ?`,
		r.FinishedAt, r.Entries, r.Unchanged, r.Updated, r.Published, r.Skipped, boolToInt(r.Truncated),
		r.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound(r.ID)
	}
	return nil
}

// InsertDelivery records one channel attempt. ID and CreatedAt are filled when empty.
func InsertDelivery(ctx context.Context, db *sql.DB, d *Delivery) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().Unix()
	}
	var errText sql.NullString
	if d.Error != "" {
		errText = sql.NullString{String: d.Error, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO deliveries (id, run_id, identifier, channel, ok, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RunID, d.Identifier, d.Channel, boolToInt(d.OK), errText, d.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func GetRun(ctx context.Context, db *sql.DB, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, entries, unchanged, updated, published, skipped, truncated
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, entries, unchanged, updated, published, skipped, truncated
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// ListDeliveries returns matching deliveries, most recent first.
func ListDeliveries(ctx context.Context, db *sql.DB, f DeliveryFilter) ([]Delivery, error) {
	query := `SELECT id, run_id, identifier, channel, ok, error, created_at FROM deliveries WHERE 1=1`
	var args []any
	if f.Identifier != "" {
		query += " AND identifier = ?"
		args = append(args, f.Identifier)
	}
	if f.Channel != "" {
		query += " AND channel = ?"
		args = append(args, f.Channel)
	}
	if f.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, f.RunID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	deliveries := []Delivery{}
	for rows.Next() {
		var (
			d       Delivery
			ok      int
			errText sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.RunID, &d.Identifier, &d.Channel, &ok, &errText, &d.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		d.OK = ok != 0
		d.Error = errText.String
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return deliveries, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r         Run
		finished  sql.NullInt64
		truncated int
	)
	err := s.Scan(&r.ID, &r.StartedAt, &finished, &r.Entries, &r.Unchanged,
		&r.Updated, &r.Published, &r.Skipped, &truncated)
	if err != nil {
		return nil, err
	}
	r.FinishedAt = finished.Int64
	r.Truncated = truncated != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
