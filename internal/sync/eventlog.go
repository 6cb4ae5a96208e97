package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const TypeSubmissionGraded = "SubmissionGraded"

type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// Execer lets callers pass *sql.DB or *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Append writes e through tx when given, else directly to the DB.
func (r *EventRepo) Append(ctx context.Context, tx Execer, e Event) error {
	if tx == nil {
		tx = r.db
	}
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// AppendJSON marshals payload into the event data.
func (r *EventRepo) AppendJSON(ctx context.Context, tx Execer, typ, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.Append(ctx, tx, Event{Type: typ, Key: key, DataJSON: string(b)})
}

// Since returns events with Seq > after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadCursor returns the last Seq the named consumer has handled, 0 if none.
func (r *EventRepo) LoadCursor(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `SELECT seq FROM sync_cursor WHERE name=$1`, name).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return seq, err
}

func (r *EventRepo) SaveCursor(ctx context.Context, name string, seq int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_cursor (name, seq, updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (name) DO UPDATE SET seq=EXCLUDED.seq, updated_at=EXCLUDED.updated_at`,
		name, seq, time.Now().Unix())
	return err
}
