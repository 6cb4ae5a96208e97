// Package gradebook mirrors graded submissions from the SQL event log into a
// second submission repository, typically the teacher-facing spreadsheet.
package gradebook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/tutorgrade/internal/problem"
	syncx "github.com/mind-engage/tutorgrade/internal/sync"
)

const (
	DefaultCursor   = "sheet-mirror"
	DefaultLookback = 100
)

type EventSource interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
	LoadCursor(ctx context.Context, name string) (int64, error)
	SaveCursor(ctx context.Context, name string, seq int64) error
}

// Mirror copies submission events into Target.
//
// Sequence numbers are handed out at insert time, so on Postgres a
// transaction can commit after a later one and land behind the cursor.
// Each pass re-reads Lookback sequence numbers behind the cursor and skips
// submissions already delivered, keyed by submission id.
type Mirror struct {
	Events   EventSource
	Target   problem.SubmissionRepository
	Cursor   string
	Batch    int
	Lookback int64
	Log      *zap.Logger

	delivered map[string]int64 // submission id -> event seq; nil until seeded
}

func New(events EventSource, target problem.SubmissionRepository, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{Events: events, Target: target, Cursor: DefaultCursor, Batch: 100, Lookback: DefaultLookback, Log: log}
}

// SyncOnce copies every event past the cursor, plus any late arrivals in the
// lookback window, and returns how many were mirrored. The cursor advances
// after each delivered event, so a failure part way through resumes at the
// failed event next time.
func (m *Mirror) SyncOnce(ctx context.Context) (int, error) {
	if m.Batch <= 0 {
		m.Batch = 100
	}
	if err := m.seed(ctx); err != nil {
		return 0, err
	}
	cursor, err := m.Events.LoadCursor(ctx, m.Cursor)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	from := max(cursor-m.Lookback, 0)
	total := 0
	for {
		evs, err := m.Events.Since(ctx, from, m.Batch)
		if err != nil {
			return total, fmt.Errorf("read events: %w", err)
		}
		for _, e := range evs {
			if e.Type == syncx.TypeSubmissionGraded {
				n, err := m.deliver(ctx, e, cursor)
				if err != nil {
					return total, err
				}
				total += n
			}
			if e.Seq > cursor {
				if err := m.Events.SaveCursor(ctx, m.Cursor, e.Seq); err != nil {
					return total, fmt.Errorf("save cursor: %w", err)
				}
				cursor = e.Seq
			}
			from = e.Seq
		}
		if len(evs) < m.Batch {
			break
		}
	}
	m.prune(cursor - m.Lookback)
	return total, nil
}

func (m *Mirror) deliver(ctx context.Context, e syncx.Event, cursor int64) (int, error) {
	var sub problem.Submission
	if err := json.Unmarshal([]byte(e.DataJSON), &sub); err != nil {
		m.Log.Warn("skipping undecodable event", zap.Int64("seq", e.Seq), zap.Error(err))
		return 0, nil
	}
	if _, ok := m.delivered[sub.ID]; ok {
		m.delivered[sub.ID] = e.Seq
		return 0, nil
	}
	if err := m.Target.AppendSubmission(ctx, sub); err != nil {
		return 0, fmt.Errorf("mirror submission %s: %w", sub.ID, err)
	}
	if e.Seq <= cursor {
		m.Log.Info("mirrored late event", zap.Int64("seq", e.Seq), zap.String("submission_id", sub.ID))
	}
	m.delivered[sub.ID] = e.Seq
	return 1, nil
}

// seed loads the ids already in Target once per Mirror, so a restart does
// not append the lookback window a second time.
func (m *Mirror) seed(ctx context.Context) error {
	if m.delivered != nil {
		return nil
	}
	subs, err := m.Target.ListSubmissions(ctx, problem.SubmissionFilter{})
	if err != nil {
		return fmt.Errorf("list mirrored submissions: %w", err)
	}
	m.delivered = make(map[string]int64, len(subs))
	for _, s := range subs {
		m.delivered[s.ID] = 0
	}
	return nil
}

// prune forgets ids whose events can no longer come back into the window.
func (m *Mirror) prune(below int64) {
	for id, seq := range m.delivered {
		if seq <= below {
			delete(m.delivered, id)
		}
	}
}

// Run syncs every interval until ctx is done. Errors are logged, not fatal.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := m.SyncOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			m.Log.Error("gradebook mirror failed", zap.Int("mirrored", n), zap.Error(err))
		case n > 0:
			m.Log.Info("gradebook mirrored", zap.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
