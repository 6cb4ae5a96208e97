package problem

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	syncx "github.com/mind-engage/tutorgrade/internal/sync"
)

// SQLStore keeps questions and submissions in SQLite or Postgres. Every
// appended submission also lands in the event log within the same transaction.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	events *syncx.EventRepo
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, events: syncx.NewEventRepo(db)}
}

const questionCols = `id,subject,grade_level,type,difficulty,content,options_json,answer,keywords,explanation`

func (s *SQLStore) PutProblems(ctx context.Context, qs ...Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := time.Now().Unix()
	for _, q := range qs {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO problems (`+questionCols+`,position,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,(SELECT COALESCE(MAX(position),0)+1 FROM problems),$11)
			ON CONFLICT (id) DO UPDATE SET subject=EXCLUDED.subject, grade_level=EXCLUDED.grade_level,
			  type=EXCLUDED.type, difficulty=EXCLUDED.difficulty, content=EXCLUDED.content,
			  options_json=EXCLUDED.options_json, answer=EXCLUDED.answer, keywords=EXCLUDED.keywords,
			  explanation=EXCLUDED.explanation`,
			q.ID, q.Subject, q.GradeLevel, string(q.Type), string(q.Difficulty), q.Content,
			string(opts), q.Answer, JoinKeywords(q.Keywords), q.Explanation, now)
		if err != nil {
			return fmt.Errorf("upsert problem %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetProblem(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM problems WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, fmt.Errorf("problem %q: %w", id, ErrNotFound)
	}
	return q, err
}

func (s *SQLStore) ListProblems(ctx context.Context, f Filter) ([]Question, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Subject != "" {
		add("LOWER(subject)=LOWER($%d)", f.Subject)
	}
	if f.GradeLevel != "" {
		add("LOWER(grade_level)=LOWER($%d)", f.GradeLevel)
	}
	if f.Type != "" {
		add("type=$%d", string(f.Type))
	}
	q := `SELECT ` + questionCols + ` FROM problems`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY position, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendSubmission(ctx context.Context, sub Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO submissions
		(id,user_id,user_name,grade_level,problem_id,answer,score,feedback,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sub.ID, sub.UserID, sub.UserName, sub.GradeLevel, sub.QuestionID,
		sub.Answer, sub.Score, sub.Feedback, sub.SubmittedAt.UnixMilli())
	if err != nil {
		return err
	}
	if err := s.events.AppendJSON(ctx, tx, syncx.TypeSubmissionGraded, sub.ID, sub); err != nil {
		return fmt.Errorf("event log: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if f.QuestionID != "" {
		args = append(args, f.QuestionID)
		where = append(where, fmt.Sprintf("problem_id=$%d", len(args)))
	}
	q := `SELECT id,user_id,user_name,grade_level,problem_id,answer,score,feedback,submitted_at FROM submissions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY submitted_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		var sub Submission
		var ms int64
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.UserName, &sub.GradeLevel, &sub.QuestionID,
			&sub.Answer, &sub.Score, &sub.Feedback, &ms); err != nil {
			return nil, err
		}
		sub.SubmittedAt = time.UnixMilli(ms).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Events exposes the submission event log for downstream consumers.
func (s *SQLStore) Events() *syncx.EventRepo { return s.events }

func (s *SQLStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var typ, diff, opts, keywords string
	if err := r.Scan(&q.ID, &q.Subject, &q.GradeLevel, &typ, &diff, &q.Content,
		&opts, &q.Answer, &keywords, &q.Explanation); err != nil {
		return Question{}, err
	}
	q.Type = ParseType(typ)
	q.Difficulty = Difficulty(diff)
	q.Keywords = SplitKeywords(keywords)
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		q.Options = nil
	}
	return q, nil
}
