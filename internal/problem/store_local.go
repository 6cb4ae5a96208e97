package problem

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	problemsCSV    = "problems.csv"
	problemsJSON   = "problems.json"
	submissionsCSV = "submissions.csv"
)

// LocalFileStore keeps questions and submissions in flat files under one
// directory. Questions are loaded once and rewritten on every upsert;
// submissions are appended to a CSV file.
type LocalFileStore struct {
	dir string

	mu       sync.RWMutex
	useJSON  bool
	order    []string
	problems map[string]Question
}

func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &LocalFileStore{dir: dir, problems: map[string]Question{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalFileStore) load() error {
	path := filepath.Join(s.dir, problemsJSON)
	if _, err := os.Stat(path); err == nil {
		s.useJSON = true
	} else {
		path = filepath.Join(s.dir, problemsCSV)
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	qs, err := ReadQuestions(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	for _, q := range qs {
		s.put(q)
	}
	return nil
}

func (s *LocalFileStore) put(q Question) {
	if _, ok := s.problems[q.ID]; !ok {
		s.order = append(s.order, q.ID)
	}
	s.problems[q.ID] = q
}

func (s *LocalFileStore) ListProblems(_ context.Context, f Filter) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Question, 0, len(s.order))
	for _, id := range s.order {
		if q := s.problems[id]; f.Match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *LocalFileStore) GetProblem(_ context.Context, id string) (Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.problems[id]
	if !ok {
		return Question{}, fmt.Errorf("problem %q: %w", id, ErrNotFound)
	}
	return q, nil
}

func (s *LocalFileStore) PutProblems(_ context.Context, qs ...Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		s.put(q)
	}
	all := make([]Question, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.problems[id])
	}
	if s.useJSON {
		return writeFileAtomic(filepath.Join(s.dir, problemsJSON), func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(all)
		})
	}
	return writeFileAtomic(filepath.Join(s.dir, problemsCSV), func(w io.Writer) error {
		return WriteQuestionsCSV(w, all)
	})
}

func (s *LocalFileStore) AppendSubmission(_ context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dir, submissionsCSV)
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	if errors.Is(statErr, os.ErrNotExist) {
		if err := cw.Write(SubmissionHeader); err != nil {
			return err
		}
	}
	if err := cw.Write(SubmissionRecord(sub)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (s *LocalFileStore) ListSubmissions(_ context.Context, f SubmissionFilter) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, err := os.Open(filepath.Join(s.dir, submissionsCSV))
	if errors.Is(err, os.ErrNotExist) {
		return []Submission{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Submission{}, nil
	}
	if err != nil {
		return nil, err
	}
	cols := NewColumns(header)
	out := []Submission{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		sub, err := SubmissionFromRecord(cols, rec)
		if err != nil {
			return nil, err
		}
		if f.Match(sub) {
			out = append(out, sub)
		}
	}
	return newestFirst(out, f.Limit), nil
}

func (s *LocalFileStore) Close() error { return nil }

// newestFirst sorts by SubmittedAt descending and applies limit (0 = all).
func newestFirst(ss []Submission, limit int) []Submission {
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].SubmittedAt.After(ss[j].SubmittedAt) })
	if limit > 0 && len(ss) > limit {
		ss = ss[:limit]
	}
	return ss
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
