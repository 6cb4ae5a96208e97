package problem

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Column layout shared by the CSV files and the spreadsheet tabs.
var (
	QuestionHeader = []string{
		"id", "subject", "grade", "type", "difficulty", "content",
		"option1", "option2", "option3", "option4", "option5",
		"answer", "keywords", "explanation",
	}
	SubmissionHeader = []string{
		"id", "user_id", "user_name", "grade", "problem_id",
		"answer", "score", "feedback", "submitted_at",
	}
)

// Columns maps header names to positions. Lookups are case-insensitive.
type Columns map[string]int

func NewColumns(header []string) Columns {
	c := make(Columns, len(header))
	for i, h := range header {
		c[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return c
}

func (c Columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func QuestionFromRecord(cols Columns, rec []string) Question {
	q := Question{
		ID:          cols.get(rec, "id"),
		Subject:     cols.get(rec, "subject"),
		GradeLevel:  cols.get(rec, "grade"),
		Type:        ParseType(cols.get(rec, "type")),
		Difficulty:  ParseDifficulty(cols.get(rec, "difficulty")),
		Content:     cols.get(rec, "content"),
		Answer:      cols.get(rec, "answer"),
		Keywords:    SplitKeywords(cols.get(rec, "keywords")),
		Explanation: cols.get(rec, "explanation"),
	}
	for i := 1; i <= MaxOptions; i++ {
		if o := cols.get(rec, "option"+strconv.Itoa(i)); o != "" {
			q.Options = append(q.Options, o)
		}
	}
	return q
}

func QuestionRecord(q Question) []string {
	rec := []string{q.ID, q.Subject, q.GradeLevel, string(q.Type), string(q.Difficulty), q.Content}
	for i := 0; i < MaxOptions; i++ {
		o := ""
		if i < len(q.Options) {
			o = q.Options[i]
		}
		rec = append(rec, o)
	}
	return append(rec, q.Answer, JoinKeywords(q.Keywords), q.Explanation)
}

func SubmissionFromRecord(cols Columns, rec []string) (Submission, error) {
	s := Submission{
		ID:         cols.get(rec, "id"),
		UserID:     cols.get(rec, "user_id"),
		UserName:   cols.get(rec, "user_name"),
		GradeLevel: cols.get(rec, "grade"),
		QuestionID: cols.get(rec, "problem_id"),
		Answer:     cols.get(rec, "answer"),
		Feedback:   cols.get(rec, "feedback"),
	}
	if v := cols.get(rec, "score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Submission{}, fmt.Errorf("submission %s: score %q: %w", s.ID, v, err)
		}
		s.Score = n
	}
	if v := cols.get(rec, "submitted_at"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Submission{}, fmt.Errorf("submission %s: submitted_at %q: %w", s.ID, v, err)
		}
		s.SubmittedAt = ts
	}
	return s, nil
}

func SubmissionRecord(s Submission) []string {
	return []string{
		s.ID, s.UserID, s.UserName, s.GradeLevel, s.QuestionID,
		s.Answer, strconv.Itoa(s.Score), s.Feedback, s.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// ReadQuestions decodes a question file. JSON arrays are detected by the
// first non-space byte; anything else is read as CSV with a header row.
func ReadQuestions(r io.Reader) ([]Question, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		if b[0] == '[' {
			var qs []Question
			if err := json.NewDecoder(br).Decode(&qs); err != nil {
				return nil, fmt.Errorf("decode questions json: %w", err)
			}
			for i := range qs {
				qs[i].Type = ParseType(string(qs[i].Type))
				qs[i].Difficulty = ParseDifficulty(string(qs[i].Difficulty))
			}
			return qs, nil
		}
		break
	}
	return readQuestionsCSV(br)
}

func readQuestionsCSV(r io.Reader) ([]Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	// tolerate a UTF-8 BOM from spreadsheet exports
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols := NewColumns(header)
	if _, ok := cols["id"]; !ok {
		return nil, errors.New("csv header must include an id column")
	}
	var out []Question
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		q := QuestionFromRecord(cols, rec)
		if q.ID == "" {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// WriteQuestionsCSV writes qs with the standard header.
func WriteQuestionsCSV(w io.Writer, qs []Question) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(QuestionHeader); err != nil {
		return err
	}
	for _, q := range qs {
		if err := cw.Write(QuestionRecord(q)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSubmissionsCSV writes ss with the standard header.
func WriteSubmissionsCSV(w io.Writer, ss []Submission) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SubmissionHeader); err != nil {
		return err
	}
	for _, s := range ss {
		if err := cw.Write(SubmissionRecord(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
