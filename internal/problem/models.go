package problem

import (
	"strings"
	"time"

	"github.com/mind-engage/tutorgrade/internal/grading"
)

// MaxOptions is the number of option columns a multiple-choice question can fill.
const MaxOptions = 5

type Difficulty string

const (
	DifficultyHigh   Difficulty = "high"
	DifficultyMedium Difficulty = "medium"
	DifficultyLow    Difficulty = "low"
)

type Question struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject,omitempty"`
	GradeLevel  string       `json:"grade_level,omitempty"`
	Type        grading.Type `json:"type"` // multiple_choice, short_answer, essay
	Difficulty  Difficulty   `json:"difficulty,omitempty"`
	Content     string       `json:"content"`
	Options     []string     `json:"options,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	Keywords    []string     `json:"keywords,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
}

// StudentView hides everything a student could use to look up the answer.
func (q Question) StudentView() Question {
	q.Answer = ""
	q.Keywords = nil
	q.Explanation = ""
	return q
}

type Submission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	GradeLevel  string    `json:"grade_level,omitempty"`
	QuestionID  string    `json:"question_id"`
	Answer      string    `json:"answer"`
	Score       int       `json:"score"`
	Feedback    string    `json:"feedback"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Filter struct {
	Subject    string
	GradeLevel string
	Type       grading.Type
}

// Match reports whether q passes every non-empty filter field.
func (f Filter) Match(q Question) bool {
	if f.Subject != "" && !strings.EqualFold(f.Subject, q.Subject) {
		return false
	}
	if f.GradeLevel != "" && !strings.EqualFold(f.GradeLevel, q.GradeLevel) {
		return false
	}
	if f.Type != "" && f.Type != q.Type {
		return false
	}
	return true
}

type SubmissionFilter struct {
	UserID     string
	QuestionID string
	Limit      int // 0 = no limit; newest first
}

func (f SubmissionFilter) Match(s Submission) bool {
	if f.UserID != "" && f.UserID != s.UserID {
		return false
	}
	if f.QuestionID != "" && f.QuestionID != s.QuestionID {
		return false
	}
	return true
}

// ParseType maps the English and Korean type tokens used in question sheets.
// Unrecognized tokens are returned as-is so the grader can report them.
func ParseType(s string) grading.Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiple_choice", "multiple choice", "mcq", "mc", "객관식":
		return grading.MultipleChoice
	case "short_answer", "short answer", "short", "주관식", "단답형":
		return grading.ShortAnswer
	case "essay", "서술형":
		return grading.Essay
	}
	return grading.Type(strings.TrimSpace(s))
}

func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "hard", "상":
		return DifficultyHigh
	case "medium", "mid", "중":
		return DifficultyMedium
	case "low", "easy", "하":
		return DifficultyLow
	}
	return ""
}

// SplitKeywords parses the comma-joined keyword column.
func SplitKeywords(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func JoinKeywords(kw []string) string { return strings.Join(kw, ", ") }
