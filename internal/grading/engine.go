package grading

import (
	"fmt"
	"strings"
)

// Type is the declared kind of a question as far as grading is concerned.
type Type string

const (
	MultipleChoice Type = "multiple_choice"
	ShortAnswer    Type = "short_answer"
	Essay          Type = "essay" // keyword scoring only, no exact-match shortcut
)

// Fixed feedback texts.
const (
	FeedbackEmpty       = "No answer submitted"
	FeedbackCorrect     = "Correct!"
	FeedbackUnknownType = "Unknown question type."
)

// Result is the outcome of grading a single submitted answer.
type Result struct {
	Score    int      `json:"score"`    // 0..100
	Feedback string   `json:"feedback"` // never empty
	Matched  []string `json:"matched_keywords,omitempty"`
}

// Input is everything the engine looks at for one answer.
type Input struct {
	Type      Type
	Canonical string
	Submitted string
	Keywords  []string
}

// Strategy grades one question type. Submitted is guaranteed non-blank.
type Strategy interface {
	Grade(in Input) Result
}

// Engine routes by question type to the correct Strategy.
type Engine struct {
	strategies map[Type]Strategy
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	FullMatchCorrect bool // label a 100% keyword match "Correct!" instead of "Nearly correct!"
}

func WithFullKeywordMatchCorrect(b bool) Option { return func(c *config) { c.FullMatchCorrect = b } }

// NewEngine installs the built-in strategies.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		strategies: map[Type]Strategy{
			MultipleChoice: choiceStrategy{},
			ShortAnswer:    keywordStrategy{exactMatch: true, fullMatchCorrect: cfg.FullMatchCorrect},
			Essay:          keywordStrategy{exactMatch: false, fullMatchCorrect: cfg.FullMatchCorrect},
		},
	}
}

// Grade scores one answer. It never fails: every input maps to a score in
// [0,100] and a non-empty feedback string.
func (e *Engine) Grade(in Input) Result {
	if strings.TrimSpace(in.Submitted) == "" {
		return Result{Score: 0, Feedback: FeedbackEmpty}
	}
	s, ok := e.strategies[in.Type]
	if !ok {
		return Result{Score: 0, Feedback: FeedbackUnknownType}
	}
	res := s.Grade(in)
	res.Score = clamp(res.Score)
	return res
}

var defaultEngine = NewEngine()

// Grade scores an answer with the default engine.
func Grade(t Type, canonical, submitted string, keywords []string) Result {
	return defaultEngine.Grade(Input{Type: t, Canonical: canonical, Submitted: submitted, Keywords: keywords})
}

// --- Strategies ---

type choiceStrategy struct{}

func (choiceStrategy) Grade(in Input) Result {
	if normalize(in.Submitted) == normalize(in.Canonical) {
		return Result{Score: 100, Feedback: FeedbackCorrect}
	}
	return incorrect(in.Canonical)
}

type keywordStrategy struct {
	exactMatch       bool
	fullMatchCorrect bool
}

func (s keywordStrategy) Grade(in Input) Result {
	if s.exactMatch && normalize(in.Submitted) == normalize(in.Canonical) {
		return Result{Score: 100, Feedback: FeedbackCorrect}
	}
	keywords := nonBlank(in.Keywords)
	if len(keywords) == 0 {
		return incorrect(in.Canonical)
	}
	matched := matchKeywords(in.Submitted, keywords)
	score := 100 * len(matched) / len(keywords)
	res := Result{Score: score, Matched: matched}
	found := strings.Join(matched, ", ")
	switch {
	case score == 100 && s.fullMatchCorrect:
		res.Feedback = FeedbackCorrect
	case score >= 80:
		res.Feedback = "Nearly correct! Keywords found: " + found
	case score >= 50:
		res.Feedback = "Partially correct. Keywords found: " + found
	default:
		res.Feedback = fmt.Sprintf("A more precise answer is needed. The correct answer is '%s'.", in.Canonical)
	}
	return res
}

// helpers

func incorrect(canonical string) Result {
	return Result{Score: 0, Feedback: fmt.Sprintf("Incorrect. The correct answer is '%s'.", canonical)}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
