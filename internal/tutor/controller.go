package tutor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/tutorgrade/internal/auth"
	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/metrics"
	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/qti"
	"github.com/mind-engage/tutorgrade/internal/session"
)

var (
	ErrOutOfRange   = errors.New("question index out of range")
	ErrNoProblemSet = errors.New("no problem set loaded; browse first")
)

// Controller drives the login → browse → answer → grade → persist flow.
// It holds no per-user state of its own; everything lives in the session store.
type Controller struct {
	problems    problem.ProblemRepository
	submissions problem.SubmissionRepository
	sessions    session.Store
	users       *auth.Directory
	grader      *grading.Engine
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

type Deps struct {
	Problems    problem.ProblemRepository
	Submissions problem.SubmissionRepository
	Sessions    session.Store
	Users       *auth.Directory
	Grader      *grading.Engine  // optional
	Metrics     *metrics.Metrics // optional
	Log         *zap.Logger      // optional
	Now         func() time.Time // optional
}

func New(d Deps) *Controller {
	c := &Controller{
		problems:    d.Problems,
		submissions: d.Submissions,
		sessions:    d.Sessions,
		users:       d.Users,
		grader:      d.Grader,
		metrics:     d.Metrics,
		log:         d.Log,
		now:         d.Now,
	}
	if c.grader == nil {
		c.grader = grading.NewEngine()
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// View is what a student sees for the current position in their problem set.
type View struct {
	Question problem.Question `json:"question"`
	Index    int              `json:"index"`
	Total    int              `json:"total"`
}

// AnswerResult is a persisted submission plus the explanation to show.
type AnswerResult struct {
	Submission  problem.Submission `json:"submission"`
	Matched     []string           `json:"matched_keywords,omitempty"`
	Explanation string             `json:"explanation,omitempty"`
}

type StudentSummary struct {
	UserID       string  `json:"user_id"`
	UserName     string  `json:"user_name"`
	GradeLevel   string  `json:"grade_level,omitempty"`
	Answered     int     `json:"answered"`
	Correct      int     `json:"correct"`
	AverageScore float64 `json:"average_score"`
}

func (c *Controller) Login(ctx context.Context, userID, password string) (auth.User, session.Session, error) {
	u, err := c.users.Authenticate(userID, password)
	if err != nil {
		c.log.Info("login rejected", zap.String("user_id", userID))
		return auth.User{}, session.Session{}, err
	}
	s, err := c.sessions.Create(ctx, session.Session{
		UserID:     u.ID,
		UserName:   u.Name,
		GradeLevel: u.GradeLevel,
		Role:       u.Role,
	})
	if err != nil {
		return auth.User{}, session.Session{}, fmt.Errorf("create session: %w", err)
	}
	c.log.Info("login", zap.String("user_id", u.ID), zap.String("role", u.Role), zap.String("session_id", s.ID))
	return u, s, nil
}

// Session returns the live session for sid, or session.ErrNotFound once it
// has been logged out or has expired.
func (c *Controller) Session(ctx context.Context, sid string) (session.Session, error) {
	return c.sessions.Get(ctx, sid)
}

func (c *Controller) Logout(ctx context.Context, sid string) error {
	return c.sessions.Delete(ctx, sid)
}

// Browse loads the problems matching f into the session, starting at the first.
func (c *Controller) Browse(ctx context.Context, sid string, f problem.Filter) (session.Session, error) {
	s, err := c.sessions.Get(ctx, sid)
	if err != nil {
		return session.Session{}, err
	}
	qs, err := c.problems.ListProblems(ctx, f)
	if err != nil {
		return session.Session{}, fmt.Errorf("list problems: %w", err)
	}
	s.QuestionIDs = make([]string, 0, len(qs))
	for _, q := range qs {
		s.QuestionIDs = append(s.QuestionIDs, q.ID)
	}
	s.Index = 0
	if err := c.sessions.Save(ctx, s); err != nil {
		return session.Session{}, err
	}
	return s, nil
}

func (c *Controller) Current(ctx context.Context, sid string) (View, error) {
	s, err := c.sessions.Get(ctx, sid)
	if err != nil {
		return View{}, err
	}
	return c.view(ctx, s)
}

// Move jumps to the question at index within the loaded problem set.
func (c *Controller) Move(ctx context.Context, sid string, index int) (View, error) {
	s, err := c.sessions.Get(ctx, sid)
	if err != nil {
		return View{}, err
	}
	if len(s.QuestionIDs) == 0 {
		return View{}, ErrNoProblemSet
	}
	if index < 0 || index >= len(s.QuestionIDs) {
		return View{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, len(s.QuestionIDs))
	}
	s.Index = index
	if err := c.sessions.Save(ctx, s); err != nil {
		return View{}, err
	}
	return c.view(ctx, s)
}

func (c *Controller) view(ctx context.Context, s session.Session) (View, error) {
	id := s.CurrentQuestionID()
	if id == "" {
		return View{}, ErrNoProblemSet
	}
	q, err := c.problems.GetProblem(ctx, id)
	if err != nil {
		return View{}, err
	}
	return View{Question: q.StudentView(), Index: s.Index, Total: len(s.QuestionIDs)}, nil
}

// Answer grades one answer for the session's user and persists it. An empty
// questionID means the session's current question.
func (c *Controller) Answer(ctx context.Context, sid, questionID, answer string) (AnswerResult, error) {
	s, err := c.sessions.Get(ctx, sid)
	if err != nil {
		return AnswerResult{}, err
	}
	if questionID == "" {
		questionID = s.CurrentQuestionID()
		if questionID == "" {
			return AnswerResult{}, ErrNoProblemSet
		}
	}
	q, err := c.problems.GetProblem(ctx, questionID)
	if err != nil {
		return AnswerResult{}, err
	}

	res := c.Grade(q, answer)
	sub := problem.Submission{
		ID:          uuid.NewString(),
		UserID:      s.UserID,
		UserName:    s.UserName,
		GradeLevel:  s.GradeLevel,
		QuestionID:  q.ID,
		Answer:      answer,
		Score:       res.Score,
		Feedback:    res.Feedback,
		SubmittedAt: c.now().UTC(),
	}
	if err := c.submissions.AppendSubmission(ctx, sub); err != nil {
		c.log.Error("persist submission failed",
			zap.String("user_id", s.UserID), zap.String("question_id", q.ID), zap.Error(err))
		return AnswerResult{}, fmt.Errorf("persist submission: %w", err)
	}
	c.metrics.ObserveGrade(string(q.Type), res.Score)
	c.log.Info("answer graded",
		zap.String("user_id", s.UserID),
		zap.String("question_id", q.ID),
		zap.String("type", string(q.Type)),
		zap.Int("score", res.Score))
	return AnswerResult{Submission: sub, Matched: res.Matched, Explanation: q.Explanation}, nil
}

// Grade runs the engine on q without persisting or counting anything.
func (c *Controller) Grade(q problem.Question, answer string) grading.Result {
	res := c.grader.Grade(grading.Input{
		Type:      q.Type,
		Canonical: q.Answer,
		Submitted: answer,
		Keywords:  q.Keywords,
	})
	return res
}

func (c *Controller) Problem(ctx context.Context, id string) (problem.Question, error) {
	return c.problems.GetProblem(ctx, id)
}

func (c *Controller) Problems(ctx context.Context, f problem.Filter) ([]problem.Question, error) {
	return c.problems.ListProblems(ctx, f)
}

// AddProblems validates and stores authored questions.
func (c *Controller) AddProblems(ctx context.Context, qs ...problem.Question) error {
	for _, q := range qs {
		if err := problem.Validate(q); err != nil {
			return err
		}
	}
	if err := c.problems.PutProblems(ctx, qs...); err != nil {
		return fmt.Errorf("store problems: %w", err)
	}
	c.log.Info("problems stored", zap.Int("count", len(qs)))
	return nil
}

// ImportProblems decodes an uploaded question file (CSV, JSON, QTI item or
// QTI package, chosen by filename) and stores it.
func (c *Controller) ImportProblems(ctx context.Context, filename string, data []byte) (int, error) {
	qs, err := qti.DecodeFile(filename, data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", problem.ErrInvalid, err)
	}
	if len(qs) == 0 {
		return 0, nil
	}
	if err := c.AddProblems(ctx, qs...); err != nil {
		return 0, err
	}
	return len(qs), nil
}

// Results lists submissions across students, newest first.
func (c *Controller) Results(ctx context.Context, f problem.SubmissionFilter) ([]problem.Submission, error) {
	return c.submissions.ListSubmissions(ctx, f)
}

// History is one student's own submissions, newest first.
func (c *Controller) History(ctx context.Context, userID string, limit int) ([]problem.Submission, error) {
	return c.submissions.ListSubmissions(ctx, problem.SubmissionFilter{UserID: userID, Limit: limit})
}

// Summary aggregates submissions per student, sorted by user id.
func (c *Controller) Summary(ctx context.Context, f problem.SubmissionFilter) ([]StudentSummary, error) {
	f.Limit = 0
	subs, err := c.submissions.ListSubmissions(ctx, f)
	if err != nil {
		return nil, err
	}
	byUser := map[string]*StudentSummary{}
	totals := map[string]int{}
	for _, s := range subs {
		sum, ok := byUser[s.UserID]
		if !ok {
			sum = &StudentSummary{UserID: s.UserID, UserName: s.UserName, GradeLevel: s.GradeLevel}
			byUser[s.UserID] = sum
		}
		sum.Answered++
		if s.Score >= 100 {
			sum.Correct++
		}
		totals[s.UserID] += s.Score
	}
	out := make([]StudentSummary, 0, len(byUser))
	for id, sum := range byUser {
		sum.AverageScore = float64(totals[id]) / float64(sum.Answered)
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
