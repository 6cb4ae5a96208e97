package tutor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/tutorgrade/internal/auth"
	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/metrics"
	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/qti"
	"github.com/mind-engage/tutorgrade/internal/session"
)

var seed = []problem.Question{
	{
		ID: "q1", Subject: "english", GradeLevel: "1", Type: grading.MultipleChoice,
		Content: "Which one is a fruit?", Options: []string{"Apple", "Chair", "Cloud"},
		Answer: "Apple", Explanation: "An apple grows on a tree.",
	},
	{
		ID: "q2", Subject: "english", GradeLevel: "1", Type: grading.ShortAnswer,
		Content: "Describe the flower.", Answer: "The flower is beautiful.",
		Keywords: []string{"beautiful", "flower"},
	},
	{
		ID: "q3", Subject: "grammar", GradeLevel: "2", Type: grading.ShortAnswer,
		Content: "Article for elephant?", Answer: "an elephant", Keywords: []string{"an elephant"},
	},
}

type fixture struct {
	ctl     *Controller
	store   *problem.LocalFileStore
	metrics *metrics.Metrics
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := problem.NewLocalFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.PutProblems(context.Background(), seed...))

	users, err := auth.NewDirectory([]auth.User{
		{ID: "s1", Name: "Minji", GradeLevel: "1", Role: "student", Password: "pw"},
		{ID: "s2", Name: "Joon", GradeLevel: "2", Role: "student", Password: "pw"},
	})
	require.NoError(t, err)

	f := &fixture{store: store, metrics: metrics.New(), now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	f.ctl = New(Deps{
		Problems:    store,
		Submissions: store,
		Sessions:    session.NewMemoryStore(time.Hour, nil),
		Users:       users,
		Metrics:     f.metrics,
		Now: func() time.Time {
			f.now = f.now.Add(time.Second)
			return f.now
		},
	})
	return f
}

func TestController_FullFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.ctl.Login(ctx, "s1", "nope")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	u, s, err := f.ctl.Login(ctx, "s1", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Minji", u.Name)

	_, err = f.ctl.Current(ctx, s.ID)
	require.ErrorIs(t, err, ErrNoProblemSet)

	s, err = f.ctl.Browse(ctx, s.ID, problem.Filter{Subject: "English"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, s.QuestionIDs)

	v, err := f.ctl.Current(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "q1", v.Question.ID)
	assert.Equal(t, 2, v.Total)
	assert.Empty(t, v.Question.Answer, "answer must be hidden")
	assert.Empty(t, v.Question.Explanation)
	assert.Equal(t, []string{"Apple", "Chair", "Cloud"}, v.Question.Options)

	res, err := f.ctl.Answer(ctx, s.ID, "", "apple")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Submission.Score)
	assert.Equal(t, "Correct!", res.Submission.Feedback)
	assert.Equal(t, "An apple grows on a tree.", res.Explanation)
	assert.Equal(t, "s1", res.Submission.UserID)
	assert.Equal(t, "1", res.Submission.GradeLevel)

	v, err = f.ctl.Move(ctx, s.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "q2", v.Question.ID)
	assert.Empty(t, v.Question.Keywords)

	res, err = f.ctl.Answer(ctx, s.ID, "", "beautiful flower")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Submission.Score)
	assert.Equal(t, "Nearly correct! Keywords found: beautiful, flower", res.Submission.Feedback)
	assert.Equal(t, []string{"beautiful", "flower"}, res.Matched)

	_, err = f.ctl.Move(ctx, s.ID, 2)
	require.ErrorIs(t, err, ErrOutOfRange)

	subs, err := f.ctl.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "q2", subs[0].QuestionID, "newest first")

	require.NoError(t, f.ctl.Logout(ctx, s.ID))
	_, err = f.ctl.Current(ctx, s.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestController_AnswerExplicitQuestionAndEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, s, err := f.ctl.Login(ctx, "s2", "pw")
	require.NoError(t, err)

	_, err = f.ctl.Answer(ctx, s.ID, "", "x")
	require.ErrorIs(t, err, ErrNoProblemSet)

	res, err := f.ctl.Answer(ctx, s.ID, "q3", "a elephant")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Submission.Score)
	assert.Equal(t, "A more precise answer is needed. The correct answer is 'an elephant'.", res.Submission.Feedback)

	res, err = f.ctl.Answer(ctx, s.ID, "q3", "")
	require.NoError(t, err)
	assert.Equal(t, "No answer submitted", res.Submission.Feedback)

	_, err = f.ctl.Answer(ctx, s.ID, "missing", "x")
	require.ErrorIs(t, err, problem.ErrNotFound)
}

func TestController_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, s1, _ := f.ctl.Login(ctx, "s1", "pw")
	_, s2, _ := f.ctl.Login(ctx, "s2", "pw")

	_, err := f.ctl.Answer(ctx, s1.ID, "q1", "Apple")
	require.NoError(t, err)
	_, err = f.ctl.Answer(ctx, s1.ID, "q1", "Chair")
	require.NoError(t, err)
	_, err = f.ctl.Answer(ctx, s2.ID, "q3", "an elephant")
	require.NoError(t, err)

	sum, err := f.ctl.Summary(ctx, problem.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, sum, 2)
	assert.Equal(t, StudentSummary{UserID: "s1", UserName: "Minji", GradeLevel: "1", Answered: 2, Correct: 1, AverageScore: 50}, sum[0])
	assert.Equal(t, StudentSummary{UserID: "s2", UserName: "Joon", GradeLevel: "2", Answered: 1, Correct: 1, AverageScore: 100}, sum[1])
}

func TestController_AddAndImportProblems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.ctl.AddProblems(ctx, problem.Question{ID: "bad", Type: grading.ShortAnswer})
	require.ErrorIs(t, err, problem.ErrInvalid)

	csv := "id,subject,grade,type,difficulty,content,option1,option2,answer,keywords,explanation\n" +
		"q9,english,3,객관식,상,Pick the verb,run,blue,run,,Run is an action.\n"
	n, err := f.ctl.ImportProblems(ctx, "week3.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q, err := f.ctl.Problem(ctx, "q9")
	require.NoError(t, err)
	assert.Equal(t, grading.MultipleChoice, q.Type)
	assert.Equal(t, problem.DifficultyHigh, q.Difficulty)

	pkg, err := qti.PackageBytes([]problem.Question{
		{ID: "z1", Type: grading.ShortAnswer, Content: "Plural of cat?", Answer: "cats"},
	})
	require.NoError(t, err)
	n, err = f.ctl.ImportProblems(ctx, "unit2.zip", pkg)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.ctl.ImportProblems(ctx, "broken.xml", []byte("<assessmentItem"))
	require.ErrorIs(t, err, problem.ErrInvalid)

	all, err := f.ctl.Problems(ctx, problem.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestController_GradeWithFullMatchOption(t *testing.T) {
	f := newFixture(t)
	f.ctl.grader = grading.NewEngine(grading.WithFullKeywordMatchCorrect(true))
	res := f.ctl.Grade(seed[1], "beautiful flower")
	assert.Equal(t, grading.Result{Score: 100, Feedback: "Correct!", Matched: []string{"beautiful", "flower"}}, res)
}

func TestController_OnlySubmittedAnswersAreCounted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		res := f.ctl.Grade(seed[0], "Apple")
		assert.Equal(t, 100, res.Score)
	}
	assert.Equal(t, 0, testutil.CollectAndCount(f.metrics.Graded), "previews are not counted")

	_, s, err := f.ctl.Login(ctx, "s1", "pw")
	require.NoError(t, err)
	_, err = f.ctl.Answer(ctx, s.ID, "q1", "Apple")
	require.NoError(t, err)
	_, err = f.ctl.Answer(ctx, s.ID, "q2", "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Graded.WithLabelValues(string(grading.MultipleChoice), "correct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Graded.WithLabelValues(string(grading.ShortAnswer), "incorrect")))
}

func TestController_SessionEndsAtLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, s, err := f.ctl.Login(ctx, "s2", "pw")
	require.NoError(t, err)

	got, err := f.ctl.Session(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "s2", got.UserID)

	require.NoError(t, f.ctl.Logout(ctx, s.ID))
	_, err = f.ctl.Session(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
