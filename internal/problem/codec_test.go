package problem

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/tutorgrade/internal/grading"
)

func TestReadQuestions_CSV(t *testing.T) {
	in := "\ufeffID,Subject,Grade,Type,Difficulty,Content,Option1,Option2,Option3,Answer,Keywords,Explanation\n" +
		"q1,english,1,객관식,하,Which is a fruit?,Apple,Chair,,Apple,,\n" +
		"q2,english,1,주관식,중,Describe the flower.,,,,The flower is beautiful.,\"beautiful, flower\",Adjectives.\n" +
		",,,,,,,,,,,\n" +
		"q3,english,2,서술형,상,Write about spring.,,,,Spring is warm.,warm,\n" +
		"q4,english,2,fill_in,,?,,,,x,,\n"

	qs, err := ReadQuestions(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, qs, 4, "blank rows are skipped")

	assert.Equal(t, grading.MultipleChoice, qs[0].Type)
	assert.Equal(t, DifficultyLow, qs[0].Difficulty)
	assert.Equal(t, []string{"Apple", "Chair"}, qs[0].Options)

	assert.Equal(t, grading.ShortAnswer, qs[1].Type)
	assert.Equal(t, []string{"beautiful", "flower"}, qs[1].Keywords)
	assert.Equal(t, "Adjectives.", qs[1].Explanation)

	assert.Equal(t, grading.Essay, qs[2].Type)
	assert.Equal(t, DifficultyHigh, qs[2].Difficulty)

	assert.Equal(t, grading.Type("fill_in"), qs[3].Type, "unknown tokens kept verbatim")
}

func TestReadQuestions_JSON(t *testing.T) {
	in := `  [{"id":"q1","type":"객관식","difficulty":"중","content":"Pick","options":["a","b"],"answer":"a"},
	        {"id":"q2","type":"short_answer","answer":"x","keywords":["x"]}]`
	qs, err := ReadQuestions(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, grading.MultipleChoice, qs[0].Type)
	assert.Equal(t, DifficultyMedium, qs[0].Difficulty)
	assert.Equal(t, grading.ShortAnswer, qs[1].Type)
}

func TestReadQuestions_Errors(t *testing.T) {
	qs, err := ReadQuestions(strings.NewReader("   "))
	require.NoError(t, err)
	assert.Empty(t, qs)

	_, err = ReadQuestions(strings.NewReader("subject,answer\nenglish,x\n"))
	assert.Error(t, err)

	_, err = ReadQuestions(strings.NewReader("[{bad json"))
	assert.Error(t, err)
}

func TestQuestionCSVRoundTrip(t *testing.T) {
	want := []Question{{
		ID: "q1", Subject: "math", GradeLevel: "3", Type: grading.MultipleChoice,
		Difficulty: DifficultyMedium, Content: "2+2?", Options: []string{"3", "4", "5"},
		Answer: "4", Explanation: "Count it.",
	}, {
		ID: "q2", Subject: "english", Type: grading.ShortAnswer, Content: "Say hi, politely",
		Answer: "hello there", Keywords: []string{"hello", "there"},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteQuestionsCSV(&buf, want))
	got, err := ReadQuestions(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSubmissionRecord(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	sub := Submission{ID: "s1", UserID: "u1", UserName: "Minji", GradeLevel: "1",
		QuestionID: "q1", Answer: "Apple", Score: 100, Feedback: "Correct!", SubmittedAt: at}

	got, err := SubmissionFromRecord(NewColumns(SubmissionHeader), SubmissionRecord(sub))
	require.NoError(t, err)
	assert.Equal(t, sub, got)

	_, err = SubmissionFromRecord(NewColumns(SubmissionHeader), []string{"s2", "u1", "", "", "q1", "", "lots"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Question{ID: "q1", Type: grading.ShortAnswer, Answer: "x"}
	tests := []struct {
		name string
		mod  func(q *Question)
		ok   bool
	}{
		{"valid", func(*Question) {}, true},
		{"missing id", func(q *Question) { q.ID = " " }, false},
		{"missing answer", func(q *Question) { q.Answer = "" }, false},
		{"unknown type", func(q *Question) { q.Type = "fill_in" }, false},
		{"mc without options", func(q *Question) { q.Type = grading.MultipleChoice }, false},
		{"mc with options", func(q *Question) { q.Type = grading.MultipleChoice; q.Options = []string{"x", "y"} }, true},
		{"too many options", func(q *Question) {
			q.Type = grading.MultipleChoice
			q.Options = []string{"a", "b", "c", "d", "e", "f"}
		}, false},
		{"keyword with comma", func(q *Question) { q.Keywords = []string{"red", "salt, pepper"} }, false},
		{"plain keywords", func(q *Question) { q.Keywords = []string{"red", "salt and pepper"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ok
			tt.mod(&q)
			err := Validate(q)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestKeywordsSurviveRowEncoding(t *testing.T) {
	kw := []string{"salt and pepper", "red"}
	assert.Equal(t, kw, SplitKeywords(JoinKeywords(kw)))
	assert.Equal(t, []string{"salt", "pepper"}, SplitKeywords(JoinKeywords([]string{"salt, pepper"})),
		"a comma inside a keyword splits it, hence Validate rejects one")
}

func TestFilterAndStudentView(t *testing.T) {
	q := Question{ID: "q1", Subject: "English", GradeLevel: "1", Type: grading.ShortAnswer,
		Answer: "a", Keywords: []string{"a"}, Explanation: "e"}
	assert.True(t, Filter{Subject: "english"}.Match(q))
	assert.False(t, Filter{GradeLevel: "2"}.Match(q))
	assert.False(t, Filter{Type: grading.Essay}.Match(q))

	v := q.StudentView()
	assert.Empty(t, v.Answer)
	assert.Nil(t, v.Keywords)
	assert.Empty(t, v.Explanation)
	assert.Equal(t, "a", q.Answer, "original untouched")
}
