package qti

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/problem"
)

const choiceItem = `<?xml version="1.0" encoding="UTF-8"?>
<assessmentItem identifier="fruit-1" title="Fruit" xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1">
  <responseDeclaration identifier="RESPONSE" cardinality="single" baseType="identifier">
    <correctResponse><value>B</value></correctResponse>
  </responseDeclaration>
  <itemBody>
    <p>Which one is a <b>fruit</b>?</p>
    <choiceInteraction responseIdentifier="RESPONSE" maxChoices="1">
      <simpleChoice identifier="A">Chair</simpleChoice>
      <simpleChoice identifier="B">Apple</simpleChoice>
    </choiceInteraction>
  </itemBody>
  <modalFeedback outcomeIdentifier="FEEDBACK" identifier="EXPLANATION" showHide="show">Apples grow on trees.</modalFeedback>
</assessmentItem>`

func TestParseItem_Choice(t *testing.T) {
	q, err := ParseItem([]byte(choiceItem))
	require.NoError(t, err)
	assert.Equal(t, problem.Question{
		ID:          "fruit-1",
		Type:        grading.MultipleChoice,
		Content:     "Which one is a fruit?",
		Options:     []string{"Chair", "Apple"},
		Answer:      "Apple",
		Explanation: "Apples grow on trees.",
	}, q)
}

func TestParseItem_OnlyExplanationFeedbackIsKept(t *testing.T) {
	tests := []struct {
		name     string
		feedback string
		want     string
	}{
		{"hint only", `<modalFeedback identifier="HINT">Think of trees.</modalFeedback>`, ""},
		{"hint then explanation", `<modalFeedback identifier="HINT">Think of trees.</modalFeedback>
  <modalFeedback identifier="explanation">Apples grow on trees.</modalFeedback>`, "Apples grow on trees."},
		{"none", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(choiceItem,
				`<modalFeedback outcomeIdentifier="FEEDBACK" identifier="EXPLANATION" showHide="show">Apples grow on trees.</modalFeedback>`,
				tt.feedback, 1)
			q, err := ParseItem([]byte(doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Explanation)
		})
	}
}

func TestParseItem_Unsupported(t *testing.T) {
	multi := `<assessmentItem identifier="m1"><responseDeclaration cardinality="multiple"/>
	<itemBody><choiceInteraction><simpleChoice identifier="A">x</simpleChoice></choiceInteraction></itemBody></assessmentItem>`
	_, err := ParseItem([]byte(multi))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = ParseItem([]byte(`<assessmentItem identifier="h1"><itemBody><hotspotInteraction/></itemBody></assessmentItem>`))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = ParseItem([]byte(`<assessmentItem><itemBody/></assessmentItem>`))
	assert.Error(t, err)
}

func TestPackageRoundTrip(t *testing.T) {
	want := []problem.Question{
		{ID: "q1", Type: grading.MultipleChoice, Content: "Pick the verb & noun?",
			Options: []string{"run", "blue <b>"}, Answer: "run", Explanation: "Run is an action."},
		{ID: "q2", Type: grading.ShortAnswer, Content: "Describe the flower.",
			Answer: "The flower is beautiful.", Keywords: []string{"beautiful", "flower"}},
		{ID: "q3", Type: grading.Essay, Content: "Write about spring.",
			Answer: "Spring is warm.", Keywords: []string{"warm"}},
	}
	b, err := PackageBytes(want)
	require.NoError(t, err)

	got, err := DecodeFile("bank.ZIP", b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWritePackage_RejectsAnswerOutsideOptions(t *testing.T) {
	_, err := PackageBytes([]problem.Question{{ID: "q1", Type: grading.MultipleChoice,
		Options: []string{"a", "b"}, Answer: "c"}})
	assert.Error(t, err)
}

func TestReadPackage_MissingManifest(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("q1.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ReadPackage(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.Error(t, err)
}

func TestDecodeFile_FallsBackToCSV(t *testing.T) {
	qs, err := DecodeFile("bank.csv", []byte("id,type,answer\nq1,서술형,x\n"))
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, grading.Essay, qs[0].Type)

	qs, err = DecodeFile("one.xml", []byte(choiceItem))
	require.NoError(t, err)
	assert.Equal(t, "fruit-1", qs[0].ID)
}
