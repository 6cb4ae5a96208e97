package qti

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/problem"
)

func esc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// writeItem emits a minimal QTI 2.1 item. Keywords go into the response
// mapping and the explanation into a modal feedback block.
func writeItem(w io.Writer, q problem.Question) error {
	var decl, interaction strings.Builder

	switch q.Type {
	case grading.MultipleChoice:
		correct := ""
		var choices strings.Builder
		for i, o := range q.Options {
			id := string(rune('A' + i))
			if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(q.Answer)) && correct == "" {
				correct = id
			}
			fmt.Fprintf(&choices, "\n      <simpleChoice identifier=\"%s\">%s</simpleChoice>", id, esc(o))
		}
		if correct == "" {
			return fmt.Errorf("answer %q is not one of the options", q.Answer)
		}
		fmt.Fprintf(&decl, `<responseDeclaration identifier="RESPONSE" cardinality="single" baseType="identifier">
    <correctResponse><value>%s</value></correctResponse>
  </responseDeclaration>`, correct)
		fmt.Fprintf(&interaction, `<choiceInteraction responseIdentifier="RESPONSE" maxChoices="1">%s
    </choiceInteraction>`, choices.String())
	case grading.ShortAnswer, grading.Essay:
		var mapping strings.Builder
		for _, k := range q.Keywords {
			fmt.Fprintf(&mapping, "\n      <mapEntry mapKey=\"%s\" mappedValue=\"1\"/>", esc(k))
		}
		fmt.Fprintf(&decl, `<responseDeclaration identifier="RESPONSE" cardinality="single" baseType="string">
    <correctResponse><value>%s</value></correctResponse>
    <mapping defaultValue="0">%s
    </mapping>
  </responseDeclaration>`, esc(q.Answer), mapping.String())
		if q.Type == grading.ShortAnswer {
			interaction.WriteString(`<textEntryInteraction responseIdentifier="RESPONSE"/>`)
		} else {
			interaction.WriteString(`<extendedTextInteraction responseIdentifier="RESPONSE"/>`)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrUnsupported, q.Type)
	}

	feedback := ""
	if q.Explanation != "" {
		feedback = fmt.Sprintf("\n  <modalFeedback outcomeIdentifier=\"FEEDBACK\" identifier=\"EXPLANATION\" showHide=\"show\">%s</modalFeedback>",
			esc(q.Explanation))
	}
	_, err := fmt.Fprintf(w, `%s<assessmentItem identifier="%s" title="%s" adaptive="false" timeDependent="false" xmlns="http://www.imsglobal.org/xsd/imsqti_v2p1">
  %s
  <itemBody>
    <p>%s</p>
    %s
  </itemBody>%s
</assessmentItem>
`, xml.Header, esc(q.ID), esc(q.ID), decl.String(), esc(q.Content), interaction.String(), feedback)
	return err
}
