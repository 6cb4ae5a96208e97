// Package qti reads and writes IMS QTI 2.x items and content packages as
// question-bank entries.
package qti

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/problem"
)

var ErrUnsupported = errors.New("unsupported qti item")

type assessmentItem struct {
	XMLName      xml.Name            `xml:"assessmentItem"`
	Identifier   string              `xml:"identifier,attr"`
	Title        string              `xml:"title,attr"`
	ResponseDecl responseDeclaration `xml:"responseDeclaration"`
	Body         itemBody            `xml:"itemBody"`
	Feedback     []modalFeedback     `xml:"modalFeedback"`
}

type itemBody struct {
	RawXML string `xml:",innerxml"`
}

type responseDeclaration struct {
	Identifier  string `xml:"identifier,attr"`
	Cardinality string `xml:"cardinality,attr"` // single|multiple
	Correct     struct {
		Values []string `xml:"value"`
	} `xml:"correctResponse"`
	Mapping struct {
		Entries []mapEntry `xml:"mapEntry"`
	} `xml:"mapping"`
}

type mapEntry struct {
	Key   string `xml:"mapKey,attr"`
	Value string `xml:"mappedValue,attr"`
}

type modalFeedback struct {
	Identifier string `xml:"identifier,attr"`
	Inner      string `xml:",innerxml"`
}

// ParseItem maps one assessmentItem document onto a Question. Choice items
// become multiple choice, text entry becomes short answer and extended text
// becomes essay. Mapping keys are read as keywords.
func ParseItem(b []byte) (problem.Question, error) {
	var it assessmentItem
	if err := xml.Unmarshal(b, &it); err != nil {
		return problem.Question{}, fmt.Errorf("qti item: %w", err)
	}
	if it.Identifier == "" {
		return problem.Question{}, errors.New("qti item: missing identifier")
	}
	q := problem.Question{
		ID:      it.Identifier,
		Content: textContent(promptXML(it.Body.RawXML)),
	}
	if q.Content == "" {
		q.Content = it.Title
	}
	correct := it.ResponseDecl.Correct.Values
	for _, e := range it.ResponseDecl.Mapping.Entries {
		if k := strings.TrimSpace(e.Key); k != "" {
			q.Keywords = append(q.Keywords, k)
		}
	}
	// other feedback (per-choice hints and the like) is not an explanation
	for _, f := range it.Feedback {
		if strings.EqualFold(f.Identifier, "EXPLANATION") {
			q.Explanation = textContent(f.Inner)
		}
	}

	body := strings.ToLower(it.Body.RawXML)
	switch {
	case strings.Contains(body, "<choiceinteraction"):
		if it.ResponseDecl.Cardinality == "multiple" {
			return problem.Question{}, fmt.Errorf("%w: %s: multiple-response choice", ErrUnsupported, it.Identifier)
		}
		q.Type = grading.MultipleChoice
		choices := extractChoices(it.Body.RawXML)
		for _, c := range choices {
			q.Options = append(q.Options, c.label)
		}
		// the answer key names a choice identifier; store its label
		if len(correct) > 0 {
			q.Answer = strings.TrimSpace(correct[0])
			for _, c := range choices {
				if c.id == q.Answer {
					q.Answer = c.label
					break
				}
			}
		}
	case strings.Contains(body, "<textentryinteraction"):
		q.Type = grading.ShortAnswer
		if len(correct) > 0 {
			q.Answer = strings.TrimSpace(correct[0])
		}
	case strings.Contains(body, "<extendedtextinteraction"):
		q.Type = grading.Essay
		if len(correct) > 0 {
			q.Answer = strings.TrimSpace(correct[0])
		}
	default:
		return problem.Question{}, fmt.Errorf("%w: %s: no supported interaction", ErrUnsupported, it.Identifier)
	}
	return q, nil
}

// promptXML is the item body up to the first interaction.
func promptXML(inner string) string {
	l := strings.ToLower(inner)
	for _, tag := range []string{"<choiceinteraction", "<textentryinteraction", "<extendedtextinteraction"} {
		if i := strings.Index(l, tag); i >= 0 {
			return inner[:i]
		}
	}
	return inner
}

type choice struct{ id, label string }

// extractChoices reads <simpleChoice identifier="A">label</simpleChoice>.
func extractChoices(inner string) []choice {
	var out []choice
	dec := xml.NewDecoder(strings.NewReader(inner))
	for {
		t, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := t.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "simpleChoice") {
			continue
		}
		var id string
		for _, a := range se.Attr {
			if strings.EqualFold(a.Name.Local, "identifier") {
				id = a.Value
				break
			}
		}
		var text struct {
			Inner string `xml:",innerxml"`
		}
		if err := dec.DecodeElement(&text, &se); err == nil {
			out = append(out, choice{id: id, label: textContent(text.Inner)})
		}
	}
	return out
}

// textContent drops markup and collapses whitespace. Block elements
// separate words; inline ones do not.
func textContent(fragment string) string {
	dec := xml.NewDecoder(strings.NewReader("<x>" + fragment + "</x>"))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	var b strings.Builder
	for {
		t, err := dec.Token()
		if err != nil {
			break
		}
		switch el := t.(type) {
		case xml.CharData:
			b.Write(el)
		case xml.StartElement:
			if blockElements[strings.ToLower(el.Name.Local)] {
				b.WriteByte(' ')
			}
		case xml.EndElement:
			if blockElements[strings.ToLower(el.Name.Local)] {
				b.WriteByte(' ')
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var blockElements = map[string]bool{"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true}
