package grading

import "strings"

// normalize trims surrounding whitespace and case-folds.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// matchKeywords returns the keywords, in declared order, whose lowercase form
// occurs as a substring of the lowercased answer.
func matchKeywords(answer string, keywords []string) []string {
	low := strings.ToLower(answer)
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if strings.Contains(low, strings.ToLower(k)) {
			out = append(out, k)
		}
	}
	return out
}

func nonBlank(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
