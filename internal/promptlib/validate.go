package promptlib

import "strings"

// Validate returns the variables of visible, required questions whose
// answer is absent or blank, in OrderIndex order. It never reports a
// hidden question.
func Validate(qs []Question, answers Answers) []string {
	missing := []string{}
	for _, q := range SortQuestions(qs) {
		if !IsVisible(q, answers) || !q.Required {
			continue
		}
		raw, ok := answers[q.Variable]
		if !ok || strings.TrimSpace(raw) == "" {
			missing = append(missing, q.Variable)
		}
	}
	return missing
}
