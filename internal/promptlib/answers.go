package promptlib

import "strings"

// Answers maps a question variable to its wire value. Multiselect answers
// are comma-joined labels and checkbox answers are "true" or "false".
type Answers map[string]string

// Clone returns an independent copy of a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// InitialAnswers seeds an answer set from question defaults. Questions are
// visited in render order and a default applies only when its question is
// visible given the defaults applied before it.
func InitialAnswers(qs []Question) Answers {
	answers := Answers{}
	for _, q := range SortQuestions(qs) {
		if q.DefaultValue == nil || *q.DefaultValue == "" {
			continue
		}
		if !IsVisible(q, answers) {
			continue
		}
		answers[q.Variable] = *q.DefaultValue
	}
	return answers
}

// NormalizeAnswers re-encodes every non-blank answer through its question's
// field type, e.g. trimming multiselect labels. Blank answers and answers
// without a matching question are copied unchanged.
func NormalizeAnswers(qs []Question, answers Answers) Answers {
	out := answers.Clone()
	for _, q := range qs {
		raw, ok := answers[q.Variable]
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		out[q.Variable] = q.Type.Decode(raw).Wire()
	}
	return out
}

// Evaluation is the live state of a partially filled form.
type Evaluation struct {
	Visible []string `json:"visible"`
	Missing []string `json:"missing"`
}

// Evaluate reports which questions are visible and which required visible
// questions are still unanswered.
func Evaluate(qs []Question, answers Answers) Evaluation {
	normalized := NormalizeAnswers(qs, answers)
	visible := []string{}
	for _, q := range VisibleQuestions(SortQuestions(qs), normalized) {
		visible = append(visible, q.Variable)
	}
	return Evaluation{Visible: visible, Missing: Validate(qs, normalized)}
}

// Result is the outcome of submitting a form: either a rendered prompt or
// the variables that still need input.
type Result struct {
	OK      bool     `json:"ok"`
	Prompt  string   `json:"prompt,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Submit validates answers against the form and renders the template only
// when nothing visible and required is missing.
func Submit(form Form, answers Answers) Result {
	normalized := NormalizeAnswers(form.Questions, answers)
	if missing := Validate(form.Questions, normalized); len(missing) > 0 {
		return Result{OK: false, Missing: missing}
	}
	return Result{OK: true, Prompt: Render(form.Template, normalized)}
}
