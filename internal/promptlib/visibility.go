package promptlib

// IsVisible reports whether q is shown for the given answers. A question
// without a condition is always visible. Otherwise the referenced answer,
// or "undefined" when it is absent, must equal the condition operand
// exactly. Hidden questions keep their answers.
func IsVisible(q Question, answers Answers) bool {
	if q.ShowIf == nil {
		return true
	}
	got, ok := answers[q.ShowIf.Variable]
	if !ok {
		got = undefinedText
	}
	return got == q.ShowIf.Equals
}

// VisibleQuestions filters qs down to the currently visible questions,
// preserving order.
func VisibleQuestions(qs []Question, answers Answers) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if IsVisible(q, answers) {
			out = append(out, q)
		}
	}
	return out
}
