package promptlib

import (
	"sort"

	"github.com/nebari-dev/promptlib/internal/models"
)

// Question is the decoded view of a stored library question.
type Question struct {
	Variable     string     `json:"variable"`
	Label        string     `json:"label"`
	Type         FieldType  `json:"type"`
	Placeholder  string     `json:"placeholder,omitempty"`
	Required     bool       `json:"required"`
	Options      []string   `json:"options"`
	DefaultValue *string    `json:"default_value,omitempty"`
	OrderIndex   int        `json:"order_index"`
	ShowIf       *Condition `json:"show_if,omitempty"`
}

// Form is a library's template body together with its ordered questions.
type Form struct {
	Template  string
	Questions []Question
}

// QuestionFromModel decodes a stored question. An unknown type degrades to
// text and malformed options or conditions degrade to none.
func QuestionFromModel(m models.PromptLibraryQuestion) Question {
	t, ok := ParseFieldType(m.Type)
	if !ok {
		t = FieldText
	}
	q := Question{
		Variable:     m.Variable,
		Label:        m.Label,
		Type:         t,
		Required:     m.Required,
		Options:      []string{},
		DefaultValue: m.DefaultValue,
		OrderIndex:   m.OrderIndex,
		ShowIf:       ParseShowIf(m.ShowIf),
	}
	if m.Placeholder != nil {
		q.Placeholder = *m.Placeholder
	}
	if t.UsesOptions() {
		q.Options = ParseOptions(m.Options)
	}
	return q
}

// FormFromModel builds the form for a library with its questions in
// render order.
func FormFromModel(lib models.PromptLibrary) Form {
	qs := make([]Question, 0, len(lib.Questions))
	for _, m := range lib.Questions {
		qs = append(qs, QuestionFromModel(m))
	}
	return Form{Template: lib.Template, Questions: SortQuestions(qs)}
}

// SortQuestions returns a copy of qs stably sorted by OrderIndex.
func SortQuestions(qs []Question) []Question {
	out := append([]Question(nil), qs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}
