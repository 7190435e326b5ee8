package promptlib

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nebari-dev/promptlib/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	identRe      = regexp.MustCompile(`^\w+$`)
)

// NormalizeVariable trims a variable name, replaces whitespace runs with
// underscores and lowercases it.
func NormalizeVariable(s string) string {
	return cases.Lower(language.Und).String(whitespaceRe.ReplaceAllString(strings.TrimSpace(s), "_"))
}

// QuestionSpec is an admin-supplied question before normalization.
type QuestionSpec struct {
	Variable     string     `json:"variable"`
	Label        string     `json:"label"`
	Type         string     `json:"type"`
	Placeholder  string     `json:"placeholder"`
	Required     *bool      `json:"required"`
	Options      []string   `json:"options"`
	DefaultValue *string    `json:"default_value"`
	OrderIndex   *int       `json:"order_index"`
	ShowIf       *Condition `json:"show_if"`
}

// Definition is an admin-supplied library body.
type Definition struct {
	Name      string
	Template  string
	Questions []QuestionSpec
}

// DefinitionError lists every problem that prevents a definition from
// being stored.
type DefinitionError struct {
	Problems []string
}

func (e *DefinitionError) Error() string {
	return "invalid prompt library: " + strings.Join(e.Problems, "; ")
}

// CheckDefinition normalizes the questions of def and reports fatal
// problems as a *DefinitionError. Warnings describe conditions that are
// allowed but probably unintended, such as placeholders with no question.
func CheckDefinition(def Definition) ([]Question, []string, error) {
	var problems, warnings []string

	if strings.TrimSpace(def.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(def.Template) == "" {
		problems = append(problems, "template is required")
	}

	qs := make([]Question, 0, len(def.Questions))
	seen := map[string]bool{}
	for i, spec := range def.Questions {
		q, p := buildQuestion(i, spec)
		problems = append(problems, p...)
		if q.Variable == "" {
			continue
		}
		if seen[q.Variable] {
			problems = append(problems, fmt.Sprintf("question %d: duplicate variable %q", i+1, q.Variable))
			continue
		}
		seen[q.Variable] = true
		if !identRe.MatchString(q.Variable) {
			warnings = append(warnings, fmt.Sprintf("variable %q is not a word identifier and can never be substituted", q.Variable))
		}
		qs = append(qs, q)
	}

	for _, q := range qs {
		if q.ShowIf != nil && !seen[q.ShowIf.Variable] {
			warnings = append(warnings, fmt.Sprintf("question %q is shown only when unknown variable %q equals %q, so it is always hidden", q.Variable, q.ShowIf.Variable, q.ShowIf.Equals))
		}
	}
	for _, name := range Placeholders(def.Template) {
		if !seen[name] {
			warnings = append(warnings, fmt.Sprintf("placeholder {{%s}} has no matching question", name))
		}
	}

	if len(problems) > 0 {
		return nil, warnings, &DefinitionError{Problems: problems}
	}
	return SortQuestions(qs), warnings, nil
}

func buildQuestion(i int, spec QuestionSpec) (Question, []string) {
	var problems []string
	q := Question{
		Variable:   NormalizeVariable(spec.Variable),
		Label:      strings.TrimSpace(spec.Label),
		Required:   spec.Required == nil || *spec.Required,
		Options:    []string{},
		OrderIndex: i,
	}
	if q.Variable == "" {
		problems = append(problems, fmt.Sprintf("question %d: variable is required", i+1))
	}

	typeName := spec.Type
	if strings.TrimSpace(typeName) == "" {
		typeName = string(FieldText)
	}
	t, ok := ParseFieldType(typeName)
	if !ok {
		problems = append(problems, fmt.Sprintf("question %d: unknown type %q", i+1, spec.Type))
		t = FieldText
	}
	q.Type = t

	if p := strings.TrimSpace(spec.Placeholder); p != "" {
		q.Placeholder = p
	}
	if spec.DefaultValue != nil && *spec.DefaultValue != "" {
		v := *spec.DefaultValue
		q.DefaultValue = &v
	}
	if spec.OrderIndex != nil {
		q.OrderIndex = *spec.OrderIndex
	}
	if t.UsesOptions() {
		for _, opt := range spec.Options {
			if opt = strings.TrimSpace(opt); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
	}
	if spec.ShowIf != nil {
		if name := NormalizeVariable(spec.ShowIf.Variable); name != "" {
			q.ShowIf = &Condition{Variable: name, Equals: spec.ShowIf.Equals}
		}
	}
	if q.ShowIf != nil && q.Variable != "" && q.ShowIf.Variable == q.Variable {
		problems = append(problems, fmt.Sprintf("question %d: %q cannot depend on itself", i+1, q.Variable))
	}
	return q, problems
}

// QuestionToModel encodes a normalized question for storage under libraryID.
func QuestionToModel(libraryID uint, q Question) models.PromptLibraryQuestion {
	m := models.PromptLibraryQuestion{
		LibraryID:    libraryID,
		Variable:     q.Variable,
		Label:        q.Label,
		Type:         string(q.Type),
		Required:     q.Required,
		DefaultValue: q.DefaultValue,
		OrderIndex:   q.OrderIndex,
		ShowIf:       EncodeShowIf(q.ShowIf),
	}
	if q.Placeholder != "" {
		p := q.Placeholder
		m.Placeholder = &p
	}
	if q.Type.UsesOptions() {
		m.Options = EncodeOptions(q.Options)
	}
	return m
}
