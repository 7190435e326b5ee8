// Package bundle reads and writes prompt catalogue bundles: workspaces,
// legacy templates and prompt libraries described in YAML, TOML or JSON.
package bundle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
)

// Bundle is a portable description of a prompt catalogue.
type Bundle struct {
	Workspaces []Workspace `json:"workspaces,omitempty" yaml:"workspaces,omitempty" toml:"workspaces,omitempty"`
	Templates  []Template  `json:"templates,omitempty" yaml:"templates,omitempty" toml:"templates,omitempty"`
	Libraries  []Library   `json:"libraries,omitempty" yaml:"libraries,omitempty" toml:"libraries,omitempty"`
}

type Workspace struct {
	Slug string `json:"slug" yaml:"slug" toml:"slug"`
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
}

type Template struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Content     string `json:"content" yaml:"content" toml:"content"`
	Enabled     *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Default     bool   `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
}

type Library struct {
	Name        string     `json:"name" yaml:"name" toml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Template    string     `json:"template" yaml:"template" toml:"template"`
	Enabled     *bool      `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Workspaces  []string   `json:"workspaces,omitempty" yaml:"workspaces,omitempty" toml:"workspaces,omitempty"`
	Questions   []Question `json:"questions,omitempty" yaml:"questions,omitempty" toml:"questions,omitempty"`
}

type Question struct {
	Variable    string               `json:"variable" yaml:"variable" toml:"variable"`
	Label       string               `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Type        string               `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Placeholder string               `json:"placeholder,omitempty" yaml:"placeholder,omitempty" toml:"placeholder,omitempty"`
	Required    *bool                `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	Options     []string             `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	Default     *Scalar              `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Order       *int                 `json:"order,omitempty" yaml:"order,omitempty" toml:"order,omitempty"`
	ShowIf      *promptlib.Condition `json:"show_if,omitempty" yaml:"show_if,omitempty" toml:"show_if,omitempty"`
}

// Scalar is a default value written as a string, number or boolean.
// It keeps the textual form answers are compared against.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	*s = Scalar(strings.TrimSpace(string(b)))
	return nil
}

// Spec converts a bundle question into admin input for the definition checks.
func (q Question) Spec() promptlib.QuestionSpec {
	spec := promptlib.QuestionSpec{
		Variable:    q.Variable,
		Label:       q.Label,
		Type:        q.Type,
		Placeholder: q.Placeholder,
		Required:    q.Required,
		Options:     q.Options,
		OrderIndex:  q.Order,
		ShowIf:      q.ShowIf,
	}
	if q.Default != nil {
		s := string(*q.Default)
		spec.DefaultValue = &s
	}
	return spec
}

// Specs converts every question of the library.
func (l Library) Specs() []promptlib.QuestionSpec {
	specs := make([]promptlib.QuestionSpec, 0, len(l.Questions))
	for _, q := range l.Questions {
		specs = append(specs, q.Spec())
	}
	return specs
}

// FromTemplate describes a stored template.
func FromTemplate(t models.PromptTemplate) Template {
	enabled := t.Enabled
	return Template{
		Name:        t.Name,
		Description: deref(t.Description),
		Content:     t.Content,
		Enabled:     &enabled,
		Default:     t.IsDefault,
	}
}

// FromLibrary describes a stored library scoped to the given workspace slugs.
func FromLibrary(lib models.PromptLibrary, workspaceSlugs []string) Library {
	enabled := lib.Enabled
	out := Library{
		Name:        lib.Name,
		Description: deref(lib.Description),
		Template:    lib.Template,
		Enabled:     &enabled,
		Workspaces:  workspaceSlugs,
	}
	for _, m := range lib.Questions {
		q := promptlib.QuestionFromModel(m)
		required, order := q.Required, q.OrderIndex
		bq := Question{
			Variable:    q.Variable,
			Label:       q.Label,
			Type:        string(q.Type),
			Placeholder: q.Placeholder,
			Required:    &required,
			Order:       &order,
			ShowIf:      q.ShowIf,
		}
		if len(q.Options) > 0 {
			bq.Options = q.Options
		}
		if q.DefaultValue != nil {
			d := Scalar(*q.DefaultValue)
			bq.Default = &d
		}
		out.Questions = append(out.Questions, bq)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// check enforces the cross-entry rules the schema cannot express.
func (b *Bundle) check() error {
	var problems []string

	slugs := map[string]bool{}
	for _, ws := range b.Workspaces {
		if slugs[ws.Slug] {
			problems = append(problems, fmt.Sprintf("workspace %q listed twice", ws.Slug))
		}
		slugs[ws.Slug] = true
	}

	defaults := 0
	names := map[string]bool{}
	for _, t := range b.Templates {
		if t.Default {
			defaults++
		}
		if names[t.Name] {
			problems = append(problems, fmt.Sprintf("template %q listed twice", t.Name))
		}
		names[t.Name] = true
	}
	if defaults > 1 {
		problems = append(problems, fmt.Sprintf("%d templates are marked default, at most one is allowed", defaults))
	}

	names = map[string]bool{}
	for _, l := range b.Libraries {
		if names[l.Name] {
			problems = append(problems, fmt.Sprintf("library %q listed twice", l.Name))
		}
		names[l.Name] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid bundle: %s", strings.Join(problems, "; "))
	}
	return nil
}
