package promptlib

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// undefinedText is how an absent answer or condition operand compares.
// It deliberately differs from "", "false" and "null".
const undefinedText = "undefined"

// Condition shows a question only while another question's answer equals
// a fixed value. Equals holds the operand in string form.
type Condition struct {
	Variable string `json:"variable" yaml:"variable" toml:"variable"`
	Equals   string `json:"equals" yaml:"equals" toml:"equals"`
}

// NewCondition builds a condition from a decoded operand of any scalar type.
func NewCondition(variable string, equals any) *Condition {
	return ParseShowIf(map[string]any{"variable": variable, "equals": equals})
}

// UnmarshalJSON accepts a non-string operand, e.g. {"equals": true}.
func (c *Condition) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*c = Condition{}
	if parsed := ParseShowIf(m); parsed != nil {
		*c = *parsed
	}
	return nil
}

// ParseOptions decodes a stored options field. raw may be a JSON string
// or byte slice, or an already decoded list. Anything malformed yields an
// empty list.
func ParseOptions(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringify(item))
		}
		return out
	case *string:
		if v == nil {
			return []string{}
		}
		return ParseOptions(*v)
	case string:
		return ParseOptions([]byte(v))
	case []byte:
		if len(strings.TrimSpace(string(v))) == 0 {
			return []string{}
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return []string{}
		}
		if list, ok := decoded.([]any); ok {
			return ParseOptions(list)
		}
	}
	return []string{}
}

// ParseShowIf decodes a stored showIf field into a Condition, or nil when
// the field is empty, malformed, or names no variable.
func ParseShowIf(raw any) *Condition {
	switch v := raw.(type) {
	case nil:
		return nil
	case *Condition:
		if v == nil || v.Variable == "" {
			return nil
		}
		c := *v
		return &c
	case Condition:
		return ParseShowIf(&v)
	case *string:
		if v == nil {
			return nil
		}
		return ParseShowIf(*v)
	case string:
		return ParseShowIf([]byte(v))
	case []byte:
		if len(strings.TrimSpace(string(v))) == 0 {
			return nil
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil
		}
		if m, ok := decoded.(map[string]any); ok {
			return ParseShowIf(m)
		}
	case map[string]any:
		name, _ := v["variable"].(string)
		if name == "" {
			return nil
		}
		equals, present := v["equals"]
		c := &Condition{Variable: name, Equals: undefinedText}
		if present {
			c.Equals = stringify(equals)
		}
		return c
	}
	return nil
}

// EncodeOptions produces the stored form of an options list; an empty
// list is stored as NULL.
func EncodeOptions(options []string) *string {
	if len(options) == 0 {
		return nil
	}
	b, err := json.Marshal(options)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// EncodeShowIf produces the stored form of a condition.
func EncodeShowIf(c *Condition) *string {
	if c == nil || c.Variable == "" {
		return nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// stringify renders a decoded JSON value the way it compares against answers.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return formatNumber(f)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			if item == nil {
				continue
			}
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	}
	return ""
}

// formatNumber renders f in the shortest round-trip form, switching to
// exponent notation below 1e-6 and from 1e21 up, e.g. "1e+21" and "1.5e-7".
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// AnswersFromJSON converts decoded JSON answers to wire form. Strings pass
// through; numbers, booleans and null take their string form, so true
// becomes "true" and null becomes "null".
func AnswersFromJSON(raw map[string]any) Answers {
	out := make(Answers, len(raw))
	for k, v := range raw {
		out[k] = stringify(v)
	}
	return out
}
