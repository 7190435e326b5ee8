// Package promptlib resolves, evaluates and renders prompt library forms.
//
// Everything in this package is a pure function over in-memory values.
// Persistence, authorization and presentation live elsewhere.
package promptlib

import (
	"strconv"
	"strings"
)

// FieldType is the closed set of question input types.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
)

// FieldTypes lists every field type in display order.
var FieldTypes = []FieldType{
	FieldText,
	FieldTextarea,
	FieldNumber,
	FieldSelect,
	FieldMultiSelect,
	FieldCheckbox,
}

// ParseFieldType maps a stored type name onto a FieldType. Unknown names
// report false; callers decide whether that is an error or a fallback.
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FieldTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// UsesOptions reports whether the options list is meaningful for t.
func (t FieldType) UsesOptions() bool {
	switch t {
	case FieldSelect, FieldMultiSelect:
		return true
	case FieldText, FieldTextarea, FieldNumber, FieldCheckbox:
		return false
	}
	panic("promptlib: unknown field type " + string(t))
}

// Decode converts a wire answer into a typed value for t.
func (t FieldType) Decode(raw string) Value {
	switch t {
	case FieldText, FieldTextarea, FieldSelect:
		return decodeText(raw)
	case FieldNumber:
		return decodeNumber(raw)
	case FieldMultiSelect:
		return decodeList(raw)
	case FieldCheckbox:
		return decodeBool(raw)
	}
	panic("promptlib: unknown field type " + string(t))
}

func decodeText(raw string) Value {
	return TextValue(raw)
}

func decodeNumber(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return TextValue(raw)
	}
	return NumberValue(f, trimmed)
}

func decodeBool(raw string) Value {
	return BoolValue(raw == "true")
}

func decodeList(raw string) Value {
	var labels []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			labels = append(labels, p)
		}
	}
	return ListValue(labels)
}
