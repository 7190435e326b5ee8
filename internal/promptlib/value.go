package promptlib

import (
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindBool
	KindList
)

// Value is a decoded answer. Answers travel as strings; Value gives the
// validator and renderer an explicit type to work with.
type Value struct {
	Kind ValueKind
	Text string
	Num  float64
	Bool bool
	List []string
}

// TextValue wraps free text.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NumberValue wraps a parsed number together with the text it was parsed from.
func NumberValue(f float64, text string) Value {
	return Value{Kind: KindNumber, Num: f, Text: text}
}

// BoolValue wraps a checkbox state.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// ListValue wraps selected option labels.
func ListValue(labels []string) Value { return Value{Kind: KindList, List: labels} }

// Wire encodes the value back to its string form.
func (v Value) Wire() string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindList:
		return strings.Join(v.List, ", ")
	case KindNumber, KindText:
		return v.Text
	}
	return v.Text
}
