// Package models defines the shared data model for the onboarding system:
// field kinds, validation outcomes, transcript entries, session records,
// and configuration types.
package models

import "fmt"

// FieldKind identifies one of the four onboarding data points.
type FieldKind string

const (
	FieldName    FieldKind = "name"
	FieldEmail   FieldKind = "email"
	FieldPhone   FieldKind = "phone"
	FieldCountry FieldKind = "country"
)

// AllFieldKinds returns the fixed collection order: name, email, phone, country.
// Summaries and prompts follow this order.
func AllFieldKinds() []FieldKind {
	return []FieldKind{FieldName, FieldEmail, FieldPhone, FieldCountry}
}

// ParseFieldKind maps a raw field name to a FieldKind. An unknown name is a
// caller programming error, not a validation failure.
func ParseFieldKind(s string) (FieldKind, error) {
	switch FieldKind(s) {
	case FieldName, FieldEmail, FieldPhone, FieldCountry:
		return FieldKind(s), nil
	}
	return "", fmt.Errorf("unrecognized field %q: must be one of name, email, phone, country", s)
}

// Label returns the human-readable form of the field kind for prompts
// and summaries.
func (k FieldKind) Label() string {
	switch k {
	case FieldName:
		return "Name"
	case FieldEmail:
		return "Email"
	case FieldPhone:
		return "Phone"
	case FieldCountry:
		return "Country"
	}
	return string(k)
}

// ValidationOutcome is the result of checking a raw value against a field's
// format rule. Exactly one of Value or Reason is meaningful: Value holds the
// normalized accepted value, Reason the rejection explanation.
type ValidationOutcome struct {
	Kind     FieldKind
	Accepted bool
	Value    string
	Reason   string
}

// Accepted builds a successful outcome carrying the normalized value.
func Accepted(kind FieldKind, value string) ValidationOutcome {
	return ValidationOutcome{Kind: kind, Accepted: true, Value: value}
}

// Rejected builds a failed outcome carrying the rejection reason.
func Rejected(kind FieldKind, reason string) ValidationOutcome {
	return ValidationOutcome{Kind: kind, Reason: reason}
}
