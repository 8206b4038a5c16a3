// Package core contains the business logic for the onboarding system: field
// validation, session state, the onboarding controller, and configuration
// loading.
package core

import (
	"regexp"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// Rejection reasons are part of the tool contract; the conversation driver
// speaks them back to the user verbatim.
const (
	ReasonNameEmpty      = "name cannot be empty"
	ReasonNameTooShort   = "name is too short"
	ReasonNameTooLong    = "name is too long"
	ReasonEmailInvalid   = "invalid email format"
	ReasonPhoneInvalid   = "invalid phone number"
	ReasonCountryUnknown = "unrecognized country"
)

// nameMaxLen bounds stored names; anything longer is noise from the
// transcription layer rather than a plausible name.
const nameMaxLen = 100

// phonePattern matches a normalized phone value: optional +, nonzero leading
// digit, 7 to 15 digits total (E.164 numbering norms).
var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// phoneSeparators strips the punctuation people speak or type into phone
// numbers before the digit check.
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// Validator checks raw field values against per-kind format rules. It is
// pure: rejections are values, never errors, and no call mutates anything.
type Validator struct {
	nameMinLen int
	resolver   *CountryResolver
	syntax     *playground.Validate
}

// NewValidator builds a Validator from the validation policy config.
func NewValidator(cfg models.ValidationConfig) *Validator {
	minLen := cfg.NameMinLen
	if minLen < 1 {
		minLen = 1
	}
	return &Validator{
		nameMinLen: minLen,
		resolver:   NewCountryResolver(cfg.CountryFuzzyDistance),
		syntax:     playground.New(),
	}
}

// Validate maps (kind, raw) to an accepted normalized value or a rejection
// reason. A kind outside the enumeration is rejected with a reason naming the
// valid kinds; the controller treats that case as a programming error.
func (v *Validator) Validate(kind models.FieldKind, raw string) models.ValidationOutcome {
	switch kind {
	case models.FieldName:
		return v.validateName(raw)
	case models.FieldEmail:
		return v.validateEmail(raw)
	case models.FieldPhone:
		return v.validatePhone(raw)
	case models.FieldCountry:
		return v.validateCountry(raw)
	}
	return models.Rejected(kind, "unrecognized field: must be one of name, email, phone, country")
}

func (v *Validator) validateName(raw string) models.ValidationOutcome {
	name := strings.TrimSpace(raw)
	if name == "" {
		return models.Rejected(models.FieldName, ReasonNameEmpty)
	}
	if len([]rune(name)) < v.nameMinLen {
		return models.Rejected(models.FieldName, ReasonNameTooShort)
	}
	if len([]rune(name)) > nameMaxLen {
		return models.Rejected(models.FieldName, ReasonNameTooLong)
	}
	return models.Accepted(models.FieldName, name)
}

func (v *Validator) validateEmail(raw string) models.ValidationOutcome {
	email := strings.TrimSpace(raw)
	if err := v.syntax.Var(email, "required,email"); err != nil {
		return models.Rejected(models.FieldEmail, ReasonEmailInvalid)
	}
	// The syntax rule admits dotless domains; require at least one dot.
	at := strings.LastIndex(email, "@")
	if at < 0 || !strings.Contains(email[at+1:], ".") {
		return models.Rejected(models.FieldEmail, ReasonEmailInvalid)
	}
	return models.Accepted(models.FieldEmail, email)
}

func (v *Validator) validatePhone(raw string) models.ValidationOutcome {
	normalized := phoneSeparators.Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(normalized) {
		return models.Rejected(models.FieldPhone, ReasonPhoneInvalid)
	}
	return models.Accepted(models.FieldPhone, normalized)
}

func (v *Validator) validateCountry(raw string) models.ValidationOutcome {
	canonical, ok := v.resolver.Resolve(raw)
	if !ok {
		return models.Rejected(models.FieldCountry, ReasonCountryUnknown)
	}
	return models.Accepted(models.FieldCountry, canonical)
}
