package checkout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	storefronterrors "github.com/mugbeans/storefront/internal/errors"
)

// Field kinds.
const (
	KindText  = "text"
	KindEmail = "email"
)

// Inline field messages.
const (
	MsgRequired     = "This field is required"
	MsgInvalidEmail = "Please enter a valid email"
)

// Field is one submitted form input.
type Field struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind" validate:"omitempty,oneof=text email"`
	Required bool   `json:"required"`
	Value    string `json:"value"`
}

// FieldErrors maps a field name to its inline message.
type FieldErrors map[string]string

// ValidationError reports every field that blocked a submission.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", storefronterrors.ErrValidation, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error {
	return storefronterrors.ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("storefront_email", isEmail); err != nil {
		panic(fmt.Sprintf("failed to register storefront_email validation: %v", err))
	}
	return v
}

// isEmail accepts values with exactly one "@", a non-empty local part, and a domain that
// contains a "." with at least one character on each side. Whitespace is rejected.
func isEmail(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if strings.ContainsFunc(value, isSpace) {
		return false
	}
	local, domain, ok := strings.Cut(value, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	dot := strings.Index(domain[1:], ".")
	return dot >= 0 && dot+2 < len(domain)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// ValidateFields checks required fields for a non-blank value and email fields for a valid address.
// An optional email field left blank passes.
func ValidateFields(fields []Field) error {
	fieldErrors := FieldErrors{}
	for _, f := range fields {
		if err := validate.Struct(f); err != nil {
			fieldErrors[f.Name] = fmt.Sprintf("failed on rule: %s", firstTag(err))
			continue
		}
		value := strings.TrimSpace(f.Value)
		if f.Required && validate.Var(value, "required") != nil {
			fieldErrors[f.Name] = MsgRequired
			continue
		}
		if f.Kind == KindEmail && value != "" && validate.Var(f.Value, "storefront_email") != nil {
			fieldErrors[f.Name] = MsgInvalidEmail
		}
	}
	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func firstTag(err error) string {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return ve[0].Tag()
	}
	return "invalid"
}
