package environment

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// ErrInvalidEnvironment wraps every validation failure returned by New and Validate.
var ErrInvalidEnvironment = errors.New("invalid environment")

// FieldError describes one field that failed validation.
type FieldError struct {
	Field string
	Rule  string
	Value string
}

func (e *FieldError) Error() string {
	switch e.Rule {
	case "notblank":
		return fmt.Sprintf("%s must not be empty", e.Field)
	case "http_url":
		return fmt.Sprintf("%s must be an absolute http(s) URL, got %q", e.Field, e.Value)
	case "hostname_rfc1123":
		return fmt.Sprintf("%s must be a bare host name without scheme or path, got %q", e.Field, e.Value)
	default:
		return fmt.Sprintf("%s failed %s check", e.Field, e.Rule)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report wire names such as auth0.clientId instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", isNotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

func isNotBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	return strings.TrimSpace(field.String()) != ""
}

// ValidationError lists every field of a Settings value that failed
// validation. It matches ErrInvalidEnvironment with errors.Is.
type ValidationError struct {
	Fields []*FieldError
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidEnvironment, e.err)
}

// Is reports whether target is ErrInvalidEnvironment.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEnvironment
}

// Unwrap exposes the individual field errors.
func (e *ValidationError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Validate checks s against the record invariants and reports every failing
// field at once.
func Validate(s Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidEnvironment, err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		field := &FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Value: fmt.Sprint(fe.Value()),
		}
		out.Fields = append(out.Fields, field)
		out.err = multierr.Append(out.err, field)
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
