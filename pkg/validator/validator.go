package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// CustomValidators are registered on every validate instance, including
// gin's binding engine.
var CustomValidators = map[string]validator.Func{
	"hhmm":     validateClock,
	"schedule": validateSchedule,
	"notblank": validateNotBlank,
}

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type validate struct {
	v *validator.Validate
}

func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range CustomValidators {
		// Tags are static; a failure here is a programming error.
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return &validate{v: v}
}

func (v *validate) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, describe(e))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// IsClock reports whether s is a 24h HH:MM time.
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

func validateClock(fl validator.FieldLevel) bool {
	return IsClock(fl.Field().String())
}

// validateNotBlank rejects values made only of whitespace. The value itself
// is stored as given.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateSchedule accepts a comma-separated list of at least one HH:MM time.
func validateSchedule(fl validator.FieldLevel) bool {
	n := 0
	for _, part := range strings.Split(fl.Field().String(), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !IsClock(part) {
			return false
		}
		n++
	}
	return n > 0
}

func describe(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "hhmm":
		return fmt.Sprintf("%s must be HH:MM, got %q", field, e.Value())
	case "schedule":
		return fmt.Sprintf("%s must be comma-separated HH:MM times", field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	default:
		return fmt.Sprintf("%s failed %s", field, e.Tag())
	}
}
