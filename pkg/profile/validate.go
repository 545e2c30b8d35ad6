package profile

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const maxAgeYears = 120

var personNamePattern = regexp.MustCompile(`^[\p{Hebrew}\p{Latin}]+(?:[ '\-\x{05F3}][\p{Hebrew}\p{Latin}]+)*$`)

// fieldRules are validator tags applied to normalized values.
var fieldRules = map[Field]string{
	FieldFirstName:     "required,max=50,personname",
	FieldLastName:      "required,max=50,personname",
	FieldNationalID:    "required,len=9,number",
	FieldGender:        "required,oneof=male female",
	FieldDateOfBirth:   "required,birthdate",
	FieldHMO:           "required,oneof=Clalit Maccabi Meuhedet",
	FieldInsuranceTier: "required,oneof=Gold Silver Bronze",
}

// ValidationError reports a candidate value that failed its field rule.
type ValidationError struct {
	Field  Field
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
	now          = time.Now
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
			return personNamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
			d, err := time.Parse(canonicalDateLayout, fl.Field().String())
			if err != nil {
				return false
			}
			today := now()
			return d.Before(today) && !d.Before(today.AddDate(-maxAgeYears, 0, 0))
		})
		validate = v
	})
	return validate
}

// ValidateField checks an already normalized value against the field's rule.
func ValidateField(f Field, value string) error {
	rule, ok := fieldRules[f]
	if !ok {
		return &ValidationError{Field: f, Value: value, Reason: "unknown field"}
	}
	if err := validatorInstance().Var(value, rule); err != nil {
		reason := err.Error()
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			reason = "failed " + errs[0].Tag()
		}
		return &ValidationError{Field: f, Value: value, Reason: reason}
	}
	return nil
}

// Accept normalizes a raw candidate and validates it, returning the stored form.
func Accept(f Field, raw string) (string, error) {
	value, err := Normalize(f, raw)
	if err != nil {
		return "", err
	}
	if err := ValidateField(f, value); err != nil {
		return "", err
	}
	return value, nil
}
