package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

// TagName matches gin's binding tags so one set of struct tags serves both
// request binding and service-level checks.
const TagName = "binding"

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules string) error
}

type structValidator struct {
	v *validator.Validate
}

func New() Validator {
	v := validator.New()
	v.SetTagName(TagName)
	RegisterRules(v)
	return &structValidator{v: v}
}

// RegisterRules installs the domain tags on v. The router calls it on gin's
// own engine as well.
func RegisterRules(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", validateHHMM)
	_ = v.RegisterValidation("weekday", validateWeekday)
}

// validateHHMM accepts zero-padded 24h times only, the form slot times are
// stored and compared in.
func validateHHMM(fl validator.FieldLevel) bool {
	return IsHHMM(fl.Field().String())
}

func IsHHMM(s string) bool {
	if len(s) != 5 {
		return false
	}
	t, err := time.Parse("15:04", s)
	return err == nil && t.Format("15:04") == s
}

func validateWeekday(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d := fl.Field().Int()
		return d >= 0 && d <= 6
	}
	return false
}

func (s *structValidator) Validate(obj interface{}) error {
	if err := s.v.Struct(obj); err != nil {
		return Translate(err)
	}
	return nil
}

func (s *structValidator) ValidateField(field string, value interface{}, rules string) error {
	if err := s.v.Var(value, rules); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return apperrors.Validation(fmt.Sprintf("%s failed on %s", field, errs[0].Tag()), err)
		}
		return apperrors.Validation(field+" is invalid", err)
	}
	return nil
}

// Translate reports the first failing field in a readable form. Errors
// that are not validation failures, such as malformed JSON from request
// binding, become a generic VALIDATION error.
func Translate(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return apperrors.Validation("invalid request", err)
	}
	fe := errs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "hhmm":
		msg = fmt.Sprintf("%s must be a zero-padded HH:MM time", fe.Field())
	case "weekday":
		msg = fmt.Sprintf("%s must be between 0 and 6", fe.Field())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "max", "min":
		msg = fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param())
	default:
		msg = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
	return apperrors.Validation(msg, err)
}
