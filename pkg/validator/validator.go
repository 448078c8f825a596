package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldFailure records a single constraint violation on a request field.
type FieldFailure struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message renders the failure for API consumers.
func (f FieldFailure) Message() string {
	switch f.Tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", f.Param)
	case "max":
		return fmt.Sprintf("must be at most %s characters long", f.Param)
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", f.Param)
	case "alphanum":
		return "may only contain letters and digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", f.Param)
	default:
		if f.Param != "" {
			return fmt.Sprintf("failed %s=%s validation", f.Tag, f.Param)
		}
		return fmt.Sprintf("failed %s validation", f.Tag)
	}
}

// FieldFailures collects every violation found in one request.
type FieldFailures []FieldFailure

func (f FieldFailures) Error() string {
	if len(f) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(f))
	for i, failure := range f {
		parts[i] = failure.Field + " " + failure.Message()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct against its binding tags and returns
// FieldFailures when any constraint is violated.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(FieldFailures, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, FieldFailure{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// RegisterValidation exposes custom rule registration on the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				name = fld.Tag.Get("form")
			}
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
