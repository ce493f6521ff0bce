package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

// DefaultPhoneRegion is used when a phone number carries no country prefix.
const DefaultPhoneRegion = "ID"

var (
	nikPattern      = regexp.MustCompile(`^[0-9]{16}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// FieldError describes a single failing field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// New returns a validator configured with the portal's custom tags and
// JSON field names in error paths.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("nik", func(fl validator.FieldLevel) bool {
		return nikPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("idphone", func(fl validator.FieldLevel) bool {
		_, ok := NormalizePhone(fl.Field().String())
		return ok
	})
	return v
}

// NormalizePhone parses an Indonesian phone number and returns it in E.164.
func NormalizePhone(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	parsed, err := phonenumbers.Parse(input, DefaultPhoneRegion)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", false
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), true
}

// Struct validates payload and converts failures into a 422 error.
func Struct(v *validator.Validate, payload interface{}, message string) error {
	if err := v.Struct(payload); err != nil {
		return FromError(err, message)
	}
	return nil
}

// FromError converts validator failures into a VALIDATION_ERROR carrying a
// list of field paths and messages.
func FromError(err error, message string) error {
	if err == nil {
		return nil
	}
	if message == "" {
		message = appErrors.ErrValidation.Message
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		wrapped := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
		return wrapped
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Path: fieldPath(fe), Message: describe(fe)})
	}
	return appErrors.WithDetails(appErrors.ErrValidation, message, fields)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "email":
		return "Invalid email address"
	case "nik":
		return "NIK must be exactly 16 digits"
	case "username":
		return "Invalid username"
	case "idphone":
		return "Invalid phone number"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eq":
		return fmt.Sprintf("%s must be %s", field, fe.Param())
	case "isdefault":
		return fmt.Sprintf("%s must not be supplied", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
