// Package validation checks request inputs and reports field-level messages.
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"

	"github.com/R3E-Network/chirp/internal/errors"
)

// Validator wraps go-playground/validator with the service's rules and
// message format. Field errors are keyed by JSON field name.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the emoji and UTF-16 length rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	rules := map[string]validator.Func{
		"emoji": func(fl validator.FieldLevel) bool {
			return IsEmoji(fl.Field().String())
		},
		"utf16min": func(fl validator.FieldLevel) bool {
			return utf16Len(fl.Field().String()) >= paramInt(fl)
		},
		"utf16max": func(fl validator.FieldLevel) bool {
			return utf16Len(fl.Field().String()) <= paramInt(fl)
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return &Validator{validate: v}
}

var defaultValidator = New()

// utf16Len counts UTF-16 code units, the length browsers report. Characters
// outside the Basic Multilingual Plane, which includes most emoji, count twice.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func paramInt(fl validator.FieldLevel) int {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic(fmt.Sprintf("validation: bad length parameter %q on %s", fl.Param(), fl.FieldName()))
	}
	return n
}

// Struct validates s with the package default validator.
func Struct(s interface{}) error {
	return defaultValidator.Struct(s)
}

// Struct validates s and returns a validation ServiceError listing every
// failing field, or nil.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return errors.Internal("", err)
	}

	fieldErrors := make(map[string][]string, len(invalid))
	for _, fe := range invalid {
		field := fe.Field()
		fieldErrors[field] = append(fieldErrors[field], message(fe))
	}
	return errors.Validation("Invalid input", fieldErrors)
}

func message(fe validator.FieldError) string {
	label := labelFor(fe)
	switch fe.Tag() {
	case "required":
		return label + " cannot be empty"
	case "min", "utf16min":
		if fe.Param() == "1" {
			return label + " cannot be empty"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max", "utf16max":
		return fmt.Sprintf("%s cannot be longer than %s characters", label, fe.Param())
	case "emoji":
		return "Only emojis are allowed"
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// labelFor turns the JSON field name into words: "postId" becomes "Post id".
func labelFor(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "Value"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
