package handlers

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"usermanagement/internal/models"
	"usermanagement/internal/security"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		msgs = append(msgs, e.Fields[field])
	}
	return strings.Join(msgs, "; ")
}

// newValidator returns a validator that also knows the "username",
// "rolekind" and "bcryptlen" tags and reports json field names. It panics if a
// tag cannot be registered.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "rolekind", func(fl validator.FieldLevel) bool {
		return models.RoleKind(fl.Field().String()).Valid()
	})
	// bcrypt limits bytes, while "max" counts runes.
	mustRegister(v, "bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= security.MaxPasswordBytes
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("handlers: register validation %q: %v", tag, err))
	}
}

// validateStruct runs v over req and converts failures to a ValidationError.
func validateStruct(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fieldError(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldError converts a single FieldError into a readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "bcryptlen":
		return fmt.Sprintf("%s must be at most %d bytes", field, security.MaxPasswordBytes)
	case "username":
		return field + " must be 3 to 30 letters, digits, underscores or hyphens"
	case "rolekind":
		return fmt.Sprintf("%s must be one of: %s, %s", field, models.RoleAdmin, models.RoleUser)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
