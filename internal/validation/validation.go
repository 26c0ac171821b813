// Package validation checks account form input independently of the HTTP layer.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ajharbinger/pacman-arcade/internal/models"
)

// Code enumerates the reasons a field can fail validation
type Code string

const (
	CodeRequired         Code = "required"
	CodeInvalidUsername  Code = "invalid_username"
	CodeUsernameTaken    Code = "username_taken"
	CodeInvalidEmail     Code = "invalid_email"
	CodeTooLong          Code = "too_long"
	CodePasswordTooShort Code = "password_too_short"
	CodePasswordNumeric  Code = "password_entirely_numeric"
	CodePasswordMismatch Code = "password_mismatch"
	CodeInvalid          Code = "invalid"
)

// FieldError describes one rejected field
type FieldError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of validating a form
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

// OK reports whether validation passed
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Has reports whether field failed with code
func (r Result) Has(field string, code Code) bool {
	for _, e := range r.Errors {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notnumeric", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.Trim(s, "0123456789") != ""
	})
	return v
}

// NormalizeUsername lower-cases and trims a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateRegistration checks a registration form. The returned request has
// the username and email normalized.
func ValidateRegistration(req models.RegisterRequest) (models.RegisterRequest, Result) {
	req.Username = NormalizeUsername(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	return req, check(&req)
}

// ValidateLogin checks a login form
func ValidateLogin(req models.LoginRequest) (models.LoginRequest, Result) {
	req.Username = NormalizeUsername(req.Username)
	return req, check(&req)
}

func check(obj interface{}) Result {
	err := validate.Struct(obj)
	if err == nil {
		return Result{}
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return Result{Errors: []FieldError{{Code: CodeInvalid, Message: err.Error()}}}
	}

	result := Result{Errors: make([]FieldError, 0, len(fieldErrors))}
	for _, fe := range fieldErrors {
		code, msg := describe(fe)
		result.Errors = append(result.Errors, FieldError{
			Field:   fe.Field(),
			Code:    code,
			Message: msg,
		})
	}
	return result
}

func describe(fe validator.FieldError) (Code, string) {
	switch fe.Tag() {
	case "required":
		return CodeRequired, "This field is required"
	case "username":
		return CodeInvalidUsername, "Use only letters, digits, '-' and '_'"
	case "email":
		return CodeInvalidEmail, "Enter a valid email address"
	case "max":
		return CodeTooLong, "Ensure this value has at most " + fe.Param() + " characters"
	case "min":
		return CodePasswordTooShort, "This password is too short. It must contain at least " + fe.Param() + " characters"
	case "notnumeric":
		return CodePasswordNumeric, "This password is entirely numeric"
	case "eqfield":
		return CodePasswordMismatch, "The two password fields didn't match"
	default:
		return CodeInvalid, "Invalid value"
	}
}
