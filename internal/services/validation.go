package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	userValidationFailed = "User validation failed"
	taskValidationFailed = "Task validation failed"
)

// maxPasswordBytes is the longest password bcrypt will hash.
const maxPasswordBytes = 72

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
	_ = v.RegisterValidation("nopassword", func(fl validator.FieldLevel) bool {
		return !strings.Contains(strings.ToLower(fl.Field().String()), "password")
	})
	// bcrypt only accepts inputs of up to 72 bytes; max= would count runes.
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

// fieldMessages maps "field.tag" to the message shown to clients.
var fieldMessages = map[string]string{
	"name.required":        "Name is required.",
	"email.required":       "Email is required.",
	"email.email":          "Invalid email provided.",
	"password.required":    "Password is required.",
	"password.min":         "Password must be at least 7 characters.",
	"password.nopassword":  "Password is invalid.",
	"password.bcryptlen":   "Password must be at most 72 bytes.",
	"age.min":              "Age must be a positive number.",
	"description.required": "Description is required.",
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid.", field)
}

// validateStruct runs the tag rules on s and converts failures into a
// *ValidationError keyed by JSON field name.
func validateStruct(message string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = messageFor(fe.Field(), fe.Tag())
	}
	return &ValidationError{Message: message, Fields: fields}
}

const passwordRules = "required,min=7,bcryptlen,nopassword"

// validatePassword applies the password rules to a plain-text password.
func validatePassword(message, password string) error {
	err := validate.Var(password, passwordRules)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("failed to validate password: %w", err)
	}
	return fieldError(message, "password", messageFor("password", verrs[0].Tag()))
}

// mergeValidation folds several validation results into one error. Errors
// that are not validation errors win immediately.
func mergeValidation(message string, errs ...error) error {
	var merged *ValidationError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		if merged == nil {
			merged = &ValidationError{Message: message, Fields: map[string]string{}}
		}
		for field, msg := range verr.Fields {
			merged.Fields[field] = msg
		}
	}
	if merged == nil {
		return nil
	}
	return merged
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// decodeField unmarshals one raw update value into dst. JSON null is
// rejected like any other value of the wrong type.
func decodeField(message, field string, raw json.RawMessage, dst any) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fieldError(message, field, messageFor(field, "required"))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fieldError(message, field, messageFor(field, "type"))
	}
	return nil
}

// checkWhitelist fails with ErrInvalidUpdate when updates names any field
// outside allowed.
func checkWhitelist(updates map[string]json.RawMessage, allowed ...string) error {
	for key := range updates {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return ErrInvalidUpdate
		}
	}
	return nil
}
