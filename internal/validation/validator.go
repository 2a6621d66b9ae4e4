// Package validation checks and normalizes credential payloads before they
// reach the services. Every violated constraint of a payload is reported in a
// single Error.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return strings.Join(e.Problems, ", ")
}

type normalizer interface {
	Normalize()
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("bcrypt", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})

	return &Validator{validate: v}
}

// Decode reads one JSON object from body into dst, which must be a pointer to
// a struct. Keys without a matching field, values of the wrong type and
// failed constraints are all collected before returning.
func (v *Validator) Decode(body io.Reader, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("validation: decode target must be a struct pointer, got %T", dst)
	}

	var raw map[string]json.RawMessage
	err := json.NewDecoder(body).Decode(&raw)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	if err != nil || raw == nil {
		return &Error{Problems: []string{"request body must be a JSON object"}}
	}

	target := rv.Elem()
	fields := fieldIndex(target.Type())

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	problems := make([]string, 0)
	skip := map[string]bool{}
	for _, key := range keys {
		idx, ok := fields[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("%q is not allowed", key))
			continue
		}
		if err := json.Unmarshal(raw[key], target.Field(idx).Addr().Interface()); err != nil {
			problems = append(problems, fmt.Sprintf("%q has an invalid type", key))
			skip[key] = true
		}
	}

	problems = append(problems, v.check(dst, skip)...)
	if len(problems) > 0 {
		return &Error{Problems: problems}
	}

	return nil
}

// Struct validates an already populated payload, normalizing it first.
func (v *Validator) Struct(payload any) error {
	if problems := v.check(payload, nil); len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

func (v *Validator) check(payload any, skip map[string]bool) []string {
	if n, ok := payload.(normalizer); ok {
		n.Normalize()
	}

	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if skip[fe.Field()] {
			continue
		}
		problems = append(problems, describe(fe))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "bcrypt":
		return fmt.Sprintf("%q must be at most %d bytes", field, maxPasswordBytes)
	default:
		return fmt.Sprintf("%q failed %s validation", field, fe.Tag())
	}
}

func fieldIndex(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if name := jsonName(field); name != "" {
			out[name] = i
		}
	}
	return out
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
