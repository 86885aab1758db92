package workbooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/angelmondragon/workbooks-backend/pkg/enums"
	"github.com/go-playground/validator/v10"
)

// RootField names the document itself in validation errors.
const RootField = "$"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Fields lists the fields with errors, in reporting order.
func (r ValidationResult) Fields() []string {
	out := make([]string, 0, len(r.Errors))
	for _, fe := range r.Errors {
		out = append(out, fe.Field)
	}
	return out
}

// Add appends an error and marks the result invalid.
func (r *ValidationResult) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
	r.Valid = false
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindInteger
)

type schemaField struct {
	name     string
	kind     fieldKind
	required bool
}

var schema = []schemaField{
	{name: "id", kind: kindString, required: true},
	{name: "ownerId", kind: kindString, required: true},
	{name: "ownerDisplayName", kind: kindString, required: true},
	{name: "title", kind: kindString, required: true},
	{name: "path", kind: kindString, required: true},
	{name: "isFlagged", kind: kindBool, required: true},
	{name: "startDate", kind: kindInteger},
	{name: "targetDate", kind: kindInteger},
	{name: "priority", kind: kindString, required: true},
	{name: "percentageCompleted", kind: kindInteger},
	{name: "createdAt", kind: kindInteger, required: true},
	{name: "updatedAt", kind: kindInteger, required: true},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return enums.Priority(fl.Field().String()).IsValid()
	})
	return v
}

// ValidateDocument checks a serialized workbook against the closed schema.
// Unknown properties produce one error on RootField; every missing or
// mistyped field produces its own entry.
func ValidateDocument(raw []byte) ValidationResult {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return invalidRoot("must be a JSON object")
	}

	result := ValidationResult{Valid: true}

	known := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		known[f.name] = struct{}{}
	}
	var extra []string
	for key := range doc {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		result.Add(RootField, "additional properties are not allowed: "+strings.Join(extra, ", "))
	}

	failed := map[string]bool{}
	clean := make(map[string]json.RawMessage, len(schema))
	for _, f := range schema {
		value, present := doc[f.name]
		if !present || isNull(value) {
			if f.required {
				result.Add(f.name, "is required")
				failed[f.name] = true
			}
			continue
		}
		if msg := checkKind(f.kind, value); msg != "" {
			result.Add(f.name, msg)
			failed[f.name] = true
			continue
		}
		clean[f.name] = value
	}

	encoded, err := json.Marshal(clean)
	if err != nil {
		result.Add(RootField, "could not be re-encoded")
		return result
	}
	var w Workbook
	if err := json.Unmarshal(encoded, &w); err != nil {
		result.Add(RootField, "could not be decoded")
		return result
	}

	if err := validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			result.Add(RootField, err.Error())
			return result
		}
		for _, fe := range verrs {
			if failed[fe.Field()] {
				continue
			}
			result.Add(fe.Field(), ruleMessage(fe))
		}
	}

	return result
}

func invalidRoot(message string) ValidationResult {
	return ValidationResult{Errors: []FieldError{{Field: RootField, Message: message}}}
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

func checkKind(kind fieldKind, value json.RawMessage) string {
	trimmed := bytes.TrimSpace(value)
	switch kind {
	case kindString:
		if len(trimmed) == 0 || trimmed[0] != '"' {
			return "must be a string"
		}
	case kindBool:
		if s := string(trimmed); s != "true" && s != "false" {
			return "must be a boolean"
		}
	case kindInteger:
		if _, err := strconv.ParseInt(string(trimmed), 10, 64); err != nil {
			return "must be an integer"
		}
	}
	return ""
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "priority":
		names := make([]string, 0, len(enums.Priorities()))
		for _, p := range enums.Priorities() {
			names = append(names, string(p))
		}
		return "must be one of " + strings.Join(names, ", ")
	}
	return "is invalid"
}
