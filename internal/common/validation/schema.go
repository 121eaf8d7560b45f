// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins the individual failures into one line.
func (r *ValidationResult) Error() string {
	if r == nil || r.Valid {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema, safe for concurrent use.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile parses a JSON schema document.
func Compile(raw []byte) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(raw []byte) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a Go value (map, struct or decoded JSON) against the schema.
func (s *Schema) Validate(document interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_DOCUMENT",
		}}}
	}
	return convert(result)
}

// ValidateJSON checks raw JSON bytes against the schema.
func (s *Schema) ValidateJSON(raw []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_JSON",
		}}}
	}
	return convert(result)
}

// ValidateInput validates input against an ad hoc schema given as a map.
func ValidateInput(input map[string]interface{}, schema map[string]interface{}) *ValidationResult {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_SCHEMA",
		}}}
	}
	return convert(result)
}

func convert(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}
