// Package schema provides the minimal JSON-schema helpers used by the tool
// subsystem: building parameter schemas by hand stays ergonomic and the
// dispatcher checks required-field presence before invoking an executor.
// Deliberately not a full JSON Schema validator; the schema's main consumer
// is the language backend, which uses it to shape tool arguments.
package schema

import "fmt"

// ValidationError reports a missing or malformed tool argument.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Object builds an object schema from properties and the list of required
// field names.
func Object(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// String builds a string property schema with a description.
func String(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// CheckRequired verifies that every required field declared by the schema is
// present in args. Types and extra fields are not checked; the language
// backend is trusted to follow the declared shape beyond presence.
func CheckRequired(args map[string]any, s map[string]any) error {
	required := requiredFields(s)
	for _, name := range required {
		if _, ok := args[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}
	return nil
}

// requiredFields tolerates both []string (hand-built schemas) and []any
// (schemas round-tripped through JSON).
func requiredFields(s map[string]any) []string {
	switch req := s["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if name, ok := v.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}
