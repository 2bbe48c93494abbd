package registry

import (
	"fmt"
	"math"
	"sort"

	"github.com/morikuni/failure/v2"
)

// Type is a JSON Schema primitive type name.
type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Integer Type = "integer"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
)

// Property describes one named argument.
type Property struct {
	Type Type
}

// Schema is the subset of JSON Schema used to check capability arguments.
// Properties not listed are accepted unchecked.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// ParamError names the first argument that failed validation.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("argument %q %s", e.Field, e.Reason)
}

// InvalidParam returns an InvalidParams failure naming field.
func InvalidParam(field, reason string) error {
	return invalidParam(field, reason)
}

func invalidParam(field, reason string) error {
	pe := &ParamError{Field: field, Reason: reason}
	return failure.Wrap(pe,
		failure.WithCode(InvalidParams),
		failure.Message(pe.Error()),
		failure.Context{"field": field},
	)
}

// Validate reports the first violation: missing required arguments in
// declared order, then type mismatches in argument name order.
func (s Schema) Validate(args map[string]any) error {
	for _, name := range s.Required {
		if v, ok := args[name]; !ok || v == nil {
			return invalidParam(name, "is required")
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok || prop.Type == "" {
			continue
		}
		if args[name] == nil {
			continue
		}
		if !prop.Type.matches(args[name]) {
			return invalidParam(name, "must be of type "+string(prop.Type))
		}
	}
	return nil
}

func (t Type) matches(v any) bool {
	switch t {
	case String:
		_, ok := v.(string)
		return ok
	case Boolean:
		_, ok := v.(bool)
		return ok
	case Number:
		_, ok := asFloat(v)
		return ok
	case Integer:
		f, ok := asFloat(v)
		return ok && f == math.Trunc(f) && !math.IsInf(f, 0)
	case Object:
		_, ok := v.(map[string]any)
		return ok
	case Array:
		_, ok := v.([]any)
		return ok
	}
	return true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
