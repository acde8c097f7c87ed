package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Type defines the contract for argument validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "[string]").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
	// JSONSchema returns the JSON Schema projection of the type.
	JSONSchema() *jsonschema.Schema
}

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *StringType) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

// EnumType validates strings drawn from a closed set of values.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string {
	return fmt.Sprintf("enum(%s)", strings.Join(t.values, "|"))
}

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if !slices.Contains(t.values, s) {
		return fmt.Errorf("value %q is not one of [%s]", s, strings.Join(t.values, ", "))
	}
	return nil
}

func (t *EnumType) JSONSchema() *jsonschema.Schema {
	enum := make([]any, len(t.values))
	for i, v := range t.values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

// Values returns a copy of the allowed values, in declaration order.
func (t *EnumType) Values() []string {
	return slices.Clone(t.values)
}

// SliceType validates slices of a specific element type, with optional length bounds.
type SliceType struct {
	elemType Type
	min      int
	max      int // 0 means unbounded
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("expected slice, got %T", value)
	}

	n := rv.Len()
	if n < t.min {
		return fmt.Errorf("expected at least %d element(s), got %d", t.min, n)
	}
	if t.max > 0 && n > t.max {
		return fmt.Errorf("expected at most %d element(s), got %d", t.max, n)
	}

	for i := 0; i < n; i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (t *SliceType) JSONSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:  "array",
		Items: t.elemType.JSONSchema(),
	}
	if t.min > 0 {
		s.MinItems = ptr(t.min)
	}
	if t.max > 0 {
		s.MaxItems = ptr(t.max)
	}
	return s
}

// Len returns a copy of the slice type constrained to [min, max] elements.
// A max of 0 leaves the upper bound open.
func (t *SliceType) Len(min, max int) *SliceType {
	return &SliceType{elemType: t.elemType, min: min, max: max}
}

// Elem returns the element type.
func (t *SliceType) Elem() Type { return t.elemType }

// describedType attaches documentation to another type.
type describedType struct {
	Type
	description string
}

func (t *describedType) JSONSchema() *jsonschema.Schema {
	s := t.Type.JSONSchema()
	s.Description = t.description
	return s
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Enum creates a validator accepting only the given strings.
func Enum(values ...string) *EnumType {
	return &EnumType{values: slices.Clone(values)}
}

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) *SliceType {
	return &SliceType{elemType: elemType}
}

// Describe attaches a human-readable description, surfaced in the JSON Schema.
func Describe(description string, t Type) Type {
	return &describedType{Type: t, description: description}
}

// Unwrap returns the type underneath any description wrapper.
func Unwrap(t Type) Type {
	if d, ok := t.(*describedType); ok {
		return d.Type
	}
	return t
}

func ptr[T any](v T) *T {
	return &v
}
