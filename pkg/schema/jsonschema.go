package schema

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToJSONSchema projects the schema to a JSON Schema object declaration.
// A nil or empty schema yields an object with no properties.
func ToJSONSchema(s Schema) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s)),
	}
	for _, name := range s.Fields() {
		out.Properties[name] = s[name].JSONSchema()
		out.Required = append(out.Required, name)
	}
	return out
}

// MarshalJSON serializes the schema as its JSON Schema projection.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToJSONSchema(s))
}
