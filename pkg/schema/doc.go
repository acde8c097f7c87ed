// Package schema describes and validates the arguments of dialogue functions.
//
// A Schema maps argument names to Types. Every field in a Schema is required.
// Types validate decoded JSON values and project themselves to JSON Schema so the
// model-driving layer receives a standard function declaration:
//
//	args := schema.Schema{
//	    "topics": schema.Describe("Topic discussed. Pick ONE at a time.",
//	        schema.Slice(schema.Enum("Lectures & Schedule", "Course Materials & Readings")).Len(1, 1)),
//	}
//
//	if err := schema.Validate(args, map[string]any{"topics": []any{"Lectures & Schedule"}}); err != nil {
//	    // reject the call
//	}
//
// Schemas are values built fresh for every node. Nothing in this package mutates a
// Type after construction.
package schema
