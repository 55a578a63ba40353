package reference

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// descriptorPageSchema is the part of a NOAA descriptor page we rely on.
var descriptorPageSchema = map[string]any{
	"type":     "object",
	"required": []string{"items"},
	"properties": map[string]any{
		"totalPages": map[string]any{"type": "integer", "minimum": 0},
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"id", "description"},
				"properties": map[string]any{
					"id":          map[string]any{"type": []string{"string", "integer"}},
					"description": map[string]any{"type": []string{"string", "null"}},
				},
			},
		},
	},
}

// compileSchema compiles schemaMap once for repeated validation.
func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateJSON checks data against schema.
func validateJSON(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
