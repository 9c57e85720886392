package adapter

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// ToGenaiSchema converts a plan JSON Schema into the response schema passed to
// Gemini. Only the keywords used by plan schemas are carried over.
func ToGenaiSchema(schema *jsonschema.Schema) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	out := &genai.Schema{
		Description: schema.Description,
		Required:    schema.Required,
	}

	switch schema.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "array":
		out.Type = genai.TypeArray
	case "":
	default:
		return nil, goerr.New("unsupported plan schema type", goerr.V("type", schema.Type))
	}

	out.MinLength = toInt64(schema.MinLength)
	out.MinItems = toInt64(schema.MinItems)
	out.MaxItems = toInt64(schema.MaxItems)

	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			converted, err := ToGenaiSchema(prop)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert plan property", goerr.V("property", name))
			}
			out.Properties[name] = converted
		}
	}

	// segments
	if schema.Items != nil {
		converted, err := ToGenaiSchema(schema.Items)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert segment schema")
		}
		out.Items = converted
	}

	return out, nil
}

func toInt64(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
