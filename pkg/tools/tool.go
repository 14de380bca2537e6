package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Descriptor is what the model sees of a tool.
type Descriptor struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Parameters  *jsonschema.Schema `json:"parameters" yaml:"parameters"`
}

// Adapter bridges a tool to an external capability.
//
// Invoke never fails with a Go error: failures are reported in the returned
// text, prefixed with "Error:", so they can be handed back to the model.
type Adapter interface {
	Descriptor() Descriptor
	Invoke(ctx context.Context, args json.RawMessage) string
}

const ErrorPrefix = "Error:"

func ErrorResult(format string, args ...interface{}) string {
	return ErrorPrefix + " " + fmt.Sprintf(format, args...)
}

func IsError(result string) bool {
	return strings.HasPrefix(result, ErrorPrefix)
}

// SchemaFor reflects v into an object schema with inline definitions.
// Fields tagged `jsonschema:"required"` are required.
func SchemaFor(v interface{}) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(v)
	schema.Version = ""
	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}
	return schema
}
