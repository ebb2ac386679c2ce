package application

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

func validateSpec(spec domain.ToolSpec) error {
	if _, ok := domain.ParseToolName(string(spec.Name)); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownTool, spec.Name)
	}
	if spec.Parameters.Type != jsonschema.Object {
		return fmt.Errorf("tool %s: parameters must be an object schema, got %q", spec.Name, spec.Parameters.Type)
	}
	for _, required := range spec.Parameters.Required {
		if _, ok := spec.Parameters.Properties[required]; !ok {
			return fmt.Errorf("tool %s: required parameter %q is not declared", spec.Name, required)
		}
	}
	for name, property := range spec.Parameters.Properties {
		if property.Type == "" {
			return fmt.Errorf("tool %s: parameter %q has no type", spec.Name, name)
		}
		if len(property.Enum) > 0 && property.Type != jsonschema.String {
			return fmt.Errorf("tool %s: parameter %q declares an enum on a non-string type", spec.Name, name)
		}
	}
	switch spec.Gate {
	case domain.GateNone, domain.GateCall, domain.GateSelf:
	default:
		return fmt.Errorf("tool %s: unknown gate %q", spec.Name, spec.Gate)
	}
	return nil
}

// validateArguments checks decoded JSON against the subset of JSON Schema the
// tool catalog uses.
func validateArguments(def jsonschema.Definition, args map[string]any) error {
	return validateObject("", def, args)
}

func validateObject(path string, def jsonschema.Definition, object map[string]any) error {
	for _, required := range def.Required {
		if _, ok := object[required]; !ok {
			return fmt.Errorf("missing required parameter %q", joinPath(path, required))
		}
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		property, ok := def.Properties[key]
		if !ok {
			if additional, isBool := def.AdditionalProperties.(bool); isBool && !additional {
				return fmt.Errorf("unexpected parameter %q", joinPath(path, key))
			}
			continue
		}
		if err := validateValue(joinPath(path, key), property, object[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, def jsonschema.Definition, value any) error {
	if value == nil {
		if def.Type == jsonschema.Null {
			return nil
		}
		return fmt.Errorf("parameter %q must not be null", path)
	}

	switch def.Type {
	case jsonschema.String:
		text, ok := value.(string)
		if !ok {
			return typeError(path, def.Type, value)
		}
		if len(def.Enum) > 0 && !slices.Contains(def.Enum, text) {
			return fmt.Errorf("parameter %q must be one of %v, got %q", path, def.Enum, text)
		}
	case jsonschema.Integer:
		number, ok := value.(float64)
		if !ok || number != math.Trunc(number) {
			return typeError(path, def.Type, value)
		}
	case jsonschema.Number:
		if _, ok := value.(float64); !ok {
			return typeError(path, def.Type, value)
		}
	case jsonschema.Boolean:
		if _, ok := value.(bool); !ok {
			return typeError(path, def.Type, value)
		}
	case jsonschema.Array:
		items, ok := value.([]any)
		if !ok {
			return typeError(path, def.Type, value)
		}
		if def.Items != nil {
			for i, item := range items {
				if err := validateValue(fmt.Sprintf("%s[%d]", path, i), *def.Items, item); err != nil {
					return err
				}
			}
		}
	case jsonschema.Object:
		object, ok := value.(map[string]any)
		if !ok {
			return typeError(path, def.Type, value)
		}
		return validateObject(path, def, object)
	case jsonschema.Null:
		return typeError(path, def.Type, value)
	}
	return nil
}

func typeError(path string, want jsonschema.DataType, got any) error {
	return fmt.Errorf("parameter %q must be %s, got %T", path, want, got)
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
