// Package main generates the JSON schema of the rbmap configuration file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/rbmap/pkg/config"
)

// Schema represents a JSON Schema.
type Schema struct {
	Schema      string             `json:"$schema,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

func main() {
	output := flag.String("config", "pkg/config/schema.json", "Output path for the configuration schema")
	flag.Parse()

	schema, err := generateSchema(config.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	err = writeSchema(*output, schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", *output)
}

func generateSchema(v any) (*Schema, error) {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	defs := make(map[string]*Schema)

	props, required, err := structToProperties(t, defs)
	if err != nil {
		return nil, err
	}

	schema := &Schema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		Title:       "rbmap configuration",
		Description: "JSON schema for the rbmap configuration file and its RBMAP_* environment overrides",
		Type:        "object",
		Properties:  props,
		Required:    required,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema, nil
}

func structToProperties(t reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string, error) {
	props := make(map[string]*Schema)

	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")

		if jsonTag == "-" || jsonTag == "" {
			continue
		}

		parts := strings.Split(jsonTag, ",")
		jsonName := parts[0]
		isOmitempty := len(parts) > 1 && parts[1] == "omitempty"

		fieldSchema, err := typeToSchema(field.Type, defs)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		err = applyConstraints(fieldSchema, field.Tag.Get("schema"))
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		props[jsonName] = fieldSchema

		if !isOmitempty {
			required = append(required, jsonName)
		}
	}

	return props, required, nil
}

// applyConstraints parses a `schema:"minimum=0,maximum=1,enum=a|b"` tag.
func applyConstraints(schema *Schema, tag string) error {
	if tag == "" {
		return nil
	}

	for _, constraint := range strings.Split(tag, ",") {
		name, value, ok := strings.Cut(constraint, "=")
		if !ok {
			return fmt.Errorf("malformed schema constraint %q", constraint)
		}

		switch name {
		case "minimum", "maximum":
			bound, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("schema constraint %s: %w", name, err)
			}

			if name == "minimum" {
				schema.Minimum = &bound
			} else {
				schema.Maximum = &bound
			}
		case "enum":
			schema.Enum = strings.Split(value, "|")
		default:
			return fmt.Errorf("unknown schema constraint %q", name)
		}
	}

	return nil
}

func typeToSchema(t reflect.Type, defs map[string]*Schema) (*Schema, error) {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeOf(time.Duration(0)) {
			return &Schema{Type: "integer", Description: "Duration in nanoseconds"}, nil
		}

		return &Schema{Type: "integer"}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil

	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil

	case reflect.Slice:
		items, err := typeToSchema(t.Elem(), defs)
		if err != nil {
			return nil, err
		}

		return &Schema{Type: "array", Items: items}, nil

	case reflect.Struct:
		defName := t.Name()
		if defName == "" {
			props, required, err := structToProperties(t, defs)
			if err != nil {
				return nil, err
			}

			return &Schema{Type: "object", Properties: props, Required: required}, nil
		}

		if _, exists := defs[defName]; !exists {
			props, required, err := structToProperties(t, defs)
			if err != nil {
				return nil, err
			}

			defs[defName] = &Schema{Type: "object", Properties: props, Required: required}
		}

		return &Schema{Ref: "#/definitions/" + defName}, nil

	case reflect.Ptr:
		return typeToSchema(t.Elem(), defs)

	default:
		return &Schema{Type: "object"}, nil
	}
}

func writeSchema(path string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // checked-in schema is world-readable.
}
