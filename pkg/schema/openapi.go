package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// KindExtension is the OpenAPI extension carrying the editor field kind.
const KindExtension = "x-section-kind"

// OpenAPIDocument describes every section and block type of the registry as
// OpenAPI component schemas. Section settings are published as "<section>"
// and block settings as "<section>.<block>".
func OpenAPIDocument(registry *Registry, title, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}
	for _, section := range registry.Sections() {
		doc.Components.Schemas[section.ID] = openapi3.NewSchemaRef("", SettingsSchema(section.Name, section.Description, section.Fields))
		for _, block := range section.Blocks {
			doc.Components.Schemas[section.ID+"."+block.ID] = openapi3.NewSchemaRef("", SettingsSchema(block.Name, block.Description, block.Fields))
		}
	}
	return doc
}

// SettingsSchema builds an object schema whose properties mirror fields.
// Keys not described by fields stay allowed.
func SettingsSchema(title, description string, fields []FieldSpec) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Title = title
	out.Description = description
	for _, field := range fields {
		out.WithProperty(field.Key, FieldSchema(field))
	}
	return out
}

// FieldSchema converts a single field into its OpenAPI schema.
func FieldSchema(field FieldSpec) *openapi3.Schema {
	var out *openapi3.Schema
	switch field.Kind {
	case KindNumber:
		out = openapi3.NewFloat64Schema()
		if field.Min != nil {
			out.WithMin(*field.Min)
		}
		if field.Max != nil {
			out.WithMax(*field.Max)
		}
	case KindBoolean:
		out = openapi3.NewBoolSchema()
	case KindArray:
		out = openapi3.NewArraySchema()
	case KindObject:
		out = openapi3.NewObjectSchema()
	case KindEnum:
		out = openapi3.NewStringSchema()
		values := make([]any, 0, len(field.Options))
		for _, option := range field.Options {
			values = append(values, option.Value)
		}
		out.WithEnum(values...)
	default:
		out = openapi3.NewStringSchema()
	}
	out.Title = field.Title
	out.Description = field.Description
	out.Default = field.Default
	out.Extensions = map[string]any{KindExtension: string(field.Kind)}
	return out
}

// Violation reports a stored setting that does not match its field.
type Violation struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidateSettings checks stored values against their field schemas. Keys
// without a field are ignored.
func ValidateSettings(fields []FieldSpec, settings map[string]any) []Violation {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Violation
	for _, key := range keys {
		field, ok := findField(fields, key)
		if !ok {
			continue
		}
		if err := FieldSchema(field).VisitJSON(settings[key]); err != nil {
			out = append(out, Violation{Key: key, Message: violationMessage(err)})
		}
	}
	return out
}

func violationMessage(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
		return schemaErr.Reason
	}
	return fmt.Sprint(err)
}
