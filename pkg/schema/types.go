package schema

import "strings"

// FieldKind enumerates the editor widgets a setting can map to. The set is
// closed: loaders map every unknown declared type to KindString.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindImage   FieldKind = "image"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindColor   FieldKind = "color"
	KindEnum    FieldKind = "enum"
	KindArray   FieldKind = "array"
	KindObject  FieldKind = "object"
)

// Structured reports whether values of the kind are edited as JSON text.
func (k FieldKind) Structured() bool {
	return k == KindArray || k == KindObject
}

// Valid reports whether k is one of the known kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindString, KindImage, KindNumber, KindBoolean, KindColor, KindEnum, KindArray, KindObject:
		return true
	default:
		return false
	}
}

// Option is a single enum choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// FieldSpec describes one editable setting of a section or block type.
type FieldSpec struct {
	Key         string    `json:"key"`
	Kind        FieldKind `json:"kind"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Multiline   bool      `json:"multiline,omitempty"`
}

// Label returns the display title, falling back to the key.
func (f FieldSpec) Label() string {
	if title := strings.TrimSpace(f.Title); title != "" {
		return title
	}
	return f.Key
}

// BlockType describes a kind of block allowed inside a section type.
type BlockType struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldSpec `json:"fields"`
}

// Field looks up a field by key.
func (b BlockType) Field(key string) (FieldSpec, bool) {
	return findField(b.Fields, key)
}

// Defaults returns the declared default of every field that has one.
func (b BlockType) Defaults() map[string]any {
	return defaults(b.Fields)
}

// SectionType describes a section template and the blocks it accepts. Fields
// and Blocks keep the order declared in the schema file.
type SectionType struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldSpec `json:"fields"`
	Blocks      []BlockType `json:"blocks,omitempty"`
	Source      string      `json:"source,omitempty"`
}

// Field looks up a section setting by key.
func (s SectionType) Field(key string) (FieldSpec, bool) {
	return findField(s.Fields, key)
}

// Block looks up a block type by id.
func (s SectionType) Block(id string) (BlockType, bool) {
	for _, block := range s.Blocks {
		if block.ID == id {
			return block, true
		}
	}
	return BlockType{}, false
}

// Defaults returns the declared default of every section field that has one.
func (s SectionType) Defaults() map[string]any {
	return defaults(s.Fields)
}

// Summary is the list entry returned by a Store.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func findField(fields []FieldSpec, key string) (FieldSpec, bool) {
	for _, field := range fields {
		if field.Key == key {
			return field, true
		}
	}
	return FieldSpec{}, false
}

func defaults(fields []FieldSpec) map[string]any {
	out := make(map[string]any)
	for _, field := range fields {
		if field.Default == nil {
			continue
		}
		out[field.Key] = cloneValue(field.Default)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
