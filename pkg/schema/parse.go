package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseSectionType decodes a JSON or YAML schema file describing the section
// type id. Mapping order in the file is kept for fields and block types.
// Malformed field or block entries are skipped and reported as warnings; only
// a document that is not a mapping at all is an error.
func ParseSectionType(id string, data []byte) (SectionType, []string, error) {
	if strings.TrimSpace(string(data)) == "" {
		return SectionType{}, nil, fmt.Errorf("schema: section %q: empty schema", id)
	}

	root, err := decodeNode(data)
	if err != nil {
		return SectionType{}, nil, fmt.Errorf("schema: section %q: invalid JSON or YAML: %w", id, err)
	}
	if root == nil || root.Kind != yaml.MappingNode {
		return SectionType{}, nil, fmt.Errorf("schema: section %q: schema must be a mapping", id)
	}

	p := &parser{}
	section := SectionType{ID: id}
	for _, pair := range mappingPairs(root) {
		switch pair.key {
		case "name":
			section.Name = p.scalarString(pair.value)
		case "description":
			section.Description = p.scalarString(pair.value)
		case "settings", "properties":
			section.Fields = append(section.Fields, p.fields(id, pair.value)...)
		case "blocks":
			section.Blocks = p.blocks(id, pair.value)
		}
	}
	if strings.TrimSpace(section.Name) == "" {
		section.Name = HumanizeID(id)
	}
	return section, p.warnings, nil
}

type parser struct {
	warnings []string
}

func (p *parser) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *parser) blocks(sectionID string, node *yaml.Node) []BlockType {
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		p.warn("section %q: blocks must be a mapping", sectionID)
		return nil
	}
	var out []BlockType
	for _, pair := range mappingPairs(node) {
		value := resolveAlias(pair.value)
		if value.Kind != yaml.MappingNode {
			p.warn("section %q: block %q must be a mapping", sectionID, pair.key)
			continue
		}
		block := BlockType{ID: pair.key}
		for _, field := range mappingPairs(value) {
			switch field.key {
			case "id":
				if explicit := p.scalarString(field.value); explicit != "" {
					block.ID = explicit
				}
			case "name":
				block.Name = p.scalarString(field.value)
			case "description":
				block.Description = p.scalarString(field.value)
			case "settings", "properties":
				block.Fields = append(block.Fields, p.fields(sectionID+"."+pair.key, field.value)...)
			}
		}
		if strings.TrimSpace(block.Name) == "" {
			block.Name = HumanizeID(block.ID)
		}
		out = append(out, block)
	}
	return out
}

func (p *parser) fields(owner string, node *yaml.Node) []FieldSpec {
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		p.warn("%s: settings must be a mapping", owner)
		return nil
	}
	var out []FieldSpec
	for _, pair := range mappingPairs(node) {
		value := resolveAlias(pair.value)
		if value.Kind != yaml.MappingNode {
			p.warn("%s: setting %q must be a mapping", owner, pair.key)
			continue
		}
		field, err := p.field(pair.key, value)
		if err != nil {
			p.warn("%s: setting %q: %v", owner, pair.key, err)
			continue
		}
		out = append(out, field)
	}
	return out
}

func (p *parser) field(key string, node *yaml.Node) (FieldSpec, error) {
	field := FieldSpec{Key: key}
	var declared, format string
	for _, pair := range mappingPairs(node) {
		switch pair.key {
		case "type":
			declared = strings.ToLower(p.scalarString(pair.value))
		case "format":
			format = strings.ToLower(p.scalarString(pair.value))
		case "label", "title":
			field.Title = p.scalarString(pair.value)
		case "description", "help":
			field.Description = p.scalarString(pair.value)
		case "default":
			var v any
			if err := pair.value.Decode(&v); err != nil {
				return FieldSpec{}, fmt.Errorf("default: %w", err)
			}
			field.Default = plainValue(v)
		case "options", "enum":
			options, err := p.options(pair.value)
			if err != nil {
				return FieldSpec{}, err
			}
			field.Options = append(field.Options, options...)
		case "min", "minimum":
			field.Min = p.number(key, pair.key, pair.value)
		case "max", "maximum":
			field.Max = p.number(key, pair.key, pair.value)
		case "step":
			field.Step = p.number(key, pair.key, pair.value)
		}
	}
	field.Kind = resolveKind(key, declared, format, len(field.Options) > 0)
	field.Multiline = declared == "textarea"
	return field, nil
}

func (p *parser) options(node *yaml.Node) ([]Option, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.MappingNode:
		var out []Option
		for _, pair := range mappingPairs(node) {
			out = append(out, Option{Value: pair.key, Label: p.scalarString(pair.value)})
		}
		return out, nil
	case yaml.SequenceNode:
		var out []Option
		for _, item := range node.Content {
			item = resolveAlias(item)
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, Option{Value: item.Value, Label: item.Value})
			case yaml.MappingNode:
				var opt Option
				for _, pair := range mappingPairs(item) {
					switch pair.key {
					case "value":
						opt.Value = p.scalarString(pair.value)
					case "label":
						opt.Label = p.scalarString(pair.value)
					}
				}
				if opt.Value == "" {
					return nil, errors.New("option without value")
				}
				if opt.Label == "" {
					opt.Label = opt.Value
				}
				out = append(out, opt)
			default:
				return nil, errors.New("options entries must be scalars or mappings")
			}
		}
		return out, nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, errors.New("options must be a mapping or a list")
}

func (p *parser) number(field, attr string, node *yaml.Node) *float64 {
	node = resolveAlias(node)
	if node.Kind != yaml.ScalarNode {
		p.warn("setting %q: %s must be a number", field, attr)
		return nil
	}
	n, err := strconv.ParseFloat(node.Value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		p.warn("setting %q: %s must be a number", field, attr)
		return nil
	}
	return &n
}

func (p *parser) scalarString(node *yaml.Node) string {
	node = resolveAlias(node)
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}
	return strings.TrimSpace(node.Value)
}

// resolveKind maps a declared schema type onto the closed kind set. Explicit
// numeric, boolean, color and structured types win over enumerations; a
// string field called "image" or formatted as an image is an image field.
func resolveKind(key, declared, format string, hasOptions bool) FieldKind {
	switch declared {
	case "image":
		return KindImage
	case "number", "integer", "range":
		return KindNumber
	case "checkbox", "boolean", "toggle":
		return KindBoolean
	case "color":
		return KindColor
	case "gallery", "repeater", "array", "list":
		return KindArray
	case "object", "group":
		return KindObject
	}
	if hasOptions {
		return KindEnum
	}
	if format == "image" || key == "image" {
		return KindImage
	}
	return KindString
}

// decodeNode parses JSON with a token decoder so tab-indented documents keep
// working, and everything else as YAML.
func decodeNode(data []byte) (*yaml.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		node, err := jsonNode(dec)
		if err == nil {
			return node, nil
		}
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return documentRoot(&doc), nil
}

func jsonNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := jsonNode(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				item, err := jsonNode(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle}, nil
	case json.Number:
		tag := "!!float"
		if _, err := v.Int64(); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

type nodePair struct {
	key   string
	value *yaml.Node
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return resolveAlias(doc.Content[0])
	}
	return resolveAlias(doc)
}

func mappingPairs(node *yaml.Node) []nodePair {
	out := make([]nodePair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, nodePair{key: node.Content[i].Value, value: node.Content[i+1]})
	}
	return out
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// plainValue turns decoded YAML values into the shapes encoding/json
// produces so defaults compare equal to stored settings.
func plainValue(v any) any {
	switch typed := v.(type) {
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case uint64:
		return float64(typed)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = plainValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[fmt.Sprint(k)] = plainValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
