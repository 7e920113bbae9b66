package document

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// RepairKind classifies a structural repair made by Normalize.
type RepairKind string

const (
	RepairInvalidValue   RepairKind = "invalid_value"
	RepairListConverted  RepairKind = "list_converted"
	RepairMissingType    RepairKind = "missing_type"
	RepairKeySynthesized RepairKind = "key_synthesized"
	RepairOrder          RepairKind = "order_repaired"
)

// Repair records one structural fix applied while normalising a document.
type Repair struct {
	Path   string     `json:"path"`
	Kind   RepairKind `json:"kind"`
	Detail string     `json:"detail"`
}

func (r Repair) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.Path, r.Detail, r.Kind)
}

// Option configures Normalize.
type Option func(*normalizer)

// WithIDGenerator sets the generator used for synthesised section and block
// keys.
func WithIDGenerator(ids IDGenerator) Option {
	return func(n *normalizer) {
		if ids != nil {
			n.ids = ids
		}
	}
}

// Normalize converts any raw document into a canonical Template. It never
// fails: missing or malformed parts are replaced by defaults and every such
// fix is reported as a Repair. Normalising a canonical document, including
// the output of Template.Raw, changes nothing and reports no repairs.
//
// Raw objects may be *Object values (from Decode) or map[string]any; the
// latter enumerate keys in sorted order.
func Normalize(raw any, options ...Option) (*Template, []Repair) {
	n := &normalizer{ids: UUIDs()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(n)
	}
	return n.template(raw), n.repairs
}

type normalizer struct {
	ids     IDGenerator
	repairs []Repair
}

func (n *normalizer) repair(path string, kind RepairKind, format string, args ...any) {
	n.repairs = append(n.repairs, Repair{Path: path, Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

func (n *normalizer) template(raw any) *Template {
	t := &Template{
		Sections: make(map[string]*Section),
		Order:    []string{},
	}
	root, ok := asObject(raw)
	if !ok {
		n.repair("$", RepairInvalidValue, "document is %s, starting from an empty template", describe(raw))
		return t
	}

	var (
		rawSections any
		rawOrder    any
		hasOrder    bool
	)
	for _, key := range root.keys {
		value := root.values[key]
		switch key {
		case keyName:
			t.Name = n.text(key, value)
		case keyDescription:
			t.Description = n.text(key, value)
		case keySections:
			rawSections = value
		case keyOrder:
			rawOrder, hasOrder = value, value != nil
		case keyLegacyID:
			if id, ok := value.(string); ok {
				t.OriginalID = id
			}
		default:
			if t.Extra == nil {
				t.Extra = make(map[string]any)
			}
			t.Extra[key] = plain(value)
		}
	}

	enumeration := n.sections(t, rawSections)
	if hasOrder {
		t.Order = n.order(rawOrder, t.Sections, enumeration)
	} else {
		t.Order = enumeration
	}
	return t
}

// sections fills t.Sections and returns section ids in enumeration order.
func (n *normalizer) sections(t *Template, raw any) []string {
	ids := []string{}
	if raw == nil {
		return ids
	}
	entries, ok := n.entries(keySections, raw, "section")
	if !ok {
		return ids
	}
	for _, entry := range entries {
		t.Sections[entry.key] = n.section(keySections+"."+entry.key, entry.value)
		ids = append(ids, entry.key)
	}
	return ids
}

func (n *normalizer) section(path string, raw any) *Section {
	section := &Section{
		TypeID:   UnknownType,
		Settings: map[string]any{},
		Blocks:   NewBlockSet(),
	}
	obj, ok := asObject(raw)
	if !ok {
		n.repair(path, RepairInvalidValue, "section is %s, replaced with an %q section", describe(raw), UnknownType)
		return section
	}
	section.TypeID = n.typeID(path+"."+keySectionType, obj, keySectionType)
	section.Settings = n.settings(path+"."+keySettings, obj.values[keySettings])

	if rawBlocks := obj.values[keyBlocks]; rawBlocks != nil {
		if entries, ok := n.entries(path+"."+keyBlocks, rawBlocks, "block"); ok {
			for _, entry := range entries {
				section.Blocks.Set(entry.key, n.block(path+"."+keyBlocks+"."+entry.key, entry.value))
			}
		}
	}
	return section
}

func (n *normalizer) block(path string, raw any) *Block {
	obj, ok := asObject(raw)
	if !ok {
		n.repair(path, RepairInvalidValue, "block is %s, replaced with an %q block", describe(raw), UnknownType)
		return &Block{TypeID: UnknownType, Settings: map[string]any{}}
	}
	return &Block{
		TypeID:   n.typeID(path+"."+keyBlockType, obj, keyBlockType),
		Settings: n.settings(path+"."+keySettings, obj.values[keySettings]),
	}
}

func (n *normalizer) typeID(path string, obj object, key string) string {
	value, present := obj.values[key]
	if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	if present {
		n.repair(path, RepairMissingType, "type id is %s, using %q", describe(value), UnknownType)
	} else {
		n.repair(path, RepairMissingType, "type id missing, using %q", UnknownType)
	}
	return UnknownType
}

func (n *normalizer) settings(path string, raw any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	obj, ok := asObject(raw)
	if !ok {
		n.repair(path, RepairInvalidValue, "settings are %s, replaced with an empty object", describe(raw))
		return map[string]any{}
	}
	out := make(map[string]any, len(obj.keys))
	for _, key := range obj.keys {
		out[key] = plain(obj.values[key])
	}
	return out
}

type entry struct {
	key   string
	value any
}

// entries yields the keyed children of a sections or blocks container. Lists
// are converted to keyed entries: an element's string "id" is used as its key
// when present and unused, otherwise a key is synthesised from the element
// position. An id that cannot become the key is reported.
func (n *normalizer) entries(path string, raw any, prefix string) ([]entry, bool) {
	if obj, ok := asObject(raw); ok {
		out := make([]entry, 0, len(obj.keys))
		for _, key := range obj.keys {
			out = append(out, entry{key: key, value: obj.values[key]})
		}
		return out, true
	}

	list, ok := asList(raw)
	if !ok {
		n.repair(path, RepairInvalidValue, "container is %s, replaced with an empty object", describe(raw))
		return nil, false
	}
	n.repair(path, RepairListConverted, "list of %d entries converted to a keyed object", len(list))

	used := make(map[string]struct{}, len(list))
	for _, item := range list {
		if obj, ok := asObject(item); ok {
			if id, ok := obj.values[keyID].(string); ok && id != "" {
				used[id] = struct{}{}
			}
		}
	}

	claimed := make(map[string]struct{}, len(list))
	out := make([]entry, 0, len(list))
	for index, item := range list {
		key := ""
		value := item
		if obj, ok := asObject(item); ok {
			id, present := obj.values[keyID]
			s, isString := id.(string)
			if _, dup := claimed[s]; isString && s != "" && !dup {
				key = s
				value = obj.without(keyID)
			} else if present {
				detail := fmt.Sprintf("id is %s, not usable as a key", describe(id))
				if isString && s != "" {
					detail = fmt.Sprintf("id %q is already taken", s)
				}
				n.repair(fmt.Sprintf("%s[%d].%s", path, index, keyID), RepairInvalidValue, "%s", detail)
			}
		}
		if key == "" {
			key = n.synthesize(prefix, index, used)
			n.repair(fmt.Sprintf("%s[%d]", path, index), RepairKeySynthesized, "assigned key %q", key)
		}
		used[key] = struct{}{}
		claimed[key] = struct{}{}
		out = append(out, entry{key: key, value: value})
	}
	return out, true
}

func (n *normalizer) synthesize(prefix string, index int, used map[string]struct{}) string {
	for {
		key := n.ids.NewID(prefix) + "_" + strconv.Itoa(index)
		if _, taken := used[key]; !taken {
			return key
		}
	}
}

func (n *normalizer) order(raw any, sections map[string]*Section, enumeration []string) []string {
	out := make([]string, 0, len(sections))
	seen := make(map[string]struct{}, len(sections))

	list, ok := asList(raw)
	if !ok {
		n.repair(keyOrder, RepairOrder, "order is %s, using section enumeration order", describe(raw))
	}
	for index, item := range list {
		id, isString := item.(string)
		_, exists := sections[id]
		_, dup := seen[id]
		switch {
		case !isString:
			n.repair(fmt.Sprintf("%s[%d]", keyOrder, index), RepairOrder, "dropped %s entry", describe(item))
		case !exists:
			n.repair(fmt.Sprintf("%s[%d]", keyOrder, index), RepairOrder, "dropped unknown section %q", id)
		case dup:
			n.repair(fmt.Sprintf("%s[%d]", keyOrder, index), RepairOrder, "dropped duplicate section %q", id)
		default:
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range enumeration {
		if _, ok := seen[id]; ok {
			continue
		}
		n.repair(keyOrder, RepairOrder, "appended missing section %q", id)
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (n *normalizer) text(key string, raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		n.repair(key, RepairInvalidValue, "%s is %s, replaced with an empty string", key, describe(raw))
		return ""
	}
}

// object is an order-preserving view over either raw object representation.
type object struct {
	keys   []string
	values map[string]any
}

func (o object) without(key string) object {
	if _, ok := o.values[key]; !ok {
		return o
	}
	out := object{values: make(map[string]any, len(o.values)-1)}
	for _, k := range o.keys {
		if k == key {
			continue
		}
		out.keys = append(out.keys, k)
		out.values[k] = o.values[k]
	}
	return out
}

func asObject(raw any) (object, bool) {
	switch v := raw.(type) {
	case object:
		return v, true
	case *Object:
		if v == nil {
			return object{}, false
		}
		out := object{values: make(map[string]any, v.Len())}
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out.keys = append(out.keys, pair.Key)
			out.values[pair.Key] = pair.Value
		}
		return out, true
	case map[string]any:
		if v == nil {
			return object{}, false
		}
		out := object{keys: make([]string, 0, len(v)), values: v}
		for key := range v {
			out.keys = append(out.keys, key)
		}
		sort.Strings(out.keys)
		return out, true
	default:
		return object{}, false
	}
}

func asList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// plain converts raw values into the shapes encoding/json produces for an
// untyped decode so settings compare and serialise predictably.
func plain(raw any) any {
	switch v := raw.(type) {
	case object:
		out := make(map[string]any, len(v.keys))
		for _, key := range v.keys {
			out[key] = plain(v.values[key])
		}
		return out
	case *Object, map[string]any:
		obj, _ := asObject(v)
		return plain(obj)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	default:
		return v
	}
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case float64, float32, int, int64:
		return "a number"
	case bool:
		return "a boolean"
	case []any, []string, []map[string]any:
		return "a list"
	default:
		if _, ok := asObject(raw); ok {
			return "an object"
		}
		return fmt.Sprintf("a %T", raw)
	}
}
