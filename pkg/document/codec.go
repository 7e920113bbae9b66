package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is the ordered representation of a JSON object produced by Decode.
type Object = orderedmap.OrderedMap[string, any]

// Wire keys of the persisted document.
const (
	keyName        = "name"
	keyDescription = "description"
	keySections    = "sections"
	keyOrder       = "order"
	keySectionType = "section_id"
	keyBlockType   = "block_type"
	keySettings    = "settings"
	keyBlocks      = "blocks"
	keyID          = "id"
	keyLegacyID    = "_originalId"
)

// Decode parses a JSON document into a raw tree for Normalize. Objects
// become *Object values so key order survives; numbers become float64.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	value, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("document: decode: trailing data after document")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := orderedmap.New[string, any]()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		items := []any{}
		for dec.More() {
			item, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// Raw returns the wire form of the template as an ordered tree. Sections
// follow Order and blocks follow their display order.
func (t *Template) Raw() *Object {
	out := orderedmap.New[string, any]()
	out.Set(keyName, t.Name)
	out.Set(keyDescription, t.Description)

	extras := make([]string, 0, len(t.Extra))
	for key := range t.Extra {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		out.Set(key, cloneValue(t.Extra[key]))
	}

	sections := orderedmap.New[string, any]()
	order := make([]any, 0, len(t.Order))
	for _, id := range t.Order {
		section, ok := t.Sections[id]
		if !ok {
			continue
		}
		sections.Set(id, section.raw())
		order = append(order, id)
	}
	out.Set(keySections, sections)
	out.Set(keyOrder, order)
	return out
}

func (s *Section) raw() *Object {
	out := orderedmap.New[string, any]()
	out.Set(keySectionType, s.TypeID)
	out.Set(keySettings, settingsOrEmpty(s.Settings))
	blocks := orderedmap.New[string, any]()
	for _, id := range s.Blocks.IDs() {
		block, _ := s.Blocks.Get(id)
		entry := orderedmap.New[string, any]()
		entry.Set(keyBlockType, block.TypeID)
		entry.Set(keySettings, settingsOrEmpty(block.Settings))
		blocks.Set(id, entry)
	}
	out.Set(keyBlocks, blocks)
	return out
}

func settingsOrEmpty(settings map[string]any) map[string]any {
	if settings == nil {
		return map[string]any{}
	}
	return cloneMap(settings)
}

// Encode serialises the template to pretty-printed JSON with two-space
// indentation.
func Encode(t *Template) ([]byte, error) {
	if t == nil {
		return nil, errors.New("document: encode: template is nil")
	}
	out, err := json.MarshalIndent(t.Raw(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler using the wire form.
func (t *Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw())
}

// UnmarshalJSON implements json.Unmarshaler. The document is normalised;
// repairs are discarded, use Decode and Normalize to observe them.
func (t *Template) UnmarshalJSON(data []byte) error {
	raw, err := Decode(data)
	if err != nil {
		return err
	}
	normalized, _ := Normalize(raw)
	*t = *normalized
	return nil
}
