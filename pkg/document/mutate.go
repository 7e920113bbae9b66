package document

import (
	"fmt"
	"regexp"
	"strings"
)

// Template fields editable through SetField.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// New returns an empty template ready for editing.
func New() *Template {
	return &Template{
		Name:     DefaultName,
		Sections: make(map[string]*Section),
		Order:    []string{},
		Extra:    map[string]any{"template": true},
		Unsaved:  true,
	}
}

// SetField updates the name or description. Renaming a stored template
// whose store id is unknown records the previous name as its identity so
// the next save overwrites the same entry.
func (t *Template) SetField(field, value string) error {
	switch field {
	case FieldName:
		if t.OriginalID == "" && !t.Unsaved && t.Name != "" && t.Name != value {
			t.OriginalID = t.Name
		}
		t.Name = value
	case FieldDescription:
		t.Description = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// AddSection appends a new section of the given type and returns its id.
func (t *Template) AddSection(typeID string, ids IDGenerator) string {
	if ids == nil {
		ids = UUIDs()
	}
	if t.Sections == nil {
		t.Sections = make(map[string]*Section)
	}
	id := ids.NewID("section")
	for {
		if _, taken := t.Sections[id]; !taken {
			break
		}
		id = ids.NewID("section")
	}
	t.Sections[id] = &Section{
		TypeID:   typeID,
		Settings: map[string]any{},
		Blocks:   NewBlockSet(),
	}
	t.Order = append(t.Order, id)
	return id
}

// RemoveSection deletes a section from Sections and Order.
func (t *Template) RemoveSection(id string) bool {
	if _, ok := t.Section(id); !ok {
		return false
	}
	delete(t.Sections, id)
	if i := indexOf(t.Order, id); i >= 0 {
		t.Order = append(t.Order[:i], t.Order[i+1:]...)
	}
	return true
}

// MoveSectionUp swaps a section with its predecessor. It reports false when
// the section is first or missing.
func (t *Template) MoveSectionUp(id string) bool {
	return t.moveSection(id, -1)
}

// MoveSectionDown swaps a section with its successor. It reports false when
// the section is last or missing.
func (t *Template) MoveSectionDown(id string) bool {
	return t.moveSection(id, 1)
}

func (t *Template) moveSection(id string, delta int) bool {
	from := indexOf(t.Order, id)
	to := from + delta
	if from < 0 || to < 0 || to >= len(t.Order) {
		return false
	}
	t.Order[from], t.Order[to] = t.Order[to], t.Order[from]
	return true
}

// SetSectionSetting stores a section setting. A nil value removes the key.
func (t *Template) SetSectionSetting(sectionID, key string, value any) error {
	section, ok := t.Section(sectionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, sectionID)
	}
	section.Settings = setOrDelete(section.Settings, key, value)
	return nil
}

// AddBlock appends a block of the given type to a section, seeded with a
// copy of seed, and returns the block id.
func (t *Template) AddBlock(sectionID, typeID string, seed map[string]any, ids IDGenerator) (string, error) {
	section, ok := t.Section(sectionID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSectionNotFound, sectionID)
	}
	if ids == nil {
		ids = UUIDs()
	}
	if section.Blocks == nil {
		section.Blocks = NewBlockSet()
	}
	id := ids.NewID("block")
	for section.Blocks.Has(id) {
		id = ids.NewID("block")
	}
	settings := cloneMap(seed)
	if settings == nil {
		settings = map[string]any{}
	}
	section.Blocks.Set(id, &Block{TypeID: typeID, Settings: settings})
	return id, nil
}

// RemoveBlock deletes a block from a section.
func (t *Template) RemoveBlock(sectionID, blockID string) error {
	section, ok := t.Section(sectionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, sectionID)
	}
	if !section.Blocks.Delete(blockID) {
		return fmt.Errorf("%w: %q in section %q", ErrBlockNotFound, blockID, sectionID)
	}
	return nil
}

// MoveBlockUp swaps a block with its predecessor within its section.
func (t *Template) MoveBlockUp(sectionID, blockID string) bool {
	section, ok := t.Section(sectionID)
	return ok && section.Blocks.Move(blockID, -1)
}

// MoveBlockDown swaps a block with its successor within its section.
func (t *Template) MoveBlockDown(sectionID, blockID string) bool {
	section, ok := t.Section(sectionID)
	return ok && section.Blocks.Move(blockID, 1)
}

// FindBlock resolves a block id. The hinted section is tried first; without
// a usable hint the sections are scanned in display order and the first
// match wins.
func (t *Template) FindBlock(blockID, sectionHint string) (string, *Block, bool) {
	if section, ok := t.Section(sectionHint); ok {
		if block, ok := section.Blocks.Get(blockID); ok {
			return sectionHint, block, true
		}
	}
	if t == nil {
		return "", nil, false
	}
	for _, id := range t.Order {
		section, ok := t.Sections[id]
		if !ok {
			continue
		}
		if block, ok := section.Blocks.Get(blockID); ok {
			return id, block, true
		}
	}
	return "", nil, false
}

// SetBlockSetting stores a block setting and returns the id of the section
// holding the block. A nil value removes the key.
func (t *Template) SetBlockSetting(blockID, key string, value any, sectionHint string) (string, error) {
	sectionID, block, ok := t.FindBlock(blockID, sectionHint)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrBlockNotFound, blockID)
	}
	block.Settings = setOrDelete(block.Settings, key, value)
	return sectionID, nil
}

var storeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// StorageID returns the id the template is saved under: its original store
// id when valid, otherwise a slug of the original id or the name, otherwise
// "template".
func (t *Template) StorageID() string {
	if storeIDPattern.MatchString(t.OriginalID) {
		return t.OriginalID
	}
	if slug := Slug(t.OriginalID); slug != "" {
		return slug
	}
	if slug := Slug(t.Name); slug != "" {
		return slug
	}
	return "template"
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9_]+`)

// Slug lowercases s and collapses every run of characters outside
// [a-z0-9_] into a single dash.
func Slug(s string) string {
	slug := slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	return strings.Trim(slug, "-")
}

func setOrDelete(settings map[string]any, key string, value any) map[string]any {
	if settings == nil {
		settings = map[string]any{}
	}
	if value == nil {
		delete(settings, key)
		return settings
	}
	settings[key] = value
	return settings
}
