package editor

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-sections/pkg/form"
)

// Intent is one discrete user action.
type Intent interface {
	Type() string
}

// Refresh reloads the template list and the schema catalog.
type Refresh struct{}

// SelectTemplate loads a stored template into the session.
type SelectTemplate struct {
	ID    string `json:"id"`
	Force bool   `json:"force,omitempty"`
}

// CreateTemplate starts a new, unsaved template.
type CreateTemplate struct {
	Force bool `json:"force,omitempty"`
}

// SaveTemplate writes the current template through the gateway.
type SaveTemplate struct{}

// SetTemplateField edits the template name or description.
type SetTemplateField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type AddSection struct {
	TypeID string `json:"type_id"`
}

type RemoveSection struct {
	SectionID string `json:"section_id"`
}

type MoveSectionUp struct {
	SectionID string `json:"section_id"`
}

type MoveSectionDown struct {
	SectionID string `json:"section_id"`
}

// ToggleSection expands or collapses a section.
type ToggleSection struct {
	SectionID string `json:"section_id"`
}

// SelectTab switches an expanded section between settings and blocks.
type SelectTab struct {
	SectionID string   `json:"section_id"`
	Tab       form.Tab `json:"tab"`
}

// ChangeSectionSetting stores widget input for a section setting.
type ChangeSectionSetting struct {
	SectionID string `json:"section_id"`
	Key       string `json:"key"`
	Input     any    `json:"input"`
}

type AddBlock struct {
	SectionID string `json:"section_id"`
	TypeID    string `json:"type_id"`
}

// RemoveBlock deletes a block. SectionID is optional.
type RemoveBlock struct {
	SectionID string `json:"section_id,omitempty"`
	BlockID   string `json:"block_id"`
}

type MoveBlockUp struct {
	SectionID string `json:"section_id"`
	BlockID   string `json:"block_id"`
}

type MoveBlockDown struct {
	SectionID string `json:"section_id"`
	BlockID   string `json:"block_id"`
}

// ToggleBlock expands or collapses a block card.
type ToggleBlock struct {
	BlockID string `json:"block_id"`
}

// ChangeBlockSetting stores widget input for a block setting. SectionID is
// a hint; the block is found wherever it lives.
type ChangeBlockSetting struct {
	BlockID   string `json:"block_id"`
	SectionID string `json:"section_id,omitempty"`
	Key       string `json:"key"`
	Input     any    `json:"input"`
}

func (Refresh) Type() string              { return "refresh" }
func (SelectTemplate) Type() string       { return "select_template" }
func (CreateTemplate) Type() string       { return "create_template" }
func (SaveTemplate) Type() string         { return "save_template" }
func (SetTemplateField) Type() string     { return "set_template_field" }
func (AddSection) Type() string           { return "add_section" }
func (RemoveSection) Type() string        { return "remove_section" }
func (MoveSectionUp) Type() string        { return "move_section_up" }
func (MoveSectionDown) Type() string      { return "move_section_down" }
func (ToggleSection) Type() string        { return "toggle_section" }
func (SelectTab) Type() string            { return "select_tab" }
func (ChangeSectionSetting) Type() string { return "change_section_setting" }
func (AddBlock) Type() string             { return "add_block" }
func (RemoveBlock) Type() string          { return "remove_block" }
func (MoveBlockUp) Type() string          { return "move_block_up" }
func (MoveBlockDown) Type() string        { return "move_block_down" }
func (ToggleBlock) Type() string          { return "toggle_block" }
func (ChangeBlockSetting) Type() string   { return "change_block_setting" }

var intentFactories = map[string]func() Intent{
	"refresh":                func() Intent { return &Refresh{} },
	"select_template":        func() Intent { return &SelectTemplate{} },
	"create_template":        func() Intent { return &CreateTemplate{} },
	"save_template":          func() Intent { return &SaveTemplate{} },
	"set_template_field":     func() Intent { return &SetTemplateField{} },
	"add_section":            func() Intent { return &AddSection{} },
	"remove_section":         func() Intent { return &RemoveSection{} },
	"move_section_up":        func() Intent { return &MoveSectionUp{} },
	"move_section_down":      func() Intent { return &MoveSectionDown{} },
	"toggle_section":         func() Intent { return &ToggleSection{} },
	"select_tab":             func() Intent { return &SelectTab{} },
	"change_section_setting": func() Intent { return &ChangeSectionSetting{} },
	"add_block":              func() Intent { return &AddBlock{} },
	"remove_block":           func() Intent { return &RemoveBlock{} },
	"move_block_up":          func() Intent { return &MoveBlockUp{} },
	"move_block_down":        func() Intent { return &MoveBlockDown{} },
	"toggle_block":           func() Intent { return &ToggleBlock{} },
	"change_block_setting":   func() Intent { return &ChangeBlockSetting{} },
}

// DecodeIntent parses {"type": "...", ...} into the matching intent value.
func DecodeIntent(data []byte) (Intent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("editor: decode intent: %w", err)
	}
	factory, ok := intentFactories[head.Type]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownIntent, head.Type)
	}
	ptr := factory()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("editor: decode %s intent: %w", head.Type, err)
	}
	return deref(ptr), nil
}

// EncodeIntent writes an intent with its type tag.
func EncodeIntent(intent Intent) ([]byte, error) {
	body, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("editor: encode intent: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("editor: encode intent: %w", err)
	}
	typ, _ := json.Marshal(intent.Type())
	fields["type"] = typ
	return json.Marshal(fields)
}

func deref(intent Intent) Intent {
	switch v := intent.(type) {
	case *Refresh:
		return *v
	case *SelectTemplate:
		return *v
	case *CreateTemplate:
		return *v
	case *SaveTemplate:
		return *v
	case *SetTemplateField:
		return *v
	case *AddSection:
		return *v
	case *RemoveSection:
		return *v
	case *MoveSectionUp:
		return *v
	case *MoveSectionDown:
		return *v
	case *ToggleSection:
		return *v
	case *SelectTab:
		return *v
	case *ChangeSectionSetting:
		return *v
	case *AddBlock:
		return *v
	case *RemoveBlock:
		return *v
	case *MoveBlockUp:
		return *v
	case *MoveBlockDown:
		return *v
	case *ToggleBlock:
		return *v
	case *ChangeBlockSetting:
		return *v
	}
	return intent
}
