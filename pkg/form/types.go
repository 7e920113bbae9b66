package form

import (
	"github.com/goliatone/go-sections/pkg/schema"
)

// Tab selects the content shown for an expanded section.
type Tab string

const (
	TabSettings Tab = "settings"
	TabBlocks   Tab = "blocks"
)

// ViewState is the editor state that never reaches storage.
type ViewState struct {
	Expanded       map[string]bool `json:"expanded"`
	ActiveTab      map[string]Tab  `json:"active_tab"`
	ExpandedBlocks map[string]bool `json:"expanded_blocks"`
}

// NewViewState returns an empty view state.
func NewViewState() ViewState {
	return ViewState{
		Expanded:       make(map[string]bool),
		ActiveTab:      make(map[string]Tab),
		ExpandedBlocks: make(map[string]bool),
	}
}

// Tab returns the active tab of a section, defaulting to settings.
func (v ViewState) Tab(sectionID string) Tab {
	if tab, ok := v.ActiveTab[sectionID]; ok && tab == TabBlocks {
		return TabBlocks
	}
	return TabSettings
}

// MessageKind classifies a transient message.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
	MessageWarning MessageKind = "warning"
	MessageInfo    MessageKind = "info"
)

// Message is the single transient notice shown to the user.
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

// WidgetKind names the input control a widget renders as.
type WidgetKind string

const (
	WidgetText     WidgetKind = "text"
	WidgetTextArea WidgetKind = "textarea"
	WidgetNumber   WidgetKind = "number"
	WidgetCheckbox WidgetKind = "checkbox"
	WidgetColor    WidgetKind = "color"
	WidgetSelect   WidgetKind = "select"
	WidgetImage    WidgetKind = "image"
	WidgetJSON     WidgetKind = "json"
	WidgetReadOnly WidgetKind = "readonly"
)

// Scope identifies what a widget edits.
type Scope string

const (
	ScopeTemplate Scope = "template"
	ScopeSection  Scope = "section"
	ScopeBlock    Scope = "block"
)

// Target addresses the value a widget edits. Edits are sent back to the
// controller using these coordinates.
type Target struct {
	Scope     Scope  `json:"scope"`
	SectionID string `json:"section_id,omitempty"`
	BlockID   string `json:"block_id,omitempty"`
	Key       string `json:"key"`
}

// Choice is one option of a select widget.
type Choice struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Widget describes one input control.
type Widget struct {
	Kind     WidgetKind       `json:"kind"`
	Field    schema.FieldKind `json:"field,omitempty"`
	Target   Target           `json:"target"`
	Label    string           `json:"label"`
	Help     string           `json:"help,omitempty"`
	Value    any              `json:"value,omitempty"`
	Text     string           `json:"text"`
	Checked  bool             `json:"checked,omitempty"`
	Min      *float64         `json:"min,omitempty"`
	Max      *float64         `json:"max,omitempty"`
	Step     *float64         `json:"step,omitempty"`
	Options  []Choice         `json:"options,omitempty"`
	Preview  string           `json:"preview,omitempty"`
	Disabled bool             `json:"disabled,omitempty"`

	// Picker marks image widgets whose value may come from an external
	// image picker. Clearable widgets offer an action posting empty input.
	Picker    bool `json:"picker,omitempty"`
	Clearable bool `json:"clearable,omitempty"`
}

// RawSetting is a stored setting shown without a schema.
type RawSetting struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// BlockCard describes one block inside the blocks tab.
type BlockCard struct {
	ID          string       `json:"id"`
	TypeID      string       `json:"type_id"`
	Title       string       `json:"title"`
	Known       bool         `json:"known"`
	Expanded    bool         `json:"expanded"`
	CanMoveUp   bool         `json:"can_move_up"`
	CanMoveDown bool         `json:"can_move_down"`
	Placeholder string       `json:"placeholder,omitempty"`
	Fields      []Widget     `json:"fields,omitempty"`
	Raw         []RawSetting `json:"raw,omitempty"`
}

// BlocksPanel is the blocks tab of a section.
type BlocksPanel struct {
	Options []Choice    `json:"options,omitempty"`
	Empty   string      `json:"empty,omitempty"`
	Cards   []BlockCard `json:"cards"`
}

// SectionContent is rendered only for expanded sections.
type SectionContent struct {
	ActiveTab   Tab          `json:"active_tab"`
	Placeholder string       `json:"placeholder,omitempty"`
	TypeField   *Widget      `json:"type_field,omitempty"`
	Settings    []Widget     `json:"settings,omitempty"`
	Blocks      *BlocksPanel `json:"blocks,omitempty"`
}

// SectionPanel describes one section of the template in display order.
type SectionPanel struct {
	ID          string          `json:"id"`
	TypeID      string          `json:"type_id"`
	Title       string          `json:"title"`
	Known       bool            `json:"known"`
	Expanded    bool            `json:"expanded"`
	CanMoveUp   bool            `json:"can_move_up"`
	CanMoveDown bool            `json:"can_move_down"`
	BlockCount  int             `json:"block_count"`
	Content     *SectionContent `json:"content,omitempty"`
}

// TemplatePanel is the editing area of the selected template.
type TemplatePanel struct {
	Name        Widget         `json:"name"`
	Description Widget         `json:"description"`
	Dirty       bool           `json:"dirty"`
	Sections    []SectionPanel `json:"sections"`
}

// TemplateItem is one entry of the template list.
type TemplateItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active,omitempty"`
}

// SectionTypeItem is one entry of the "add section" palette.
type SectionTypeItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Form is the complete, UI-agnostic description of the editor screen.
type Form struct {
	Loading      bool              `json:"loading"`
	Message      *Message          `json:"message,omitempty"`
	Templates    []TemplateItem    `json:"templates"`
	SectionTypes []SectionTypeItem `json:"section_types"`
	Empty        string            `json:"empty,omitempty"`
	Template     *TemplatePanel    `json:"template,omitempty"`
}
