package form

import (
	"sort"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/schema"
)

// Placeholder texts shown where there is nothing to edit.
const (
	EmptyEditor        = "Select a template or create a new one."
	NoSectionSchema    = "No configuration available for this section."
	NoBlockTypes       = "This section does not accept blocks."
	NoBlockSchema      = "No schema available for this block."
	NoSectionTypes     = "No sections available."
	DefaultBlockTitle  = "Block"
	sectionTypeIDLabel = "Section type"
)

// SchemaLookup resolves section type schemas. *schema.Registry satisfies it.
type SchemaLookup interface {
	Section(id string) (schema.SectionType, bool)
}

// Input is everything the renderer reads.
type Input struct {
	Template     *document.Template
	Schemas      SchemaLookup
	View         ViewState
	Templates    []TemplateItem
	SectionTypes []schema.Summary
	Loading      bool
	Dirty        bool
	Message      *Message
}

// Render derives the full form description from the template, the schemas
// and the view state. It is pure: the same input always yields the same
// form, and unknown or stale schema references degrade to placeholders.
func Render(in Input) Form {
	out := Form{
		Loading:      in.Loading,
		Message:      in.Message,
		Templates:    templateItems(in),
		SectionTypes: sectionTypeItems(in.SectionTypes),
	}
	if in.Template == nil {
		out.Empty = EmptyEditor
		return out
	}
	out.Template = renderTemplate(in)
	return out
}

func templateItems(in Input) []TemplateItem {
	out := make([]TemplateItem, 0, len(in.Templates))
	active := ""
	if in.Template != nil {
		active = in.Template.OriginalID
	}
	for _, item := range in.Templates {
		item.Active = active != "" && item.ID == active
		out = append(out, item)
	}
	return out
}

func sectionTypeItems(summaries []schema.Summary) []SectionTypeItem {
	out := make([]SectionTypeItem, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, SectionTypeItem{ID: summary.ID, Name: summary.Name, Description: summary.Description})
	}
	return out
}

func renderTemplate(in Input) *TemplatePanel {
	tpl := in.Template
	panel := &TemplatePanel{
		Dirty: in.Dirty,
		Name: Widget{
			Kind:   WidgetText,
			Field:  schema.KindString,
			Target: Target{Scope: ScopeTemplate, Key: document.FieldName},
			Label:  "Name",
			Value:  tpl.Name,
			Text:   tpl.Name,
		},
		Description: Widget{
			Kind:   WidgetTextArea,
			Field:  schema.KindString,
			Target: Target{Scope: ScopeTemplate, Key: document.FieldDescription},
			Label:  "Description",
			Value:  tpl.Description,
			Text:   tpl.Description,
		},
		Sections: make([]SectionPanel, 0, len(tpl.Order)),
	}
	for i, id := range tpl.Order {
		section, ok := tpl.Sections[id]
		if !ok {
			continue
		}
		panel.Sections = append(panel.Sections, renderSection(in, id, section, i, len(tpl.Order)))
	}
	if in.Loading {
		disablePanel(panel)
	}
	return panel
}

func renderSection(in Input, id string, section *document.Section, index, total int) SectionPanel {
	spec, known := lookup(in.Schemas, section.TypeID)
	panel := SectionPanel{
		ID:          id,
		TypeID:      section.TypeID,
		Title:       section.TypeID,
		Known:       known,
		Expanded:    in.View.Expanded[id],
		CanMoveUp:   index > 0,
		CanMoveDown: index < total-1,
		BlockCount:  section.Blocks.Len(),
	}
	if known && spec.Name != "" {
		panel.Title = spec.Name
	}
	if !panel.Expanded {
		return panel
	}

	content := &SectionContent{ActiveTab: in.View.Tab(id)}
	if !known {
		content.Placeholder = NoSectionSchema
		panel.Content = content
		return panel
	}

	content.TypeField = &Widget{
		Kind:     WidgetReadOnly,
		Field:    schema.KindString,
		Target:   Target{Scope: ScopeSection, SectionID: id, Key: "section_id"},
		Label:    sectionTypeIDLabel,
		Value:    section.TypeID,
		Text:     section.TypeID,
		Disabled: true,
	}
	for _, field := range spec.Fields {
		target := Target{Scope: ScopeSection, SectionID: id, Key: field.Key}
		content.Settings = append(content.Settings, renderWidget(field, target, section.Settings))
	}
	content.Blocks = renderBlocks(in, id, section, spec)
	panel.Content = content
	return panel
}

func renderBlocks(in Input, sectionID string, section *document.Section, spec schema.SectionType) *BlocksPanel {
	panel := &BlocksPanel{Cards: []BlockCard{}}
	if len(spec.Blocks) == 0 {
		panel.Empty = NoBlockTypes
	}
	for _, block := range spec.Blocks {
		panel.Options = append(panel.Options, Choice{Value: block.ID, Label: block.Name})
	}

	ids := section.Blocks.IDs()
	for i, blockID := range ids {
		block, _ := section.Blocks.Get(blockID)
		card := BlockCard{
			ID:          blockID,
			TypeID:      block.TypeID,
			Title:       DefaultBlockTitle,
			Expanded:    in.View.ExpandedBlocks[blockID],
			CanMoveUp:   i > 0,
			CanMoveDown: i < len(ids)-1,
		}
		blockSpec, known := spec.Block(block.TypeID)
		card.Known = known
		if known {
			card.Title = blockSpec.Name
			for _, field := range blockSpec.Fields {
				target := Target{Scope: ScopeBlock, SectionID: sectionID, BlockID: blockID, Key: field.Key}
				card.Fields = append(card.Fields, renderWidget(field, target, block.Settings))
			}
		} else {
			if block.TypeID != document.UnknownType {
				card.Title = schema.HumanizeID(block.TypeID)
			}
			card.Placeholder = NoBlockSchema
			card.Raw = rawSettings(block.Settings)
		}
		panel.Cards = append(panel.Cards, card)
	}
	return panel
}

func rawSettings(settings map[string]any) []RawSetting {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]RawSetting, 0, len(keys))
	for _, key := range keys {
		out = append(out, RawSetting{Key: key, Text: DisplayText(settings[key], schema.KindString)})
	}
	return out
}

func lookup(schemas SchemaLookup, typeID string) (schema.SectionType, bool) {
	if schemas == nil {
		return schema.SectionType{}, false
	}
	return schemas.Section(typeID)
}

// Disable returns a copy of f with the loading flag set and every input
// disabled. f itself is not modified.
func Disable(f Form) Form {
	f.Loading = true
	if f.Template == nil {
		return f
	}
	panel := *f.Template
	panel.Sections = append([]SectionPanel(nil), panel.Sections...)
	for i := range panel.Sections {
		content := panel.Sections[i].Content
		if content == nil {
			continue
		}
		copied := *content
		copied.Settings = append([]Widget(nil), content.Settings...)
		if content.Blocks != nil {
			blocks := *content.Blocks
			blocks.Cards = append([]BlockCard(nil), blocks.Cards...)
			for j := range blocks.Cards {
				blocks.Cards[j].Fields = append([]Widget(nil), blocks.Cards[j].Fields...)
			}
			copied.Blocks = &blocks
		}
		panel.Sections[i].Content = &copied
	}
	disablePanel(&panel)
	f.Template = &panel
	return f
}

func disablePanel(panel *TemplatePanel) {
	panel.Name.Disabled = true
	panel.Description.Disabled = true
	for i := range panel.Sections {
		content := panel.Sections[i].Content
		if content == nil {
			continue
		}
		for j := range content.Settings {
			content.Settings[j].Disabled = true
		}
		if content.Blocks == nil {
			continue
		}
		for j := range content.Blocks.Cards {
			for k := range content.Blocks.Cards[j].Fields {
				content.Blocks.Cards[j].Fields[k].Disabled = true
			}
		}
	}
}
