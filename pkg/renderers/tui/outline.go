package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/render"
)

// Text renders a form description as a plain-text outline. The terminal
// editor prints it before every menu; it is also registered as the "text"
// output renderer.
type Text struct {
	theme Theme
}

var _ render.Renderer = Text{}

// NewText returns a text renderer using theme for message prefixes.
func NewText(theme Theme) Text {
	return Text{theme: theme}
}

func (Text) Name() string {
	return "text"
}

func (Text) ContentType() string {
	return "text/plain; charset=utf-8"
}

func (t Text) Render(_ context.Context, f form.Form, options render.Options) ([]byte, error) {
	return []byte(Outline(f, options.Title, t.theme)), nil
}

// Outline formats f as an indented outline.
func Outline(f form.Form, title string, theme Theme) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "%s\n\n", title)
	}
	if f.Loading {
		b.WriteString("(loading)\n")
	}
	if f.Message != nil {
		fmt.Fprintf(&b, "%s %s\n", theme.prefix(f.Message.Kind), f.Message.Text)
	}

	b.WriteString("Templates:\n")
	if len(f.Templates) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, item := range f.Templates {
		marker := " "
		if item.Active {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s (%s)\n", marker, item.Name, item.ID)
	}
	b.WriteString("\n")

	panel := f.Template
	if panel == nil {
		b.WriteString(f.Empty)
		b.WriteString("\n")
		return b.String()
	}

	heading := panel.Name.Text
	if heading == "" {
		heading = "(untitled)"
	}
	if panel.Dirty {
		heading += " [unsaved]"
	}
	fmt.Fprintf(&b, "%s\n", heading)
	if panel.Description.Text != "" {
		fmt.Fprintf(&b, "  %s\n", panel.Description.Text)
	}
	if len(panel.Sections) == 0 {
		b.WriteString("  (no sections)\n")
	}
	for i, section := range panel.Sections {
		writeSection(&b, i+1, section)
	}
	return b.String()
}

func writeSection(b *strings.Builder, n int, section form.SectionPanel) {
	fmt.Fprintf(b, "  %d. %s [%s]", n, section.Title, section.TypeID)
	if section.BlockCount > 0 {
		fmt.Fprintf(b, " (%d blocks)", section.BlockCount)
	}
	b.WriteString("\n")

	content := section.Content
	if content == nil {
		return
	}
	if content.Placeholder != "" {
		fmt.Fprintf(b, "       %s\n", content.Placeholder)
		return
	}
	if content.ActiveTab == form.TabSettings {
		for _, widget := range content.Settings {
			writeWidget(b, "       ", widget)
		}
		return
	}

	blocks := content.Blocks
	if blocks == nil {
		return
	}
	if blocks.Empty != "" {
		fmt.Fprintf(b, "       %s\n", blocks.Empty)
	}
	for _, card := range blocks.Cards {
		fmt.Fprintf(b, "       - %s [%s]\n", card.Title, card.TypeID)
		if !card.Expanded {
			continue
		}
		if card.Placeholder != "" {
			fmt.Fprintf(b, "           %s\n", card.Placeholder)
		}
		for _, raw := range card.Raw {
			fmt.Fprintf(b, "           %s = %s\n", raw.Key, raw.Text)
		}
		for _, widget := range card.Fields {
			writeWidget(b, "           ", widget)
		}
	}
}

func writeWidget(b *strings.Builder, indent string, widget form.Widget) {
	text := widget.Text
	switch widget.Kind {
	case form.WidgetCheckbox:
		text = "no"
		if widget.Checked {
			text = "yes"
		}
	case form.WidgetJSON, form.WidgetTextArea:
		text = strings.ReplaceAll(text, "\n", "\n"+indent+"  ")
	}
	fmt.Fprintf(b, "%s%s: %s\n", indent, widget.Label, text)
}

func (t Theme) prefix(kind form.MessageKind) string {
	var p string
	switch kind {
	case form.MessageSuccess:
		p = t.SuccessPrefix
	case form.MessageWarning:
		p = t.WarningPrefix
	case form.MessageError:
		p = t.ErrorPrefix
	default:
		p = t.InfoPrefix
	}
	if p == "" {
		return "[" + string(kind) + "]"
	}
	return p
}
