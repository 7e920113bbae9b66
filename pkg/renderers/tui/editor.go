package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/form"
)

// Menu labels.
const (
	LabelOpenTemplate    = "Open template"
	LabelNewTemplate     = "New template"
	LabelSaveTemplate    = "Save template"
	LabelRename          = "Rename template"
	LabelDescribe        = "Edit description"
	LabelAddSection      = "Add section"
	LabelEditSection     = "Edit section"
	LabelRefresh         = "Refresh"
	LabelQuit            = "Quit"
	LabelBack            = "Back"
	LabelEditSettings    = "Edit settings"
	LabelBlocks          = "Blocks"
	LabelMoveUp          = "Move up"
	LabelMoveDown        = "Move down"
	LabelRemoveSection   = "Remove section"
	LabelAddBlock        = "Add block"
	LabelRemoveBlock     = "Remove block"
	LabelEditBlockPrefix = "Edit "
)

var (
	// ErrNoController is returned by New without a controller.
	ErrNoController = errors.New("tui: controller is required")

	errQuit = errors.New("tui: quit")
)

// Editor is an interactive terminal front end for an editor.Controller. It
// prints the rendered form as an outline, offers the actions the form
// allows, and dispatches the chosen intent.
type Editor struct {
	ctrl   *editor.Controller
	driver PromptDriver
	out    io.Writer
	theme  Theme
	logger *slog.Logger
	images ImagePicker
}

// New constructs a terminal editor with defaults (survey driver, stdout).
func New(ctrl *editor.Controller, options ...Option) (*Editor, error) {
	if ctrl == nil {
		return nil, ErrNoController
	}
	e := &Editor{
		ctrl:   ctrl,
		out:    os.Stdout,
		theme:  DefaultTheme(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.driver == nil {
		e.driver = NewSurveyDriver(e.out)
	}
	return e, nil
}

// Run loads the template list and loops until the user quits, the prompt
// is interrupted (ErrAborted) or ctx ends.
func (e *Editor) Run(ctx context.Context, s *editor.Session) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	e.dispatch(ctx, s, editor.Refresh{})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := e.ctrl.Form(s)
		if err := e.driver.Info(ctx, Outline(f, "", e.theme)); err != nil {
			return err
		}
		err := e.mainMenu(ctx, s, f)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

type action struct {
	label string
	run   func() error
}

func (e *Editor) choose(ctx context.Context, message string, actions []action) error {
	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = a.label
	}
	idx, err := e.driver.Select(ctx, SelectConfig{Message: message, Options: labels, PageSize: 12})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(actions) {
		return fmt.Errorf("tui: invalid selection %d", idx)
	}
	return actions[idx].run()
}

func (e *Editor) mainMenu(ctx context.Context, s *editor.Session, f form.Form) error {
	var actions []action
	if len(f.Templates) > 0 {
		actions = append(actions, action{LabelOpenTemplate, func() error { return e.openTemplate(ctx, s, f) }})
	}
	actions = append(actions, action{LabelNewTemplate, func() error {
		return e.withDiscard(ctx, s, func(force bool) editor.Intent { return editor.CreateTemplate{Force: force} })
	}})

	if panel := f.Template; panel != nil {
		actions = append(actions,
			action{LabelSaveTemplate, func() error {
				e.dispatch(ctx, s, editor.SaveTemplate{})
				return nil
			}},
			action{LabelRename, func() error { return e.editTemplateField(ctx, s, panel.Name) }},
			action{LabelDescribe, func() error { return e.editTemplateField(ctx, s, panel.Description) }},
		)
		if len(f.SectionTypes) > 0 {
			actions = append(actions, action{LabelAddSection, func() error { return e.addSection(ctx, s, f.SectionTypes) }})
		}
		if len(panel.Sections) > 0 {
			actions = append(actions, action{LabelEditSection, func() error { return e.pickSection(ctx, s, panel.Sections) }})
		}
	}

	actions = append(actions,
		action{LabelRefresh, func() error {
			e.dispatch(ctx, s, editor.Refresh{})
			return nil
		}},
		action{LabelQuit, func() error { return e.quit(ctx, f) }},
	)
	return e.choose(ctx, "What next?", actions)
}

func (e *Editor) quit(ctx context.Context, f form.Form) error {
	if f.Template == nil || !f.Template.Dirty {
		return errQuit
	}
	ok, err := e.driver.Confirm(ctx, ConfirmConfig{Message: "Discard unsaved changes and quit?"})
	if err != nil {
		return err
	}
	if ok {
		return errQuit
	}
	return nil
}

func (e *Editor) openTemplate(ctx context.Context, s *editor.Session, f form.Form) error {
	labels := make([]string, len(f.Templates))
	for i, item := range f.Templates {
		labels[i] = fmt.Sprintf("%s (%s)", item.Name, item.ID)
	}
	idx, err := e.driver.Select(ctx, SelectConfig{Message: "Template", Options: labels, Filterable: true, PageSize: 12})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(f.Templates) {
		return nil
	}
	id := f.Templates[idx].ID
	return e.withDiscard(ctx, s, func(force bool) editor.Intent { return editor.SelectTemplate{ID: id, Force: force} })
}

// withDiscard dispatches build(false) and, when the controller refuses
// because of unsaved changes, asks before retrying with force.
func (e *Editor) withDiscard(ctx context.Context, s *editor.Session, build func(force bool) editor.Intent) error {
	out := e.dispatch(ctx, s, build(false))
	var editErr *editor.Error
	if !errors.As(out.Err, &editErr) || editErr.Kind != editor.KindDirty {
		return nil
	}
	ok, err := e.driver.Confirm(ctx, ConfirmConfig{Message: "Discard unsaved changes?"})
	if err != nil || !ok {
		return err
	}
	e.dispatch(ctx, s, build(true))
	return nil
}

func (e *Editor) editTemplateField(ctx context.Context, s *editor.Session, widget form.Widget) error {
	input, ok, err := e.promptWidget(ctx, widget)
	if err != nil || !ok {
		return err
	}
	text, _ := input.(string)
	e.dispatch(ctx, s, editor.SetTemplateField{Field: widget.Target.Key, Value: text})
	return nil
}

func (e *Editor) addSection(ctx context.Context, s *editor.Session, types []form.SectionTypeItem) error {
	labels := make([]string, len(types))
	for i, item := range types {
		labels[i] = fmt.Sprintf("%s (%s)", item.Name, item.ID)
	}
	idx, err := e.driver.Select(ctx, SelectConfig{Message: "Section type", Options: labels, Filterable: true, PageSize: 12})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(types) {
		return nil
	}
	e.dispatch(ctx, s, editor.AddSection{TypeID: types[idx].ID})
	return nil
}

func (e *Editor) pickSection(ctx context.Context, s *editor.Session, sections []form.SectionPanel) error {
	actions := make([]action, 0, len(sections)+1)
	for i, section := range sections {
		id := section.ID
		actions = append(actions, action{fmt.Sprintf("%d. %s", i+1, section.Title), func() error {
			return e.sectionMenu(ctx, s, id)
		}})
	}
	actions = append(actions, action{LabelBack, func() error { return nil }})
	return e.choose(ctx, "Section", actions)
}

// sectionMenu expands the section for the duration of the menu so the
// rendered form carries its content.
func (e *Editor) sectionMenu(ctx context.Context, s *editor.Session, sectionID string) error {
	panel, ok := findSection(e.ctrl.Form(s), sectionID)
	if !ok {
		return nil
	}
	if !panel.Expanded {
		e.dispatch(ctx, s, editor.ToggleSection{SectionID: sectionID})
		defer func() {
			if current, ok := findSection(e.ctrl.Form(s), sectionID); ok && current.Expanded {
				e.dispatch(ctx, s, editor.ToggleSection{SectionID: sectionID})
			}
		}()
	}

	for {
		panel, ok := findSection(e.ctrl.Form(s), sectionID)
		if !ok || panel.Content == nil {
			return nil
		}
		done := false
		var actions []action
		content := panel.Content
		if content.Placeholder != "" {
			if err := e.driver.Info(ctx, content.Placeholder); err != nil {
				return err
			}
		} else {
			actions = append(actions,
				action{LabelEditSettings, func() error { return e.editSettings(ctx, s, sectionID) }},
				action{LabelBlocks, func() error { return e.blocksMenu(ctx, s, sectionID) }},
			)
		}
		if panel.CanMoveUp {
			actions = append(actions, action{LabelMoveUp, func() error {
				e.dispatch(ctx, s, editor.MoveSectionUp{SectionID: sectionID})
				return nil
			}})
		}
		if panel.CanMoveDown {
			actions = append(actions, action{LabelMoveDown, func() error {
				e.dispatch(ctx, s, editor.MoveSectionDown{SectionID: sectionID})
				return nil
			}})
		}
		actions = append(actions,
			action{LabelRemoveSection, func() error {
				ok, err := e.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Remove %s?", panel.Title)})
				if err != nil {
					return err
				}
				if ok {
					e.dispatch(ctx, s, editor.RemoveSection{SectionID: sectionID})
					done = true
				}
				return nil
			}},
			action{LabelBack, func() error {
				done = true
				return nil
			}},
		)
		if err := e.choose(ctx, panel.Title, actions); err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (e *Editor) editSettings(ctx context.Context, s *editor.Session, sectionID string) error {
	e.dispatch(ctx, s, editor.SelectTab{SectionID: sectionID, Tab: form.TabSettings})
	panel, ok := findSection(e.ctrl.Form(s), sectionID)
	if !ok || panel.Content == nil {
		return nil
	}
	return e.pickWidget(ctx, s, panel.Content.Settings, func(widget form.Widget, input any) editor.Intent {
		return editor.ChangeSectionSetting{SectionID: sectionID, Key: widget.Target.Key, Input: input}
	})
}

func (e *Editor) pickWidget(ctx context.Context, s *editor.Session, widgets []form.Widget, build func(form.Widget, any) editor.Intent) error {
	actions := make([]action, 0, len(widgets)+1)
	for _, widget := range widgets {
		actions = append(actions, action{widget.Label, func() error {
			input, ok, err := e.promptWidget(ctx, widget)
			if err != nil || !ok {
				return err
			}
			e.dispatch(ctx, s, build(widget, input))
			return nil
		}})
	}
	actions = append(actions, action{LabelBack, func() error { return nil }})
	return e.choose(ctx, "Setting", actions)
}

func (e *Editor) blocksMenu(ctx context.Context, s *editor.Session, sectionID string) error {
	e.dispatch(ctx, s, editor.SelectTab{SectionID: sectionID, Tab: form.TabBlocks})
	for {
		panel, ok := findSection(e.ctrl.Form(s), sectionID)
		if !ok || panel.Content == nil || panel.Content.Blocks == nil {
			return nil
		}
		blocks := panel.Content.Blocks
		if blocks.Empty != "" {
			if err := e.driver.Info(ctx, blocks.Empty); err != nil {
				return err
			}
		}

		done := false
		var actions []action
		if len(blocks.Options) > 0 {
			actions = append(actions, action{LabelAddBlock, func() error { return e.addBlock(ctx, s, sectionID, blocks.Options) }})
		}
		for _, card := range blocks.Cards {
			blockID := card.ID
			actions = append(actions, action{LabelEditBlockPrefix + card.Title, func() error {
				return e.blockMenu(ctx, s, sectionID, blockID)
			}})
		}
		actions = append(actions, action{LabelBack, func() error {
			done = true
			return nil
		}})
		if err := e.choose(ctx, "Blocks", actions); err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (e *Editor) addBlock(ctx context.Context, s *editor.Session, sectionID string, options []form.Choice) error {
	labels := make([]string, len(options))
	for i, option := range options {
		labels[i] = option.Label
	}
	idx, err := e.driver.Select(ctx, SelectConfig{Message: "Block type", Options: labels, Filterable: true})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(options) {
		return nil
	}
	e.dispatch(ctx, s, editor.AddBlock{SectionID: sectionID, TypeID: options[idx].Value})
	return nil
}

func (e *Editor) blockMenu(ctx context.Context, s *editor.Session, sectionID, blockID string) error {
	card, ok := findCard(e.ctrl.Form(s), sectionID, blockID)
	if !ok {
		return nil
	}
	if !card.Expanded {
		e.dispatch(ctx, s, editor.ToggleBlock{BlockID: blockID})
		card, _ = findCard(e.ctrl.Form(s), sectionID, blockID)
	}
	if card.Placeholder != "" {
		if err := e.driver.Info(ctx, card.Placeholder); err != nil {
			return err
		}
	}

	var actions []action
	if len(card.Fields) > 0 {
		actions = append(actions, action{LabelEditSettings, func() error {
			return e.pickWidget(ctx, s, card.Fields, func(widget form.Widget, input any) editor.Intent {
				return editor.ChangeBlockSetting{SectionID: sectionID, BlockID: blockID, Key: widget.Target.Key, Input: input}
			})
		}})
	}
	if card.CanMoveUp {
		actions = append(actions, action{LabelMoveUp, func() error {
			e.dispatch(ctx, s, editor.MoveBlockUp{SectionID: sectionID, BlockID: blockID})
			return nil
		}})
	}
	if card.CanMoveDown {
		actions = append(actions, action{LabelMoveDown, func() error {
			e.dispatch(ctx, s, editor.MoveBlockDown{SectionID: sectionID, BlockID: blockID})
			return nil
		}})
	}
	actions = append(actions,
		action{LabelRemoveBlock, func() error {
			e.dispatch(ctx, s, editor.RemoveBlock{SectionID: sectionID, BlockID: blockID})
			return nil
		}},
		action{LabelBack, func() error { return nil }},
	)
	return e.choose(ctx, card.Title, actions)
}

// promptWidget asks for a new value for widget. ok is false for read-only
// widgets.
func (e *Editor) promptWidget(ctx context.Context, widget form.Widget) (any, bool, error) {
	message := widget.Label
	switch widget.Kind {
	case form.WidgetReadOnly:
		return nil, false, e.driver.Info(ctx, fmt.Sprintf("%s: %s (read-only)", widget.Label, widget.Text))
	case form.WidgetCheckbox:
		value, err := e.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: widget.Checked, Help: widget.Help})
		return value, err == nil, err
	case form.WidgetSelect:
		labels := make([]string, len(widget.Options))
		selected := 0
		for i, option := range widget.Options {
			labels[i] = option.Label
			if option.Selected {
				selected = i
			}
		}
		if len(labels) == 0 {
			return nil, false, nil
		}
		idx, err := e.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: selected, Help: widget.Help})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(widget.Options) {
			return nil, false, nil
		}
		return widget.Options[idx].Value, true, nil
	case form.WidgetImage:
		return e.promptImage(ctx, message, widget.Text, widget.Help, widget.Picker, widget.Clearable)
	case form.WidgetTextArea, form.WidgetJSON:
		value, err := e.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: widget.Text, Help: widget.Help})
		return value, err == nil, err
	case form.WidgetNumber:
		value, err := e.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   widget.Text,
			Help:      widget.Help,
			Validator: validateNumber,
		})
		return value, err == nil, err
	default:
		value, err := e.driver.Input(ctx, InputConfig{Message: message, Default: widget.Text, Help: widget.Help})
		return value, err == nil, err
	}
}

func validateNumber(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return fmt.Errorf("%q is not a number", text)
	}
	return nil
}

func (e *Editor) dispatch(ctx context.Context, s *editor.Session, intent editor.Intent) editor.Outcome {
	out := e.ctrl.Dispatch(ctx, s, intent)
	if out.Err != nil {
		e.logger.Debug("intent failed", "intent", intent.Type(), "error", out.Err)
	}
	return out
}

func findSection(f form.Form, sectionID string) (form.SectionPanel, bool) {
	if f.Template == nil {
		return form.SectionPanel{}, false
	}
	for _, panel := range f.Template.Sections {
		if panel.ID == sectionID {
			return panel, true
		}
	}
	return form.SectionPanel{}, false
}

func findCard(f form.Form, sectionID, blockID string) (form.BlockCard, bool) {
	panel, ok := findSection(f, sectionID)
	if !ok || panel.Content == nil || panel.Content.Blocks == nil {
		return form.BlockCard{}, false
	}
	for _, card := range panel.Content.Blocks.Cards {
		if card.ID == blockID {
			return card, true
		}
	}
	return form.BlockCard{}, false
}
