package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/render"
	"github.com/goliatone/go-sections/pkg/schema"
	"github.com/goliatone/go-sections/pkg/store"
	"github.com/goliatone/go-sections/pkg/testsupport"
)

// stubDriver answers prompts from scripts. Selects are scripted by label
// so tests read like the menus they walk through.
type stubDriver struct {
	selects   []string
	inputs    []string
	confirms  []bool
	textAreas []string
	infos     []string
	prompts   []string
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if len(s.inputs) == 0 {
		return "", ErrAborted
	}
	val := s.inputs[0]
	s.inputs = s.inputs[1:]
	if cfg.Validator != nil {
		if err := cfg.Validator(val); err != nil {
			return "", err
		}
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if len(s.confirms) == 0 {
		return false, ErrAborted
	}
	val := s.confirms[0]
	s.confirms = s.confirms[1:]
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if len(s.selects) == 0 {
		return -1, ErrAborted
	}
	label := s.selects[0]
	s.selects = s.selects[1:]
	for i, option := range cfg.Options {
		if option == label {
			return i, nil
		}
	}
	return -1, fmt.Errorf("option %q not offered in %q: %v", label, cfg.Message, cfg.Options)
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if len(s.textAreas) == 0 {
		return "", ErrAborted
	}
	val := s.textAreas[0]
	s.textAreas = s.textAreas[1:]
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func newTestEditor(t *testing.T, driver PromptDriver, options ...Option) (*Editor, *store.FileStore) {
	t.Helper()
	templates := store.NewFileStore(t.TempDir())
	gw := gateway.NewLocal(templates, schema.NewFileStore(testsupport.SchemaFS()))
	ctrl := editor.New(gw, editor.WithIDGenerator(document.Sequence()))
	ed, err := New(ctrl, append([]Option{WithPromptDriver(driver)}, options...)...)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	return ed, templates
}

func TestEditor_CreateEditAndSave(t *testing.T) {
	driver := &stubDriver{
		selects: []string{
			LabelNewTemplate,
			LabelRename,
			LabelAddSection, "Hero (hero)",
			LabelEditSection, "1. Hero",
			LabelEditSettings, "Title",
			LabelEditSettings, "Dark mode",
			LabelEditSettings, "Layout", "Right",
			LabelBack,
			LabelSaveTemplate,
			LabelQuit,
		},
		inputs:   []string{"Summer Sale", "Hi"},
		confirms: []bool{true},
	}
	ed, templates := newTestEditor(t, driver)

	if err := ed.Run(context.Background(), editor.NewSession("tui")); err != nil {
		t.Fatalf("run: %v (prompts %v)", err, driver.prompts)
	}

	data, err := templates.Get(context.Background(), "summer-sale")
	if err != nil {
		t.Fatalf("get saved template: %v", err)
	}
	raw, err := document.Decode(data)
	if err != nil {
		t.Fatalf("decode saved template: %v", err)
	}
	tpl, _ := document.Normalize(raw)
	if tpl.Name != "Summer Sale" || len(tpl.Order) != 1 {
		t.Fatalf("unexpected template %+v", tpl)
	}
	section, _ := tpl.Section(tpl.Order[0])
	if section.TypeID != "hero" {
		t.Fatalf("expected hero section, got %q", section.TypeID)
	}
	if section.Settings["title"] != "Hi" || section.Settings["dark"] != true || section.Settings["layout"] != "right" {
		t.Fatalf("unexpected settings %#v", section.Settings)
	}

	last := driver.infos[len(driver.infos)-1]
	if !strings.Contains(last, "Template saved") || strings.Contains(last, "[unsaved]") {
		t.Fatalf("expected a clean saved outline, got:\n%s", last)
	}
}

func TestEditor_BlocksMenu(t *testing.T) {
	driver := &stubDriver{
		selects: []string{
			LabelNewTemplate,
			LabelAddSection, "Hero (hero)",
			LabelEditSection, "1. Hero",
			LabelBlocks, LabelAddBlock, "Call to action",
			LabelEditBlockPrefix + "Call to action", LabelEditSettings, "Label",
			LabelBack,
			LabelBack,
			LabelQuit,
		},
		inputs:   []string{"Buy"},
		confirms: []bool{true},
	}
	ed, _ := newTestEditor(t, driver)
	session := editor.NewSession("tui")

	if err := ed.Run(context.Background(), session); err != nil {
		t.Fatalf("run: %v (prompts %v)", err, driver.prompts)
	}

	tpl := session.Template()
	section, _ := tpl.Section(tpl.Order[0])
	ids := section.Blocks.IDs()
	if len(ids) != 1 {
		t.Fatalf("expected one block, got %v", ids)
	}
	block, _ := section.Blocks.Get(ids[0])
	if block.TypeID != "cta" || block.Settings["label"] != "Buy" {
		t.Fatalf("unexpected block %+v", block)
	}
	if !session.Dirty() {
		t.Fatalf("expected the session to stay dirty after quitting without save")
	}
}

func TestEditor_ImageFieldPickAndRemove(t *testing.T) {
	driver := &stubDriver{
		selects: []string{
			LabelNewTemplate,
			LabelAddSection, "Hero (hero)",
			LabelEditSection, "1. Hero",
			LabelEditSettings, "Background", LabelChooseImage, "banners/b.png",
			LabelBack,
			LabelBack,
			LabelQuit,
		},
		confirms: []bool{true},
	}
	library := FilePicker{
		Files: fstest.MapFS{
			"banners/a.jpg":     {Data: []byte("a")},
			"banners/b.png":     {Data: []byte("b")},
			"notes.txt":         {Data: []byte("n")},
			".cache/hidden.png": {Data: []byte("h")},
		},
		URLPrefix: "/media/",
	}
	ed, _ := newTestEditor(t, driver, WithImagePicker(library))
	session := editor.NewSession("tui")

	if err := ed.Run(context.Background(), session); err != nil {
		t.Fatalf("run: %v (prompts %v)", err, driver.prompts)
	}
	tpl := session.Template()
	section, _ := tpl.Section(tpl.Order[0])
	if got := section.Settings["image"]; got != "/media/banners/b.png" {
		t.Fatalf("picked image not stored, got %#v", got)
	}

	driver.selects = []string{LabelEditSection, "1. Hero", LabelEditSettings, "Background", LabelRemoveImage, LabelBack, LabelQuit}
	driver.confirms = []bool{true}
	if err := ed.Run(context.Background(), session); err != nil {
		t.Fatalf("run: %v (prompts %v)", err, driver.prompts)
	}
	section, _ = session.Template().Section(tpl.Order[0])
	if got := section.Settings["image"]; got != "" {
		t.Fatalf("removed image should be stored empty, got %#v", got)
	}
}

func TestEditor_ImageFieldWithoutPickerAsksForURL(t *testing.T) {
	driver := &stubDriver{
		selects: []string{
			LabelNewTemplate,
			LabelAddSection, "Hero (hero)",
			LabelEditSection, "1. Hero",
			LabelEditSettings, "Background",
			LabelBack,
			LabelBack,
			LabelQuit,
		},
		inputs:   []string{"https://cdn.example/x.png"},
		confirms: []bool{true},
	}
	ed, _ := newTestEditor(t, driver)
	session := editor.NewSession("tui")

	if err := ed.Run(context.Background(), session); err != nil {
		t.Fatalf("run: %v (prompts %v)", err, driver.prompts)
	}
	tpl := session.Template()
	section, _ := tpl.Section(tpl.Order[0])
	if got := section.Settings["image"]; got != "https://cdn.example/x.png" {
		t.Fatalf("typed image url not stored, got %#v", got)
	}
}

func TestFilePicker(t *testing.T) {
	picker := FilePicker{Files: fstest.MapFS{
		"z.svg":      {Data: []byte("z")},
		"b/A.PNG":    {Data: []byte("a")},
		"readme.md":  {Data: []byte("r")},
		".git/x.png": {Data: []byte("x")},
	}}
	images, err := picker.Images()
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	if diff := cmp.Diff([]string{"b/A.PNG", "z.svg"}, images); diff != "" {
		t.Fatalf("images mismatch (-want +got):\n%s", diff)
	}
	if got := picker.URL("z.svg"); got != "/z.svg" {
		t.Fatalf("unexpected url %q", got)
	}

	empty := FilePicker{Files: fstest.MapFS{"readme.md": {Data: []byte("r")}}}
	if _, err := empty.PickImage(context.Background(), &stubDriver{}, ""); !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestEditor_QuitDeclinedKeepsEditing(t *testing.T) {
	driver := &stubDriver{
		selects:  []string{LabelNewTemplate, LabelAddSection, "Footer (footer)", LabelQuit, LabelQuit},
		confirms: []bool{false, true},
	}
	ed, _ := newTestEditor(t, driver)

	if err := ed.Run(context.Background(), editor.NewSession("tui")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(driver.confirms) != 0 || len(driver.selects) != 0 {
		t.Fatalf("expected the whole script to be consumed, left %v %v", driver.selects, driver.confirms)
	}
}

func TestEditor_AbortPropagates(t *testing.T) {
	driver := &stubDriver{}
	ed, _ := newTestEditor(t, driver)

	err := ed.Run(context.Background(), editor.NewSession("tui"))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(driver.infos) == 0 || !strings.Contains(driver.infos[0], form.EmptyEditor) {
		t.Fatalf("expected the empty editor outline first, got %v", driver.infos)
	}
}

func TestEditor_RequiresController(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoController) {
		t.Fatalf("expected ErrNoController, got %v", err)
	}
}

func TestValidateNumber(t *testing.T) {
	for _, tc := range []struct {
		in      string
		wantErr bool
	}{
		{in: "", wantErr: false},
		{in: " 3.5 ", wantErr: false},
		{in: "abc", wantErr: true},
	} {
		if err := validateNumber(tc.in); (err != nil) != tc.wantErr {
			t.Fatalf("validateNumber(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
	}
}

func TestFuzzyFilter(t *testing.T) {
	if !fuzzyFilter("", "Hero (hero)", 0) {
		t.Fatalf("empty filter should match")
	}
	if !fuzzyFilter("hro", "Hero (hero)", 0) {
		t.Fatalf("expected fuzzy match")
	}
	if fuzzyFilter("xyz", "Hero (hero)", 0) {
		t.Fatalf("unexpected match")
	}
}

func TestText_Render(t *testing.T) {
	f := form.Form{
		Message:   &form.Message{Kind: form.MessageError, Text: "boom"},
		Templates: []form.TemplateItem{{ID: "landing", Name: "Landing", Active: true}},
		Template: &form.TemplatePanel{
			Name:  form.Widget{Text: "Landing"},
			Dirty: true,
			Sections: []form.SectionPanel{{
				ID: "s1", TypeID: "hero", Title: "Hero", Expanded: true, BlockCount: 2,
				Content: &form.SectionContent{
					ActiveTab: form.TabSettings,
					Settings: []form.Widget{
						{Kind: form.WidgetText, Label: "Title", Text: "Hi"},
						{Kind: form.WidgetCheckbox, Label: "Dark", Checked: true},
					},
				},
			}},
		},
	}
	renderer := NewText(DefaultTheme())
	var _ render.Renderer = renderer

	out, err := renderer.Render(context.Background(), f, render.Options{Title: "Editor"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := strings.Join([]string{
		"Editor",
		"",
		"x boom",
		"Templates:",
		"  * Landing (landing)",
		"",
		"Landing [unsaved]",
		"  1. Hero [hero] (2 blocks)",
		"       Title: Hi",
		"       Dark: yes",
		"",
	}, "\n")
	if string(out) != want {
		t.Fatalf("unexpected outline:\n%s\nwant:\n%s", out, want)
	}
	if renderer.Name() != "text" || !strings.HasPrefix(renderer.ContentType(), "text/plain") {
		t.Fatalf("unexpected metadata %q %q", renderer.Name(), renderer.ContentType())
	}
}
