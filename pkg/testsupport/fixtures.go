package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/schema"
)

// SchemaFS returns a small section catalog used across renderer, server and
// CLI tests: a hero with every field kind and a cta block, a footer without
// blocks, and a "legacy" directory that only carries a section template.
func SchemaFS() fstest.MapFS {
	return fstest.MapFS{
		"hero/schema.yaml": {Data: []byte(`name: Hero
description: Large banner
settings:
  title: {type: text, label: Title, default: Welcome}
  body: {type: textarea, label: Body, description: "Shown <b>below</b> the title"}
  image: {type: image, label: Background}
  columns: {type: number, label: Columns, min: 1, max: 4, default: 2}
  dark: {type: checkbox, label: Dark mode}
  accent: {type: color, label: Accent}
  layout: {type: select, label: Layout, options: {left: Left, right: Right}, default: left}
  items: {type: repeater, label: Items}
blocks:
  cta:
    name: Call to action
    settings:
      label: {type: text, label: Label, default: Click}
      url: {type: text, label: Link}
`)},
		"footer/schema.json": {Data: []byte(`{"name": "Footer", "settings": {"copyright": {"type": "text", "label": "Copyright"}}}`)},
		"legacy/legacy.php":  {Data: []byte(`<?php // template only`)},
	}
}

// MustLoadRegistry loads a schema registry from fsys.
func MustLoadRegistry(t *testing.T, fsys fstest.MapFS) *schema.Registry {
	t.Helper()
	registry := schema.NewRegistry(schema.NewFileStore(fsys))
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return registry
}

// ParseTemplate decodes and normalises raw document bytes with
// deterministic ids.
func ParseTemplate(data []byte) (*document.Template, error) {
	raw, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: decode template: %w", err)
	}
	tpl, _ := document.Normalize(raw, document.WithIDGenerator(document.Sequence()))
	return tpl, nil
}

// MustParseTemplate is ParseTemplate for tests.
func MustParseTemplate(t *testing.T, data string) *document.Template {
	t.Helper()
	tpl, err := ParseTemplate([]byte(data))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	return tpl
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an
// io.Writer, returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
