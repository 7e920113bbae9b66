package pongo_test

import (
	"io"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-sections/pkg/render/template/pongo"
	"github.com/goliatone/go-sections/pkg/testsupport"
)

func templatesFS() fstest.MapFS {
	return fstest.MapFS{
		"hello.html":      {Data: []byte(`Hello {{ name|trim }}!`)},
		"use-global.html": {Data: []byte(`env={{ settings.env }}`)},
		"struct.html":     {Data: []byte(`{{ item.type_id }}:{{ item.title }}{% for tag in item.tags %} {{ tag }}{% endfor %}`)},
		"escape.html":     {Data: []byte(`{{ html }}`)},
	}
}

func newEngine(t *testing.T, opts ...pongo.Option) *pongo.Engine {
	t.Helper()
	engine, err := pongo.New(append([]pongo.Option{pongo.WithFS(templatesFS())}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "  Ada "}, w)
	})
	if result != "Hello Ada!" || written != result {
		t.Fatalf("unexpected output result=%q written=%q", result, written)
	}
}

func TestEngine_StructDataUsesJSONNames(t *testing.T) {
	type item struct {
		TypeID string   `json:"type_id"`
		Title  string   `json:"title"`
		Tags   []string `json:"tags"`
	}
	engine := newEngine(t)

	out, err := engine.RenderTemplate("struct", map[string]any{"item": item{TypeID: "hero", Title: "Hero", Tags: []string{"a", "b"}}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "hero:Hero a b" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t, pongo.WithGlobalData(map[string]any{"settings": map[string]any{"env": "staging"}}))

	out, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "env=staging" {
		t.Fatalf("unexpected output %q", out)
	}

	if err := engine.GlobalContext(map[string]any{"settings": map[string]any{"env": "prod"}}); err != nil {
		t.Fatalf("global context: %v", err)
	}
	out, err = engine.RenderTemplate("use-global", map[string]any{"unrelated": true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "env=prod" {
		t.Fatalf("later globals should replace earlier ones, got %q", out)
	}
}

func TestEngine_AutoEscapes(t *testing.T) {
	out, err := newEngine(t).RenderTemplate("escape", map[string]any{"html": "<b>x</b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "&lt;b&gt;x&lt;/b&gt;" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEngine_Errors(t *testing.T) {
	if _, err := pongo.New(); err == nil {
		t.Fatalf("expected error without loaders")
	}
	if _, err := newEngine(t).RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
}
