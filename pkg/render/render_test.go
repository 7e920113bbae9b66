package render

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-sections/pkg/form"
)

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(JSON{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if err := registry.Register(JSON{}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil renderer error")
	}
	if !registry.Has("JSON") || registry.Has("pdf") {
		t.Fatalf("unexpected Has results")
	}
	_, err = registry.Get("pdf")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), "available: json") {
		t.Fatalf("error should list formats: %v", err)
	}
	if diff := cmp.Diff([]string{"json"}, registry.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	out, contentType, err := registry.Render(context.Background(), " Json ", form.Form{Empty: form.EmptyEditor}, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if contentType != (JSON{}).ContentType() || len(out) == 0 {
		t.Fatalf("unexpected render result %q (%s)", out, contentType)
	}

	if _, err := NewRegistry(JSON{}, JSON{}); err == nil {
		t.Fatalf("expected duplicate error from constructor")
	}
}

func TestJSONRenderer(t *testing.T) {
	f := form.Form{
		Templates:    []form.TemplateItem{{ID: "home", Name: "Home", Active: true}},
		SectionTypes: []form.SectionTypeItem{},
		Empty:        form.EmptyEditor,
	}
	out, err := JSON{}.Render(context.Background(), f, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var got form.Form
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func acmeManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:      "acme",
		Version:   "1.0.0",
		Tokens:    map[string]string{"brand": "#123456", "radius": "4px"},
		Templates: map[string]string{"sections.widget": "themes/acme/widget.html"},
		Assets: theme.Assets{
			Prefix: "/assets/themes/acme",
			Files:  map[string]string{"stylesheet": "theme.css"},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{"brand": "#654321"},
				Assets: theme.Assets{Files: map[string]string{"logo": "logo-dark.svg"}},
			},
		},
	}
}

func TestThemeConfig(t *testing.T) {
	cfg := ThemeConfig(acmeManifest(), "dark", map[string]string{"sections.page": "page.html"})

	if cfg.Theme != "acme" || cfg.Variant != "dark" {
		t.Fatalf("unexpected identity %s/%s", cfg.Theme, cfg.Variant)
	}
	wantVars := map[string]string{"--brand": "#654321", "--radius": "4px"}
	if diff := cmp.Diff(wantVars, cfg.CSSVars); diff != "" {
		t.Fatalf("css vars mismatch (-want +got):\n%s", diff)
	}
	wantPartials := map[string]string{"sections.page": "page.html", "sections.widget": "themes/acme/widget.html"}
	if diff := cmp.Diff(wantPartials, cfg.Partials); diff != "" {
		t.Fatalf("partials mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.AssetURL("stylesheet"); got != "/assets/themes/acme/theme.css" {
		t.Fatalf("unexpected stylesheet url %q", got)
	}
	if got := cfg.AssetURL("logo"); got != "/assets/themes/acme/logo-dark.svg" {
		t.Fatalf("unexpected variant asset url %q", got)
	}
	if got := cfg.AssetURL("missing"); got != "" {
		t.Fatalf("missing asset should resolve to empty, got %q", got)
	}
	if ThemeConfig(nil, "", nil) != nil {
		t.Fatalf("nil manifest should yield nil config")
	}
}

type stubSelector struct {
	selection *theme.Selection
	err       error
}

func (s stubSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	return s.selection, s.err
}

func TestSelectTheme(t *testing.T) {
	cfg, err := SelectTheme(stubSelector{selection: &theme.Selection{Theme: "acme", Variant: "dark", Manifest: acmeManifest()}}, "acme", "dark", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if cfg.Tokens["brand"] != "#654321" {
		t.Fatalf("variant tokens not applied: %+v", cfg.Tokens)
	}

	if _, err := SelectTheme(stubSelector{err: errors.New("boom")}, "acme", "", nil); err == nil {
		t.Fatalf("expected selector error")
	}
	if cfg, err := SelectTheme(nil, "acme", "", nil); cfg != nil || err != nil {
		t.Fatalf("nil selector should be a no-op")
	}
}

func TestSortedHiddenFields(t *testing.T) {
	got := SortedHiddenFields([]HiddenField{Hidden("session", "s1"), CSRFToken("_csrf", "t"), Hidden("", "x"), Hidden("session", "s2")})
	want := []HiddenField{{Name: "_csrf", Value: "t"}, {Name: "session", Value: "s2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
}
