package schema

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func sectionsFS() fstest.MapFS {
	return fstest.MapFS{
		"hero/schema.yaml": {Data: []byte(`
name: Hero
description: Banner
settings:
  title: {type: text, default: Welcome}
blocks:
  cta:
    settings:
      label: {type: text, default: Click}
`)},
		"hero/hero.php":              {Data: []byte("<section></section>")},
		"footer/footer.html":         {Data: []byte("<footer></footer>")},
		"broken/schema.json":         {Data: []byte("{not json")},
		"_partials/schema.yaml":      {Data: []byte("name: Hidden")},
		"empty-dir/readme.txt":       {Data: []byte("nothing here")},
		"testimonials/schema.json":   {Data: []byte(`{"settings": {"heading": {"type": "text"}}}`)},
		"stray-file-at-root.json":    {Data: []byte("{}")},
	}
}

func TestFileStore_List(t *testing.T) {
	store := NewFileStore(sectionsFS())

	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []Summary{
		{ID: "broken", Name: "Broken"},
		{ID: "footer", Name: "Footer"},
		{ID: "hero", Name: "Hero", Description: "Banner"},
		{ID: "testimonials", Name: "Testimonials"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summaries mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore_SchemasSkipsMalformed(t *testing.T) {
	store := NewFileStore(sectionsFS())

	got, err := store.Schemas(context.Background())
	if err != nil {
		t.Fatalf("schemas: %v", err)
	}
	var ids []string
	for _, section := range got {
		ids = append(ids, section.ID)
	}
	if diff := cmp.Diff([]string{"hero", "testimonials"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if got[0].Source != "hero/schema.yaml" {
		t.Fatalf("expected source path, got %q", got[0].Source)
	}
}

func TestFileStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileStore(sectionsFS()).List(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
