package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type countingStore struct {
	Store
	lists int
	err   error
}

func (s *countingStore) List(ctx context.Context) ([]Summary, error) {
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.List(ctx)
}

func TestRegistry_LoadCachesUntilInvalidated(t *testing.T) {
	store := &countingStore{Store: NewFileStore(sectionsFS())}
	registry := NewRegistry(store)
	ctx := context.Background()

	if err := registry.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := registry.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.lists != 1 {
		t.Fatalf("expected cached catalog, store listed %d times", store.lists)
	}

	registry.Invalidate()
	if err := registry.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if store.lists != 2 {
		t.Fatalf("expected reload after invalidate, store listed %d times", store.lists)
	}
}

func TestRegistry_LookupsAndDefaults(t *testing.T) {
	registry := NewRegistry(NewFileStore(sectionsFS()))
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, ok := registry.Section("footer"); ok {
		t.Fatalf("footer has no schema and must not resolve")
	}
	if _, ok := registry.Block("hero", "missing"); ok {
		t.Fatalf("unknown block resolved")
	}
	if diff := cmp.Diff(map[string]any{"label": "Click"}, registry.BlockDefaults("hero", "cta")); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{}, registry.BlockDefaults("hero", "missing")); diff != "" {
		t.Fatalf("unknown defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_DefaultsAreCopies(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Replace(nil, []SectionType{{
		ID: "list",
		Blocks: []BlockType{{
			ID:     "item",
			Fields: []FieldSpec{{Key: "tags", Kind: KindArray, Default: []any{"a"}}},
		}},
	}})

	first := registry.BlockDefaults("list", "item")
	first["tags"].([]any)[0] = "mutated"

	second := registry.BlockDefaults("list", "item")
	if second["tags"].([]any)[0] != "a" {
		t.Fatalf("defaults leaked a mutation: %v", second)
	}
}

func TestRegistry_ReloadPropagatesStoreErrors(t *testing.T) {
	registry := NewRegistry(&countingStore{Store: NewFileStore(sectionsFS()), err: errors.New("boom")})
	if err := registry.Reload(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegistry_Search(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Replace([]Summary{
		{ID: "hero", Name: "Hero"},
		{ID: "footer", Name: "Footer"},
		{ID: "testimonials", Name: "Testimonials"},
	}, nil)

	got := registry.Search("tst")
	if len(got) != 1 || got[0].ID != "testimonials" {
		t.Fatalf("unexpected search result: %+v", got)
	}
	if len(registry.Search("")) != 3 {
		t.Fatalf("empty query must return every section")
	}
}
