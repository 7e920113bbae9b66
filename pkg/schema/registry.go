package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sahilm/fuzzy"
)

// Registry caches the section types served by a Store. It is safe for
// concurrent use; Load and Invalidate swap the cached catalog atomically.
type Registry struct {
	mu        sync.RWMutex
	store     Store
	loaded    bool
	summaries []Summary
	sections  map[string]SectionType
}

// NewRegistry creates a registry backed by store. A nil store yields a
// registry that can only be filled through Replace.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:    store,
		sections: make(map[string]SectionType),
	}
}

// Load fetches the catalog from the store when it is not cached yet.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	return r.Reload(ctx)
}

// Reload fetches the catalog from the store regardless of the cache state.
func (r *Registry) Reload(ctx context.Context) error {
	if r.store == nil {
		return errors.New("schema: registry has no store")
	}
	summaries, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("schema: list sections: %w", err)
	}
	sections, err := r.store.Schemas(ctx)
	if err != nil {
		return fmt.Errorf("schema: load schemas: %w", err)
	}
	r.Replace(summaries, sections)
	return nil
}

// Replace installs a catalog directly. Section types present in sections but
// missing from summaries are added to the summary list.
func (r *Registry) Replace(summaries []Summary, sections []SectionType) {
	byID := make(map[string]SectionType, len(sections))
	for _, section := range sections {
		byID[section.ID] = section
	}
	listed := make(map[string]struct{}, len(summaries))
	out := make([]Summary, 0, len(summaries)+len(sections))
	for _, summary := range summaries {
		if _, dup := listed[summary.ID]; dup {
			continue
		}
		listed[summary.ID] = struct{}{}
		out = append(out, summary)
	}
	for _, section := range sections {
		if _, ok := listed[section.ID]; ok {
			continue
		}
		out = append(out, Summary{ID: section.ID, Name: section.Name, Description: section.Description})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = out
	r.sections = byID
	r.loaded = true
}

// Invalidate drops the cached catalog so the next Load hits the store.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
}

// Summaries returns the available section types sorted by id.
func (r *Registry) Summaries() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Summary(nil), r.summaries...)
}

// Sections returns every section type with a schema, sorted by id.
func (r *Registry) Sections() []SectionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SectionType, 0, len(r.sections))
	for _, section := range r.sections {
		out = append(out, section)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Section returns the schema of a section type.
func (r *Registry) Section(id string) (SectionType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	section, ok := r.sections[id]
	return section, ok
}

// Block returns the schema of a block type within a section type.
func (r *Registry) Block(sectionTypeID, blockTypeID string) (BlockType, bool) {
	section, ok := r.Section(sectionTypeID)
	if !ok {
		return BlockType{}, false
	}
	return section.Block(blockTypeID)
}

// BlockDefaults returns the defaults a new block of the given type starts
// with. Unknown types yield an empty map.
func (r *Registry) BlockDefaults(sectionTypeID, blockTypeID string) map[string]any {
	block, ok := r.Block(sectionTypeID, blockTypeID)
	if !ok {
		return map[string]any{}
	}
	return block.Defaults()
}

// Search ranks available section types against query using fuzzy matching
// over "id name". An empty query returns every summary.
func (r *Registry) Search(query string) []Summary {
	summaries := r.Summaries()
	if query == "" {
		return summaries
	}
	return FuzzyFilter(query, summaries)
}

// FuzzyFilter ranks summaries against query, best match first.
func FuzzyFilter(query string, summaries []Summary) []Summary {
	haystack := make([]string, len(summaries))
	for i, summary := range summaries {
		haystack[i] = summary.ID + " " + summary.Name
	}
	matches := fuzzy.Find(query, haystack)
	out := make([]Summary, 0, len(matches))
	for _, match := range matches {
		out = append(out, summaries[match.Index])
	}
	return out
}
