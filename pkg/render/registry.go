package render

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-sections/pkg/form"
)

// ErrUnknownFormat is returned when no renderer answers to a format name.
var ErrUnknownFormat = errors.New("render: unknown format")

// Registry maps output format names to renderers. Lookups ignore case.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Renderer
}

// NewRegistry returns a registry holding the given renderers.
func NewRegistry(renderers ...Renderer) (*Registry, error) {
	r := &Registry{formats: make(map[string]Renderer, len(renderers))}
	for _, renderer := range renderers {
		if err := r.Register(renderer); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a renderer under its Name().
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("render: nil renderer")
	}
	key := formatKey(renderer.Name())
	if key == "" {
		return fmt.Errorf("render: renderer has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.formats[key]; taken {
		return fmt.Errorf("render: format %q registered twice", key)
	}
	r.formats[key] = renderer
	return nil
}

// MustRegister is Register for init-time wiring.
func (r *Registry) MustRegister(renderer Renderer) {
	if err := r.Register(renderer); err != nil {
		panic(err)
	}
}

// Get resolves a format name. The error wraps ErrUnknownFormat and lists
// the formats on offer.
func (r *Registry) Get(format string) (Renderer, error) {
	r.mu.RLock()
	renderer, ok := r.formats[formatKey(format)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormat, format, strings.Join(r.List(), ", "))
	}
	return renderer, nil
}

// Has reports whether format resolves.
func (r *Registry) Has(format string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.formats[formatKey(format)]
	return ok
}

// List returns the format names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render looks up format and renders f with it.
func (r *Registry) Render(ctx context.Context, format string, f form.Form, options Options) ([]byte, string, error) {
	renderer, err := r.Get(format)
	if err != nil {
		return nil, "", err
	}
	out, err := renderer.Render(ctx, f, options)
	if err != nil {
		return nil, "", fmt.Errorf("render %s: %w", renderer.Name(), err)
	}
	return out, renderer.ContentType(), nil
}

func formatKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
