// Package sections edits page templates: ordered sections whose settings and
// nested blocks are described by a catalog of section type schemas.
//
// The subpackages hold the pieces; this package wires the common setups.
package sections

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/render"
	"github.com/goliatone/go-sections/pkg/renderers/html"
	"github.com/goliatone/go-sections/pkg/renderers/tui"
	"github.com/goliatone/go-sections/pkg/schema"
	"github.com/goliatone/go-sections/pkg/store"
)

// Template is the canonical template model.
type Template = document.Template

// Form is the UI-agnostic description of the editor screen.
type Form = form.Form

// Intent is one user action applied by the edit controller.
type Intent = editor.Intent

// RenderOptions carries per-request renderer data.
type RenderOptions = render.Options

// NewLocalGateway serves templates stored as JSON files under templatesDir
// and section types read from schemas.
func NewLocalGateway(templatesDir string, schemas fs.FS, options ...gateway.LocalOption) *gateway.Local {
	return gateway.NewLocal(store.NewFileStore(templatesDir), schema.NewFileStore(schemas), options...)
}

// NewEditor exposes the edit controller constructor from the top-level
// module.
func NewEditor(gw gateway.Gateway, options ...editor.Option) *editor.Controller {
	return editor.New(gw, options...)
}

// NewRenderers returns a registry holding the built-in "json", "html" and
// "text" renderers. htmlOptions configure the HTML renderer.
func NewRenderers(htmlOptions ...html.Option) (*render.Registry, error) {
	page, err := html.New(htmlOptions...)
	if err != nil {
		return nil, fmt.Errorf("sections: html renderer: %w", err)
	}
	registry, err := render.NewRegistry(render.JSON{}, page, tui.NewText(tui.DefaultTheme()))
	if err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	return registry, nil
}

// RenderTemplate loads the stored template id into a fresh editor session
// and renders its form with the named built-in renderer. It is the simplest
// entry point for callers that only want a preview.
func RenderTemplate(ctx context.Context, gw gateway.Gateway, id, rendererName string, options RenderOptions, editorOptions ...editor.Option) ([]byte, error) {
	registry, err := NewRenderers(html.WithDefaultStyles())
	if err != nil {
		return nil, err
	}
	if !registry.Has(rendererName) {
		_, err := registry.Get(rendererName)
		return nil, err
	}

	ctrl := editor.New(gw, editorOptions...)
	session := editor.NewSession("render")
	if out := ctrl.Dispatch(ctx, session, editor.Refresh{}); out.Err != nil {
		return nil, out.Err
	}
	if out := ctrl.Dispatch(ctx, session, editor.SelectTemplate{ID: id}); out.Err != nil {
		return nil, out.Err
	}
	out, _, err := registry.Render(ctx, rendererName, ctrl.Form(session), options)
	return out, err
}

// EmbeddedTemplates exposes the built-in HTML renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the built-in stylesheet so Go applications can serve it
// next to rendered pages.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(sections.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
