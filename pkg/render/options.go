package render

import (
	theme "github.com/goliatone/go-theme"
)

// Options carry per-request data renderers may use without changing the
// form description.
type Options struct {
	// Title overrides the page title of document renderers.
	Title string
	// Action is the URL intents are posted to. Renderers that emit
	// interactive markup point their controls at it.
	Action string
	// Hidden fields are emitted with every interactive control.
	Hidden []HiddenField
	// Theme carries the resolved theme: tokens, CSS variables, partial
	// overrides and asset URLs.
	Theme *theme.RendererConfig
	// Indent asks data renderers for indented output.
	Indent bool
}
