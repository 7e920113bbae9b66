package template

import (
	"io"
)

// TemplateRenderer is the engine contract renderers depend on.
type TemplateRenderer interface {
	// RenderTemplate executes the named template with data and copies the
	// result to every writer in out.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	// GlobalContext merges values every later render can address.
	GlobalContext(data any) error
}
