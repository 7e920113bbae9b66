package render

import (
	"context"

	"github.com/goliatone/go-sections/pkg/form"
)

// Renderer converts a form description into an output document (HTML,
// JSON, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, f form.Form, options Options) ([]byte, error)
}
