package render

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-sections/pkg/form"
)

// JSON renders the form description as JSON for API clients.
type JSON struct{}

var _ Renderer = JSON{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Render(_ context.Context, f form.Form, options Options) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if options.Indent {
		data, err = json.MarshalIndent(f, "", "  ")
	} else {
		data, err = json.Marshal(f)
	}
	if err != nil {
		return nil, fmt.Errorf("render: encode form: %w", err)
	}
	return data, nil
}
