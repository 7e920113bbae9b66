// Package gateway is the persistence boundary of the editor: template
// list/load/save and the schema catalog behind one interface, either
// in-process or over HTTP.
package gateway

import (
	"context"
	"fmt"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/schema"
	"github.com/goliatone/go-sections/pkg/store"
)

// Gateway is everything the editor needs from persistence. It also serves
// the schema catalog so a schema.Registry can load through it.
type Gateway interface {
	schema.Store
	ListTemplates(ctx context.Context) ([]store.Summary, error)
	LoadTemplate(ctx context.Context, id string) (*document.Template, []document.Repair, error)
	SaveTemplate(ctx context.Context, id string, tpl *document.Template) error
}

// Local serves a Gateway from stores in the same process.
type Local struct {
	templates store.TemplateStore
	schemas   schema.Store
	ids       document.IDGenerator
}

var _ Gateway = (*Local)(nil)

// LocalOption configures a Local gateway.
type LocalOption func(*Local)

// WithIDGenerator sets the generator used for keys synthesised while
// normalising loaded documents.
func WithIDGenerator(ids document.IDGenerator) LocalOption {
	return func(l *Local) {
		if ids != nil {
			l.ids = ids
		}
	}
}

// NewLocal creates a gateway over the given stores.
func NewLocal(templates store.TemplateStore, schemas schema.Store, opts ...LocalOption) *Local {
	l := &Local{templates: templates, schemas: schemas, ids: document.UUIDs()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *Local) ListTemplates(ctx context.Context) ([]store.Summary, error) {
	return l.templates.List(ctx)
}

// LoadTemplate reads and normalises a stored document. The template's
// OriginalID is set to id.
func (l *Local) LoadTemplate(ctx context.Context, id string) (*document.Template, []document.Repair, error) {
	data, err := l.templates.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return DecodeTemplate(id, data, l.ids)
}

func (l *Local) SaveTemplate(ctx context.Context, id string, tpl *document.Template) error {
	data, err := document.Encode(tpl)
	if err != nil {
		return fmt.Errorf("gateway: encode %q: %w", id, err)
	}
	return l.templates.Put(ctx, id, data)
}

func (l *Local) List(ctx context.Context) ([]schema.Summary, error) {
	return l.schemas.List(ctx)
}

func (l *Local) Schemas(ctx context.Context) ([]schema.SectionType, error) {
	return l.schemas.Schemas(ctx)
}

// DecodeTemplate turns raw document bytes stored under id into a canonical
// template.
func DecodeTemplate(id string, data []byte, ids document.IDGenerator) (*document.Template, []document.Repair, error) {
	raw, err := document.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w %q: %v", ErrInvalidDocument, id, err)
	}
	tpl, repairs := document.Normalize(raw, document.WithIDGenerator(ids))
	tpl.OriginalID = id
	tpl.Unsaved = false
	return tpl, repairs, nil
}
