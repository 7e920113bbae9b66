// Package editor applies user intents to editor sessions and re-renders the
// form description after each one.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/schema"
)

// DefaultMessageTTL is how long a transient message stays visible.
const DefaultMessageTTL = 5 * time.Second

// Outcome is the result of one dispatched intent.
type Outcome struct {
	Form form.Form `json:"form"`
	// Discarded is set when loading or creating a template dropped
	// unsaved changes.
	Discarded bool `json:"discarded,omitempty"`
	// Saved is the store id written by a successful save.
	Saved string `json:"saved,omitempty"`
	// Created is the id of a section or block added by the intent.
	Created string `json:"created,omitempty"`
	Err     error  `json:"-"`
}

// SaveHook observes successful saves.
type SaveHook func(id string)

// Controller turns intents into session transitions.
type Controller struct {
	gateway        gateway.Gateway
	schemas        *schema.Registry
	ids            document.IDGenerator
	logger         *slog.Logger
	now            func() time.Time
	ttl            time.Duration
	confirmDiscard bool
	onSave         SaveHook
}

// Option configures a Controller.
type Option func(*Controller)

// WithRegistry shares a schema registry instead of creating one over the
// gateway.
func WithRegistry(registry *schema.Registry) Option {
	return func(c *Controller) {
		if registry != nil {
			c.schemas = registry
		}
	}
}

// WithIDGenerator sets the generator for new section and block ids.
func WithIDGenerator(ids document.IDGenerator) Option {
	return func(c *Controller) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for message expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMessageTTL sets how long messages stay visible.
func WithMessageTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithConfirmDiscard makes selecting or creating a template fail while the
// session has unsaved changes, unless the intent sets Force.
func WithConfirmDiscard(confirm bool) Option {
	return func(c *Controller) {
		c.confirmDiscard = confirm
	}
}

// WithSaveHook registers a callback run after every successful save.
func WithSaveHook(hook SaveHook) Option {
	return func(c *Controller) {
		c.onSave = hook
	}
}

// New creates a controller over gw.
func New(gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		gateway: gw,
		ids:     document.UUIDs(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		ttl:     DefaultMessageTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.schemas == nil {
		c.schemas = schema.NewRegistry(gw)
	}
	return c
}

// Registry returns the schema registry the controller renders with.
func (c *Controller) Registry() *schema.Registry { return c.schemas }

// Dispatch applies one intent to the session. Intents on the same session
// run one at a time. Every failure becomes the session message and the
// returned error; the template is left as it was before the intent.
func (c *Controller) Dispatch(ctx context.Context, s *Session, intent Intent) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.logger.Debug("dispatch intent", "session", s.ID, "intent", intent.Type())

	var out Outcome
	if err := c.apply(ctx, s, intent, &out); err != nil {
		failure := wrap(intent.Type(), err)
		out.Err = failure
		s.setMessage(form.MessageError, failure.UserMessage(), c.now().Add(c.ttl))
		if failure.Kind == KindGateway {
			c.logger.Error("intent failed", "session", s.ID, "intent", intent.Type(), "error", failure.Err)
		} else {
			c.logger.Info("intent rejected", "session", s.ID, "intent", intent.Type(), "kind", failure.Kind, "error", failure.Err)
		}
	}
	s.loading.Store(false)

	out.Form = c.render(s)
	snapshot := out.Form
	s.last.Store(&snapshot)
	return out
}

// Form renders the session. While an intent is in flight the last rendered
// form is returned with its loading flag set.
func (c *Controller) Form(s *Session) form.Form {
	if !s.mu.TryLock() {
		var snapshot form.Form
		if last := s.last.Load(); last != nil {
			snapshot = *last
		}
		if s.loading.Load() {
			return form.Disable(snapshot)
		}
		return snapshot
	}
	defer s.mu.Unlock()
	return c.render(s)
}

func (c *Controller) render(s *Session) form.Form {
	items := make([]form.TemplateItem, 0, len(s.templates))
	for _, summary := range s.templates {
		items = append(items, form.TemplateItem{ID: summary.ID, Name: summary.Name, Description: summary.Description})
	}
	return form.Render(form.Input{
		Template:     s.template,
		Schemas:      c.schemas,
		View:         s.view,
		Templates:    items,
		SectionTypes: c.schemas.Summaries(),
		Loading:      s.loading.Load(),
		Dirty:        s.dirty,
		Message:      s.currentMessage(c.now()),
	})
}

// call runs a gateway operation with the loading flag raised.
func (c *Controller) call(s *Session, fn func() error) error {
	s.loading.Store(true)
	defer s.loading.Store(false)
	return fn()
}

func (c *Controller) notify(s *Session, kind form.MessageKind, text string) {
	s.setMessage(kind, text, c.now().Add(c.ttl))
}

func (c *Controller) apply(ctx context.Context, s *Session, intent Intent, out *Outcome) error {
	switch in := intent.(type) {
	case Refresh:
		return c.refresh(ctx, s)
	case SelectTemplate:
		return c.selectTemplate(ctx, s, in, out)
	case CreateTemplate:
		return c.createTemplate(s, in, out)
	case SaveTemplate:
		return c.save(ctx, s, out)
	}

	if s.template == nil {
		return ErrNoTemplate
	}
	tpl := s.template

	switch in := intent.(type) {
	case SetTemplateField:
		if err := tpl.SetField(in.Field, in.Value); err != nil {
			return err
		}
		s.dirty = true

	case AddSection:
		if in.TypeID == "" {
			return &form.ValidationError{Key: "section_id", Kind: schema.KindString, Err: errors.New("section type is required")}
		}
		id := tpl.AddSection(in.TypeID, c.ids)
		s.view.Expanded[id] = true
		s.dirty = true
		out.Created = id

	case RemoveSection:
		section, ok := tpl.Section(in.SectionID)
		if !ok {
			return sectionNotFound(in.SectionID)
		}
		blockIDs := section.Blocks.IDs()
		tpl.RemoveSection(in.SectionID)
		s.forgetSection(in.SectionID, blockIDs)
		s.dirty = true

	case MoveSectionUp:
		return c.moveSection(s, in.SectionID, tpl.MoveSectionUp)

	case MoveSectionDown:
		return c.moveSection(s, in.SectionID, tpl.MoveSectionDown)

	case ToggleSection:
		if _, ok := tpl.Section(in.SectionID); !ok {
			return sectionNotFound(in.SectionID)
		}
		s.view.Expanded[in.SectionID] = !s.view.Expanded[in.SectionID]

	case SelectTab:
		if _, ok := tpl.Section(in.SectionID); !ok {
			return sectionNotFound(in.SectionID)
		}
		if in.Tab != form.TabSettings && in.Tab != form.TabBlocks {
			return &form.ValidationError{Key: "tab", Kind: schema.KindEnum, Err: fmt.Errorf("unknown tab %q", in.Tab)}
		}
		s.view.ActiveTab[in.SectionID] = in.Tab

	case ChangeSectionSetting:
		section, ok := tpl.Section(in.SectionID)
		if !ok {
			return sectionNotFound(in.SectionID)
		}
		var field *schema.FieldSpec
		if spec, known := c.schemas.Section(section.TypeID); known {
			if f, ok := spec.Field(in.Key); ok {
				field = &f
			}
		}
		value, err := coerce(field, in.Input)
		if err != nil {
			return err
		}
		if err := tpl.SetSectionSetting(in.SectionID, in.Key, value); err != nil {
			return err
		}
		s.dirty = true

	case AddBlock:
		section, ok := tpl.Section(in.SectionID)
		if !ok {
			return sectionNotFound(in.SectionID)
		}
		if in.TypeID == "" {
			return &form.ValidationError{Key: "block_type", Kind: schema.KindString, Err: errors.New("block type is required")}
		}
		seed := c.schemas.BlockDefaults(section.TypeID, in.TypeID)
		id, err := tpl.AddBlock(in.SectionID, in.TypeID, seed, c.ids)
		if err != nil {
			return err
		}
		s.view.ExpandedBlocks[id] = true
		s.view.ActiveTab[in.SectionID] = form.TabBlocks
		s.dirty = true
		out.Created = id
		c.notify(s, form.MessageSuccess, "Block added")

	case RemoveBlock:
		sectionID, _, ok := tpl.FindBlock(in.BlockID, in.SectionID)
		if !ok {
			return blockNotFound(in.BlockID)
		}
		if err := tpl.RemoveBlock(sectionID, in.BlockID); err != nil {
			return err
		}
		delete(s.view.ExpandedBlocks, in.BlockID)
		s.dirty = true
		c.notify(s, form.MessageSuccess, "Block removed")

	case MoveBlockUp:
		return c.moveBlock(s, in.SectionID, in.BlockID, tpl.MoveBlockUp)

	case MoveBlockDown:
		return c.moveBlock(s, in.SectionID, in.BlockID, tpl.MoveBlockDown)

	case ToggleBlock:
		if _, _, ok := tpl.FindBlock(in.BlockID, ""); !ok {
			return blockNotFound(in.BlockID)
		}
		s.view.ExpandedBlocks[in.BlockID] = !s.view.ExpandedBlocks[in.BlockID]

	case ChangeBlockSetting:
		sectionID, block, ok := tpl.FindBlock(in.BlockID, in.SectionID)
		if !ok {
			return blockNotFound(in.BlockID)
		}
		var field *schema.FieldSpec
		if section, ok := tpl.Section(sectionID); ok {
			if spec, known := c.schemas.Block(section.TypeID, block.TypeID); known {
				if f, ok := spec.Field(in.Key); ok {
					field = &f
				}
			}
		}
		value, err := coerce(field, in.Input)
		if err != nil {
			return err
		}
		if _, err := tpl.SetBlockSetting(in.BlockID, in.Key, value, sectionID); err != nil {
			return err
		}
		s.dirty = true

	default:
		return fmt.Errorf("%w %q", ErrUnknownIntent, intent.Type())
	}
	return nil
}

func (c *Controller) refresh(ctx context.Context, s *Session) error {
	return c.call(s, func() error {
		if err := c.schemas.Reload(ctx); err != nil {
			return err
		}
		templates, err := c.gateway.ListTemplates(ctx)
		if err != nil {
			return err
		}
		s.templates = templates
		return nil
	})
}

func (c *Controller) guardDiscard(s *Session, force bool) error {
	if s.dirty && c.confirmDiscard && !force {
		return ErrDirty
	}
	return nil
}

func (c *Controller) discarded(s *Session, out *Outcome, next string) {
	if !s.dirty {
		return
	}
	out.Discarded = true
	name := ""
	if s.template != nil {
		name = s.template.Name
	}
	c.logger.Warn("discarding unsaved changes", "session", s.ID, "template", name, "next", next)
}

func (c *Controller) selectTemplate(ctx context.Context, s *Session, in SelectTemplate, out *Outcome) error {
	if err := c.guardDiscard(s, in.Force); err != nil {
		return err
	}
	var (
		tpl     *document.Template
		repairs []document.Repair
	)
	err := c.call(s, func() error {
		if err := c.schemas.Load(ctx); err != nil {
			return err
		}
		var err error
		tpl, repairs, err = c.gateway.LoadTemplate(ctx, in.ID)
		return err
	})
	if err != nil {
		return err
	}
	for _, r := range repairs {
		c.logger.Warn("repaired template document", "template", in.ID, "path", r.Path, "kind", r.Kind, "detail", r.Detail)
	}
	c.discarded(s, out, in.ID)
	s.template = tpl
	s.dirty = false
	s.resetView()
	if len(tpl.Order) > 0 {
		s.view.Expanded[tpl.Order[0]] = true
	}
	return nil
}

func (c *Controller) createTemplate(s *Session, in CreateTemplate, out *Outcome) error {
	if err := c.guardDiscard(s, in.Force); err != nil {
		return err
	}
	c.discarded(s, out, "new")
	s.template = document.New()
	s.dirty = false
	s.resetView()
	return nil
}

func (c *Controller) save(ctx context.Context, s *Session, out *Outcome) error {
	if s.template == nil {
		return ErrNoTemplate
	}
	id := s.template.StorageID()
	err := c.call(s, func() error {
		if err := c.gateway.SaveTemplate(ctx, id, s.template); err != nil {
			return err
		}
		templates, err := c.gateway.ListTemplates(ctx)
		if err != nil {
			c.logger.Warn("refresh template list after save", "template", id, "error", err)
			return nil
		}
		s.templates = templates
		return nil
	})
	if err != nil {
		return err
	}
	s.template.OriginalID = id
	s.template.Unsaved = false
	s.dirty = false
	out.Saved = id
	c.notify(s, form.MessageSuccess, "Template saved")
	c.logger.Info("template saved", "session", s.ID, "template", id)
	if c.onSave != nil {
		c.onSave(id)
	}
	return nil
}

func (c *Controller) moveSection(s *Session, sectionID string, move func(string) bool) error {
	if _, ok := s.template.Section(sectionID); !ok {
		return sectionNotFound(sectionID)
	}
	if move(sectionID) {
		s.dirty = true
	}
	return nil
}

func (c *Controller) moveBlock(s *Session, sectionID, blockID string, move func(string, string) bool) error {
	found, _, ok := s.template.FindBlock(blockID, sectionID)
	if !ok {
		return blockNotFound(blockID)
	}
	if move(found, blockID) {
		s.dirty = true
	}
	return nil
}

func coerce(field *schema.FieldSpec, input any) (any, error) {
	if field == nil {
		return form.CoerceUntyped(input), nil
	}
	return form.Coerce(*field, input)
}

func sectionNotFound(id string) error {
	return fmt.Errorf("%w: %q", document.ErrSectionNotFound, id)
}

func blockNotFound(id string) error {
	return fmt.Errorf("%w: %q", document.ErrBlockNotFound, id)
}
