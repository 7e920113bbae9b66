package editor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/store"
)

// Session is one editor: the template being edited plus everything about
// the screen that is never stored. Sessions are independent; a Controller
// applies intents to one session at a time.
type Session struct {
	ID      string
	Created time.Time

	mu        sync.Mutex
	loading   atomic.Bool
	template  *document.Template
	view      form.ViewState
	dirty     bool
	templates []store.Summary
	message   *form.Message
	expires   time.Time
	last      atomic.Pointer[form.Form]
}

// NewSession returns an empty session with no template loaded.
func NewSession(id string) *Session {
	return &Session{
		ID:      id,
		Created: time.Now(),
		view:    form.NewViewState(),
	}
}

// Loading reports whether a gateway call is in flight. It never blocks.
func (s *Session) Loading() bool {
	return s.loading.Load()
}

// Template returns a copy of the template being edited, or nil.
func (s *Session) Template() *document.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template.Clone()
}

// Dirty reports whether the template has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// View returns a copy of the view state.
func (s *Session) View() form.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := form.NewViewState()
	for k, v := range s.view.Expanded {
		view.Expanded[k] = v
	}
	for k, v := range s.view.ActiveTab {
		view.ActiveTab[k] = v
	}
	for k, v := range s.view.ExpandedBlocks {
		view.ExpandedBlocks[k] = v
	}
	return view
}

// setMessage replaces the current message.
func (s *Session) setMessage(kind form.MessageKind, text string, expires time.Time) {
	s.message = &form.Message{Kind: kind, Text: text}
	s.expires = expires
}

// currentMessage returns the message unless it expired at now.
func (s *Session) currentMessage(now time.Time) *form.Message {
	if s.message == nil || !now.Before(s.expires) {
		return nil
	}
	msg := *s.message
	return &msg
}

func (s *Session) resetView() {
	s.view = form.NewViewState()
}

// forgetSection drops view entries for a removed section and its blocks.
func (s *Session) forgetSection(sectionID string, blockIDs []string) {
	delete(s.view.Expanded, sectionID)
	delete(s.view.ActiveTab, sectionID)
	for _, id := range blockIDs {
		delete(s.view.ExpandedBlocks, id)
	}
}
