package editor

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/store"
)

// ErrorKind classifies failures reported to the user.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindGateway    ErrorKind = "gateway"
	KindNoTemplate ErrorKind = "no_template"
	KindDirty      ErrorKind = "dirty"
)

var (
	// ErrNoTemplate is returned by intents that need a selected template.
	ErrNoTemplate = errors.New("no template selected")
	// ErrDirty is returned when an intent would discard unsaved changes
	// and discarding requires confirmation.
	ErrDirty = errors.New("unsaved changes would be discarded")
	// ErrUnknownIntent is returned by DecodeIntent for unsupported types.
	ErrUnknownIntent = errors.New("editor: unknown intent")
)

// Error is the failure of one intent.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("editor: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown in the transient message area.
func (e *Error) UserMessage() string {
	var verr *form.ValidationError
	if errors.As(e.Err, &verr) {
		return fmt.Sprintf("Invalid value for %s: %v", verr.Key, verr.Err)
	}
	var remote *gateway.Error
	if errors.As(e.Err, &remote) {
		return remote.Message
	}
	switch e.Kind {
	case KindNoTemplate:
		return "No template selected"
	case KindDirty:
		return "The template has unsaved changes"
	}
	return e.Err.Error()
}

func wrap(op string, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) ErrorKind {
	var verr *form.ValidationError
	switch {
	case errors.Is(err, ErrNoTemplate):
		return KindNoTemplate
	case errors.Is(err, ErrDirty):
		return KindDirty
	case errors.As(err, &verr),
		errors.Is(err, document.ErrUnknownField),
		errors.Is(err, ErrUnknownIntent):
		return KindValidation
	case errors.Is(err, document.ErrSectionNotFound),
		errors.Is(err, document.ErrBlockNotFound),
		errors.Is(err, store.ErrNotFound):
		return KindNotFound
	default:
		return KindGateway
	}
}
