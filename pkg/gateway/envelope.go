package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/store"
)

// Error codes carried by failed envelopes.
const (
	CodeNotFound        = "not_found"
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidDocument = "invalid_document"
	CodeStoreError      = "store_error"
	CodeValidation      = "validation_error"
)

// ErrInvalidDocument is returned when a stored document is not valid JSON.
var ErrInvalidDocument = errors.New("gateway: invalid template document")

// Envelope is the uniform response shape of every RPC operation.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed operation.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success wraps data in a successful envelope.
func Success(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("gateway: encode payload: %w", err)
	}
	return Envelope{Success: true, Data: raw}, nil
}

// Failure builds a failed envelope.
func Failure(code, message string) Envelope {
	return Envelope{Error: &ErrorBody{Code: code, Message: message}}
}

// Unwrap decodes the payload of a successful envelope into out. A failed
// envelope is returned as *Error.
func (e Envelope) Unwrap(out any) error {
	if !e.Success {
		if e.Error == nil {
			return &Error{Code: CodeStoreError, Message: "request failed"}
		}
		return &Error{Code: e.Error.Code, Message: e.Error.Message}
	}
	if out == nil || len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("gateway: decode payload: %w", err)
	}
	return nil
}

// Error is a failure reported by the remote side of the RPC boundary. The
// message is the server's, unchanged.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is lets remote not-found failures match store.ErrNotFound.
func (e *Error) Is(target error) bool {
	return e.Code == CodeNotFound && target == store.ErrNotFound
}

// Classify maps an error to an envelope code and HTTP status.
func Classify(err error) (string, int) {
	var remote *Error
	switch {
	case errors.As(err, &remote):
		return remote.Code, statusFor(remote.Code)
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, document.ErrSectionNotFound),
		errors.Is(err, document.ErrBlockNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.Is(err, store.ErrInvalidID):
		return CodeInvalidRequest, http.StatusBadRequest
	case errors.Is(err, ErrInvalidDocument):
		return CodeInvalidDocument, http.StatusUnprocessableEntity
	default:
		return CodeStoreError, http.StatusInternalServerError
	}
}

func statusFor(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeInvalidDocument, CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
