package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/schema"
	"github.com/goliatone/go-sections/pkg/store"
)

const defaultTimeout = 10 * time.Second

// HTTP talks to a sections server through its /api endpoints.
type HTTP struct {
	base    string
	client  *http.Client
	timeout time.Duration
	ids     document.IDGenerator
}

var _ Gateway = (*HTTP)(nil)

// HTTPOption configures an HTTP gateway.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.timeout = timeout
	}
}

// WithHTTPIDGenerator sets the generator used while normalising loaded
// documents.
func WithHTTPIDGenerator(ids document.IDGenerator) HTTPOption {
	return func(h *HTTP) {
		if ids != nil {
			h.ids = ids
		}
	}
}

// NewHTTP creates a client for the server at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid base url %q: %w", baseURL, err)
	}
	h := &HTTP{
		base:    strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		timeout: defaultTimeout,
		ids:     document.UUIDs(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *HTTP) ListTemplates(ctx context.Context) ([]store.Summary, error) {
	var out []store.Summary
	if err := h.do(ctx, http.MethodGet, "/api/templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) LoadTemplate(ctx context.Context, id string) (*document.Template, []document.Repair, error) {
	var raw json.RawMessage
	if err := h.do(ctx, http.MethodGet, "/api/templates/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, nil, err
	}
	return DecodeTemplate(id, raw, h.ids)
}

func (h *HTTP) SaveTemplate(ctx context.Context, id string, tpl *document.Template) error {
	data, err := document.Encode(tpl)
	if err != nil {
		return fmt.Errorf("gateway: encode %q: %w", id, err)
	}
	return h.do(ctx, http.MethodPut, "/api/templates/"+url.PathEscape(id), data, nil)
}

func (h *HTTP) List(ctx context.Context) ([]schema.Summary, error) {
	var out []schema.Summary
	if err := h.do(ctx, http.MethodGet, "/api/sections", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) Schemas(ctx context.Context) ([]schema.SectionType, error) {
	var out []schema.SectionType
	if err := h.do(ctx, http.MethodGet, "/api/schemas", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) do(ctx context.Context, method, path string, body []byte, out any) error {
	reqCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, h.base+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var envelope Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if errors.Is(err, io.EOF) || resp.StatusCode >= 300 {
			return fmt.Errorf("gateway: %s %s: unexpected status %s", method, path, resp.Status)
		}
		return fmt.Errorf("gateway: decode envelope: %w", err)
	}
	return envelope.Unwrap(out)
}
