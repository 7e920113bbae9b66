// Package server exposes the persistence gateway, editor sessions and the
// schema catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/render"
	"github.com/goliatone/go-sections/pkg/renderers/html"
	"github.com/goliatone/go-sections/pkg/renderers/tui"
	"github.com/goliatone/go-sections/pkg/schema"
)

const (
	defaultTitle           = "Sections"
	defaultShutdownTimeout = 10 * time.Second
	defaultSessionTTL      = 30 * time.Minute
	maxBodyBytes           = 4 << 20
	sessionCookie          = "sections_session"
	assetsPrefix           = "/assets/"
)

// Server serves the RPC endpoints, the HTML editor and the event stream.
type Server struct {
	gateway   gateway.Gateway
	registry  *schema.Registry
	editor    *editor.Controller
	sessions  *sessions
	hub       *Hub
	renderers *render.Registry
	theme     *theme.RendererConfig
	ids       document.IDGenerator
	logger    *slog.Logger
	router    chi.Router

	title           string
	version         string
	shutdownTimeout time.Duration
	sessionTTL      time.Duration
	extra           []render.Renderer
	editorOptions   []editor.Option
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTheme applies a resolved theme to rendered pages.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) {
		s.theme = cfg
	}
}

// WithRenderer registers an output renderer. It replaces a built-in
// renderer with the same name.
func WithRenderer(renderer render.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.extra = append(s.extra, renderer)
		}
	}
}

// WithEditorOptions passes options to the edit controller.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(s *Server) {
		s.editorOptions = append(s.editorOptions, opts...)
	}
}

// WithTitle sets the page and OpenAPI document title.
func WithTitle(title string) Option {
	return func(s *Server) {
		if title != "" {
			s.title = title
		}
	}
}

// WithVersion sets the OpenAPI document version.
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// WithShutdownTimeout bounds how long Serve waits for in-flight requests.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// WithSessionTTL sets how long an unused editor session is kept. Zero
// keeps sessions until they are deleted.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl >= 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithIDGenerator sets the generator used when normalising uploaded
// documents and by the edit controller.
func WithIDGenerator(ids document.IDGenerator) Option {
	return func(s *Server) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// New builds a server over gw.
func New(gw gateway.Gateway, opts ...Option) (*Server, error) {
	if gw == nil {
		return nil, errors.New("server: gateway is required")
	}
	s := &Server{
		gateway:         gw,
		ids:             document.UUIDs(),
		logger:          slog.Default(),
		title:           defaultTitle,
		version:         "1.0.0",
		shutdownTimeout: defaultShutdownTimeout,
		sessionTTL:      defaultSessionTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.sessions = newSessions(s.sessionTTL)
	s.hub = NewHub(s.logger)
	s.registry = schema.NewRegistry(gw)
	editorOpts := []editor.Option{
		editor.WithRegistry(s.registry),
		editor.WithIDGenerator(s.ids),
		editor.WithLogger(s.logger),
		editor.WithSaveHook(s.templateSaved),
	}
	s.editor = editor.New(gw, append(editorOpts, s.editorOptions...)...)

	renderers, err := s.buildRenderers()
	if err != nil {
		return nil, err
	}
	s.renderers = renderers
	s.router = s.routes()
	return s, nil
}

func (s *Server) buildRenderers() (*render.Registry, error) {
	byName := map[string]render.Renderer{}
	for _, renderer := range s.extra {
		byName[renderer.Name()] = renderer
	}
	if _, ok := byName["json"]; !ok {
		byName["json"] = render.JSON{}
	}
	if _, ok := byName["html"]; !ok {
		page, err := html.New(html.WithStylesheet(assetsPrefix + html.StylesheetName))
		if err != nil {
			return nil, fmt.Errorf("server: html renderer: %w", err)
		}
		byName["html"] = page
	}
	if _, ok := byName["text"]; !ok {
		byName["text"] = tui.NewText(tui.DefaultTheme())
	}

	renderers := make([]render.Renderer, 0, len(byName))
	for _, renderer := range byName {
		renderers = append(renderers, renderer)
	}
	registry, err := render.NewRegistry(renderers...)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return registry, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeFailure(w, http.StatusNotFound, gateway.CodeNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeFailure(w, http.StatusMethodNotAllowed, gateway.CodeInvalidRequest, r.Method+" is not allowed on "+r.URL.Path)
	})

	r.Get("/", s.handleIndex)
	r.Handle(assetsPrefix+"*", http.StripPrefix(assetsPrefix, http.FileServer(http.FS(html.AssetsFS()))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Put("/templates/{id}", s.handleSaveTemplate)
		r.Post("/templates/{id}", s.handleSaveTemplate)

		r.Get("/sections", s.handleListSections)
		r.Get("/schemas", s.handleSchemas)
		r.Get("/schemas/openapi.json", s.handleOpenAPI)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{sid}/form", s.handleForm)
		r.Post("/sessions/{sid}/intents", s.handleIntent)
		r.Delete("/sessions/{sid}", s.handleDeleteSession)

		r.Get("/events", s.hub.ServeHTTP)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the schema registry shared by the handlers and the
// edit controller.
func (s *Server) Registry() *schema.Registry {
	return s.registry
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// SchemasReloaded reports a registry reload to event subscribers. It has
// the shape of schema.ReloadFunc.
func (s *Server) SchemasReloaded(err error) {
	evt := Event{Type: EventSchemasReloaded}
	if err != nil {
		evt.Error = err.Error()
	}
	s.hub.Publish(evt)
}

func (s *Server) templateSaved(id string) {
	s.hub.Publish(Event{Type: EventTemplateSaved, ID: id})
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. Event stream clients are disconnected first.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepSessions(sweepCtx)
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// sweepSessions drops idle editor sessions until ctx ends.
func (s *Server) sweepSessions(ctx context.Context) {
	if s.sessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(max(s.sessionTTL/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.Debug("idle sessions dropped", "count", n, "open", s.sessions.len())
			}
		}
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
