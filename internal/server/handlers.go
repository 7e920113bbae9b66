package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-sections/pkg/document"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/render"
	"github.com/goliatone/go-sections/pkg/schema"
)

// sessionView is the payload of POST /api/sessions.
type sessionView struct {
	ID   string `json:"id"`
	Form any    `json:"form"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if _, ok := s.sessions.get(cookie.Value); ok {
			http.Redirect(w, r, htmlFormURL(cookie.Value), http.StatusSeeOther)
			return
		}
	}
	session := s.sessions.create()
	s.editor.Dispatch(r.Context(), session, editor.Refresh{})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, htmlFormURL(session.ID), http.StatusSeeOther)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.gateway.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, summaries)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tpl, repairs, err := s.gateway.LoadTemplate(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	for _, repair := range repairs {
		s.logger.Warn("template repaired", "template", id, "repair", repair.String())
	}
	data, err := document.Encode(tpl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, json.RawMessage(data))
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, gateway.CodeInvalidRequest, "read body: "+err.Error())
		return
	}
	tpl, repairs, err := gateway.DecodeTemplate(id, body, s.ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	for _, repair := range repairs {
		s.logger.Warn("uploaded template repaired", "template", id, "repair", repair.String())
	}
	if err := s.gateway.SaveTemplate(r.Context(), id, tpl); err != nil {
		s.writeError(w, err)
		return
	}
	s.templateSaved(id)
	s.writeData(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	if !s.loadRegistry(w, r) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeData(w, http.StatusOK, s.registry.Summaries())
		return
	}
	s.writeData(w, http.StatusOK, s.registry.Search(query))
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if !s.loadRegistry(w, r) {
		return
	}
	s.writeData(w, http.StatusOK, s.registry.Sections())
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if !s.loadRegistry(w, r) {
		return
	}
	s.writeData(w, http.StatusOK, schema.OpenAPIDocument(s.registry, s.title, s.version))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.create()
	out := s.editor.Dispatch(r.Context(), session, editor.Refresh{})
	s.writeData(w, http.StatusCreated, sessionView{ID: session.ID, Form: out.Form})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if !s.sessions.delete(sid) {
		s.writeFailure(w, http.StatusNotFound, gateway.CodeNotFound, fmt.Sprintf("session %q not found", sid))
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{"id": sid})
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	renderer, err := s.renderers.Get(format)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, gateway.CodeInvalidRequest, err.Error())
		return
	}

	f := s.editor.Form(session)
	out, err := renderer.Render(r.Context(), f, render.Options{
		Title:  s.title,
		Action: intentsURL(session.ID),
		Theme:  s.theme,
	})
	if err != nil {
		s.logger.Error("render form", "session", session.ID, "format", format, "error", err)
		s.writeFailure(w, http.StatusInternalServerError, gateway.CodeStoreError, err.Error())
		return
	}
	if isJSON(renderer.ContentType()) {
		s.writeData(w, http.StatusOK, json.RawMessage(out))
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isFormPost(r) {
		intent, err := formIntent(r)
		if err != nil {
			s.writeFailure(w, http.StatusBadRequest, gateway.CodeInvalidRequest, err.Error())
			return
		}
		s.editor.Dispatch(r.Context(), session, intent)
		http.Redirect(w, r, htmlFormURL(session.ID), http.StatusSeeOther)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, gateway.CodeInvalidRequest, "read body: "+err.Error())
		return
	}
	intent, err := editor.DecodeIntent(body)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, gateway.CodeInvalidRequest, err.Error())
		return
	}
	out := s.editor.Dispatch(r.Context(), session, intent)
	if out.Err != nil {
		code, status, message := intentFailure(out.Err)
		s.writeFailure(w, status, code, message)
		return
	}
	s.writeData(w, http.StatusOK, out)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	sid := chi.URLParam(r, "sid")
	session, ok := s.sessions.get(sid)
	if !ok {
		s.writeFailure(w, http.StatusNotFound, gateway.CodeNotFound, fmt.Sprintf("session %q not found", sid))
	}
	return session, ok
}

func (s *Server) loadRegistry(w http.ResponseWriter, r *http.Request) bool {
	if err := s.registry.Load(r.Context()); err != nil {
		s.logger.Error("load schemas", "error", err)
		s.writeError(w, err)
		return false
	}
	return true
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	env, err := gateway.Success(data)
	if err != nil {
		s.logger.Error("encode response", "error", err)
		s.writeFailure(w, http.StatusInternalServerError, gateway.CodeStoreError, err.Error())
		return
	}
	s.writeEnvelope(w, status, env)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, status := gateway.Classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "error", err)
	}
	s.writeFailure(w, status, code, err.Error())
}

func (s *Server) writeFailure(w http.ResponseWriter, status int, code, message string) {
	s.writeEnvelope(w, status, gateway.Failure(code, message))
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, env gateway.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}

// intentFailure maps a dispatch failure to an envelope code, an HTTP
// status and the message shown to the user.
func intentFailure(err error) (string, int, string) {
	var failure *editor.Error
	if !errors.As(err, &failure) {
		code, status := gateway.Classify(err)
		return code, status, err.Error()
	}
	switch failure.Kind {
	case editor.KindValidation:
		return gateway.CodeValidation, http.StatusUnprocessableEntity, failure.UserMessage()
	case editor.KindNotFound:
		return gateway.CodeNotFound, http.StatusNotFound, failure.UserMessage()
	case editor.KindNoTemplate, editor.KindDirty:
		return gateway.CodeInvalidRequest, http.StatusConflict, failure.UserMessage()
	default:
		code, status := gateway.Classify(failure.Err)
		return code, status, failure.UserMessage()
	}
}

// formIntent decodes an intent posted by an HTML form. The last value of a
// repeated key wins, which lets a hidden "false" precede a checkbox.
func formIntent(r *http.Request) (editor.Intent, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	fields := make(map[string]any, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		fields[key] = values[len(values)-1]
	}
	if raw, ok := fields["force"].(string); ok {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("force: %w", err)
		}
		fields["force"] = force
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return editor.DecodeIntent(data)
}

func isFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func htmlFormURL(sid string) string {
	return "/api/sessions/" + url.PathEscape(sid) + "/form?format=html"
}

func intentsURL(sid string) string {
	return "/api/sessions/" + url.PathEscape(sid) + "/intents"
}
