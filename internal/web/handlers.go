package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
	"github.com/JonMunkholm/sales-ai-analyst/internal/web/templates"
)

// maxFormBody bounds non-upload request bodies.
const maxFormBody = 1 << 20

// handleDashboard renders the main page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Snapshot(sessionID(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.renderPage(w, r, http.StatusOK, view)
}

// handleState returns the session view as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Snapshot(sessionID(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

type modeInfo struct {
	Name            quality.Mode `json:"name"`
	RequiredColumns []string     `json:"requiredColumns"`
	SampleFile      string       `json:"sampleFile,omitempty"`
	Analyzable      bool         `json:"analyzable"`
}

// handleListModes lists the analysis modes and their required columns.
func (s *Server) handleListModes(w http.ResponseWriter, r *http.Request) {
	modes := quality.Modes()
	out := make([]modeInfo, 0, len(modes))
	for _, m := range modes {
		spec := quality.Spec(m)
		out = append(out, modeInfo{
			Name:            m,
			RequiredColumns: spec.RequiredColumns,
			SampleFile:      spec.SampleFile,
			Analyzable:      m.Analyzable(),
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleHealth reports liveness and upload capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":   "ok",
		"uploads":  s.service.Limiter().Status(),
		"sessions": s.service.Sessions().Len(),
	})
}

// respond sends the result of a session operation: the refreshed
// workspace for HTMX, the view as JSON for API clients, and a redirect back
// to the dashboard for plain form posts. Errors on form posts re-render the
// dashboard with the error shown.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, view core.ViewState, err error) {
	if err != nil {
		status := statusFor(err)
		if view.SessionID == "" {
			if v, serr := s.service.Snapshot(sessionID(r)); serr == nil {
				view = v
			}
		}
		if !isHTMX(r) && !wantsJSON(r) && view.SessionID != "" {
			s.respondErrorPage(w, r, view, err, status)
			return
		}
		s.respondError(w, r, err, status)
		return
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.Workspace(view, quality.Modes()).Render(r.Context(), w)
	case wantsJSON(r):
		writeJSON(w, r, http.StatusOK, view)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// respondErrorPage logs err and renders the dashboard with its message.
func (s *Server) respondErrorPage(w http.ResponseWriter, r *http.Request, view core.ViewState, err error, status int) {
	msg := core.MapError(err)
	view.Error = &msg
	logging.FromContext(r.Context()).Info("request rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	s.renderPage(w, r, status, view)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, view core.ViewState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Dashboard(view, quality.Modes()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

// input reads the named fields from a JSON object body or a form post.
// Numbers in JSON bodies are returned in their decimal form.
func input(w http.ResponseWriter, r *http.Request, fields ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	out := make(map[string]string, len(fields))

	if isJSONBody(r) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
		}
		for _, f := range fields {
			switch v := body[f].(type) {
			case string:
				out[f] = v
			case float64:
				out[f] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				out[f] = strconv.FormatBool(v)
			}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	for _, f := range fields {
		out[f] = r.PostFormValue(f)
	}
	return out, nil
}

func isJSONBody(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
