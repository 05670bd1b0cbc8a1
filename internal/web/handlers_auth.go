package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sales-ai-analyst/internal/auth"
	"github.com/JonMunkholm/sales-ai-analyst/internal/core"
	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/store"
	"github.com/JonMunkholm/sales-ai-analyst/internal/web/templates"
)

type loginResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Errors  auth.FieldErrors `json:"errors,omitempty"`
}

// handleLoginPage renders the sign-in form.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, templates.LoginForm{})
}

// handleLogin checks credentials with the login backend. A successful
// sign-in reissues the session cookie; rejections are shown under the
// matching form field.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := input(w, r, "email", "password")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, id, err := s.service.Login(r.Context(), sessionID(r), in["email"], in["password"])
	if errors.Is(err, core.ErrSessionNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	if id != sessionID(r) {
		s.setSessionCookie(w, id)
	}
	fieldErrs := auth.FieldErrorsFor(res, err)

	status := http.StatusOK
	switch {
	case err != nil:
		status = http.StatusServiceUnavailable
	case !res.Success:
		status = http.StatusUnauthorized
	}

	if wantsJSON(r) {
		writeJSON(w, r, status, loginResponse{Success: res.Success, Message: res.Message, Errors: fieldErrs})
		return
	}
	if status == http.StatusOK {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, status, templates.LoginForm{Email: in["email"], Errors: fieldErrs})
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, form templates.LoginForm) {
	form.Disabled = !s.service.LoginEnabled()
	form.Guest = !s.cfg.Auth.RequireLogin
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.LoginPage(form).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render login", "error", err)
	}
}

// handleLogout ends the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.service.Logout(sessionID(r))
	s.clearSessionCookie(w)
	logging.FromContext(r.Context()).Info("user signed out")

	if wantsJSON(r) {
		writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleGetAccount returns the stored details for an email. Users may only
// read their own account.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Snapshot(sessionID(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if view.Email == "" {
		s.respondError(w, r, core.ErrNotSignedIn, http.StatusUnauthorized)
		return
	}

	email := store.Account{Email: chi.URLParam(r, "email")}.Normalize().Email
	if email != view.Email {
		s.respondError(w, r, fmt.Errorf("%w: %s", store.ErrNotFound, email), http.StatusNotFound)
		return
	}

	acc, err := s.service.GetAccount(r.Context(), email)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, acc)
}

// handleSaveAccount stores account details for the signed-in user.
func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	var acc store.Account
	if isJSONBody(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
		if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err), http.StatusBadRequest)
			return
		}
	} else {
		in, err := input(w, r, "name", "phone", "email", "shopName", "address")
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		acc = store.Account{
			Name:     in["name"],
			Phone:    in["phone"],
			Email:    in["email"],
			ShopName: in["shopName"],
			Address:  in["address"],
		}
	}

	saved, err := s.service.SaveAccount(r.Context(), sessionID(r), acc)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "account": saved})
}
