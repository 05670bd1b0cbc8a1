package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
)

const sessionCookieName = "sa_session"

// sessionMiddleware attaches the visitor's dashboard session to the request
// context, starting a new one when the cookie is missing or expired.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookieName); err == nil {
			if _, err := s.service.Sessions().Get(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = s.service.Sessions().Create().ID
			s.setSessionCookie(w, id)
			logging.FromContext(r.Context()).Debug("session started", "session_id", id)
		}

		ctx := logging.WithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.Auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionID returns the session attached by sessionMiddleware.
func sessionID(r *http.Request) string {
	return logging.SessionID(r.Context())
}

func (s *Server) signedIn(r *http.Request) bool {
	return s.service.SignedIn(sessionID(r))
}

// clientIP returns the caller's address without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
