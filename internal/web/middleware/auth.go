package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// RequireLogin returns middleware that only lets signed-in visitors through.
// If required is false, all requests pass through. Page requests are sent to
// /login; API requests get a 401 JSON body.
func RequireLogin(required bool, signedIn func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required || signedIn(r) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Info("auth: login required",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)

			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"You are not signed in","message":"You are not signed in","action":"Log in to continue","code":"AUTH002"}` + "\n"))
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}
