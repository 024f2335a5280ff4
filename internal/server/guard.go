package server

import (
	"net/http"
	"net/url"
	"strings"

	"resumeforge/internal/session"
)

// withSession resolves the cookie's session once per request and puts it in the context.
// A store failure is logged and the request proceeds anonymously.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.FromRequest(r)
		if err != nil {
			s.Logger.LogError(err, "Session lookup failed, continuing anonymously", "path", r.URL.Path)
			sess = nil
		}
		if sess != nil {
			r = r.WithContext(session.NewContext(r.Context(), sess))
		}
		next(w, r)
	}
}

// requireAuth sends anonymous visitors to the login page, remembering where they were going
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated() {
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// publicOnly keeps logged-in users away from the login and signup forms
func (s *Server) publicOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).Authenticated() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// safeNext accepts only same-site relative paths as a post-login destination
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}
