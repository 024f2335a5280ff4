package server

import (
	"net/http"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/session"
)

type authForm struct {
	Email string
	Name  string
	Next  string
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", page{Title: "Resume Forge"})
}

func (s *Server) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", page{
		Title: "Log in",
		Data:  authForm{Next: r.URL.Query().Get("next")},
	})
}

func (s *Server) signupPageHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "signup", page{
		Title: "Sign up",
		Data:  authForm{Next: r.URL.Query().Get("next")},
	})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.render(w, r, http.StatusBadRequest, "login", page{Title: "Log in", Banner: errors.UserMessage(err)})
		return
	}
	form := authForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Next:  r.PostFormValue("next"),
	}

	auth, err := s.client.Login(r.Context(), form.Email, r.PostFormValue("password"))
	if err != nil {
		s.render(w, r, http.StatusOK, "login", page{
			Title:  "Log in",
			Banner: s.banner(err, "Login failed", "email", form.Email),
			Data:   form,
		})
		return
	}

	if _, err := s.sessions.Begin(r.Context(), w, auth); err != nil {
		s.render(w, r, http.StatusOK, "login", page{
			Title:  "Log in",
			Banner: s.banner(err, "Failed to start session", "email", form.Email),
			Data:   form,
		})
		return
	}
	http.Redirect(w, r, safeNext(form.Next), http.StatusSeeOther)
}

func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.render(w, r, http.StatusBadRequest, "signup", page{Title: "Sign up", Banner: errors.UserMessage(err)})
		return
	}
	form := authForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Next:  r.PostFormValue("next"),
	}

	auth, err := s.client.Signup(r.Context(), form.Email, r.PostFormValue("password"), form.Name)
	if err == nil {
		_, err = s.sessions.Begin(r.Context(), w, auth)
	}
	if err != nil {
		s.render(w, r, http.StatusOK, "signup", page{
			Title:  "Sign up",
			Banner: s.banner(err, "Signup failed", "email", form.Email),
			Data:   form,
		})
		return
	}
	http.Redirect(w, r, safeNext(form.Next), http.StatusSeeOther)
}

// logoutHandler ends the session, which also drops its optimization workflow
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		// Failures are logged by the manager; the cookie is cleared regardless.
		_ = s.sessions.Logout(r.Context(), w, sess.ID)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
