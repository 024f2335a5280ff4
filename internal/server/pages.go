package server

import (
	"bytes"
	"embed"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/resumedoc"
	"resumeforge/internal/session"
	"resumeforge/internal/types"
	"resumeforge/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageSet maps a page name to its template, each parsed together with the layout
type pageSet map[string]*template.Template

var pageNames = []string{
	"home", "login", "signup", "dashboard", "optimizer",
	"resume", "resume_not_found", "profiles",
}

var templateFuncs = template.FuncMap{
	"date":        view.FormatDate,
	"status":      view.StatusLabel,
	"placeholder": func() string { return resumedoc.Placeholder },
	"score": func(s *types.Score) int {
		if s == nil {
			return 0
		}
		return int(*s)
	},
	"band": func(s *types.Score) view.Band {
		if s == nil {
			return view.Band{}
		}
		return view.ScoreBand(int(*s))
	},
	"resumeDoc": func(content any) *resumedoc.Document {
		doc, ok := resumedoc.Parse(fmt.Sprint(content))
		if !ok {
			return nil
		}
		return doc
	},
	"join": strings.Join,
	"add1": func(i int) int { return i + 1 },
}

func loadPages() (pageSet, error) {
	shared := []string{"templates/layout.html", "templates/resume_content.html"}
	pages := make(pageSet, len(pageNames))
	for _, name := range pageNames {
		files := append([]string{"templates/" + name + ".html"}, shared...)
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// templateNames lists the embedded template files, used by the startup banner
func templateNames() []string {
	entries, _ := fs.Glob(templateFS, "templates/*.html")
	return entries
}

// page is the data every template receives
type page struct {
	Title  string
	User   *types.User
	Banner string
	Notice string
	Data   any
}

// render executes a page into a buffer first so a template error never leaves half a response.
// It is the only place a page request can end in a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if sess := session.FromContext(r.Context()); sess.Authenticated() {
		user := sess.User
		p.User = &user
	}
	if notice, ok := r.Context().Value(noticeKey{}).(string); ok && p.Notice == "" {
		p.Notice = notice
	}

	tmpl, ok := s.pages[name]
	if !ok {
		s.Logger.LogError(fmt.Errorf("unknown page %q", name), "Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.Logger.LogError(err, "Failed to render page", "page", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.Logger.Debug("Client went away while writing page", "page", name, "error", err)
	}
}

// banner logs a backend failure at the call site and returns the text shown to the user
func (s *Server) banner(err error, message string, args ...any) string {
	s.Logger.LogError(err, message, args...)
	return errors.UserMessage(err)
}

// parseForm reads the request form and reports an oversized body distinctly
func parseForm(r *http.Request) error {
	err := r.ParseForm()
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("The submitted form is too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "The submitted form could not be read", err)
}
