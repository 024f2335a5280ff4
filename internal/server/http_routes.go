package server

import "net/http"

// middleware decorates a handler
type middleware func(http.HandlerFunc) http.HandlerFunc

// chain applies mws so that the first one runs outermost
func chain(h http.HandlerFunc, mws ...middleware) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// setupRoutes configures all HTTP routes with their middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	base := []middleware{s.withSession, s.rateLimitMiddleware(), s.requestSizeLimitMiddleware()}
	open := func(h http.HandlerFunc) http.HandlerFunc { return chain(h, base...) }
	publicOnly := func(h http.HandlerFunc) http.HandlerFunc { return chain(h, append(base, s.publicOnly)...) }
	protected := func(h http.HandlerFunc) http.HandlerFunc { return chain(h, append(base, s.requireAuth)...) }
	// Pages outside the optimizer drop its state on the way in
	elsewhere := func(h http.HandlerFunc) http.HandlerFunc {
		return chain(h, append(base, s.requireAuth, s.leaveOptimizer)...)
	}

	// Operational endpoints skip sessions and rate limits
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("GET /{$}", open(s.homeHandler))
	mux.HandleFunc("POST /logout", open(s.logoutHandler))

	mux.HandleFunc("GET /login", publicOnly(s.loginPageHandler))
	mux.HandleFunc("POST /login", publicOnly(s.loginHandler))
	mux.HandleFunc("GET /signup", publicOnly(s.signupPageHandler))
	mux.HandleFunc("POST /signup", publicOnly(s.signupHandler))

	mux.HandleFunc("GET /dashboard", elsewhere(s.dashboardHandler))

	mux.HandleFunc("GET /optimizer", protected(s.optimizerHandler))
	mux.HandleFunc("POST /optimizer/submit", protected(s.optimizerSubmitHandler))
	mux.HandleFunc("POST /optimizer/score", protected(s.optimizerScoreHandler))
	mux.HandleFunc("POST /optimizer/optimize", protected(s.optimizerOptimizeHandler))
	mux.HandleFunc("POST /optimizer/select", protected(s.optimizerSelectHandler))
	mux.HandleFunc("POST /optimizer/save", protected(s.optimizerSaveHandler))
	mux.HandleFunc("POST /optimizer/accept", protected(s.optimizerAcceptHandler))
	mux.HandleFunc("POST /optimizer/reset", protected(s.optimizerResetHandler))

	mux.HandleFunc("GET /resume/{id}", elsewhere(s.resumeHandler))
	mux.HandleFunc("GET /resume/{id}/download", protected(s.resumeDownloadHandler))
	mux.HandleFunc("GET /resume/{id}/pdf", protected(s.resumePDFHandler))

	mux.HandleFunc("GET /profiles", elsewhere(s.profilesHandler))
	mux.HandleFunc("POST /profiles", protected(s.profileCreateHandler))
	mux.HandleFunc("POST /profiles/{id}", protected(s.profileUpdateHandler))
	mux.HandleFunc("POST /profiles/{id}/delete", protected(s.profileDeleteHandler))
	mux.HandleFunc("POST /profiles/{id}/activate", protected(s.profileActivateHandler))
	mux.HandleFunc("POST /profiles/{id}/add-template", protected(s.profileAddTemplateHandler))
	mux.HandleFunc("POST /profiles/{id}/remove-template", protected(s.profileRemoveTemplateHandler))

	return mux
}

// requestSizeLimitMiddleware limits the size of form bodies
func (s *Server) requestSizeLimitMiddleware() middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if s.MaxRequestSize <= 0 {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			next(w, r)
		}
	}
}
