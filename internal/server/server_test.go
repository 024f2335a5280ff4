package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"resumeforge/internal/apiclient"
	"resumeforge/internal/config"
	"resumeforge/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookieName = "rf_session"

// fakeBackend stands in for the resume service, keyed by "METHOD /path".
type fakeBackend struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{handlers: map[string]http.HandlerFunc{
		"POST /login": func(w http.ResponseWriter, r *http.Request) {
			replyJSON(w, http.StatusOK, map[string]any{
				"user":  map[string]any{"id": 1, "email": "ada@example.com", "name": "Ada"},
				"token": "tok-123",
			})
		},
		"GET /results": func(w http.ResponseWriter, r *http.Request) {
			replyJSON(w, http.StatusOK, map[string]any{"results": []any{}})
		},
		"GET /profiles": func(w http.ResponseWriter, r *http.Request) {
			replyJSON(w, http.StatusOK, []any{})
		},
	}}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		fb.mu.Lock()
		fb.calls = append(fb.calls, route)
		h, ok := fb.handlers[route]
		fb.mu.Unlock()
		if !ok {
			replyJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) handle(route string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[route] = h
}

func (fb *fakeBackend) called(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c == route {
			n++
		}
	}
	return n
}

func replyJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	t        *testing.T
	backend  *fakeBackend
	srv      *Server
	web      *httptest.Server
	client   *http.Client
	sessions *session.Manager
}

func newHarness(t *testing.T, configure ...func(*config.Config)) *harness {
	t.Helper()
	backend := newFakeBackend(t)

	cfg := &config.Config{}
	cfg.App.LogLevel = "error"
	cfg.Server.Port = "8080"
	cfg.Server.MaxRequestSize = 1 << 20
	for _, fn := range configure {
		fn(cfg)
	}

	client, err := apiclient.New(apiclient.Options{BaseURL: backend.server.URL})
	require.NoError(t, err)

	cookies := session.NewCookieCodec(testCookieName, []byte(strings.Repeat("k", 32)), time.Hour, false)
	sessions := session.NewManager(session.NewMemoryStore(time.Hour), session.Options{Cookies: cookies})

	srv, err := NewServer(cfg, Options{Version: "test", Client: client, Sessions: sessions})
	require.NoError(t, err)
	t.Cleanup(func() {
		if srv.RateLimiter != nil {
			srv.RateLimiter.Close()
		}
	})

	web := httptest.NewServer(srv.Handler(nil))
	t.Cleanup(web.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{
		t:       t,
		backend: backend,
		srv:     srv,
		web:     web,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		sessions: sessions,
	}
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Get(h.web.URL + path)
	require.NoError(h.t, err)
	return resp, readBody(h.t, resp)
}

func (h *harness) post(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.PostForm(h.web.URL+path, form)
	require.NoError(h.t, err)
	return resp, readBody(h.t, resp)
}

func (h *harness) login() {
	h.t.Helper()
	resp, _ := h.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}})
	require.Equal(h.t, http.StatusSeeOther, resp.StatusCode)
}

// sessionID returns the id behind the browser's cookie
func (h *harness) sessionID() string {
	h.t.Helper()
	u, err := url.Parse(h.web.URL)
	require.NoError(h.t, err)
	req := &http.Request{Header: http.Header{}}
	for _, c := range h.client.Jar.Cookies(u) {
		req.AddCookie(c)
	}
	sess, err := h.sessions.FromRequest(req)
	require.NoError(h.t, err)
	require.NotNil(h.t, sess)
	return sess.ID
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// captured holds a value written by a backend handler and read by the test
type captured[T any] struct {
	mu sync.Mutex
	v  T
}

func (c *captured[T]) set(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.v)
}

func (c *captured[T]) get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func resumeHandler(resume map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, resume)
	}
}

func TestProtectedPageRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fdashboard", resp.Header.Get("Location"))
	assert.Zero(t, h.backend.called("GET /results"))
}

func TestLoginStartsSessionAndShowsDashboard(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("GET /results", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		replyJSON(w, http.StatusOK, map[string]any{"results": []any{
			map[string]any{"id": 1, "companyName": "Acme", "role": "SRE", "date": "2025-03-01", "status": "optimized", "atsScore": 90},
			map[string]any{"id": 2, "companyName": "Globex", "role": "Dev", "date": "2025-03-02", "status": "generated", "atsScore": 70},
		}})
	})

	resp, _ := h.post("/login", url.Values{
		"email":    {"ada@example.com"},
		"password": {"secret"},
		"next":     {"/dashboard"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	resp, body := h.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<dd id="stat-total">2</dd>`)
	assert.Contains(t, body, `<dd id="stat-optimized">1</dd>`)
	assert.Contains(t, body, `<dd id="stat-average">80%</dd>`)
	assert.Contains(t, body, "Ada")
}

func TestLoginPagesRedirectWhenAuthenticated(t *testing.T) {
	h := newHarness(t)
	h.login()

	for _, path := range []string{"/login", "/signup"} {
		resp, _ := h.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"), path)
	}
}

func TestLoginFailureShowsBanner(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("POST /login", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
	})

	resp, body := h.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `role="alert">Invalid credentials</p>`)
	assert.Contains(t, body, `value="ada@example.com"`)
	assert.Empty(t, resp.Cookies())
}

func TestLoginHonorsNextOnlyForLocalPaths(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/dashboard"},
		{"/profiles", "/profiles"},
		{"/optimizer?from=3", "/optimizer?from=3"},
		{"//evil.example.com", "/dashboard"},
		{"/\\evil.example.com", "/dashboard"},
		{"https://evil.example.com", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, safeNext(tt.next))
		})
	}
}

func TestLogoutDropsWorkflowAndSession(t *testing.T) {
	h := newHarness(t)
	h.login()

	resp, _ := h.get("/optimizer")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, h.srv.workflows.Len())

	resp, _ = h.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 0, h.srv.workflows.Len())

	resp, _ = h.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestOptimizerFullFlowSavesOptimizedVariant(t *testing.T) {
	h := newHarness(t)

	var saved captured[map[string]any]
	h.backend.handle("POST /generate_resume", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Acme", req["companyName"])
		assert.Equal(t, "My resume", req["current_resume"])
		replyJSON(w, http.StatusOK, map[string]any{"result": "Generated text", "id": 42})
	})
	h.backend.handle("POST /evaluate_ats", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Generated text", req["resume"])
		replyJSON(w, http.StatusOK, map[string]any{"atsScore": 72, "explanation": "Missing keywords"})
	})
	h.backend.handle("POST /optimize_resume", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{
			"optimized_resume": "Optimized text", "final_score": 91, "explanation": "Added keywords",
		})
	})
	h.backend.handle("POST /saveselectedresume", func(w http.ResponseWriter, r *http.Request) {
		saved.set(func(v *map[string]any) { assert.NoError(t, json.NewDecoder(r.Body).Decode(v)) })
		replyJSON(w, http.StatusOK, map[string]any{"message": "Resume saved!", "id": 42, "status": "optimized", "score": 91})
	})

	h.login()

	steps := []struct {
		path     string
		form     url.Values
		contains string
	}{
		{"/optimizer/submit", url.Values{
			"companyName":    {"Acme"},
			"role":           {"SRE"},
			"jobDescription": {"Run the platform"},
			"resume":         {"My resume"},
		}, "Check ATS Score"},
		{"/optimizer/score", nil, "ATS score: 72%"},
		{"/optimizer/optimize", nil, "Optimized text"},
		{"/optimizer/select", url.Values{"variant": {"optimized"}}, "Save Selected Resume"},
	}
	for _, step := range steps {
		resp, _ := h.post(step.path, step.form)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, step.path)
		assert.Equal(t, "/optimizer", resp.Header.Get("Location"))

		_, body := h.get("/optimizer")
		assert.Contains(t, body, step.contains, step.path)
	}

	resp, _ := h.post("/optimizer/save", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	_, body := h.get("/dashboard")
	assert.Contains(t, body, `role="status">Resume saved!</p>`)

	_, body = h.get("/optimizer")
	assert.Contains(t, body, "Generate Resume", "the saved workflow is gone")
	assert.Equal(t, 1, h.srv.workflows.Len(), "only the fresh workflow remains")

	payload := saved.get()
	require.NotNil(t, payload)
	assert.Equal(t, "optimized", payload["status"])
	assert.Equal(t, "Optimized text", payload["optimizedResume"])
	assert.EqualValues(t, 72, payload["atsscore"])
	assert.EqualValues(t, 91, payload["optimizedscore"])
	assert.NotContains(t, payload, "generatedResume")
}

func TestOptimizerStateDiscardedOnNavigation(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("POST /generate_resume", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{"result": "Generated text", "id": 42})
	})
	h.backend.handle("GET /resume/42", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{"id": 42, "companyName": "Acme", "role": "SRE", "content": "Text"})
	})
	h.login()

	submit := url.Values{
		"companyName":    {"Acme"},
		"role":           {"SRE"},
		"jobDescription": {"Run the platform"},
		"resume":         {"My resume"},
	}

	for _, page := range []string{"/dashboard", "/profiles", "/resume/42"} {
		t.Run(page, func(t *testing.T) {
			h.post("/optimizer/submit", submit)
			_, body := h.get("/optimizer")
			require.Contains(t, body, "Check ATS Score")

			resp, body := h.get(page)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.NotContains(t, body, `role="status"`, "nothing was saved")

			_, body = h.get("/optimizer")
			assert.Contains(t, body, "Generate Resume")
			assert.NotContains(t, body, "Check ATS Score")
		})
	}
}

func TestAcceptGeneratedGoesToDashboard(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("POST /generate_resume", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{"result": "Generated text", "id": 7})
	})
	h.backend.handle("POST /saveselectedresume", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{"id": 7, "status": "generated"})
	})
	h.login()

	h.post("/optimizer/submit", url.Values{
		"companyName":    {"Acme"},
		"role":           {"SRE"},
		"jobDescription": {"Run the platform"},
		"resume":         {"My resume"},
	})
	resp, _ := h.post("/optimizer/accept", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	_, body := h.get("/dashboard")
	assert.Contains(t, body, `role="status">Resume saved.</p>`)
	assert.Zero(t, h.srv.workflows.Len())
}

func TestSweepDropsWorkflowsOfExpiredSessions(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.get("/optimizer")
	live := h.sessionID()

	// A workflow whose session already expired from the store
	h.srv.workflows.Get("expired-session")
	require.Equal(t, 2, h.srv.workflows.Len())

	assert.Equal(t, 1, h.srv.sweepWorkflows(t.Context()))
	assert.Equal(t, []string{live}, h.srv.workflows.IDs())

	require.NoError(t, h.sessions.Logout(t.Context(), nil, live))
	h.srv.workflows.Get(live)
	assert.Equal(t, 1, h.srv.sweepWorkflows(t.Context()))
	assert.Zero(t, h.srv.workflows.Len())
}

func TestOptimizerRejectsOutOfOrderAction(t *testing.T) {
	h := newHarness(t)
	h.login()

	resp, body := h.post("/optimizer/score", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Cannot score now")
	assert.Zero(t, h.backend.called("POST /evaluate_ats"))
}

func TestOptimizerGenerateFailureKeepsInput(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("POST /generate_resume", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusInternalServerError, map[string]any{"detail": "Model overloaded"})
	})
	h.login()

	resp, body := h.post("/optimizer/submit", url.Values{
		"companyName":    {"Acme"},
		"role":           {"SRE"},
		"jobDescription": {"Run the platform"},
		"resume":         {"My resume"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `role="alert">Model overloaded</p>`)
	assert.Contains(t, body, `value="Acme"`)
	assert.Contains(t, body, "Generate Resume")
}

func TestOptimizerMissingFieldShowsBanner(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, body := h.post("/optimizer/submit", url.Values{
		"companyName":    {"Acme"},
		"jobDescription": {"Run the platform"},
		"resume":         {"My resume"},
	})
	assert.Contains(t, body, "Role is required")
	assert.Zero(t, h.backend.called("POST /generate_resume"))
}

func TestOptimizerRejectsOversizedForm(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Server.MaxRequestSize = 1024 })
	h.login()

	resp, body := h.post("/optimizer/submit", url.Values{
		"companyName":    {"Acme"},
		"role":           {"SRE"},
		"jobDescription": {strings.Repeat("x", 4096)},
		"resume":         {"My resume"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "too large")
	assert.Zero(t, h.backend.called("POST /generate_resume"))
}

func TestOptimizerPrefill(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("GET /profiles", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, []any{
			map[string]any{"id": "p1", "name": "Work", "resumes": []string{"Template one", "Template two"}},
		})
	})
	h.backend.handle("GET /resume/3", resumeHandler(map[string]any{
		"id": 3, "companyName": "Acme", "role": "SRE", "date": "2025-03-01", "status": "generated", "content": "Saved resume text",
	}))
	h.login()

	tests := []struct {
		name     string
		query    string
		contains []string
	}{
		{"profile template", "?profile=p1&template=1", []string{"Template two", "Default Resume #2 from Work"}},
		{"saved resume", "?from=3", []string{"Saved resume text", "SRE - Acme"}},
		{"unknown profile", "?profile=nope", []string{"Profile not found."}},
		{"unknown template", "?profile=p1&template=7", []string{"Template not found."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.get("/optimizer" + tt.query)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			for _, want := range tt.contains {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestResumeNotFound(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("GET /resume/99", resumeHandler(map[string]any{"error": "Resume not found"}))
	h.login()

	resp, body := h.get("/resume/99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Resume Not Found")
	assert.Contains(t, body, "Failed to load resume")
	assert.Contains(t, body, `href="/dashboard">Back to Dashboard`)
}

func TestResumePageRendersStructuredContent(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("GET /resume/7", resumeHandler(map[string]any{
		"id": 7, "companyName": "Acme", "role": "SRE", "date": "2025-03-01", "status": "optimized", "atsScore": 85,
		"content": map[string]any{"name": "Ada Lovelace", "contact": nil, "summary": "Engineer"},
	}))
	h.login()

	resp, body := h.get("/resume/7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h2>Ada Lovelace</h2>")
	assert.Contains(t, body, "<p>Engineer</p>")
	assert.NotContains(t, body, `class="contact"`)
	assert.Contains(t, body, "ATS: 85%")
}

func TestResumeDownloads(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("GET /resume/7", resumeHandler(map[string]any{
		"id": 7, "companyName": "Acme", "role": "SRE", "date": "2025-03-01", "status": "generated", "content": "plain text",
	}))
	var profileIDs captured[[]string]
	h.backend.handle("GET /pdf/7", func(w http.ResponseWriter, r *http.Request) {
		profileIDs.set(func(v *[]string) { *v = append(*v, r.URL.Query().Get("profile_id")) })
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 test"))
	})
	h.login()

	resp, body := h.get("/resume/7/download")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "plain text", body)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "SRE_Acme_Resume.txt")

	resp, body = h.get("/resume/7/pdf?profile_id=p1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "SRE_Acme_Resume.pdf")
	assert.True(t, strings.HasPrefix(body, "%PDF-"))

	// Without a query parameter the session's active profile is used
	resp, _ = h.post("/profiles/p2/activate", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = h.get("/resume/7/pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{"p1", "p2"}, profileIDs.get())
}

func TestResumePDFFailureShowsBanner(t *testing.T) {
	h := newHarness(t)
	h.backend.handle("GET /resume/7", resumeHandler(map[string]any{
		"id": 7, "companyName": "Acme", "role": "SRE", "date": "2025-03-01", "status": "generated", "content": "plain text",
	}))
	h.backend.handle("GET /pdf/7", func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusInternalServerError, map[string]any{"detail": "Renderer unavailable"})
	})
	h.login()

	resp, body := h.get("/resume/7/pdf")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Renderer unavailable")
	assert.Contains(t, body, "<h1>SRE</h1>")
}

func TestProfileValidationSkipsBackend(t *testing.T) {
	h := newHarness(t)
	h.login()

	resp, body := h.post("/profiles", url.Values{"name": {""}, "email": {"ada@example.com"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Profile name is required")

	_, body = h.post("/profiles", url.Values{"name": {"Work"}, "email": {"not-an-email"}})
	assert.Contains(t, body, "Email address must contain @")
	assert.Contains(t, body, `value="Work"`)

	assert.Zero(t, h.backend.called("POST /profiles"))
}

func TestProfileCreateSendsProfile(t *testing.T) {
	h := newHarness(t)
	var created captured[map[string]any]
	h.backend.handle("POST /profiles", func(w http.ResponseWriter, r *http.Request) {
		created.set(func(v *map[string]any) { assert.NoError(t, json.NewDecoder(r.Body).Decode(v)) })
		replyJSON(w, http.StatusOK, map[string]any{"id": "p9", "name": "Work"})
	})
	h.login()

	resp, _ := h.post("/profiles", url.Values{
		"name":    {"Work"},
		"email":   {"ada@example.com"},
		"resumes": {"First template", "Second template"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profiles", resp.Header.Get("Location"))

	body := created.get()
	require.NotNil(t, body)
	assert.Equal(t, "Work", body["name"])
	assert.Equal(t, []any{"First template", "Second template"}, body["resumes"])
	assert.NotContains(t, body, "id")
}

func TestProfileTemplateSlots(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, body := h.post("/profiles/new/add-template", url.Values{"name": {"Work"}, "resumes": {"one"}})
	assert.Equal(t, 2, strings.Count(body, `name="resumes"`))
	assert.Contains(t, body, "Default Resume #2")

	_, body = h.post("/profiles/new/remove-template", url.Values{
		"name":    {"Work"},
		"resumes": {"one", "two"},
		"index":   {"0"},
	})
	assert.Equal(t, 1, strings.Count(body, `name="resumes"`))
	assert.Contains(t, body, ">two</textarea>")
	assert.Zero(t, h.backend.called("POST /profiles"))
}

func TestProfileActivateIsStoredInSession(t *testing.T) {
	h := newHarness(t)
	h.login()

	resp, _ := h.post("/profiles/p3/activate", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	sess, err := h.sessions.Get(t.Context(), h.sessionID())
	require.NoError(t, err)
	assert.Equal(t, "p3", sess.ActiveProfileID)
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, body := h.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "resumeforge", health["service"])
	assert.Equal(t, "test", health["version"])

	backend, ok := health["backend"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, h.backend.server.URL, backend["base_url"])
	assert.NotContains(t, health, "certificates")
}

func TestStatsEndpointCountsWorkflows(t *testing.T) {
	h := newHarness(t)
	h.login()
	_, _ = h.get("/optimizer")

	_, body := h.get("/stats")
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	workflows, ok := stats["workflows"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, workflows["active"])
}

func TestRateLimitRejectsBurst(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 1,
			BurstCapacity:  2,
			ByIP:           true,
			Window:         time.Minute,
		}
	})

	for i := 0; i < 2; i++ {
		resp, _ := h.get("/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, _ := h.get("/login")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	// Operational endpoints are not limited
	resp, _ = h.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
