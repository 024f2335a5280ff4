package server

import (
	"context"
	"net/http"
	"strconv"

	"resumeforge/internal/errors"
	"resumeforge/internal/profile"
	"resumeforge/internal/session"
	"resumeforge/internal/types"
	"resumeforge/internal/workflow"
)

type optimizerData struct {
	State   workflow.State
	Form    workflow.Input
	CanSave bool

	// Sources the input step can prefill the resume text from
	Resumes  []types.Resume
	Profiles []types.Profile
	Source   string
}

func (s *Server) workflowFor(r *http.Request) *workflow.Workflow {
	return s.workflows.Get(session.FromContext(r.Context()).ID)
}

// optimizerHandler renders the current step of the session's workflow
func (s *Server) optimizerHandler(w http.ResponseWriter, r *http.Request) {
	s.renderOptimizer(w, r, nil)
}

func (s *Server) optimizerSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.renderOptimizer(w, r, err)
		return
	}
	in := workflow.Input{
		CompanyName:    r.PostFormValue("companyName"),
		Role:           r.PostFormValue("role"),
		JobDescription: r.PostFormValue("jobDescription"),
		Resume:         r.PostFormValue("resume"),
	}
	s.afterStep(w, r, s.workflowFor(r).Submit(r.Context(), in))
}

func (s *Server) optimizerScoreHandler(w http.ResponseWriter, r *http.Request) {
	s.afterStep(w, r, s.workflowFor(r).Score(r.Context()))
}

func (s *Server) optimizerOptimizeHandler(w http.ResponseWriter, r *http.Request) {
	s.afterStep(w, r, s.workflowFor(r).Optimize(r.Context()))
}

func (s *Server) optimizerSelectHandler(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.renderOptimizer(w, r, err)
		return
	}
	variant, err := workflow.ParseVariant(r.PostFormValue("variant"))
	if err == nil {
		err = s.workflowFor(r).Select(variant)
	}
	s.afterStep(w, r, err)
}

func (s *Server) optimizerSaveHandler(w http.ResponseWriter, r *http.Request) {
	_, err := s.workflowFor(r).Finalize(r.Context())
	s.afterSave(w, r, err)
}

func (s *Server) optimizerAcceptHandler(w http.ResponseWriter, r *http.Request) {
	_, err := s.workflowFor(r).AcceptGenerated(r.Context())
	s.afterSave(w, r, err)
}

func (s *Server) optimizerResetHandler(w http.ResponseWriter, r *http.Request) {
	s.workflowFor(r).Reset()
	http.Redirect(w, r, "/optimizer", http.StatusSeeOther)
}

// afterStep redirects back to the optimizer on success. Failures the workflow already
// recorded show from its state; others, such as a rejected action, become the banner.
func (s *Server) afterStep(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		http.Redirect(w, r, "/optimizer", http.StatusSeeOther)
		return
	}
	if errors.IsCode(err, errors.ErrCodeInvalidState) || errors.IsCode(err, errors.ErrCodeInvalidRequest) {
		s.Logger.Debug("Optimizer action rejected", "path", r.URL.Path, "reason", err.Error())
	}
	s.renderOptimizer(w, r, err)
}

// afterSave leaves for the dashboard once the resume is saved. The dashboard discards the
// finished workflow and shows the save confirmation.
func (s *Server) afterSave(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.afterStep(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

type noticeKey struct{}

// leaveOptimizer wraps the pages outside the optimizer. Visiting one discards the session's
// workflow; a workflow that was just saved hands its confirmation to the page as a notice.
func (s *Server) leaveOptimizer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil {
			next(w, r)
			return
		}
		if wf, ok := s.workflows.Peek(sess.ID); ok {
			if state := wf.Snapshot(); state.Done && state.Saved != nil {
				r = r.WithContext(context.WithValue(r.Context(), noticeKey{}, savedNotice(state.Saved)))
			}
			s.workflows.Discard(sess.ID)
			s.Logger.Debug("Optimizer state discarded", "session_id", sess.ID, "path", r.URL.Path)
		}
		next(w, r)
	}
}

func savedNotice(ack *types.SaveAck) string {
	if ack.Message != "" {
		return ack.Message
	}
	return "Resume saved."
}

func (s *Server) renderOptimizer(w http.ResponseWriter, r *http.Request, stepErr error) {
	wf := s.workflowFor(r)
	state := wf.Snapshot()
	data := optimizerData{State: state, Form: state.Input, CanSave: wf.CanSave()}

	p := page{Title: "Optimize a resume"}
	switch {
	case stepErr != nil:
		p.Banner = errors.UserMessage(stepErr)
	case state.Error != "":
		p.Banner = state.Error
	}
	if state.Saved != nil {
		p.Notice = savedNotice(state.Saved)
	}

	if state.Step == workflow.StepInput {
		s.loadSources(r, &data)
		if stepErr == nil && state.Input.Resume == "" {
			if banner := s.prefill(r, &data); banner != "" {
				p.Banner = banner
			}
		}
	}

	p.Data = data
	s.render(w, r, http.StatusOK, "optimizer", p)
}

// loadSources lists the resumes and profile templates offered as a starting point.
// The picker is optional, so failures are only logged.
func (s *Server) loadSources(r *http.Request, data *optimizerData) {
	backend := s.backendFor(r)
	resumes, err := backend.ListResumes(r.Context())
	if err != nil {
		s.Logger.LogError(err, "Failed to fetch resumes for the optimizer picker")
	}
	data.Resumes = resumes

	profiles, err := backend.ListProfiles(r.Context())
	if err != nil {
		s.Logger.LogError(err, "Failed to fetch profiles for the optimizer picker")
	}
	for i := range profiles {
		profiles[i] = profile.Normalize(profiles[i])
	}
	data.Profiles = profiles
}

// prefill copies resume text into the form from ?from=<resume id> or ?profile=<id>&template=<n>
func (s *Server) prefill(r *http.Request, data *optimizerData) string {
	query := r.URL.Query()

	if id := query.Get("from"); id != "" {
		resume, err := s.backendFor(r).GetResume(r.Context(), id)
		if err != nil {
			return s.banner(err, "Failed to prefill from resume", "resume_id", id)
		}
		data.Form.Resume = string(resume.Content)
		data.Source = resume.Role + " - " + resume.CompanyName
		return ""
	}

	profileID := query.Get("profile")
	if profileID == "" {
		return ""
	}
	p, ok := profile.Find(data.Profiles, profileID)
	if !ok {
		return "Profile not found."
	}
	index, err := strconv.Atoi(query.Get("template"))
	if err != nil {
		index = 0
	}
	text, ok := profile.Template(p, index)
	if !ok {
		return "Template not found."
	}
	data.Form.Resume = text
	data.Source = "Default Resume #" + strconv.Itoa(index+1) + " from " + p.Name
	return ""
}
