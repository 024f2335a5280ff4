package server

import (
	"mime"
	"net/http"
	"strconv"

	"resumeforge/internal/profile"
	"resumeforge/internal/session"
	"resumeforge/internal/types"
	"resumeforge/internal/view"
)

type dashboardData struct {
	Stats   view.Stats
	Resumes []types.Resume
}

type resumeData struct {
	Resume          *types.Resume
	Profiles        []types.Profile
	ActiveProfileID string
}

type notFoundData struct {
	ID      string
	Message string
}

// dashboardHandler lists the user's resumes with summary statistics
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "Dashboard"}

	resumes, err := s.backendFor(r).ListResumes(r.Context())
	if err != nil {
		p.Banner = s.banner(err, "Failed to fetch resumes")
		resumes = nil
	}
	p.Data = dashboardData{Stats: view.ComputeStats(resumes), Resumes: resumes}

	s.render(w, r, http.StatusOK, "dashboard", p)
}

// resumeHandler shows one resume, structured when its content is resume JSON
func (s *Server) resumeHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := s.loadResume(w, r)
	if !ok {
		return
	}
	s.renderResume(w, r, resume, "")
}

func (s *Server) renderResume(w http.ResponseWriter, r *http.Request, resume *types.Resume, banner string) {
	data := resumeData{Resume: resume}
	if sess := session.FromContext(r.Context()); sess != nil {
		data.ActiveProfileID = sess.ActiveProfileID
	}

	profiles, err := s.backendFor(r).ListProfiles(r.Context())
	if err != nil {
		// The page is still useful without the profile picker
		s.Logger.LogError(err, "Failed to fetch profiles for PDF export")
	} else {
		data.Profiles = profiles
		if active, ok := profile.Active(profiles, data.ActiveProfileID); ok {
			data.ActiveProfileID = active.ID.String()
		}
	}

	s.render(w, r, http.StatusOK, "resume", page{
		Title:  resume.Role + " at " + resume.CompanyName,
		Banner: banner,
		Data:   data,
	})
}

// resumeDownloadHandler sends the resume content as a text file
func (s *Server) resumeDownloadHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := s.loadResume(w, r)
	if !ok {
		return
	}

	body := []byte(resume.Content)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": view.TextDownloadName(*resume),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

// resumePDFHandler streams the backend-rendered PDF, using the chosen or active profile
func (s *Server) resumePDFHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := s.loadResume(w, r)
	if !ok {
		return
	}

	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		if sess := session.FromContext(r.Context()); sess != nil {
			profileID = sess.ActiveProfileID
		}
	}

	doc, err := s.backendFor(r).ExportPDF(r.Context(), resume.ID.String(), profileID)
	if err != nil {
		s.renderResume(w, r, resume, s.banner(err, "Failed to export PDF",
			"resume_id", resume.ID.String(), "profile_id", profileID))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": view.PDFDownloadName(*resume),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	_, _ = w.Write(doc.Data)
}

// loadResume fetches the path's resume, rendering the not-found page when that fails
func (s *Server) loadResume(w http.ResponseWriter, r *http.Request) (*types.Resume, bool) {
	id := r.PathValue("id")
	resume, err := s.backendFor(r).GetResume(r.Context(), id)
	if err != nil {
		s.Logger.LogError(err, "Failed to fetch resume", "resume_id", id)
		s.render(w, r, http.StatusNotFound, "resume_not_found", page{
			Title: "Resume Not Found",
			Data:  notFoundData{ID: id, Message: "Failed to load resume"},
		})
		return nil, false
	}
	return resume, true
}
