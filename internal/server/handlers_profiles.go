package server

import (
	"net/http"
	"strconv"

	"resumeforge/internal/errors"
	"resumeforge/internal/profile"
	"resumeforge/internal/session"
	"resumeforge/internal/types"
)

// newProfileID addresses the blank create form in template edit routes
const newProfileID = "new"

type profilesData struct {
	Profiles []types.Profile
	New      types.Profile
	ActiveID string
	// EditingID is the form holding an unsaved draft, if any
	EditingID string
}

// profilesHandler lists the user's profiles, each as an edit form
func (s *Server) profilesHandler(w http.ResponseWriter, r *http.Request) {
	s.renderProfiles(w, r, "", nil)
}

func (s *Server) profileCreateHandler(w http.ResponseWriter, r *http.Request) {
	draft, err := profileFromForm(r)
	if err != nil {
		s.renderProfiles(w, r, errors.UserMessage(err), nil)
		return
	}
	draft.ID = ""
	if err := profile.Validate(draft); err != nil {
		s.renderProfiles(w, r, errors.UserMessage(err), &draft)
		return
	}

	created, err := s.backendFor(r).CreateProfile(r.Context(), profile.ForSave(draft))
	if err != nil {
		s.renderProfiles(w, r, s.banner(err, "Failed to create profile", "name", draft.Name), &draft)
		return
	}
	s.Logger.Info("Profile created", "profile_id", created.ID.String())
	http.Redirect(w, r, "/profiles", http.StatusSeeOther)
}

func (s *Server) profileUpdateHandler(w http.ResponseWriter, r *http.Request) {
	draft, err := profileFromForm(r)
	if err != nil {
		s.renderProfiles(w, r, errors.UserMessage(err), nil)
		return
	}
	draft.ID = types.ID(r.PathValue("id"))
	if err := profile.Validate(draft); err != nil {
		s.renderProfiles(w, r, errors.UserMessage(err), &draft)
		return
	}

	if _, err := s.backendFor(r).UpdateProfile(r.Context(), profile.ForSave(draft)); err != nil {
		s.renderProfiles(w, r, s.banner(err, "Failed to update profile", "profile_id", draft.ID.String()), &draft)
		return
	}
	http.Redirect(w, r, "/profiles", http.StatusSeeOther)
}

func (s *Server) profileDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.backendFor(r).DeleteProfile(r.Context(), id); err != nil {
		s.renderProfiles(w, r, s.banner(err, "Failed to delete profile", "profile_id", id), nil)
		return
	}

	if sess := session.FromContext(r.Context()); sess != nil && sess.ActiveProfileID == id {
		sess.ActiveProfileID = ""
		if err := s.sessions.Save(r.Context(), sess); err != nil {
			s.renderProfiles(w, r, errors.UserMessage(err), nil)
			return
		}
	}
	http.Redirect(w, r, "/profiles", http.StatusSeeOther)
}

// profileActivateHandler remembers the chosen profile in the session; nothing is sent to the backend
func (s *Server) profileActivateHandler(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	sess.ActiveProfileID = r.PathValue("id")
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.renderProfiles(w, r, errors.UserMessage(err), nil)
		return
	}
	http.Redirect(w, r, "/profiles", http.StatusSeeOther)
}

// profileAddTemplateHandler re-renders the submitted form with one more template slot
func (s *Server) profileAddTemplateHandler(w http.ResponseWriter, r *http.Request) {
	s.editTemplates(w, r, profile.AddTemplate)
}

// profileRemoveTemplateHandler re-renders the submitted form without the template at "index"
func (s *Server) profileRemoveTemplateHandler(w http.ResponseWriter, r *http.Request) {
	s.editTemplates(w, r, func(p types.Profile) types.Profile {
		index, err := strconv.Atoi(r.PostFormValue("index"))
		if err != nil {
			return p
		}
		return profile.RemoveTemplate(p, index)
	})
}

func (s *Server) editTemplates(w http.ResponseWriter, r *http.Request, edit func(types.Profile) types.Profile) {
	draft, err := profileFromForm(r)
	if err != nil {
		s.renderProfiles(w, r, errors.UserMessage(err), nil)
		return
	}
	id := r.PathValue("id")
	if id != newProfileID {
		draft.ID = types.ID(id)
	}
	draft = edit(draft)
	s.renderProfiles(w, r, "", &draft)
}

// renderProfiles shows the stored profiles, with draft standing in for the form it was
// submitted from so unsaved edits survive a failure.
func (s *Server) renderProfiles(w http.ResponseWriter, r *http.Request, banner string, draft *types.Profile) {
	data := profilesData{New: profile.Normalize(types.Profile{})}
	if sess := session.FromContext(r.Context()); sess != nil {
		data.ActiveID = sess.ActiveProfileID
	}

	profiles, err := s.backendFor(r).ListProfiles(r.Context())
	if err != nil {
		msg := s.banner(err, "Failed to fetch profiles")
		if banner == "" {
			banner = msg
		}
	}
	for _, p := range profiles {
		data.Profiles = append(data.Profiles, profile.Normalize(p))
	}
	if active, ok := profile.Active(data.Profiles, data.ActiveID); ok {
		data.ActiveID = active.ID.String()
	}

	if draft != nil {
		d := profile.Normalize(*draft)
		if d.ID == "" {
			data.New = d
			data.EditingID = newProfileID
		} else {
			data.EditingID = d.ID.String()
			for i := range data.Profiles {
				if data.Profiles[i].ID == d.ID {
					data.Profiles[i] = d
				}
			}
		}
	}

	s.render(w, r, http.StatusOK, "profiles", page{Title: "Profiles", Banner: banner, Data: data})
}

// profileFromForm reads a profile edit form; templates arrive as repeated "resumes" fields
func profileFromForm(r *http.Request) (types.Profile, error) {
	if err := parseForm(r); err != nil {
		return types.Profile{}, err
	}
	p := types.Profile{
		Name:    r.PostFormValue("name"),
		Phone:   r.PostFormValue("phone"),
		Email:   r.PostFormValue("email"),
		GitHub:  r.PostFormValue("github"),
		Resumes: append([]string(nil), r.PostForm["resumes"]...),
	}
	return profile.Normalize(p), nil
}
