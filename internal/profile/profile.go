// Package profile edits contact profiles and their resume templates before they are sent to the backend.
package profile

import (
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

// Normalize guarantees at least one template slot so the edit form always has a field.
func Normalize(p types.Profile) types.Profile {
	if len(p.Resumes) == 0 {
		p.Resumes = []string{""}
		return p
	}
	p.Resumes = append([]string(nil), p.Resumes...)
	return p
}

// AddTemplate appends an empty template slot
func AddTemplate(p types.Profile) types.Profile {
	p = Normalize(p)
	p.Resumes = append(p.Resumes, "")
	return p
}

// RemoveTemplate drops template i. Removing the last remaining slot, or an index out of
// range, leaves the profile unchanged.
func RemoveTemplate(p types.Profile, i int) types.Profile {
	p = Normalize(p)
	if len(p.Resumes) <= 1 || i < 0 || i >= len(p.Resumes) {
		return p
	}
	p.Resumes = append(p.Resumes[:i], p.Resumes[i+1:]...)
	return p
}

// SetTemplate replaces template i; out-of-range indexes are ignored
func SetTemplate(p types.Profile, i int, text string) types.Profile {
	p = Normalize(p)
	if i < 0 || i >= len(p.Resumes) {
		return p
	}
	p.Resumes[i] = text
	return p
}

// Template returns template i, if present and non-empty
func Template(p types.Profile, i int) (string, bool) {
	if i < 0 || i >= len(p.Resumes) || strings.TrimSpace(p.Resumes[i]) == "" {
		return "", false
	}
	return p.Resumes[i], true
}

// Validate checks the fields the backend needs
func Validate(p types.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingField, "Profile name is required", nil).
			WithContext("field", "name")
	}
	if email := strings.TrimSpace(p.Email); email != "" && !strings.Contains(email, "@") {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "Email address must contain @", nil).
			WithContext("field", "email")
	}
	return nil
}

// ForSave trims fields and drops empty templates
func ForSave(p types.Profile) types.Profile {
	out := types.Profile{
		ID:     p.ID,
		Name:   strings.TrimSpace(p.Name),
		Phone:  strings.TrimSpace(p.Phone),
		Email:  strings.TrimSpace(p.Email),
		GitHub: strings.TrimSpace(p.GitHub),
	}
	out.Resumes = []string{}
	for _, r := range p.Resumes {
		if strings.TrimSpace(r) != "" {
			out.Resumes = append(out.Resumes, r)
		}
	}
	return out
}

// Active picks the profile with activeID, else the first one. ok is false for an empty list.
func Active(profiles []types.Profile, activeID string) (types.Profile, bool) {
	if len(profiles) == 0 {
		return types.Profile{}, false
	}
	for _, p := range profiles {
		if activeID != "" && p.ID.String() == activeID {
			return p, true
		}
	}
	return profiles[0], true
}

// Find returns the profile with the given id
func Find(profiles []types.Profile, id string) (types.Profile, bool) {
	for _, p := range profiles {
		if p.ID.String() == id {
			return p, true
		}
	}
	return types.Profile{}, false
}
