package apiclient

import (
	"context"
	"net/http"

	"resumeforge/internal/types"
)

var (
	opListProfiles  = operation{name: "list_profiles", failMsg: "Failed to load profiles", auth: true}
	opCreateProfile = operation{name: "create_profile", failMsg: "Failed to create profile", auth: true}
	opUpdateProfile = operation{name: "update_profile", failMsg: "Failed to update profile", auth: true}
	opDeleteProfile = operation{name: "delete_profile", failMsg: "Failed to delete profile", auth: true}
)

func (c *Client) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	var out []types.Profile
	if err := c.doJSON(ctx, opListProfiles, request{
		method: http.MethodGet,
		path:   []string{"profiles"},
	}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.Profile{}
	}
	return out, nil
}

// CreateProfile sends the profile without an id; the backend assigns one
func (c *Client) CreateProfile(ctx context.Context, p types.Profile) (*types.Profile, error) {
	p.ID = ""
	var out types.Profile
	if err := c.doJSON(ctx, opCreateProfile, request{
		method: http.MethodPost,
		path:   []string{"profiles"},
		body:   p,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p types.Profile) (*types.Profile, error) {
	if err := requireID("profile id", p.ID.String()); err != nil {
		return nil, err
	}
	var out types.Profile
	if err := c.doJSON(ctx, opUpdateProfile, request{
		method: http.MethodPut,
		path:   []string{"profiles", p.ID.String()},
		body:   p,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProfile ignores the acknowledgement body
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	if err := requireID("profile id", id); err != nil {
		return err
	}
	return c.doJSON(ctx, opDeleteProfile, request{
		method: http.MethodDelete,
		path:   []string{"profiles", id},
	}, nil)
}
