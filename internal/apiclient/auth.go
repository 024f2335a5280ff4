package apiclient

import (
	"context"
	"net/http"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

var (
	opLogin  = operation{name: "login", failMsg: "Invalid credentials"}
	opSignup = operation{name: "signup", failMsg: "Signup failed"}
)

// Login exchanges credentials for a user and bearer token
func (c *Client) Login(ctx context.Context, email, password string) (*types.AuthResponse, error) {
	if err := requireFields(map[string]string{"email": email, "password": password}); err != nil {
		return nil, err
	}

	var out types.AuthResponse
	err := c.doJSON(ctx, opLogin, request{
		method: http.MethodPost,
		path:   []string{"login"},
		body:   types.LoginRequest{Email: strings.TrimSpace(email), Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return checkAuthResponse(opLogin, &out)
}

// Signup creates an account and returns its user and bearer token
func (c *Client) Signup(ctx context.Context, email, password, name string) (*types.AuthResponse, error) {
	if err := requireFields(map[string]string{"email": email, "password": password, "name": name}); err != nil {
		return nil, err
	}

	var out types.AuthResponse
	err := c.doJSON(ctx, opSignup, request{
		method: http.MethodPost,
		path:   []string{"signup"},
		body: types.SignupRequest{
			Email:    strings.TrimSpace(email),
			Password: password,
			Name:     strings.TrimSpace(name),
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return checkAuthResponse(opSignup, &out)
}

func checkAuthResponse(op operation, out *types.AuthResponse) (*types.AuthResponse, error) {
	if out.Token == "" {
		return nil, errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			op.failMsg+": the server did not return a token", nil).
			WithContext("operation", op.name)
	}
	return out, nil
}

// requireFields reports the first empty field in a stable order.
func requireFields(fields map[string]string) error {
	for _, name := range []string{"email", "password", "name"} {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			return errors.NewValidationError(errors.ErrCodeMissingField, name+" is required", nil).
				WithContext("field", name)
		}
	}
	return nil
}
