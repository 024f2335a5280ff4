package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/types"
)

var (
	opListResumes = operation{name: "list_resumes", failMsg: "Failed to fetch resumes", auth: true}
	opGetResume   = operation{name: "get_resume", failMsg: "Failed to fetch resume by ID", auth: true}
	opGenerate    = operation{name: "generate", failMsg: "Failed to generate resume", auth: true}
	opScore       = operation{name: "score", failMsg: "Failed to evaluate ATS score", auth: true}
	opOptimize    = operation{name: "optimize", failMsg: "Failed to optimize resume", auth: true}
	opSave        = operation{name: "save", failMsg: "Failed to save selected resume", auth: true}
)

// ListResumes returns every resume the backend knows about, newest first as the backend orders them
func (c *Client) ListResumes(ctx context.Context) ([]types.Resume, error) {
	var out types.ResumeList
	if err := c.doJSON(ctx, opListResumes, request{
		method: http.MethodGet,
		path:   []string{"results"},
	}, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		return []types.Resume{}, nil
	}
	return out.Results, nil
}

// GetResume fetches one resume. The backend answers a missing id with 200 and {"error": ...},
// which is reported as NOT_FOUND.
func (c *Client) GetResume(ctx context.Context, id string) (*types.Resume, error) {
	if err := requireID("resume id", id); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, opGetResume, request{
		method: http.MethodGet,
		path:   []string{"resume", id},
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(resp.body, &envelope) == nil && envelope.Error != "" {
		return nil, errors.NewBackendError(errors.ErrCodeNotFound, envelope.Error, http.StatusNotFound).
			WithContext("operation", opGetResume.name).
			WithContext("resume_id", id)
	}

	var out types.Resume
	if err := decodeBody(opGetResume, resp.body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Generate asks the backend for a tailored resume
func (c *Client) Generate(ctx context.Context, req types.GenerateRequest) (*types.GenerateResult, error) {
	var out types.GenerateResult
	if err := c.doJSON(ctx, opGenerate, request{
		method: http.MethodPost,
		path:   []string{"generate_resume"},
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Result) == "" {
		return nil, errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			opGenerate.failMsg+": the server returned no resume text", nil).
			WithContext("operation", opGenerate.name)
	}
	return &out, nil
}

// Score evaluates a resume against a job description
func (c *Client) Score(ctx context.Context, req types.ScoreRequest) (*types.ScoreResult, error) {
	var out types.ScoreResult
	if err := c.doJSON(ctx, opScore, request{
		method: http.MethodPost,
		path:   []string{"evaluate_ats"},
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	if out.ATSScore == nil {
		return nil, errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			opScore.failMsg+": the server returned no score", nil).
			WithContext("operation", opScore.name)
	}
	return &out, nil
}

// Optimize rewrites a resume to raise its ATS score
func (c *Client) Optimize(ctx context.Context, req types.OptimizeRequest) (*types.OptimizeResult, error) {
	var out types.OptimizeResult
	if err := c.doJSON(ctx, opOptimize, request{
		method: http.MethodPost,
		path:   []string{"optimize_resume"},
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.OptimizedResume) == "" {
		return nil, errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			opOptimize.failMsg+": the server returned no optimized text", nil).
			WithContext("operation", opOptimize.name)
	}
	if out.FinalScore == nil {
		return nil, errors.NewDecodeError(errors.ErrCodeMalformedResponse,
			opOptimize.failMsg+": the server returned no score", nil).
			WithContext("operation", opOptimize.name)
	}
	return &out, nil
}

// Save records the chosen variant and its scores
func (c *Client) Save(ctx context.Context, req types.SaveRequest) (*types.SaveAck, error) {
	if err := requireID("resume id", req.ID.String()); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"status must be 'generated' or 'optimized'", nil).
			WithContext("status", string(req.Status))
	}

	var out types.SaveAck
	if err := c.doJSON(ctx, opSave, request{
		method: http.MethodPost,
		path:   []string{"saveselectedresume"},
		body:   req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
