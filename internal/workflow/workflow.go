// Package workflow drives one resume optimization from input to a saved variant.
//
// The steps only move forward: input, generating, preview, scoring, back to preview with a
// score, optimizing, final. Accepting the generated resume from preview skips scoring and
// optimization. Reset returns to input from anywhere.
package workflow

import (
	"context"
	"strings"
	"sync"

	"resumeforge/internal/errors"
	"resumeforge/internal/observability"
	"resumeforge/internal/types"
)

// Step is a position in the optimization sequence
type Step string

const (
	StepInput      Step = "input"
	StepGenerating Step = "generating"
	StepPreview    Step = "preview"
	StepScoring    Step = "scoring"
	StepOptimizing Step = "optimizing"
	StepFinal      Step = "final"
)

// InFlight reports whether a backend request is pending for this step
func (s Step) InFlight() bool {
	return s == StepGenerating || s == StepScoring || s == StepOptimizing
}

// Variant names which resume text gets saved
type Variant string

const (
	VariantNone      Variant = ""
	VariantGenerated Variant = "generated"
	VariantOptimized Variant = "optimized"
)

// ParseVariant accepts "generated" or "optimized"
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantGenerated, VariantOptimized:
		return v, nil
	}
	return VariantNone, errors.NewValidationError(errors.ErrCodeInvalidRequest,
		"choose either the generated or the optimized resume", nil).
		WithContext("variant", s)
}

// Backend is the subset of the API client the workflow needs
type Backend interface {
	Generate(ctx context.Context, req types.GenerateRequest) (*types.GenerateResult, error)
	Score(ctx context.Context, req types.ScoreRequest) (*types.ScoreResult, error)
	Optimize(ctx context.Context, req types.OptimizeRequest) (*types.OptimizeResult, error)
	Save(ctx context.Context, req types.SaveRequest) (*types.SaveAck, error)
}

// Input is what the user submits to start an optimization
type Input struct {
	CompanyName    string `json:"companyName"`
	Role           string `json:"role"`
	JobDescription string `json:"jobDescription"`
	Resume         string `json:"resume"`
}

func (in Input) trimmed() Input {
	return Input{
		CompanyName:    strings.TrimSpace(in.CompanyName),
		Role:           strings.TrimSpace(in.Role),
		JobDescription: strings.TrimSpace(in.JobDescription),
		Resume:         strings.TrimSpace(in.Resume),
	}
}

// Validate reports the first empty field
func (in Input) Validate() error {
	fields := []struct{ name, label, value string }{
		{"companyName", "Company name", in.CompanyName},
		{"role", "Role", in.Role},
		{"jobDescription", "Job description", in.JobDescription},
		{"resume", "Current resume", in.Resume},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return errors.NewValidationError(errors.ErrCodeMissingField, f.label+" is required", nil).
				WithContext("field", f.name)
		}
	}
	return nil
}

// State is a snapshot of a workflow
type State struct {
	Step                Step           `json:"step"`
	Input               Input          `json:"input"`
	ResumeID            types.ID       `json:"resumeId,omitempty"`
	Generated           string         `json:"generatedResume,omitempty"`
	Optimized           string         `json:"optimizedResume,omitempty"`
	ATSScore            *types.Score   `json:"atsScore,omitempty"`
	FinalScore          *types.Score   `json:"finalScore,omitempty"`
	ScoreExplanation    string         `json:"scoreExplanation,omitempty"`
	OptimizeExplanation string         `json:"optimizeExplanation,omitempty"`
	Selected            Variant        `json:"selected,omitempty"`
	Saving              bool           `json:"saving,omitempty"`
	Done                bool           `json:"done,omitempty"`
	Saved               *types.SaveAck `json:"saved,omitempty"`
	Error               string         `json:"error,omitempty"`
}

// HasScore reports whether the generated text has been scored
func (s State) HasScore() bool {
	return s.ATSScore != nil
}

// Busy reports whether a backend call is pending
func (s State) Busy() bool {
	return s.Step.InFlight() || s.Saving
}

// Option configures a Workflow
type Option func(*Workflow)

func WithLogger(logger *errors.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(w *Workflow) { w.metrics = metrics }
}

// Workflow is safe for concurrent use. No lock is held while the backend is called;
// an action arriving meanwhile is rejected with INVALID_STATE.
type Workflow struct {
	backend Backend
	logger  *errors.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state State
	// epoch changes on Reset so that late results of abandoned calls are dropped.
	epoch uint64
}

func New(backend Backend, opts ...Option) *Workflow {
	w := &Workflow{
		backend: backend,
		state:   State{Step: StepInput},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger, _ = errors.New("error")
	}
	return w
}

// Snapshot returns a copy of the current state
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done reports whether a variant was saved
func (w *Workflow) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Done
}

// Reset discards everything and returns to input. A pending call's result is ignored.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	from := w.state.Step
	w.state = State{Step: StepInput}
	w.epoch++
	w.record(context.Background(), from, StepInput)
}

// Submit starts generation. Valid only in input.
func (w *Workflow) Submit(ctx context.Context, in Input) error {
	in = in.trimmed()

	w.mu.Lock()
	if err := w.require("submit", StepInput); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := in.Validate(); err != nil {
		w.state.Input = in
		w.state.Error = errors.UserMessage(err)
		w.mu.Unlock()
		return err
	}
	w.state.Input = in
	w.state.Error = ""
	w.transition(ctx, StepGenerating)
	epoch := w.epoch
	w.mu.Unlock()

	res, err := w.backend.Generate(ctx, types.GenerateRequest{
		JobDescription: in.JobDescription,
		CurrentResume:  in.Resume,
		CompanyName:    in.CompanyName,
		Role:           in.Role,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		return abandoned()
	}
	if err != nil {
		w.fail(ctx, err, StepInput, "generate")
		return err
	}
	w.state.Generated = res.Result
	w.state.ResumeID = res.ID
	w.transition(ctx, StepPreview)
	return nil
}

// Score evaluates the generated text against the job description. Valid in preview before scoring.
func (w *Workflow) Score(ctx context.Context) error {
	w.mu.Lock()
	if err := w.require("score", StepPreview); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.state.HasScore() {
		w.mu.Unlock()
		return invalidState("score", "the resume has already been scored")
	}
	req := types.ScoreRequest{JobDescription: w.state.Input.JobDescription, Resume: w.state.Generated}
	w.state.Error = ""
	w.transition(ctx, StepScoring)
	epoch := w.epoch
	w.mu.Unlock()

	res, err := w.backend.Score(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		return abandoned()
	}
	if err != nil {
		w.clearScore()
		w.fail(ctx, err, StepPreview, "score")
		return err
	}
	score := *res.ATSScore
	w.state.ATSScore = &score
	w.state.ScoreExplanation = res.Explanation
	w.transition(ctx, StepPreview)
	return nil
}

// Optimize rewrites the generated text. Valid in preview once scored.
// On failure the score is dropped and scoring must be repeated.
func (w *Workflow) Optimize(ctx context.Context) error {
	w.mu.Lock()
	if err := w.require("optimize", StepPreview); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.state.HasScore() {
		w.mu.Unlock()
		return invalidState("optimize", "score the resume before optimizing it")
	}
	req := types.OptimizeRequest{JobDescription: w.state.Input.JobDescription, Resume: w.state.Generated}
	w.state.Error = ""
	w.transition(ctx, StepOptimizing)
	epoch := w.epoch
	w.mu.Unlock()

	res, err := w.backend.Optimize(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		return abandoned()
	}
	if err != nil {
		w.clearScore()
		w.fail(ctx, err, StepPreview, "optimize")
		return err
	}
	score := *res.FinalScore
	w.state.Optimized = res.OptimizedResume
	w.state.FinalScore = &score
	w.state.OptimizeExplanation = res.Explanation
	w.transition(ctx, StepFinal)
	return nil
}

// Select picks the variant to save. Valid only in final.
func (w *Workflow) Select(v Variant) error {
	if v != VariantGenerated && v != VariantOptimized {
		_, err := ParseVariant(string(v))
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.require("select", StepFinal); err != nil {
		return err
	}
	w.state.Selected = v
	return nil
}

// CanSave reports whether Finalize would be accepted
func (w *Workflow) CanSave() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canSave()
}

func (w *Workflow) canSave() bool {
	return w.state.Step == StepFinal && !w.state.Done && !w.state.Saving && w.state.Selected != VariantNone
}

// Finalize saves the selected variant. The unselected text is not sent and is discarded on success.
// A failed save stays in final so it can be retried.
func (w *Workflow) Finalize(ctx context.Context) (*types.SaveAck, error) {
	w.mu.Lock()
	if !w.canSave() {
		err := w.require("save", StepFinal)
		if err == nil {
			err = invalidState("save", "select the generated or the optimized resume first")
		}
		w.mu.Unlock()
		return nil, err
	}
	req := types.SaveRequest{
		ID:             w.state.ResumeID,
		Status:         types.Status(w.state.Selected),
		ATSScore:       w.state.ATSScore,
		OptimizedScore: w.state.FinalScore,
	}
	if w.state.Selected == VariantOptimized {
		req.OptimizedResume = w.state.Optimized
	} else {
		req.GeneratedResume = w.state.Generated
	}
	return w.save(ctx, req, StepFinal)
}

// AcceptGenerated saves the generated text as-is, skipping optimization. Valid in preview.
func (w *Workflow) AcceptGenerated(ctx context.Context) (*types.SaveAck, error) {
	w.mu.Lock()
	if err := w.require("accept", StepPreview); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.state.Selected = VariantGenerated
	req := types.SaveRequest{
		ID:              w.state.ResumeID,
		Status:          types.StatusGenerated,
		ATSScore:        w.state.ATSScore,
		GeneratedResume: w.state.Generated,
	}
	return w.save(ctx, req, StepPreview)
}

// save must be called with w.mu held; it releases the lock around the backend call.
func (w *Workflow) save(ctx context.Context, req types.SaveRequest, step Step) (*types.SaveAck, error) {
	w.state.Saving = true
	w.state.Error = ""
	epoch := w.epoch
	w.mu.Unlock()

	ack, err := w.backend.Save(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		return nil, abandoned()
	}
	w.state.Saving = false
	if err != nil {
		if step == StepPreview {
			w.state.Selected = VariantNone
		}
		w.fail(ctx, err, step, "save")
		return nil, err
	}

	if req.Status == types.StatusOptimized {
		w.state.Generated = ""
	} else {
		w.state.Optimized = ""
	}
	w.state.Done = true
	w.state.Saved = ack
	w.logger.Info("Resume saved", "resume_id", req.ID.String(), "status", string(req.Status))
	return ack, nil
}

// require checks the workflow is idle in the given step; callers hold w.mu.
func (w *Workflow) require(action string, step Step) error {
	switch {
	case w.state.Busy():
		return invalidState(action, "a request is already in progress")
	case w.state.Done:
		return invalidState(action, "this resume has already been saved")
	case w.state.Step != step:
		return invalidState(action, "not available at step "+string(w.state.Step)).
			WithContext("step", string(w.state.Step))
	}
	return nil
}

func (w *Workflow) clearScore() {
	w.state.ATSScore = nil
	w.state.ScoreExplanation = ""
	w.state.Optimized = ""
	w.state.FinalScore = nil
	w.state.OptimizeExplanation = ""
}

func (w *Workflow) fail(ctx context.Context, err error, step Step, action string) {
	w.state.Error = errors.UserMessage(err)
	w.logger.LogError(err, "Workflow step failed", "action", action, "resume_id", w.state.ResumeID.String())
	w.transition(ctx, step)
}

func (w *Workflow) transition(ctx context.Context, to Step) {
	from := w.state.Step
	w.state.Step = to
	w.record(ctx, from, to)
}

func (w *Workflow) record(ctx context.Context, from, to Step) {
	w.logger.Debug("Workflow transition", "from", string(from), "to", string(to))
	w.metrics.RecordWorkflowTransition(ctx, string(from), string(to))
}

func invalidState(action, reason string) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeInvalidState, "Cannot "+action+" now: "+reason, nil).
		WithContext("action", action)
}

func abandoned() error {
	return errors.NewValidationError(errors.ErrCodeInvalidState, "The optimization was reset before the request finished", nil)
}
