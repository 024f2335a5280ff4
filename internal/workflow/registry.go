package workflow

import "sync"

// Registry keeps one Workflow per browser session. Workflows are never shared across sessions.
type Registry struct {
	mu        sync.Mutex
	workflows map[string]*Workflow
	factory   func() *Workflow
}

// NewRegistry creates workflows on demand with factory
func NewRegistry(factory func() *Workflow) *Registry {
	return &Registry{
		workflows: make(map[string]*Workflow),
		factory:   factory,
	}
}

// Get returns the session's workflow, creating a fresh one if needed
func (r *Registry) Get(sessionID string) *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[sessionID]
	if !ok {
		w = r.factory()
		r.workflows[sessionID] = w
	}
	return w
}

// Peek returns the session's workflow without creating one
func (r *Registry) Peek(sessionID string) (*Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[sessionID]
	return w, ok
}

// Discard drops the session's workflow. Any call still in flight finishes against the
// detached workflow and its result is never shown.
func (r *Registry) Discard(sessionID string) {
	r.mu.Lock()
	w, ok := r.workflows[sessionID]
	delete(r.workflows, sessionID)
	r.mu.Unlock()
	if ok {
		w.Reset()
	}
}

// IDs lists the sessions that currently hold a workflow
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.workflows))
	for id := range r.workflows {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live workflows
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}
