package entryflow

import (
	"context"
	"sync"
)

// Registry holds the open flow of each chat session. Flows that reach Done
// or Idle are dropped.
type Registry struct {
	mu      sync.Mutex
	enterer Enterer
	flows   map[string]*Flow
}

func NewRegistry(enterer Enterer) *Registry {
	return &Registry{enterer: enterer, flows: make(map[string]*Flow)}
}

func (r *Registry) Start(sessionID string) Step {
	r.mu.Lock()
	flow, ok := r.flows[sessionID]
	if !ok {
		flow = NewFlow(sessionID, r.enterer)
		r.flows[sessionID] = flow
	}
	r.mu.Unlock()
	return flow.Start()
}

func (r *Registry) Submit(ctx context.Context, sessionID, text string) (Step, error) {
	r.mu.Lock()
	flow, ok := r.flows[sessionID]
	r.mu.Unlock()
	if !ok {
		return Step{State: Idle, Prompt: "Start an entry first."}, ErrNotStarted
	}
	step, err := flow.Submit(ctx, text)
	if step.State == Done || step.State == Idle {
		r.drop(sessionID, flow)
	}
	return step, err
}

func (r *Registry) Cancel(sessionID string) Step {
	r.mu.Lock()
	flow, ok := r.flows[sessionID]
	delete(r.flows, sessionID)
	r.mu.Unlock()
	if !ok {
		return Step{State: Idle, Prompt: "Nothing to cancel."}
	}
	return flow.Cancel()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// drop removes flow only if it is still the session's current one.
func (r *Registry) drop(sessionID string, flow *Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flows[sessionID] == flow {
		delete(r.flows, sessionID)
	}
}
