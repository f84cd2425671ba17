package acquisition

import "sync"

// Registry tracks active jobs and their cancellation flags. It is the single
// rendezvous point between the HTTP cancel endpoint and the pipeline's
// cooperative cancellation polls.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]bool)}
}

// Register marks the request id as active.
func (r *Registry) Register(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[requestID] = false
}

// Cancel flags an active job for cancellation. It reports whether the id was
// active; cancelling an unknown or finished job is a no-op.
func (r *Registry) Cancel(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[requestID]; !ok {
		return false
	}

	r.jobs[requestID] = true

	return true
}

// IsCancelled reports whether the job has been flagged. Unknown ids read as
// not cancelled.
func (r *Registry) IsCancelled(requestID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.jobs[requestID]
}

// Remove drops the job from the registry.
func (r *Registry) Remove(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, requestID)
}

// Active returns the number of registered jobs.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.jobs)
}
