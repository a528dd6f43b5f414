package bridge

import "sync"

// Registry tracks live bridge sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Host
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Host)}
}

func (r *Registry) Add(h *Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[h.ID()] = h
}

func (r *Registry) Get(id string) (*Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[id]
	return h, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every session's transport.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.sessions {
		_ = h.Close()
	}
}
