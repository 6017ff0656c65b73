// Package pipeline tracks the status reported by the external content
// preparation pipeline. The payload is opaque to this process and is
// forwarded verbatim to every connected client.
package pipeline

import "sync"

type Tracker struct {
	mu        sync.RWMutex
	status    map[string]any
	broadcast func(event string, payload any)
}

func NewTracker() *Tracker {
	return &Tracker{
		status: map[string]any{
			"running":   false,
			"progress":  0,
			"message":   "Ready to process files",
			"error":     nil,
			"completed": false,
		},
	}
}

// OnUpdate registers the fan-out used to forward status changes.
func (t *Tracker) OnUpdate(fn func(event string, payload any)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcast = fn
}

// Set stores the pipeline's reported status verbatim and forwards it.
func (t *Tracker) Set(status map[string]any) {
	t.mu.Lock()
	t.status = status
	fn := t.broadcast
	t.mu.Unlock()
	if fn != nil {
		fn("pipeline_status_update", status)
	}
}

func (t *Tracker) Get() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]any, len(t.status))
	for k, v := range t.status {
		out[k] = v
	}
	return out
}
