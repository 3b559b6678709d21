package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps every event it receives. Tests and dry runs use it in
// place of an audit sink.
type CaptureHook struct {
	mu     sync.Mutex
	Events []Event
	// Err is returned from every Notify call.
	Err error
}

// Notify implements Hook.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	h.Events = append(h.Events, event.Normalize())
	h.mu.Unlock()
	return h.Err
}

// Verbs lists the captured verbs in arrival order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.Events))
	for _, event := range h.Events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// Find returns the captured events carrying verb.
func (h *CaptureHook) Find(verb string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var found []Event
	for _, event := range h.Events {
		if event.Verb == verb {
			found = append(found, event)
		}
	}
	return found
}
