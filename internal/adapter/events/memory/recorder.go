package memory

import (
	"context"
	"sync"

	"mythicforge/internal/app/ports"
)

// Recorder keeps published session events in order.
type Recorder struct {
	mu     sync.Mutex
	events []ports.SessionEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event ports.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []ports.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.SessionEvent, len(r.events))
	copy(out, r.events)
	return out
}
