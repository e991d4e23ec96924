// Package testutil provides deterministic helpers shared by tests: an
// in-memory step recorder and fallible-to-fatal value constructors.
package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/engine"
	"github.com/janus-vm/janus/internal/ir"
)

// Recorder buffers step events in memory.
//
// It renders the event stream as stable text so test scenarios can be
// compared against golden snapshots: the same program with the same inputs
// produces byte-identical renderings.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though the engine's single-writer walk delivers events from one
// goroutine.
type Recorder struct {
	mu     sync.Mutex
	events []engine.StepEvent
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnStep implements engine.Observer.
func (r *Recorder) OnStep(ev engine.StepEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events in execution order.
func (r *Recorder) Events() []engine.StepEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.StepEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the buffer for scenario reuse.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Render returns the event stream as one line per step, newline-terminated
// when non-empty.
func (r *Recorder) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, ev := range r.events {
		op := string(ev.Op)
		if ev.Fn != ir.FnNone && ev.Fn != ir.FnIdentity {
			op += "." + string(ev.Fn)
		}
		fmt.Fprintf(&b, "%3d  %-32s %s %s: %s -> %s\n",
			ev.Seq, ev.Path, op, ev.Target, ev.Before, ev.After)
	}
	return b.String()
}

// MustFixed converts a float to Fixed and panics on overflow. Tests only.
func MustFixed(f float64) domain.Fixed {
	v, err := domain.FixedFromFloat(f)
	if err != nil {
		panic(err)
	}
	return v
}

// MustValue builds a value of the given kind from a float and panics on
// failure. Tests only.
func MustValue(k domain.Kind, f float64) domain.Value {
	v, err := domain.FromFloat(k, f)
	if err != nil {
		panic(err)
	}
	return v
}
