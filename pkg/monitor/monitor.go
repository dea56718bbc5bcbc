// Package monitor runs therapy sessions in the background and streams
// their progress to a user interface.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/therapy"
)

// ErrBusy is returned when a session is started while another one runs.
var ErrBusy = errors.New("session already running")

// State represents the current state of a monitored session.
type State struct {
	Angles    map[joint.Joint]float64
	Index     int
	Total     int
	Last      joint.Outcome
	Timestamp time.Time
	Record    *therapy.Record // set once the session has completed
	Error     error
}

// Done reports whether the session has finished.
func (s State) Done() bool {
	return s.Record != nil || s.Error != nil
}

// Session is the part of the engine the runner drives.
type Session interface {
	RunStandardSession(ctx context.Context, level therapy.Level) (therapy.Record, error)
}

// Runner serializes access to a session engine and publishes progress.
// While a session runs, the joint controller and engine must only be
// reached through the runner.
type Runner struct {
	mu      sync.Mutex
	session Session
	angles  map[joint.Joint]float64
	history []therapy.Record
	running bool

	stateCh chan State
	logCh   chan string
}

var _ therapy.Observer = (*Runner)(nil)

// NewRunner creates a runner. The runner must be registered as an
// observer of the engine it drives (see therapy.WithObserver), and
// initial holds the controller's starting angles.
func NewRunner(initial map[joint.Joint]float64) *Runner {
	angles := maps.Clone(initial)
	if angles == nil {
		angles = make(map[joint.Joint]float64)
	}
	return &Runner{
		angles:  angles,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// Attach sets the engine driven by the runner.
func (r *Runner) Attach(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = s
}

// States returns a channel that receives state updates.
func (r *Runner) States() <-chan State {
	return r.stateCh
}

// Logs returns a channel that receives log messages.
func (r *Runner) Logs() <-chan string {
	return r.logCh
}

// Running reports whether a session is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case r.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs one session of level to completion.
func (r *Runner) Start(ctx context.Context, level therapy.Level) (therapy.Record, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return therapy.Record{}, ErrBusy
	}
	if r.session == nil {
		r.mu.Unlock()
		return therapy.Record{}, fmt.Errorf("no session engine attached")
	}
	r.running = true
	session := r.session
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.log("Starting %s session", level)

	rec, err := session.RunStandardSession(ctx, level)
	if err != nil {
		r.log("Session failed: %v", err)
		r.sendState(State{Angles: r.snapshot(), Error: err, Timestamp: time.Now()})
		return therapy.Record{}, err
	}
	return rec, nil
}

// History returns a copy of every session completed through the runner.
// It never touches the engine, so it is safe to call while a session runs.
func (r *Runner) History() []therapy.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]therapy.Record, len(r.history))
	for i, rec := range r.history {
		out[i] = rec.Clone()
	}
	return out
}

// MovementCompleted implements therapy.Observer.
func (r *Runner) MovementCompleted(p therapy.Progress) {
	o := p.Outcome
	r.mu.Lock()
	if o.Accepted {
		r.angles[o.Joint] = o.Clamped
	}
	r.mu.Unlock()

	switch {
	case !o.Accepted:
		r.log("%s %d/%d failed: %s", o.Movement, p.Index, p.Total, o.Reason)
	case o.Clamped != o.Requested:
		r.log("%s %d/%d clamped %.0f° to %.0f°", o.Movement, p.Index, p.Total, o.Requested, o.Clamped)
	}

	r.sendState(State{
		Angles:    r.snapshot(),
		Index:     p.Index,
		Total:     p.Total,
		Last:      o,
		Timestamp: time.Now(),
	})
}

// SessionCompleted implements therapy.Observer.
func (r *Runner) SessionCompleted(rec therapy.Record) {
	r.mu.Lock()
	r.history = append(r.history, rec.Clone())
	r.mu.Unlock()

	r.log("Session completed in %.1fs with %d fault(s)", rec.DurationSeconds(), rec.Faults())
	r.sendState(State{
		Angles:    r.snapshot(),
		Index:     len(rec.Movements),
		Total:     len(rec.Movements),
		Timestamp: time.Now(),
		Record:    &rec,
	})
}

func (r *Runner) snapshot() map[joint.Joint]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.angles)
}

func (r *Runner) sendState(s State) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		r.stateCh <- s
	}
}
