package therapy

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gwillem/exorehab/pkg/joint"
)

// Mover is the part of the joint controller a session drives.
type Mover interface {
	PerformTherapyMovement(ctx context.Context, m joint.Movement, amplitude, speed float64) (joint.Outcome, error)
	Angles() map[joint.Joint]float64
}

// Progress describes one completed movement of a running session.
type Progress struct {
	SessionID  uuid.UUID
	Level      Level
	Repetition int // 1-based
	Index      int // 1-based position in the session
	Total      int
	Outcome    joint.Outcome
}

// Observer is notified synchronously as a session runs.
type Observer interface {
	MovementCompleted(p Progress)
	SessionCompleted(r Record)
}

// Engine runs therapy sessions against a joint controller and keeps the
// history of sealed session records. It is not safe for concurrent use.
type Engine struct {
	mover     Mover
	clock     Clock
	logger    *zap.Logger
	observers []Observer
	history   []Record
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// NewEngine creates a session engine driving m.
func NewEngine(m Mover, opts ...Option) *Engine {
	e := &Engine{
		mover:  m,
		clock:  realClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunStandardSession runs every repetition of the level's protocol and
// returns the sealed record. Failed movements are recorded and the
// session carries on; only an unknown level is an error.
//
// A session always runs to completion. Cancelling ctx makes every
// remaining actuator command fault, so the record still accounts for
// every movement.
func (e *Engine) RunStandardSession(ctx context.Context, level Level) (Record, error) {
	p, err := ProtocolFor(level)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        uuid.New(),
		Level:     level,
		Protocol:  p,
		Start:     e.clock.Now(),
		Movements: make([]joint.Outcome, 0, p.Movements()),
	}

	log := e.logger.With(zap.Stringer("session", rec.ID), zap.Stringer("level", level))
	log.Info("session started",
		zap.Int("repetitions", p.Repetitions),
		zap.Float64("elbow_range", p.ElbowRange),
		zap.Float64("wrist_range", p.WristRange),
		zap.Float64("speed", p.Speed))

	total := p.Movements()
	for rep := 1; rep <= p.Repetitions; rep++ {
		for _, step := range p.Cycle() {
			out, err := e.mover.PerformTherapyMovement(ctx, step.Movement, step.Amplitude, step.Speed)
			if err != nil {
				log.Error("movement rejected", zap.Stringer("movement", step.Movement), zap.Error(err))
			}
			rec.Movements = append(rec.Movements, out)

			progress := Progress{
				SessionID:  rec.ID,
				Level:      level,
				Repetition: rep,
				Index:      len(rec.Movements),
				Total:      total,
				Outcome:    out,
			}
			for _, o := range e.observers {
				o.MovementCompleted(progress)
			}

			e.clock.Sleep(ctx, step.Pause())
		}
	}

	rec.End = e.clock.Now()
	rec.Duration = rec.End.Sub(rec.Start)
	rec.FinalAngles = e.mover.Angles()

	e.history = append(e.history, rec)

	log.Info("session completed",
		zap.Duration("duration", rec.Duration),
		zap.Int("movements", len(rec.Movements)),
		zap.Int("faults", rec.Faults()))

	sealed := rec.Clone()
	for _, o := range e.observers {
		o.SessionCompleted(sealed.Clone())
	}
	return sealed, nil
}

// History returns a copy of every sealed record in run order.
func (e *Engine) History() []Record {
	out := make([]Record, len(e.history))
	for i, r := range e.history {
		out[i] = r.Clone()
	}
	return out
}
