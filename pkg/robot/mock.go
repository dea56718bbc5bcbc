package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrInjectedFault is returned by MockActuator when a fault has been injected.
var ErrInjectedFault = errors.New("injected fault")

// Command is a target command received by MockActuator.
type Command struct {
	Motor  MotorID
	Target int
	Speed  float64
}

// MockActuator simulates the exoskeleton motors in memory.
type MockActuator struct {
	// TimeScale scales the simulated motion time (distance / speed).
	// Zero completes every move immediately.
	TimeScale float64

	mu        sync.Mutex
	positions map[MotorID]int
	targets   map[MotorID]int
	commands  []Command
	failing   map[MotorID]bool
	failNext  map[MotorID]int
}

// NewMockActuator creates a simulator with all encoders at zero.
func NewMockActuator() *MockActuator {
	return &MockActuator{
		positions: make(map[MotorID]int),
		targets:   make(map[MotorID]int),
		failing:   make(map[MotorID]bool),
		failNext:  make(map[MotorID]int),
	}
}

// SetMotorTarget records the command and moves the simulated encoder.
func (m *MockActuator) SetMotorTarget(ctx context.Context, motor MotorID, target int, speed float64) error {
	return m.SetMotorTargets(ctx, []Target{{Motor: motor, Position: target, Speed: speed}})
}

// SetMotorTargets records every command, then moves all accepted motors
// together for as long as the slowest of them takes.
func (m *MockActuator) SetMotorTargets(ctx context.Context, targets []Target) error {
	var errs []error
	var moving []Target
	var longest float64 // seconds

	m.mu.Lock()
	for _, t := range targets {
		if !t.Motor.Valid() {
			errs = append(errs, fault(t.Motor, "set target", fmt.Errorf("invalid motor port %d", int(t.Motor))))
			continue
		}
		m.commands = append(m.commands, Command{Motor: t.Motor, Target: t.Position, Speed: t.Speed})
		if err := m.injected(t.Motor); err != nil {
			errs = append(errs, fault(t.Motor, "set target", err))
			continue
		}
		if t.Speed > 0 {
			longest = math.Max(longest, math.Abs(float64(t.Position-m.positions[t.Motor]))/t.Speed)
		}
		m.targets[t.Motor] = t.Position
		moving = append(moving, t)
	}
	m.mu.Unlock()

	if len(moving) == 0 {
		return errors.Join(errs...)
	}

	if err := m.simulate(ctx, longest); err != nil {
		for _, t := range moving {
			errs = append(errs, fault(t.Motor, "set target", err))
		}
		return errors.Join(errs...)
	}

	m.mu.Lock()
	for _, t := range moving {
		m.positions[t.Motor] = t.Position
	}
	m.mu.Unlock()
	return errors.Join(errs...)
}

// MotorStatus returns the simulated encoder state.
func (m *MockActuator) MotorStatus(ctx context.Context, motor MotorID) (Status, error) {
	if !motor.Valid() {
		return Status{}, fault(motor, "status", fmt.Errorf("invalid motor port %d", int(motor)))
	}
	if err := ctx.Err(); err != nil {
		return Status{}, fault(motor, "status", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.positions[motor]
	target := m.targets[motor]
	return Status{
		Motor:    motor,
		Position: pos,
		Target:   target,
		Moving:   pos != target,
	}, nil
}

func (m *MockActuator) simulate(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.TimeScale <= 0 || seconds <= 0 {
		return nil
	}
	d := time.Duration(seconds * m.TimeScale * float64(time.Second))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// injected must be called with m.mu held.
func (m *MockActuator) injected(motor MotorID) error {
	if m.failing[motor] {
		return ErrInjectedFault
	}
	if n := m.failNext[motor]; n > 0 {
		m.failNext[motor] = n - 1
		return ErrInjectedFault
	}
	return nil
}

// FailMotor makes every subsequent command on motor fail until cleared.
func (m *MockActuator) FailMotor(motor MotorID, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[motor] = fail
}

// FailNext makes the next n commands on motor fail.
func (m *MockActuator) FailNext(motor MotorID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[motor] = n
}

// Commands returns a copy of every command received so far.
func (m *MockActuator) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// Position returns the simulated encoder position of motor.
func (m *MockActuator) Position(motor MotorID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[motor]
}

// ResetAll zeroes every encoder, clears injected faults and the command log.
func (m *MockActuator) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = make(map[MotorID]int)
	m.targets = make(map[MotorID]int)
	m.failing = make(map[MotorID]bool)
	m.failNext = make(map[MotorID]int)
	m.commands = nil
}
