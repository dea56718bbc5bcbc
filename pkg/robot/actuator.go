package robot

import (
	"context"
	"errors"
	"fmt"
)

// ErrActuatorFault is matched by every error reported by an actuator backend.
var ErrActuatorFault = errors.New("actuator fault")

// FaultError describes a failed actuator operation on a single motor.
type FaultError struct {
	Motor MotorID
	Op    string
	Err   error
}

func (e *FaultError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("motor %s: %s: %v", e.Motor, e.Op, ErrActuatorFault)
	}
	return fmt.Sprintf("motor %s: %s: %v", e.Motor, e.Op, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// Is makes every FaultError match ErrActuatorFault.
func (e *FaultError) Is(target error) bool {
	return target == ErrActuatorFault
}

func fault(motor MotorID, op string, err error) error {
	return &FaultError{Motor: motor, Op: op, Err: err}
}

// Status is a snapshot of a single motor.
type Status struct {
	Motor    MotorID
	Position int  // current encoder position in ticks
	Target   int  // last commanded encoder position in ticks
	Moving   bool // position has not yet reached target
}

// FaultedMotors returns the motors named by the FaultErrors in err,
// including every error joined into it.
func FaultedMotors(err error) []MotorID {
	var motors []MotorID
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *FaultError:
			motors = append(motors, e.Motor)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		default:
			var fe *FaultError
			if errors.As(err, &fe) {
				motors = append(motors, fe.Motor)
			}
		}
	}
	walk(err)
	return motors
}

// Target is one motor's goal within a batch.
type Target struct {
	Motor    MotorID
	Position int     // encoder ticks
	Speed    float64 // ticks per second
}

// Actuator drives the exoskeleton motors. Implementations block until the
// motors have reached their targets or failed.
type Actuator interface {
	// SetMotorTarget moves the motor to target (encoder ticks) at speed
	// (ticks per second).
	SetMotorTarget(ctx context.Context, motor MotorID, target int, speed float64) error
	// SetMotorTargets starts every target before waiting on any of them, so
	// mechanically coupled motors move together. Each failed motor is
	// reported as its own FaultError, joined into the returned error.
	SetMotorTargets(ctx context.Context, targets []Target) error
	// MotorStatus reads the motor's current state.
	MotorStatus(ctx context.Context, motor MotorID) (Status, error)
}
