// Package joint implements the exoskeleton joint controller: the single
// source of truth for joint angles, and the only component allowed to
// clamp, validate and dispatch actuator motion.
package joint

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrInvalidSpeed    = errors.New("invalid speed")
	ErrInvalidTarget   = errors.New("invalid target angle")
	ErrUnknownMovement = errors.New("unknown movement")
	ErrUnknownJoint    = errors.New("unknown joint")
)

// Joint identifies a controlled joint.
type Joint int

const (
	Elbow Joint = iota + 1
	Wrist
)

// AllJoints returns the controlled joints in reset order.
func AllJoints() []Joint {
	return []Joint{Elbow, Wrist}
}

func (j Joint) String() string {
	switch j {
	case Elbow:
		return "elbow"
	case Wrist:
		return "wrist"
	}
	return fmt.Sprintf("joint(%d)", int(j))
}

// ParseJoint maps a joint name onto a Joint.
func ParseJoint(s string) (Joint, error) {
	switch s {
	case "elbow":
		return Elbow, nil
	case "wrist":
		return Wrist, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, s)
}

func (j Joint) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

func (j *Joint) UnmarshalText(text []byte) error {
	v, err := ParseJoint(string(text))
	if err != nil {
		return err
	}
	*j = v
	return nil
}

// Limits is an immutable closed interval of safe angles in degrees.
type Limits struct {
	min, max float64
}

// NewLimits returns the interval [lo, hi]. It fails with ErrConfiguration
// unless lo < hi.
func NewLimits(lo, hi float64) (Limits, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo >= hi {
		return Limits{}, fmt.Errorf("%w: min %v must be below max %v", ErrConfiguration, lo, hi)
	}
	return Limits{min: lo, max: hi}, nil
}

// ElbowLimits returns the standard elbow safety range, [0°, 120°].
func ElbowLimits() Limits { return Limits{min: 0, max: 120} }

// WristLimits returns the standard wrist safety range, [-90°, 90°].
func WristLimits() Limits { return Limits{min: -90, max: 90} }

func (l Limits) Min() float64 { return l.min }
func (l Limits) Max() float64 { return l.max }

// Clamp constrains deg to the interval.
func (l Limits) Clamp(deg float64) float64 {
	return math.Max(l.min, math.Min(l.max, deg))
}

// Contains reports whether deg lies within the interval.
func (l Limits) Contains(deg float64) bool {
	return deg >= l.min && deg <= l.max
}

func (l Limits) String() string {
	return fmt.Sprintf("[%g°, %g°]", l.min, l.max)
}

// State is a snapshot of one joint.
type State struct {
	Joint  Joint
	Angle  float64
	Limits Limits
	// Stale is set when a move partially actuated the joint; Angle is not
	// trustworthy until the next fully successful move re-homes it.
	Stale bool
}

// Command is a single movement request.
type Command struct {
	Joint Joint
	Angle float64 // target, degrees
	Speed float64 // degrees per second
}

// Reason classifies a rejected movement.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonActuatorFault Reason = "actuator_fault"
	ReasonInvalidSpeed  Reason = "invalid_speed"
	ReasonInvalidTarget Reason = "invalid_target"
)

// Outcome is the result of executing one command.
type Outcome struct {
	Joint     Joint    `json:"joint" yaml:"joint"`
	Movement  Movement `json:"movement,omitempty" yaml:"movement,omitempty"`
	Requested float64  `json:"requested" yaml:"requested"`
	Clamped   float64  `json:"clamped" yaml:"clamped"`
	Accepted  bool     `json:"accepted" yaml:"accepted"`
	Reason    Reason   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Detail    string   `json:"detail,omitempty" yaml:"detail,omitempty"`
}
