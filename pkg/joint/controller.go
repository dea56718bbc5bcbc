package joint

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gwillem/exorehab/pkg/robot"
)

// DefaultResetSpeed is the speed used to return to neutral, in degrees per second.
const DefaultResetSpeed = 30

// Motor assignments per joint. The elbow is driven by two motors in
// parallel; the secondary supplies torque support.
var jointMotors = map[Joint][]robot.MotorID{
	Elbow: {robot.MotorA, robot.MotorB},
	Wrist: {robot.MotorC},
}

// Controller owns the joint state of the exoskeleton and translates angle
// commands into actuator commands. It is not safe for concurrent use;
// hosts must serialize calls.
type Controller struct {
	act        robot.Actuator
	cal        robot.Calibration
	logger     *zap.Logger
	resetSpeed float64
	joints     map[Joint]*State
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCalibration sets the degree-to-encoder mapping of each motor.
func WithCalibration(cal robot.Calibration) Option {
	return func(c *Controller) {
		if cal != nil {
			c.cal = cal
		}
	}
}

// WithResetSpeed sets the speed of ResetPosition.
func WithResetSpeed(speed float64) Option {
	return func(c *Controller) {
		if speed > 0 {
			c.resetSpeed = speed
		}
	}
}

// NewController creates a controller driving act within the given limits.
// Both joints start at 0°, or at the middle of their range when 0° is
// outside it.
func NewController(act robot.Actuator, elbow, wrist Limits, opts ...Option) (*Controller, error) {
	if act == nil {
		return nil, fmt.Errorf("%w: nil actuator", ErrConfiguration)
	}

	c := &Controller{
		act:        act,
		cal:        robot.DefaultCalibration(),
		logger:     zap.NewNop(),
		resetSpeed: DefaultResetSpeed,
		joints:     make(map[Joint]*State, 2),
	}
	for _, opt := range opts {
		opt(c)
	}

	for j, l := range map[Joint]Limits{Elbow: elbow, Wrist: wrist} {
		if !(l.min < l.max) {
			return nil, fmt.Errorf("%w: %s limits %s", ErrConfiguration, j, l)
		}
		angle := 0.0
		if !l.Contains(angle) {
			angle = (l.min + l.max) / 2
		}
		c.joints[j] = &State{Joint: j, Angle: angle, Limits: l}
	}

	c.logger.Info("joint controller initialized",
		zap.Stringer("elbow_limits", elbow),
		zap.Stringer("wrist_limits", wrist))

	return c, nil
}

// MoveElbow moves both elbow motors to target at speed.
func (c *Controller) MoveElbow(ctx context.Context, target, speed float64) (Outcome, error) {
	return c.Move(ctx, Command{Joint: Elbow, Angle: target, Speed: speed})
}

// MoveWrist moves the wrist motor to target at speed.
func (c *Controller) MoveWrist(ctx context.Context, target, speed float64) (Outcome, error) {
	return c.Move(ctx, Command{Joint: Wrist, Angle: target, Speed: speed})
}

// Move executes cmd. Out-of-range targets are clamped into the joint's
// limits. Invalid input is returned as an error without issuing any
// actuator command. Actuator faults are not errors: they are reported in
// the outcome, and the joint angle is left unchanged.
func (c *Controller) Move(ctx context.Context, cmd Command) (Outcome, error) {
	st, ok := c.joints[cmd.Joint]
	if !ok {
		return Outcome{Joint: cmd.Joint, Requested: cmd.Angle}, fmt.Errorf("%w: %v", ErrUnknownJoint, cmd.Joint)
	}

	out := Outcome{
		Joint:     cmd.Joint,
		Requested: cmd.Angle,
		Clamped:   st.Angle,
	}

	if math.IsNaN(cmd.Angle) {
		out.Reason = ReasonInvalidTarget
		out.Detail = "target is NaN"
		return out, fmt.Errorf("%w: %v", ErrInvalidTarget, cmd.Angle)
	}
	out.Clamped = st.Limits.Clamp(cmd.Angle)

	if !(cmd.Speed > 0) || math.IsInf(cmd.Speed, 0) {
		out.Reason = ReasonInvalidSpeed
		out.Detail = fmt.Sprintf("speed %v must be positive", cmd.Speed)
		return out, fmt.Errorf("%w: %v°/s", ErrInvalidSpeed, cmd.Speed)
	}

	c.logger.Debug("move",
		zap.Stringer("joint", cmd.Joint),
		zap.Float64("from", st.Angle),
		zap.Float64("requested", cmd.Angle),
		zap.Float64("clamped", out.Clamped),
		zap.Float64("speed", cmd.Speed))

	// All motors of a joint are started in one batch, so the elbow pair
	// moves together.
	motors := jointMotors[cmd.Joint]
	targets := make([]robot.Target, 0, len(motors))
	for _, m := range motors {
		mc := c.cal.For(m)
		targets = append(targets, robot.Target{
			Motor:    m,
			Position: mc.Ticks(out.Clamped),
			Speed:    mc.TicksPerSecond(cmd.Speed),
		})
	}

	if err := c.act.SetMotorTargets(ctx, targets); err != nil {
		if n := len(robot.FaultedMotors(err)); n > 0 && n < len(motors) {
			st.Stale = true
		}
		out.Reason = ReasonActuatorFault
		out.Detail = err.Error()
		c.logger.Warn("actuator fault",
			zap.Stringer("joint", cmd.Joint),
			zap.Float64("target", out.Clamped),
			zap.Bool("stale", st.Stale),
			zap.Error(err))
		return out, nil
	}

	st.Angle = out.Clamped
	st.Stale = false
	out.Accepted = true
	return out, nil
}

// PerformTherapyMovement moves the movement's joint to amplitude degrees
// from neutral in the movement's direction: flexion and pronation toward
// the positive bound, extension and supination toward the negative one.
func (c *Controller) PerformTherapyMovement(ctx context.Context, m Movement, amplitude, speed float64) (Outcome, error) {
	j, sign, err := m.plan()
	if err != nil {
		return Outcome{}, err
	}

	out, err := c.Move(ctx, Command{Joint: j, Angle: sign * math.Abs(amplitude), Speed: speed})
	out.Movement = m
	return out, err
}

// ResetPosition returns every joint to 0° at the reset speed. It is best
// effort: each joint is attempted and its outcome reported, faults are
// not retried.
func (c *Controller) ResetPosition(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, 0, len(c.joints))
	for _, j := range AllJoints() {
		out, err := c.Move(ctx, Command{Joint: j, Angle: 0, Speed: c.resetSpeed})
		if err != nil {
			c.logger.Error("reset", zap.Stringer("joint", j), zap.Error(err))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// Angles returns the current angle of every joint.
func (c *Controller) Angles() map[Joint]float64 {
	angles := make(map[Joint]float64, len(c.joints))
	for j, st := range c.joints {
		angles[j] = st.Angle
	}
	return angles
}

// State returns a copy of the joint's state.
func (c *Controller) State(j Joint) (State, bool) {
	st, ok := c.joints[j]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Motors returns the motors that drive j.
func Motors(j Joint) []robot.MotorID {
	return append([]robot.MotorID(nil), jointMotors[j]...)
}
