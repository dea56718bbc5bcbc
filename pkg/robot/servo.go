package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.uber.org/zap"
)

// Servo bus defaults.
const (
	ServoBaudRate      = 1_000_000
	servoTolerance     = 8 // ticks, about 0.7 degrees on STS3215
	servoPollInterval  = 20 * time.Millisecond
	servoSettleMargin  = 1500 * time.Millisecond
	servoScanTimeout   = 2 * time.Second
	servoReadTimeout   = 100 * time.Millisecond
	servoMinMoveTimeMs = 1
)

// ErrMotionTimeout is reported when a servo does not reach its target in time.
var ErrMotionTimeout = errors.New("motion did not complete in time")

// servoPort is the part of *feetech.Servo the actuator uses.
type servoPort interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Position(ctx context.Context) (int, error)
	SetPositionWithTime(ctx context.Context, position, timeMs int) error
}

// ServoActuator drives the exoskeleton through a Feetech STS servo bus.
type ServoActuator struct {
	bus          *feetech.Bus
	servos       map[MotorID]servoPort
	calibration  Calibration
	logger       *zap.Logger
	settleMargin time.Duration

	mu      sync.Mutex
	targets map[MotorID]int
}

// NewServoActuator opens the bus on port and binds every calibrated motor
// to its servo. All three motors must answer the scan.
func NewServoActuator(port string, cal Calibration, logger *zap.Logger) (*ServoActuator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: ServoBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  servoReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), servoScanTimeout)
	defer cancel()

	ids := cal.MotorIDs()
	found, err := bus.Scan(ctx, minID(ids), maxID(ids))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan bus: %w", err)
	}

	servos := make(map[MotorID]servoPort, len(found))
	for _, s := range found {
		motor, _, ok := cal.ByID(s.ID)
		if !ok {
			continue
		}
		servos[motor] = feetech.NewServo(bus, s.ID, s.Model)
	}
	for _, m := range AllMotors() {
		if _, ok := servos[m]; !ok {
			bus.Close()
			return nil, fmt.Errorf("motor %s (servo %d) not found on %s", m, cal.For(m).ID, port)
		}
	}

	return newServoActuator(bus, servos, cal, logger), nil
}

func newServoActuator(bus *feetech.Bus, servos map[MotorID]servoPort, cal Calibration, logger *zap.Logger) *ServoActuator {
	return &ServoActuator{
		bus:          bus,
		servos:       servos,
		calibration:  cal,
		logger:       logger,
		settleMargin: servoSettleMargin,
		targets:      make(map[MotorID]int),
	}
}

func minID(ids []int) int {
	lo := 1
	for i, id := range ids {
		if i == 0 || id < lo {
			lo = id
		}
	}
	return lo
}

func maxID(ids []int) int {
	hi := 1
	for _, id := range ids {
		hi = max(hi, id)
	}
	return hi
}

// Enable enables torque on all servos.
func (a *ServoActuator) Enable(ctx context.Context) error {
	for _, m := range AllMotors() {
		if err := a.servos[m].Enable(ctx); err != nil {
			return fault(m, "enable torque", err)
		}
	}
	return nil
}

// Disable disables torque on all servos.
func (a *ServoActuator) Disable(ctx context.Context) error {
	var errs []error
	for _, m := range AllMotors() {
		if err := a.servos[m].Disable(ctx); err != nil {
			errs = append(errs, fault(m, "disable torque", err))
		}
	}
	return errors.Join(errs...)
}

// Close disables torque and closes the bus connection.
func (a *ServoActuator) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), servoScanTimeout)
	defer cancel()
	if a.bus == nil {
		return a.Disable(ctx)
	}
	return errors.Join(a.Disable(ctx), a.bus.Close())
}

// SetMotorTarget commands a timed move and waits for the servo to settle.
func (a *ServoActuator) SetMotorTarget(ctx context.Context, motor MotorID, target int, speed float64) error {
	return a.SetMotorTargets(ctx, []Target{{Motor: motor, Position: target, Speed: speed}})
}

type pendingMove struct {
	servo  servoPort
	target int
}

// SetMotorTargets writes every goal position first, then waits until all
// written servos have settled. Move times are derived per servo from its
// distance and speed, so coupled motors arrive together when their
// speeds are scaled alike.
func (a *ServoActuator) SetMotorTargets(ctx context.Context, targets []Target) error {
	var errs []error
	pending := make(map[MotorID]pendingMove, len(targets))
	var longest time.Duration

	for _, t := range targets {
		servo, ok := a.servos[t.Motor]
		if !ok {
			errs = append(errs, fault(t.Motor, "set target", fmt.Errorf("motor not bound")))
			continue
		}
		if t.Speed <= 0 {
			errs = append(errs, fault(t.Motor, "set target", fmt.Errorf("non-positive speed %v", t.Speed)))
			continue
		}

		current, err := servo.Position(ctx)
		if err != nil {
			errs = append(errs, fault(t.Motor, "read position", err))
			continue
		}

		moveTime := time.Duration(math.Abs(float64(t.Position-current)) / t.Speed * float64(time.Second))
		moveTimeMs := max(servoMinMoveTimeMs, int(moveTime.Milliseconds()))

		a.mu.Lock()
		a.targets[t.Motor] = t.Position
		a.mu.Unlock()

		a.logger.Debug("servo move",
			zap.Stringer("motor", t.Motor),
			zap.Int("from", current),
			zap.Int("to", t.Position),
			zap.Int("move_time_ms", moveTimeMs))

		if err := servo.SetPositionWithTime(ctx, t.Position, moveTimeMs); err != nil {
			errs = append(errs, fault(t.Motor, "write position", err))
			continue
		}
		pending[t.Motor] = pendingMove{servo: servo, target: t.Position}
		longest = max(longest, moveTime)
	}

	if len(pending) > 0 {
		errs = append(errs, a.waitSettled(ctx, pending, longest+a.settleMargin)...)
	}
	return errors.Join(errs...)
}

// waitSettled polls every pending servo until it is within tolerance of
// its target. Servos still moving at the deadline fault individually.
func (a *ServoActuator) waitSettled(ctx context.Context, pending map[MotorID]pendingMove, limit time.Duration) []error {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(servoPollInterval)
	defer ticker.Stop()

	remaining := func(err error) []error {
		var errs []error
		for _, m := range AllMotors() {
			if _, ok := pending[m]; ok {
				errs = append(errs, fault(m, "wait settle", err))
			}
		}
		return errs
	}

	for {
		select {
		case <-ctx.Done():
			return remaining(ctx.Err())
		case <-deadline.C:
			return remaining(ErrMotionTimeout)
		case <-ticker.C:
			for m, p := range pending {
				pos, err := p.servo.Position(ctx)
				if err != nil {
					// Transient read errors are common on a busy bus
					continue
				}
				if abs(pos-p.target) <= servoTolerance {
					delete(pending, m)
				}
			}
			if len(pending) == 0 {
				return nil
			}
		}
	}
}

// MotorStatus reads the servo's encoder position.
func (a *ServoActuator) MotorStatus(ctx context.Context, motor MotorID) (Status, error) {
	servo, ok := a.servos[motor]
	if !ok {
		return Status{}, fault(motor, "status", fmt.Errorf("motor not bound"))
	}
	pos, err := servo.Position(ctx)
	if err != nil {
		return Status{}, fault(motor, "read position", err)
	}

	a.mu.Lock()
	target, commanded := a.targets[motor]
	a.mu.Unlock()
	if !commanded {
		target = pos
	}

	return Status{
		Motor:    motor,
		Position: pos,
		Target:   target,
		Moving:   abs(pos-target) > servoTolerance,
	}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
