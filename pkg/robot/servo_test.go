package robot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// busLog records servo traffic across all fake servos in order.
type busLog struct {
	mu     sync.Mutex
	events []string
}

func (l *busLog) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *busLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeServo struct {
	motor     MotorID
	log       *busLog
	pos       int
	goal      int
	written   bool
	stuck     bool // never reaches its goal
	failWrite bool
}

func (s *fakeServo) Enable(ctx context.Context) error  { return nil }
func (s *fakeServo) Disable(ctx context.Context) error { return nil }

func (s *fakeServo) Position(ctx context.Context) (int, error) {
	s.log.add("read " + s.motor.String())
	if s.written && !s.stuck {
		s.pos = s.goal
	}
	return s.pos, nil
}

func (s *fakeServo) SetPositionWithTime(ctx context.Context, position, timeMs int) error {
	s.log.add("write " + s.motor.String())
	if s.failWrite {
		return errors.New("bus write failed")
	}
	s.goal = position
	s.written = true
	return nil
}

func newFakeServoActuator(t *testing.T) (*ServoActuator, map[MotorID]*fakeServo, *busLog) {
	t.Helper()
	log := &busLog{}
	fakes := make(map[MotorID]*fakeServo)
	ports := make(map[MotorID]servoPort)
	for _, m := range AllMotors() {
		f := &fakeServo{motor: m, log: log, pos: 2048}
		fakes[m] = f
		ports[m] = f
	}
	a := newServoActuator(nil, ports, FeetechCalibration(), zap.NewNop())
	a.settleMargin = 50 * time.Millisecond
	return a, fakes, log
}

func TestServoActuator_WritesAllTargetsBeforeWaiting(t *testing.T) {
	a, fakes, log := newFakeServoActuator(t)

	err := a.SetMotorTargets(context.Background(), []Target{
		{Motor: MotorA, Position: 2560, Speed: 10000},
		{Motor: MotorB, Position: 2560, Speed: 10000},
	})
	require.NoError(t, err)

	events := log.all()
	require.GreaterOrEqual(t, len(events), 6)
	assert.Equal(t, []string{"read A", "write A", "read B", "write B"}, events[:4])
	for _, ev := range events[4:] {
		assert.NotContains(t, ev, "write", "no write may follow the settle wait")
	}

	assert.Equal(t, 2560, fakes[MotorA].pos)
	assert.Equal(t, 2560, fakes[MotorB].pos)
	assert.False(t, fakes[MotorC].written)
}

func TestServoActuator_StuckMotorFaultsAlone(t *testing.T) {
	a, fakes, _ := newFakeServoActuator(t)
	fakes[MotorB].stuck = true

	err := a.SetMotorTargets(context.Background(), []Target{
		{Motor: MotorA, Position: 2560, Speed: 10000},
		{Motor: MotorB, Position: 2560, Speed: 10000},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActuatorFault)
	assert.ErrorIs(t, err, ErrMotionTimeout)
	assert.Equal(t, []MotorID{MotorB}, FaultedMotors(err))
	assert.Equal(t, 2560, fakes[MotorA].pos)
}

func TestServoActuator_WriteFailureStillMovesOthers(t *testing.T) {
	a, fakes, _ := newFakeServoActuator(t)
	fakes[MotorA].failWrite = true

	err := a.SetMotorTargets(context.Background(), []Target{
		{Motor: MotorA, Position: 2560, Speed: 10000},
		{Motor: MotorB, Position: 2560, Speed: 10000},
	})
	require.Error(t, err)
	assert.Equal(t, []MotorID{MotorA}, FaultedMotors(err))
	assert.True(t, fakes[MotorB].written)
	assert.Equal(t, 2560, fakes[MotorB].pos)
}

func TestServoActuator_MotorStatus(t *testing.T) {
	a, _, _ := newFakeServoActuator(t)
	ctx := context.Background()

	st, err := a.MotorStatus(ctx, MotorC)
	require.NoError(t, err)
	assert.Equal(t, Status{Motor: MotorC, Position: 2048, Target: 2048}, st)

	require.NoError(t, a.SetMotorTarget(ctx, MotorC, 1024, 10000))
	st, err = a.MotorStatus(ctx, MotorC)
	require.NoError(t, err)
	assert.Equal(t, 1024, st.Target)
	assert.False(t, st.Moving)
}

func TestFaultedMotors(t *testing.T) {
	assert.Empty(t, FaultedMotors(nil))
	assert.Empty(t, FaultedMotors(errors.New("plain")))

	err := errors.Join(
		fault(MotorA, "write position", errors.New("x")),
		fault(MotorC, "wait settle", ErrMotionTimeout),
	)
	assert.Equal(t, []MotorID{MotorA, MotorC}, FaultedMotors(err))
}
