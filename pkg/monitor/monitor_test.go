package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/exorehab/pkg/joint"
	"github.com/gwillem/exorehab/pkg/robot"
	"github.com/gwillem/exorehab/pkg/therapy"
)

type noSleepClock struct{}

func (noSleepClock) Now() time.Time                       { return time.Now() }
func (noSleepClock) Sleep(context.Context, time.Duration) {}

func newRunner(t *testing.T) (*Runner, *robot.MockActuator) {
	t.Helper()
	act := robot.NewMockActuator()
	ctrl, err := joint.NewController(act, joint.ElbowLimits(), joint.WristLimits())
	require.NoError(t, err)

	r := NewRunner(ctrl.Angles())
	engine := therapy.NewEngine(ctrl, therapy.WithObserver(r), therapy.WithClock(noSleepClock{}))
	r.Attach(engine)
	return r, act
}

func TestRunner_PublishesFinalState(t *testing.T) {
	r, _ := newRunner(t)

	rec, err := r.Start(context.Background(), therapy.Beginner)
	require.NoError(t, err)

	// Latest-wins: only the completion state is left in the channel
	st := <-r.States()
	require.True(t, st.Done())
	require.NotNil(t, st.Record)
	assert.Equal(t, rec.ID, st.Record.ID)
	assert.Equal(t, 12, st.Index)
	assert.Equal(t, map[joint.Joint]float64{joint.Elbow: 0, joint.Wrist: -20}, st.Angles)

	assert.False(t, r.Running())
	assert.Len(t, r.History(), 1)
}

func TestRunner_LogsFaults(t *testing.T) {
	r, act := newRunner(t)
	act.FailNext(robot.MotorC, 1)

	_, err := r.Start(context.Background(), therapy.Beginner)
	require.NoError(t, err)

	var logs []string
	for len(r.Logs()) > 0 {
		logs = append(logs, <-r.Logs())
	}
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0], "Starting beginner session")
	assert.Contains(t, logs[1], "elbow_extension 2/12 clamped -30° to 0°")
	assert.Contains(t, logs[2], "wrist_pronation 3/12 failed: actuator_fault")
}

func TestRunner_UnknownLevel(t *testing.T) {
	r, _ := newRunner(t)

	_, err := r.Start(context.Background(), therapy.Level(99))
	assert.ErrorIs(t, err, therapy.ErrUnknownProtocol)

	st := <-r.States()
	assert.True(t, st.Done())
	assert.Error(t, st.Error)
	assert.Empty(t, r.History())
}

func TestRunner_NoEngine(t *testing.T) {
	r := NewRunner(nil)

	_, err := r.Start(context.Background(), therapy.Beginner)
	assert.Error(t, err)
}

// blockingSession holds RunStandardSession until released.
type blockingSession struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSession) RunStandardSession(ctx context.Context, level therapy.Level) (therapy.Record, error) {
	close(b.started)
	<-b.release
	return therapy.Record{Level: level}, nil
}

func TestRunner_RefusesConcurrentSessions(t *testing.T) {
	r := NewRunner(nil)
	b := &blockingSession{started: make(chan struct{}), release: make(chan struct{})}
	r.Attach(b)

	done := make(chan error, 1)
	go func() {
		_, err := r.Start(context.Background(), therapy.Beginner)
		done <- err
	}()

	<-b.started
	assert.True(t, r.Running())
	_, err := r.Start(context.Background(), therapy.Advanced)
	assert.ErrorIs(t, err, ErrBusy)

	close(b.release)
	assert.NoError(t, <-done)
	assert.False(t, r.Running())
}

func TestRunner_HistoryIsReadOnly(t *testing.T) {
	r, _ := newRunner(t)
	_, err := r.Start(context.Background(), therapy.Beginner)
	require.NoError(t, err)

	h := r.History()
	require.Len(t, h, 1)
	require.True(t, h[0].Movements[0].Accepted)
	h[0].Movements[0].Accepted = false
	h[0].FinalAngles[joint.Elbow] = 99

	// The published completion state must not alias the stored record either
	st := <-r.States()
	require.NotNil(t, st.Record)
	st.Record.Movements[1].Accepted = false

	again := r.History()
	assert.True(t, again[0].Movements[0].Accepted)
	assert.True(t, again[0].Movements[1].Accepted)
	assert.Equal(t, 0.0, again[0].FinalAngles[joint.Elbow])
}
