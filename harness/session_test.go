package harness

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Infatoshi/rusteze/common/messagebroker"
	"github.com/Infatoshi/rusteze/common/recording"
	"github.com/Infatoshi/rusteze/engine"
	"github.com/Infatoshi/rusteze/harness/input"
)

type fakeInstance struct {
	mutex      sync.Mutex
	resets     int
	steps      int
	doneAtStep int
	failAtStep int
	actions    []engine.Action
}

func (f *fakeInstance) frame() engine.Observation {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	obs := make(engine.Observation, engine.ObsByteSize)
	for i := range obs {
		obs[i] = uint8(f.resets)
	}
	return obs
}

func (f *fakeInstance) Reset() (engine.Observation, error) {
	f.mutex.Lock()
	f.resets++
	f.steps = 0
	f.mutex.Unlock()

	return f.frame(), nil
}

func (f *fakeInstance) Step(action engine.Action) (engine.Observation, float64, bool, error) {
	f.mutex.Lock()
	f.steps++
	f.actions = append(f.actions, action)
	steps := f.steps
	f.mutex.Unlock()

	if f.failAtStep > 0 && steps == f.failAtStep {
		return nil, 0, false, errors.New("engine went away")
	}

	done := f.doneAtStep > 0 && steps == f.doneAtStep
	return f.frame(), 1.0, done, nil
}

func (f *fakeInstance) resetCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.resets
}

func (f *fakeInstance) recordedActions() []engine.Action {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]engine.Action(nil), f.actions...)
}

type captureRecorder struct {
	mutex    sync.Mutex
	metadata *recording.Metadata
	steps    []recording.Step
	closed   bool
}

func (r *captureRecorder) RecordMetadata(sessionID string, metadata recording.Metadata) error {
	r.mutex.Lock()
	r.metadata = &metadata
	r.mutex.Unlock()
	return nil
}

func (r *captureRecorder) RecordStep(sessionID string, step recording.Step) error {
	r.mutex.Lock()
	r.steps = append(r.steps, step)
	r.mutex.Unlock()
	return nil
}

func (r *captureRecorder) Close(sessionID string) {
	r.mutex.Lock()
	r.closed = true
	r.mutex.Unlock()
}

func (r *captureRecorder) Stop() {}

func (r *captureRecorder) snapshot() (bool, []recording.Step) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.closed, append([]recording.Step(nil), r.steps...)
}

func makeSession(t *testing.T, cfg Config, instance engine.Instance, tracker *input.Tracker) (*Session, *captureRecorder) {
	t.Helper()

	recorder := &captureRecorder{}
	broker, err := messagebroker.NewMemoryClient()
	assert.NoError(t, err)

	session, err := NewSession(cfg, instance, tracker, recorder, broker)
	assert.NoError(t, err)

	return session, recorder
}

// drainUntilClose consumes session events until EventClose, returning
// everything seen along the way.
func drainUntilClose(t *testing.T, session *Session) []interface{} {
	t.Helper()

	var seen []interface{}
	timeout := time.After(5 * time.Second)

	for {
		select {
		case msg := <-session.Events():
			seen = append(seen, msg)
			if _, ok := msg.(EventClose); ok {
				return seen
			}
		case <-timeout:
			t.Fatal("session did not close in time")
			return seen
		}
	}
}

func TestNewSessionRejectsBadTickRate(t *testing.T) {
	tracker := input.NewTracker(0)
	recorder := &captureRecorder{}
	broker, _ := messagebroker.NewMemoryClient()

	_, err := NewSession(Config{TicksPerSecond: 0}, &fakeInstance{}, tracker, recorder, broker)
	assert.Error(t, err)
}

func TestSessionTicksAndFlushesOnDurationBudget(t *testing.T) {
	instance := &fakeInstance{}
	tracker := input.NewTracker(0)

	cfg := Config{TicksPerSecond: 200, Duration: 150 * time.Millisecond, Name: "test", Seed: 42}
	session, recorder := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	drainUntilClose(t, session)
	<-block

	closed, steps := recorder.snapshot()
	assert.True(t, closed, "trajectory must be flushed on duration budget")
	assert.Greater(t, len(steps), 5)

	// ticks are numbered consecutively
	for i, step := range steps {
		assert.Equal(t, i, step.Tick)
	}
}

func TestSessionStopFlushesTrajectory(t *testing.T) {
	instance := &fakeInstance{}
	tracker := input.NewTracker(0)

	cfg := Config{TicksPerSecond: 100, Name: "test"}
	session, recorder := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	go session.Stop()
	drainUntilClose(t, session)
	<-block

	closed, steps := recorder.snapshot()
	assert.True(t, closed)
	assert.NotEmpty(t, steps)
}

func TestQuitControlStopsSession(t *testing.T) {
	instance := &fakeInstance{}
	tracker := input.NewTracker(0)
	tracker.ApplyPress(input.ControlQuit)

	cfg := Config{TicksPerSecond: 100, Name: "test"}
	session, recorder := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	seen := drainUntilClose(t, session)
	<-block

	sawQuit := false
	for _, msg := range seen {
		if status, ok := msg.(EventStatusUpdate); ok && status.Status == "Quit requested by operator" {
			sawQuit = true
		}
	}
	assert.True(t, sawQuit)

	closed, _ := recorder.snapshot()
	assert.True(t, closed)
}

func TestHeldControlsAndMotionShapeTheAction(t *testing.T) {
	instance := &fakeInstance{}
	tracker := input.NewTracker(1.0)
	tracker.ApplyPress(input.ControlForward)
	tracker.ApplyMotion(4, -2)

	cfg := Config{TicksPerSecond: 100, Duration: 100 * time.Millisecond, Name: "test"}
	session, _ := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	drainUntilClose(t, session)
	<-block

	actions := instance.recordedActions()
	assert.NotEmpty(t, actions)

	// the accumulated delta is consumed by exactly one tick
	assert.Equal(t, [2]float64{4, -2}, actions[0].Camera)
	for _, action := range actions[1:] {
		assert.Equal(t, [2]float64{0, 0}, action.Camera)
	}

	// forward stays held for every tick
	for _, action := range actions {
		assert.True(t, action.Forward)
		assert.False(t, action.Attack)
	}
}

func TestEpisodeEndResetsAndContinues(t *testing.T) {
	instance := &fakeInstance{doneAtStep: 3}
	tracker := input.NewTracker(0)

	cfg := Config{TicksPerSecond: 200, Duration: 150 * time.Millisecond, Name: "test"}
	session, recorder := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	seen := drainUntilClose(t, session)
	<-block

	assert.GreaterOrEqual(t, instance.resetCount(), 2, "done must trigger a reset")

	logSeen := false
	for _, msg := range seen {
		if _, ok := msg.(EventLog); ok {
			logSeen = true
		}
	}
	assert.True(t, logSeen, "episode end must be announced on the event stream")

	_, steps := recorder.snapshot()
	doneSeen := false
	for _, step := range steps {
		if step.Done {
			doneSeen = true
		}
	}
	assert.True(t, doneSeen)
}

func TestStepFailureStillFlushesTrajectory(t *testing.T) {
	instance := &fakeInstance{failAtStep: 2}
	tracker := input.NewTracker(0)

	cfg := Config{TicksPerSecond: 200, Name: "test"}
	session, recorder := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	seen := drainUntilClose(t, session)
	<-block

	sawError := false
	for _, msg := range seen {
		if _, ok := msg.(EventError); ok {
			sawError = true
		}
	}
	assert.True(t, sawError)

	closed, steps := recorder.snapshot()
	assert.True(t, closed, "failure path must flush what was collected")
	assert.Len(t, steps, 1)
}

func TestRecordedObservationIsPreStep(t *testing.T) {
	instance := &fakeInstance{}
	tracker := input.NewTracker(0)

	cfg := Config{TicksPerSecond: 100, Duration: 80 * time.Millisecond, Name: "test"}
	session, recorder := makeSession(t, cfg, instance, tracker)

	block, err := session.Start()
	assert.NoError(t, err)

	drainUntilClose(t, session)
	<-block

	_, steps := recorder.snapshot()
	assert.NotEmpty(t, steps)

	// fakeInstance frames encode the reset count; without a done flag
	// every recorded observation belongs to the first episode
	for _, step := range steps {
		assert.Equal(t, uint8(1), step.Observation[0])
	}
}
