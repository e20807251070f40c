// Package harness runs the human interaction loop: one fixed-rate tick
// loop consuming the input tracker, driving a single simulation
// instance and recording the resulting trajectory.
package harness

import (
	"strconv"
	"sync"
	"time"

	notify "github.com/bitly/go-notify"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	bettererrors "github.com/xtuc/better-errors"

	"github.com/Infatoshi/rusteze/common/messagebroker"
	"github.com/Infatoshi/rusteze/common/recording"
	"github.com/Infatoshi/rusteze/common/types"
	"github.com/Infatoshi/rusteze/common/utils"
	"github.com/Infatoshi/rusteze/engine"
	"github.com/Infatoshi/rusteze/harness/input"
)

type Config struct {
	TicksPerSecond int
	Duration       time.Duration // 0 means no time budget
	Name           string
	Seed           int64
}

// FrameMessage carries one rendered frame to the viz stream.
type FrameMessage struct {
	SessionID string `json:"sessionid"`
	Tick      int    `json:"tick"`
	Pixels    []byte `json:"pixels"`
}

type Session struct {
	uuid string
	cfg  Config

	instance engine.Instance
	tracker  *input.Tracker
	recorder recording.RecorderInterface
	broker   messagebroker.ClientInterface

	events      chan interface{}
	stopticking chan bool

	currentObs engine.Observation

	tickCount int
	tickMutex sync.Mutex

	tearDownCallbacks      []types.TearDownCallback
	tearDownCallbacksMutex sync.Mutex

	stopOnce sync.Once
}

func NewSession(
	cfg Config,
	instance engine.Instance,
	tracker *input.Tracker,
	recorder recording.RecorderInterface,
	broker messagebroker.ClientInterface,
) (*Session, error) {

	if cfg.TicksPerSecond < 1 {
		return nil, bettererrors.
			New("Invalid tick rate").
			SetContext("tickspersec", strconv.Itoa(cfg.TicksPerSecond))
	}

	s := &Session{
		uuid:        uuid.NewV4().String(),
		cfg:         cfg,
		instance:    instance,
		tracker:     tracker,
		recorder:    recorder,
		broker:      broker,
		events:      make(chan interface{}, 64),
		stopticking: make(chan bool, 1),
	}

	return s, nil
}

func (s *Session) GetId() string {
	return s.uuid
}

func (s *Session) GetName() string {
	return s.cfg.Name
}

func (s *Session) GetTps() int {
	return s.cfg.TicksPerSecond
}

func (s *Session) Events() chan interface{} {
	return s.events
}

func (s *Session) TickCount() int {
	s.tickMutex.Lock()
	count := s.tickCount
	s.tickMutex.Unlock()

	return count
}

// Start resets the instance, records the trajectory metadata and begins
// ticking. The returned channel receives once the session has shut
// down.
func (s *Session) Start() (chan interface{}, error) {
	utils.Debug("session", "Resetting simulation instance")

	obs, err := s.instance.Reset()
	if err != nil {
		return nil, errors.Wrap(err, "could not reset simulation instance")
	}
	s.currentObs = obs

	s.recorder.RecordMetadata(s.uuid, recording.Metadata{
		SessionID:      s.uuid,
		Name:           s.cfg.Name,
		Seed:           s.cfg.Seed,
		TicksPerSecond: s.cfg.TicksPerSecond,
		ObsWidth:       engine.ObsWidth,
		ObsHeight:      engine.ObsHeight,
		ObsChannels:    engine.ObsChannels,
		Date:           time.Now().Format(time.RFC3339),
	})

	block := make(chan interface{})
	notify.Start("session:closed:"+s.uuid, block)

	s.startMonitoring()
	s.startTicking()

	return block, nil
}

func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.TearDown()
	})
}

func (s *Session) AddTearDownCall(fn types.TearDownCallback) {
	s.tearDownCallbacksMutex.Lock()
	defer s.tearDownCallbacksMutex.Unlock()

	s.tearDownCallbacks = append(s.tearDownCallbacks, fn)
}

// TearDown runs teardown callbacks in reverse order, then flushes the
// trajectory. Every termination path converges here; collected data is
// persisted no matter what stopped the session.
func (s *Session) TearDown() {
	utils.Debug("session", "teardown")

	s.tearDownCallbacksMutex.Lock()

	for i := len(s.tearDownCallbacks) - 1; i >= 0; i-- {
		utils.Debug("teardown", "Executing TearDownCallback")
		s.tearDownCallbacks[i]()
	}

	s.tearDownCallbacks = make([]types.TearDownCallback, 0)

	s.tearDownCallbacksMutex.Unlock()

	s.recorder.Close(s.uuid)
	s.recorder.Stop()

	s.events <- EventClose{}
}

func (s *Session) startMonitoring() {
	stopChannel := make(chan bool, 1)

	go func() {
		monitorfreq := time.Second
		lastCount := 0

		for {
			select {
			case <-stopChannel:
				return
			case <-time.After(monitorfreq):
				count := s.TickCount()
				utils.Debug("monitoring", strconv.Itoa(count-lastCount)+" ticks per "+monitorfreq.String())
				lastCount = count
			}
		}
	}()

	s.AddTearDownCall(func() error {
		stopChannel <- true
		return nil
	})
}

func (s *Session) startTicking() {

	tickduration := time.Duration((1000000 / time.Duration(s.cfg.TicksPerSecond)) * time.Microsecond)
	ticker := time.Tick(tickduration)

	var deadline <-chan time.Time
	if s.cfg.Duration > 0 {
		deadline = time.After(s.cfg.Duration)
	}

	s.AddTearDownCall(func() error {
		s.stopticking <- true
		return nil
	})

	go func() {
		for {
			select {
			case <-s.stopticking:
				{
					utils.Debug("core-loop", "Received stop ticking signal")
					notify.Post("session:closed:"+s.uuid, nil)
					return
				}
			case <-deadline:
				{
					s.events <- EventStatusUpdate{"Session time budget reached"}
					s.Stop()
				}
			case <-ticker:
				{
					s.doTick()
				}
			}
		}
	}()
}

func (s *Session) doTick() {

	tick := s.nextTick()

	dolog := (tick % s.cfg.TicksPerSecond) == 0
	if dolog {
		s.events <- EventDebug{"######## Tick ######## " + strconv.Itoa(tick)}
	}

	sample := s.tracker.SampleAndReset()

	if sample.IsHeld(input.ControlQuit) {
		s.events <- EventStatusUpdate{"Quit requested by operator"}
		s.Stop()
		return
	}

	action := actionFromSample(sample)
	preStepObs := s.currentObs

	obs, reward, done, err := s.instance.Step(action)
	if err != nil {
		s.events <- EventError{errors.Wrap(err, "simulation step failed")}
		s.Stop()
		return
	}

	if err := s.recorder.RecordStep(s.uuid, recording.Step{
		Tick:        tick,
		Observation: []byte(preStepObs),
		Action:      action,
		Reward:      reward,
		Done:        done,
	}); err != nil {
		s.events <- EventError{errors.Wrap(err, "could not record step")}
		s.Stop()
		return
	}

	s.broker.Publish("viz", "frame", FrameMessage{
		SessionID: s.uuid,
		Tick:      tick,
		Pixels:    obs,
	})

	if done {
		s.events <- EventLog{Value: "Episode ended at tick " + strconv.Itoa(tick) + "; starting a new one"}

		obs, err = s.instance.Reset()
		if err != nil {
			s.events <- EventError{errors.Wrap(err, "could not reset after episode end")}
			s.Stop()
			return
		}
	}

	s.currentObs = obs
}

func (s *Session) nextTick() int {
	s.tickMutex.Lock()
	tick := s.tickCount
	s.tickCount++
	s.tickMutex.Unlock()

	return tick
}

// actionFromSample assembles exactly one action per tick from the
// sampled input state.
func actionFromSample(sample input.Sample) engine.Action {
	return engine.Action{
		Camera:  [2]float64{sample.DeltaX, sample.DeltaY},
		Forward: sample.IsHeld(input.ControlForward),
		Back:    sample.IsHeld(input.ControlBack),
		Left:    sample.IsHeld(input.ControlLeft),
		Right:   sample.IsHeld(input.ControlRight),
		Jump:    sample.IsHeld(input.ControlJump),
		Attack:  sample.IsHeld(input.ControlAttack),
	}
}
