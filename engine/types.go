package engine

// Frame geometry of the headless renderer; fixed for the lifetime of an
// engine instance.
const (
	ObsWidth    = 640
	ObsHeight   = 360
	ObsChannels = 3
	ObsByteSize = ObsWidth * ObsHeight * ObsChannels
)

// Observation is one rendered RGB frame, row-major, ObsByteSize bytes.
type Observation []uint8

func (obs Observation) Shape() (height int, width int, channels int) {
	return ObsHeight, ObsWidth, ObsChannels
}

func (obs Observation) IsWellFormed() bool {
	return len(obs) == ObsByteSize
}

func (obs Observation) Clone() Observation {
	cloned := make(Observation, len(obs))
	copy(cloned, obs)
	return cloned
}

// Action is the structured control input of one simulation step. Field
// names follow the engine wire form; Camera is [yaw, pitch] in degrees.
type Action struct {
	Camera  [2]float64 `json:"camera"`
	Forward bool       `json:"forward"`
	Back    bool       `json:"back"`
	Left    bool       `json:"left"`
	Right   bool       `json:"right"`
	Jump    bool       `json:"jump"`
	Attack  bool       `json:"attack"`
}

// Instance is the single-environment collaborator contract. Calls are
// synchronous; the engine owns response-time guarantees, not this
// package.
type Instance interface {
	Reset() (Observation, error)
	Step(action Action) (Observation, float64, bool, error)
}

// MultiInstance is the batched collaborator contract. ResetAt exists so
// a consumer can reset one slot without disturbing the others; the
// vectorized adapter needs it to pair a done flag with a fresh
// observation inside a single step call.
type MultiInstance interface {
	ResetAll() ([]Observation, error)
	ResetAt(slot int) (Observation, error)
	StepAll(actions []Action) ([]Observation, []float64, []bool, error)
	InstanceCount() int
}
