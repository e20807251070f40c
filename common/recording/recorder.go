package recording

import (
	"github.com/Infatoshi/rusteze/engine"
)

// Step is one recorded transition: the observation the action was taken
// from, plus the engine's response.
type Step struct {
	Tick        int           `json:"tick"`
	Observation []byte        `json:"observation"`
	Action      engine.Action `json:"action"`
	Reward      float64       `json:"reward"`
	Done        bool          `json:"done"`
}

type Metadata struct {
	SessionID      string `json:"sessionid"`
	Name           string `json:"name"`
	Seed           int64  `json:"seed"`
	TicksPerSecond int    `json:"tickspersec"`
	ObsWidth       int    `json:"obswidth"`
	ObsHeight      int    `json:"obsheight"`
	ObsChannels    int    `json:"obschannels"`
	Date           string `json:"date"`
}

type RecorderInterface interface {
	RecordMetadata(sessionID string, metadata Metadata) error
	RecordStep(sessionID string, step Step) error
	Close(sessionID string)
	Stop()
}
