package vecenv

import (
	"github.com/Infatoshi/rusteze/engine"
)

// BoxSpace declares a dense uint8 tensor space, gym-style.
type BoxSpace struct {
	Low   uint8
	High  uint8
	Shape []int
}

// DiscreteSpace declares an integer space over [0, N).
type DiscreteSpace struct {
	N int
}

func (s DiscreteSpace) Contains(id engine.DiscreteActionID) bool {
	return id >= 0 && int(id) < s.N
}

func observationSpace(numInstances int) BoxSpace {
	return BoxSpace{
		Low:   0,
		High:  255,
		Shape: []int{numInstances, engine.ObsHeight, engine.ObsWidth, engine.ObsChannels},
	}
}

func actionSpace() DiscreteSpace {
	return DiscreteSpace{N: engine.DiscreteActionCount}
}
