package engine

import (
	"github.com/pkg/errors"
)

// DiscreteActionID indexes the compact control vocabulary exposed to
// trainers.
type DiscreteActionID int

const (
	ActionNoop DiscreteActionID = iota
	ActionForward
	ActionBack
	ActionLeft
	ActionRight
	ActionForwardLeft
	ActionForwardRight
	ActionAttack

	DiscreteActionCount = 8
)

var ErrInvalidActionID = errors.New("discrete action id out of range")

// discreteTable is the whole id→action mapping; each valid id maps to
// exactly one combination, everything else stays at the zero value.
var discreteTable = [DiscreteActionCount]Action{
	ActionNoop:         {},
	ActionForward:      {Forward: true},
	ActionBack:         {Back: true},
	ActionLeft:         {Left: true},
	ActionRight:        {Right: true},
	ActionForwardLeft:  {Forward: true, Left: true},
	ActionForwardRight: {Forward: true, Right: true},
	ActionAttack:       {Attack: true},
}

// DecodeDiscrete maps a discrete action id to its structured form. Ids
// outside [0, DiscreteActionCount) fail, never clamp.
func DecodeDiscrete(id DiscreteActionID) (Action, error) {
	if id < 0 || id >= DiscreteActionCount {
		return Action{}, errors.Wrapf(ErrInvalidActionID, "id %d", int(id))
	}

	return discreteTable[id], nil
}
