package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestDecodeDiscreteTable(t *testing.T) {
	examples := []struct {
		Name     string
		ID       DiscreteActionID
		Expected Action
	}{
		{"noop", 0, Action{}},
		{"forward", 1, Action{Forward: true}},
		{"back", 2, Action{Back: true}},
		{"left", 3, Action{Left: true}},
		{"right", 4, Action{Right: true}},
		{"forward-left", 5, Action{Forward: true, Left: true}},
		{"forward-right", 6, Action{Forward: true, Right: true}},
		{"attack", 7, Action{Attack: true}},
	}

	for _, example := range examples {
		action, err := DecodeDiscrete(example.ID)
		assert.NoError(t, err, example.Name)
		assert.Equal(t, example.Expected, action, example.Name)
	}
}

func TestDecodeDiscreteIsDeterministic(t *testing.T) {
	for id := DiscreteActionID(0); id < DiscreteActionCount; id++ {
		first, err := DecodeDiscrete(id)
		assert.NoError(t, err)

		second, err := DecodeDiscrete(id)
		assert.NoError(t, err)

		assert.Equal(t, first, second)
	}
}

func TestDecodeDiscreteOutOfRange(t *testing.T) {
	for _, id := range []DiscreteActionID{-1, 8, 42} {
		_, err := DecodeDiscrete(id)
		assert.Error(t, err)
		assert.Equal(t, ErrInvalidActionID, errors.Cause(err))
	}
}

func TestDecodeDiscreteLeavesCameraAtZero(t *testing.T) {
	for id := DiscreteActionID(0); id < DiscreteActionCount; id++ {
		action, err := DecodeDiscrete(id)
		assert.NoError(t, err)
		assert.Equal(t, [2]float64{0, 0}, action.Camera)
	}
}
