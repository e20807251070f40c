package engine

import (
	"github.com/pkg/errors"
)

// Batch implements the batched collaborator contract over independent
// single instances. Slots are stepped sequentially in fixed index
// order; results stay index-aligned with the instances given at
// construction.
type Batch struct {
	instances []Instance
}

func MakeBatch(instances []Instance) (*Batch, error) {
	if len(instances) < 1 {
		return nil, errors.New("a batch needs at least one instance")
	}

	return &Batch{instances: instances}, nil
}

func (b *Batch) InstanceCount() int {
	return len(b.instances)
}

func (b *Batch) ResetAll() ([]Observation, error) {
	observations := make([]Observation, len(b.instances))

	for i, instance := range b.instances {
		obs, err := instance.Reset()
		if err != nil {
			return nil, errors.Wrapf(err, "slot %d", i)
		}
		observations[i] = obs
	}

	return observations, nil
}

func (b *Batch) ResetAt(slot int) (Observation, error) {
	if slot < 0 || slot >= len(b.instances) {
		return nil, errors.Errorf("slot %d out of range [0, %d)", slot, len(b.instances))
	}

	return b.instances[slot].Reset()
}

func (b *Batch) StepAll(actions []Action) ([]Observation, []float64, []bool, error) {
	if len(actions) != len(b.instances) {
		return nil, nil, nil, errors.Errorf("got %d actions for %d instances", len(actions), len(b.instances))
	}

	observations := make([]Observation, len(b.instances))
	rewards := make([]float64, len(b.instances))
	dones := make([]bool, len(b.instances))

	for i, instance := range b.instances {
		obs, reward, done, err := instance.Step(actions[i])
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "slot %d", i)
		}

		observations[i] = obs
		rewards[i] = reward
		dones[i] = done
	}

	return observations, rewards, dones, nil
}
