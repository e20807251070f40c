package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeInstance renders a flat frame whose pixel value encodes the slot
// id and how often the slot has been reset, which makes auto-reset
// observable from the outside.
type fakeInstance struct {
	id         int
	resets     int
	steps      int
	doneAtStep int // 0 means never done
	actions    []Action
}

func (f *fakeInstance) frame() Observation {
	obs := make(Observation, ObsByteSize)
	value := uint8(f.id*10 + f.resets)
	for i := range obs {
		obs[i] = value
	}
	return obs
}

func (f *fakeInstance) Reset() (Observation, error) {
	f.resets++
	f.steps = 0
	return f.frame(), nil
}

func (f *fakeInstance) Step(action Action) (Observation, float64, bool, error) {
	f.steps++
	f.actions = append(f.actions, action)
	done := f.doneAtStep > 0 && f.steps == f.doneAtStep
	return f.frame(), float64(f.id), done, nil
}

func makeFakeBatch(t *testing.T, n int) (*Batch, []*fakeInstance) {
	fakes := make([]*fakeInstance, n)
	instances := make([]Instance, n)
	for i := range fakes {
		fakes[i] = &fakeInstance{id: i}
		instances[i] = fakes[i]
	}

	batch, err := MakeBatch(instances)
	assert.NoError(t, err)

	return batch, fakes
}

func TestBatchResetAll(t *testing.T) {
	batch, _ := makeFakeBatch(t, 4)
	assert.Equal(t, 4, batch.InstanceCount())

	observations, err := batch.ResetAll()
	assert.NoError(t, err)
	assert.Len(t, observations, 4)

	for i, obs := range observations {
		assert.True(t, obs.IsWellFormed(), "slot %d", i)
		assert.Equal(t, uint8(i*10+1), obs[0], "slot %d", i)
	}
}

func TestBatchStepAllKeepsIndexAlignment(t *testing.T) {
	batch, fakes := makeFakeBatch(t, 3)

	_, err := batch.ResetAll()
	assert.NoError(t, err)

	actions := []Action{{Forward: true}, {Back: true}, {Attack: true}}
	observations, rewards, dones, err := batch.StepAll(actions)
	assert.NoError(t, err)
	assert.Len(t, observations, 3)
	assert.Len(t, rewards, 3)
	assert.Len(t, dones, 3)

	for i, fake := range fakes {
		assert.Equal(t, actions[i], fake.actions[0], "slot %d", i)
		assert.Equal(t, float64(i), rewards[i], "slot %d", i)
	}
}

func TestBatchStepAllRejectsWrongLength(t *testing.T) {
	batch, _ := makeFakeBatch(t, 4)

	_, err := batch.ResetAll()
	assert.NoError(t, err)

	_, _, _, err = batch.StepAll(make([]Action, 3))
	assert.Error(t, err)
}

func TestBatchResetAt(t *testing.T) {
	batch, fakes := makeFakeBatch(t, 2)

	_, err := batch.ResetAll()
	assert.NoError(t, err)

	obs, err := batch.ResetAt(1)
	assert.NoError(t, err)
	assert.Equal(t, 2, fakes[1].resets)
	assert.Equal(t, 1, fakes[0].resets)
	assert.Equal(t, uint8(1*10+2), obs[0])

	_, err = batch.ResetAt(5)
	assert.Error(t, err)
}

func TestMakeBatchRejectsEmpty(t *testing.T) {
	_, err := MakeBatch(nil)
	assert.Error(t, err)
}
