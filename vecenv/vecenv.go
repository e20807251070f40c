// Package vecenv adapts a batch of simulation instances to the standard
// vectorized-environment protocol: one synchronous reset/step pair over
// index-aligned batches, with transparent per-slot episode restarts.
package vecenv

import (
	"strconv"

	"github.com/pkg/errors"
	bettererrors "github.com/xtuc/better-errors"

	"github.com/Infatoshi/rusteze/engine"
)

var ErrBatchLengthMismatch = errors.New("action batch length does not match instance count")

var errNotReset = errors.New("Reset must be called before Step")

type Info map[string]interface{}

// VecEnv drives one batched collaborator from a single control
// goroutine. All slots are stepped in fixed index order within one Step
// call; a slot whose episode ends is reset before the call returns, so
// the caller sees the terminal reward next to the follow-up episode's
// first observation.
type VecEnv struct {
	cfg      engine.Config
	multi    engine.MultiInstance
	episodes *EpisodeTracker
	started  bool
}

func New(cfg engine.Config, multi engine.MultiInstance) (*VecEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if got := multi.InstanceCount(); got != cfg.NumInstances {
		return nil, bettererrors.
			New("Instance count mismatch").
			SetContext("configured", strconv.Itoa(cfg.NumInstances)).
			SetContext("collaborator", strconv.Itoa(got))
	}

	return &VecEnv{
		cfg:      cfg,
		multi:    multi,
		episodes: NewEpisodeTracker(cfg.NumInstances),
	}, nil
}

func (v *VecEnv) NumInstances() int {
	return v.cfg.NumInstances
}

func (v *VecEnv) ObservationSpace() BoxSpace {
	return observationSpace(v.cfg.NumInstances)
}

func (v *VecEnv) ActionSpace() DiscreteSpace {
	return actionSpace()
}

// Reset restarts every slot and returns their index-aligned initial
// observations. A non-nil seed replaces the configured one.
func (v *VecEnv) Reset(seed *int64, options Info) ([]engine.Observation, []Info, error) {
	if seed != nil {
		if *seed < 0 {
			return nil, nil, bettererrors.
				New("Invalid seed").
				SetContext("seed", strconv.FormatInt(*seed, 10))
		}
		v.cfg.Seed = *seed
	}

	observations, err := v.multi.ResetAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "collaborator reset failed")
	}

	if err := v.checkBatch(observations); err != nil {
		return nil, nil, err
	}

	v.episodes.BeginAll()
	v.started = true

	infos := make([]Info, v.cfg.NumInstances)
	for i := range infos {
		infos[i] = Info{}
	}

	return observations, infos, nil
}

// Step decodes the discrete action batch and advances every slot once.
func (v *VecEnv) Step(ids []engine.DiscreteActionID) ([]engine.Observation, []float64, []bool, []bool, []Info, error) {
	if len(ids) != v.cfg.NumInstances {
		return nil, nil, nil, nil, nil, errors.Wrapf(
			ErrBatchLengthMismatch, "got %d actions for %d instances", len(ids), v.cfg.NumInstances,
		)
	}

	actions := make([]engine.Action, len(ids))
	for i, id := range ids {
		action, err := engine.DecodeDiscrete(id)
		if err != nil {
			return nil, nil, nil, nil, nil, errors.Wrapf(err, "slot %d", i)
		}
		actions[i] = action
	}

	return v.StepActions(actions)
}

// StepActions is Step for callers that already hold structured actions.
// The whole batch is atomic from the caller's perspective: any failure
// surfaces before results do, never alongside partial ones.
func (v *VecEnv) StepActions(actions []engine.Action) ([]engine.Observation, []float64, []bool, []bool, []Info, error) {
	if !v.started {
		return nil, nil, nil, nil, nil, errNotReset
	}

	if len(actions) != v.cfg.NumInstances {
		return nil, nil, nil, nil, nil, errors.Wrapf(
			ErrBatchLengthMismatch, "got %d actions for %d instances", len(actions), v.cfg.NumInstances,
		)
	}

	observations, rewards, dones, err := v.multi.StepAll(actions)
	if err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, "collaborator step failed")
	}

	if err := v.checkBatch(observations); err != nil {
		return nil, nil, nil, nil, nil, err
	}

	if len(rewards) != v.cfg.NumInstances || len(dones) != v.cfg.NumInstances {
		return nil, nil, nil, nil, nil, errors.Errorf(
			"collaborator sent misaligned batch: %d rewards, %d dones, want %d",
			len(rewards), len(dones), v.cfg.NumInstances,
		)
	}

	terminated := make([]bool, v.cfg.NumInstances)
	truncated := make([]bool, v.cfg.NumInstances)
	infos := make([]Info, v.cfg.NumInstances)

	for i := range infos {
		infos[i] = Info{}
	}

	for i, done := range dones {
		terminated[i], truncated[i] = v.episodes.Observe(i, done)

		if !done {
			continue
		}

		// Lookahead reset: the terminal slot restarts inside this very
		// call and its fresh observation replaces the terminal one.
		obs, err := v.multi.ResetAt(i)
		if err != nil {
			return nil, nil, nil, nil, nil, errors.Wrapf(err, "auto-reset of slot %d failed", i)
		}
		if !obs.IsWellFormed() {
			return nil, nil, nil, nil, nil, errors.Errorf("auto-reset of slot %d produced a malformed observation", i)
		}

		observations[i] = obs
		v.episodes.Begin(i)
	}

	return observations, rewards, terminated, truncated, infos, nil
}

func (v *VecEnv) checkBatch(observations []engine.Observation) error {
	if len(observations) != v.cfg.NumInstances {
		return errors.Errorf("collaborator sent %d observations, want %d", len(observations), v.cfg.NumInstances)
	}

	for i, obs := range observations {
		if !obs.IsWellFormed() {
			return errors.Errorf("slot %d sent a malformed observation of %d bytes", i, len(obs))
		}
	}

	return nil
}
