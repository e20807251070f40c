package engine

import (
	"strconv"

	bettererrors "github.com/xtuc/better-errors"
)

// Config gathers everything declared at the adapter boundary. The reward
// shaping values are pass-through: they are forwarded to the engine and
// have no local effect.
type Config struct {
	Seed               int64
	NumInstances       int
	BreakLogReward     float64
	MoveRewardPerMeter float64
}

func DefaultConfig() Config {
	return Config{
		Seed:               42,
		NumInstances:       8,
		BreakLogReward:     10.0,
		MoveRewardPerMeter: 0.01,
	}
}

func (cfg Config) Validate() error {
	if cfg.NumInstances < 1 {
		return bettererrors.
			New("Invalid instance count").
			SetContext("num-instances", strconv.Itoa(cfg.NumInstances))
	}

	if cfg.Seed < 0 {
		return bettererrors.
			New("Invalid seed").
			SetContext("seed", strconv.FormatInt(cfg.Seed, 10))
	}

	return nil
}
