package qlearning

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// HyperParams mirrors Config's tunable knobs in a form that round-trips
// through YAML, loaded with viper rather than hardcoded, per spec §4.6's
// "required hyperparameters" loaded from outside the algorithm.
type HyperParams struct {
	LearningRate       float64 `mapstructure:"learningRate" yaml:"learningRate"`
	Gamma              float64 `mapstructure:"gamma" yaml:"gamma"`
	Epsilon            float64 `mapstructure:"epsilon" yaml:"epsilon"`
	EpsilonDecay       float64 `mapstructure:"epsilonDecay" yaml:"epsilonDecay"`
	EpsilonMin         float64 `mapstructure:"epsilonMin" yaml:"epsilonMin"`
	TargetSyncInterval int     `mapstructure:"targetSyncInterval" yaml:"targetSyncInterval"`
	MinibatchSize      int     `mapstructure:"minibatchSize" yaml:"minibatchSize"`
	ReplayCapacity     int     `mapstructure:"replayCapacity" yaml:"replayCapacity"`
	MaxRewardMagnitude float64 `mapstructure:"maxRewardMagnitude" yaml:"maxRewardMagnitude"`
	Seed               int64   `mapstructure:"seed" yaml:"seed"`
}

// SaveHyperParams writes hp to path as YAML, the round-trip counterpart to
// LoadHyperParams's viper-based read: a caller that tunes hyperparameters
// at runtime (e.g. from a sweep) can persist the result without hand
// -writing YAML.
func SaveHyperParams(path string, hp HyperParams) error {
	data, err := yaml.Marshal(hp)
	if err != nil {
		return fmt.Errorf("qlearning: encode hyperparameter config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("qlearning: write hyperparameter config: %w", err)
	}
	return nil
}

// LoadHyperParams reads hyperparameters from a YAML file at path.
func LoadHyperParams(path string) (HyperParams, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return HyperParams{}, fmt.Errorf("qlearning: read hyperparameter config: %w", err)
	}
	var hp HyperParams
	if err := vp.Unmarshal(&hp); err != nil {
		return HyperParams{}, fmt.Errorf("qlearning: decode hyperparameter config: %w", err)
	}
	return hp, nil
}

// ToConfig fills a Selector Config's hyperparameter fields from hp, leaving
// Log and Backend for the caller to set.
func (hp HyperParams) ToConfig() Config {
	return Config{
		LearningRate:       hp.LearningRate,
		Gamma:              hp.Gamma,
		Epsilon:            hp.Epsilon,
		EpsilonDecay:       hp.EpsilonDecay,
		EpsilonMin:         hp.EpsilonMin,
		TargetSyncInterval: hp.TargetSyncInterval,
		MinibatchSize:      hp.MinibatchSize,
		ReplayCapacity:     hp.ReplayCapacity,
		MaxRewardMagnitude: hp.MaxRewardMagnitude,
		Seed:               hp.Seed,
	}
}
