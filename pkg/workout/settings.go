// Package workout drives an rbtree map through a long, reproducible sequence
// of random operations, mirrors each one on a reference model and reports
// where the two disagree.
package workout

import (
	"errors"
	"fmt"
)

// Settings validation errors.
var (
	ErrInvalidOps      = errors.New("ops must be positive")
	ErrInvalidKeySpace = errors.New("key space must be positive")
	ErrInvalidWeights  = errors.New("weights must be non-negative with a positive sum")
	ErrInvalidPeriod   = errors.New("periods must be non-negative")
)

// Settings describes one workout run.
type Settings struct {
	// Ops is the number of random operations before the final drain.
	Ops int `json:"ops" yaml:"ops"`
	// KeySpace bounds the keys to [0, KeySpace).
	KeySpace int `json:"key_space" yaml:"key_space"`
	// Seed makes the run reproducible.
	Seed int64 `json:"seed" yaml:"seed"`

	// Relative frequencies of the operations.
	InsertWeight int `json:"insert_weight" yaml:"insert_weight"`
	RemoveWeight int `json:"remove_weight" yaml:"remove_weight"`
	GetWeight    int `json:"get_weight"    yaml:"get_weight"`

	// CheckEvery runs a full structural check and model comparison every
	// CheckEvery operations. Zero checks only at the end.
	CheckEvery int `json:"check_every" yaml:"check_every"`
	// SampleEvery records the tree shape every SampleEvery operations. Zero
	// samples only at the end.
	SampleEvery int `json:"sample_every" yaml:"sample_every"`
	// HibernateEvery compresses and restores the node allocator every
	// HibernateEvery operations. Zero disables it.
	HibernateEvery int `json:"hibernate_every" yaml:"hibernate_every"`
	// HibernationThreshold is passed to the allocator.
	HibernationThreshold int `json:"hibernation_threshold" yaml:"hibernation_threshold"`
}

// DefaultSettings returns a quick, moderately sized run.
func DefaultSettings() Settings {
	return Settings{
		Ops:          100_000,
		KeySpace:     10_000,
		Seed:         1,
		InsertWeight: 5,
		RemoveWeight: 3,
		GetWeight:    2,
		CheckEvery:   1_000,
		SampleEvery:  1_000,
	}
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if s.Ops <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOps, s.Ops)
	}

	if s.KeySpace <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeySpace, s.KeySpace)
	}

	if s.InsertWeight < 0 || s.RemoveWeight < 0 || s.GetWeight < 0 ||
		s.InsertWeight+s.RemoveWeight+s.GetWeight == 0 {
		return fmt.Errorf("%w: insert %d, remove %d, get %d",
			ErrInvalidWeights, s.InsertWeight, s.RemoveWeight, s.GetWeight)
	}

	if s.CheckEvery < 0 || s.SampleEvery < 0 || s.HibernateEvery < 0 || s.HibernationThreshold < 0 {
		return ErrInvalidPeriod
	}

	return nil
}
