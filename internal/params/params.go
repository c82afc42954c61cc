// Package params holds the administrator-mutable staking configuration:
// the reward ratio, the reward interval, the minimum and maximum staking
// periods, and the handles of the stake and reward units.
//
// There is deliberately no per-position snapshot of these values — every
// accrual computation reads the current configuration, so a rate change
// applies retroactively to the unclaimed portion of every open position.
package params

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidConfiguration is returned when a setter receives a zero value
// for a numeric field.
var ErrInvalidConfiguration = errors.New("params: configuration value must be positive")

// Params is an immutable snapshot of the staking configuration.
type Params struct {
	RewardNumerator   decimal.Decimal `json:"reward_numerator"`
	RewardDenominator decimal.Decimal `json:"reward_denominator"`
	RewardInterval    time.Duration   `json:"reward_interval"`
	MinStakingPeriod  time.Duration   `json:"min_staking_period"`
	MaxStakingPeriod  time.Duration   `json:"max_staking_period"`
	StakeUnit         string          `json:"stake_unit"`
	RewardUnit        string          `json:"reward_unit"`
}

// Store is the shared, administrator-mutable configuration store.
// Reads take a snapshot; writes go through the per-field setters.
//
// Setters validate only their own field. Nothing relates fields to one
// another (e.g. min vs max staking period) — that latitude is left to the
// administrator.
type Store struct {
	mu sync.RWMutex
	p  Params
}

// NewStore creates a configuration store with the given initial values.
func NewStore(initial Params) *Store {
	return &Store{p: initial}
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// SetRewardNumerator updates the reward ratio numerator.
func (s *Store) SetRewardNumerator(v decimal.Decimal) error {
	if v.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.RewardNumerator = v
	return nil
}

// SetRewardDenominator updates the reward ratio denominator.
func (s *Store) SetRewardDenominator(v decimal.Decimal) error {
	if v.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.RewardDenominator = v
	return nil
}

// SetRewardInterval updates the time unit the reward ratio applies over.
func (s *Store) SetRewardInterval(v time.Duration) error {
	if v <= 0 {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.RewardInterval = v
	return nil
}

// SetMinStakingPeriod updates the minimum holding period.
func (s *Store) SetMinStakingPeriod(v time.Duration) error {
	if v <= 0 {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.MinStakingPeriod = v
	return nil
}

// SetMaxStakingPeriod updates the accrual-window length.
func (s *Store) SetMaxStakingPeriod(v time.Duration) error {
	if v <= 0 {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.MaxStakingPeriod = v
	return nil
}

// SetStakeUnit updates the stake-unit handle.
func (s *Store) SetStakeUnit(unit string) error {
	if unit == "" {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.StakeUnit = unit
	return nil
}

// SetRewardUnit updates the reward-unit handle.
func (s *Store) SetRewardUnit(unit string) error {
	if unit == "" {
		return ErrInvalidConfiguration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.RewardUnit = unit
	return nil
}
