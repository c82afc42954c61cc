// Package model defines the core domain types shared across the staking engine.
// All token amounts use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types recorded in the append-only event log.
const (
	EventStaked   = "staked"
	EventClaimed  = "claimed"
	EventUnstaked = "unstaked"
)

// StakePosition is one stake deposit and its accrual/claim history.
// Keyed by (Owner, ID); ids are dense and zero-based per owner, allocated
// in creation order. Amount and StartTime are immutable after creation.
// A position is never deleted — close flips Active to false exactly once
// and the record stays queryable forever.
type StakePosition struct {
	Owner           string          `json:"owner" db:"owner"`
	ID              int             `json:"id" db:"position_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	StartTime       time.Time       `json:"start_time" db:"start_time"`
	LastClaimedTime time.Time       `json:"last_claimed_time" db:"last_claimed_time"`
	TotalRewards    decimal.Decimal `json:"total_rewards" db:"total_rewards"`
	Active          bool            `json:"active" db:"active"`
}

// PositionView is the read-model row returned by position listings.
// EndTime is the zero time while the position is still active.
type PositionView struct {
	ID           int             `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	TotalRewards decimal.Decimal `json:"total_rewards"`
}

// Event is an immutable record of a successful ledger operation.
// Once created, these are never modified or deleted.
// Unstaked events carry the principal amount only, never the final reward.
type Event struct {
	ID          string          `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	Participant string          `json:"participant" db:"participant"`
	PositionID  int             `json:"position_id" db:"position_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}
