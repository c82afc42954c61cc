// Package reward implements the accrual engine for stake positions.
//
// Accrued reward for a position is a pure function of the position's stored
// timestamps, the current configuration, and the caller-supplied time:
//
//	reward = amount * numerator * elapsed / (denominator * interval)
//
// using integer (floor) division — fractional reward below one unit is
// permanently lost, not carried forward. Elapsed time is measured from the
// last claim and is capped at the accrual window [start, start+maxPeriod]:
// a position never accrues for time beyond maxPeriod from its start, but
// the unclaimed tail up to that boundary is paid exactly once when a claim
// or close first crosses it.
//
// Nothing here memoizes a rate per position — configuration changes apply
// retroactively to the next computation for every open position.
//
// All token amounts use shopspring/decimal — never float64 for money.
package reward

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
	"github.com/poolside/staking-engine/internal/params"
)

// Accrued returns the accrued-but-unclaimed reward for a single position
// at time now. Inactive positions accrue nothing.
func Accrued(pos model.StakePosition, cfg params.Params, now time.Time) decimal.Decimal {
	if !pos.Active {
		return decimal.Zero
	}

	windowEnd := pos.StartTime.Add(cfg.MaxStakingPeriod)

	var elapsed time.Duration
	switch {
	case !now.After(windowEnd):
		// Still inside the accrual window.
		elapsed = now.Sub(pos.LastClaimedTime)
	case !pos.LastClaimedTime.After(windowEnd):
		// Window ended since the last claim: pay the unclaimed tail only.
		elapsed = windowEnd.Sub(pos.LastClaimedTime)
	default:
		// Already claimed past the boundary.
		return decimal.Zero
	}

	return ratePer(pos.Amount, cfg, elapsed)
}

// AccruedForParticipant sums Accrued over all of a participant's active
// positions.
func AccruedForParticipant(positions []model.StakePosition, cfg params.Params, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, pos := range positions {
		if !pos.Active {
			continue
		}
		total = total.Add(Accrued(pos, cfg, now))
	}
	return total
}

// ratePer computes amount * numerator * elapsedSeconds /
// (denominator * intervalSeconds), floored to whole reward units.
func ratePer(amount decimal.Decimal, cfg params.Params, elapsed time.Duration) decimal.Decimal {
	if elapsed <= 0 {
		return decimal.Zero
	}

	intervalSec := int64(cfg.RewardInterval / time.Second)
	divisor := cfg.RewardDenominator.Mul(decimal.NewFromInt(intervalSec))
	if divisor.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	elapsedSec := decimal.NewFromInt(int64(elapsed / time.Second))
	return amount.Mul(cfg.RewardNumerator).Mul(elapsedSec).Div(divisor).Floor()
}
