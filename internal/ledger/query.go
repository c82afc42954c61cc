package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
	"github.com/poolside/staking-engine/internal/reward"
)

// The query layer never mutates state and is not blocked by the pause flag.
//
// TotalStaked and TotalActiveReward are administrative/reporting aggregates:
// they scan every participant in the roster and every position ever opened,
// so their cost grows with system-wide history. Keep them off hot paths.

// TotalStaked sums the principal of every active position system-wide.
func (s *Service) TotalStaked(ctx context.Context) (decimal.Decimal, error) {
	roster, err := s.registry.Participants(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, participant := range roster {
		positions, err := s.registry.PositionsOf(ctx, participant)
		if err != nil {
			return decimal.Zero, err
		}
		for _, pos := range positions {
			if pos.Active {
				total = total.Add(pos.Amount)
			}
		}
	}
	return total, nil
}

// TotalActiveReward sums the accrued-but-unclaimed reward of every active
// position system-wide at time now.
func (s *Service) TotalActiveReward(ctx context.Context, now time.Time) (decimal.Decimal, error) {
	cfg := s.params.Snapshot()

	roster, err := s.registry.Participants(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, participant := range roster {
		positions, err := s.registry.PositionsOf(ctx, participant)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(reward.AccruedForParticipant(positions, cfg, now))
	}
	return total, nil
}

// AccruedFor returns the accrued-but-unclaimed reward across all of one
// participant's active positions at time now.
func (s *Service) AccruedFor(ctx context.Context, participant string, now time.Time) (decimal.Decimal, error) {
	positions, err := s.registry.PositionsOf(ctx, participant)
	if err != nil {
		return decimal.Zero, err
	}
	return reward.AccruedForParticipant(positions, s.params.Snapshot(), now), nil
}

// ListPositions partitions every position the participant has ever opened
// into active and inactive views, each ordered by id. EndTime is the final
// claim time for closed positions and the zero time while active.
func (s *Service) ListPositions(ctx context.Context, participant string) (active, inactive []model.PositionView, err error) {
	positions, err := s.registry.PositionsOf(ctx, participant)
	if err != nil {
		return nil, nil, err
	}

	for _, pos := range positions {
		view := model.PositionView{
			ID:           pos.ID,
			Amount:       pos.Amount,
			StartTime:    pos.StartTime,
			TotalRewards: pos.TotalRewards,
		}
		if pos.Active {
			active = append(active, view)
		} else {
			view.EndTime = pos.LastClaimedTime
			inactive = append(inactive, view)
		}
	}
	return active, inactive, nil
}

// Events returns the participant's slice of the append-only event log.
func (s *Service) Events(ctx context.Context, participant string) ([]model.Event, error) {
	return s.registry.EventsByParticipant(ctx, participant)
}
