// Package ledger provides the state-mutating entry points of the staking
// engine (open, claim, close, administrative withdrawal), the read-only
// query layer, and the HTTP handlers in front of both.
//
// All token amounts use shopspring/decimal — never float64 for money.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/metrics"
	"github.com/poolside/staking-engine/internal/model"
	"github.com/poolside/staking-engine/internal/params"
	"github.com/poolside/staking-engine/internal/registry"
	"github.com/poolside/staking-engine/internal/reward"
	"github.com/poolside/staking-engine/internal/token"
)

// Service executes ledger operations. A single mutex serializes every
// mutating call across all participants, held for the whole operation
// including the external transfer sub-call — a transfer callback cannot
// re-enter the ledger before state is updated. Each operation validates in
// order: pause gate → structural checks → timing rules → external-resource
// sufficiency, and commits nothing until every check has passed.
type Service struct {
	registry registry.Registry
	bank     token.Bank
	params   *params.Store
	hub      *Hub // optional WebSocket hub for event broadcasts

	admin string
	pool  string

	mu     sync.Mutex
	paused bool

	clock func() time.Time
}

// NewService creates a new ledger service. admin is the only account allowed
// to call administrative operations; pool is the custodial account holding
// deposited stake and the reward reserve. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewService(reg registry.Registry, bank token.Bank, ps *params.Store, hub *Hub, admin, pool string) *Service {
	return &Service{
		registry: reg,
		bank:     bank,
		params:   ps,
		hub:      hub,
		admin:    admin,
		pool:     pool,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used by the HTTP handlers. Tests use
// this to drive time-dependent behavior deterministically.
func (s *Service) SetClock(fn func() time.Time) {
	s.clock = fn
}

// Open deposits amount of the stake unit into the pool and creates a new
// position for participant. Returns the allocated position id.
func (s *Service) Open(ctx context.Context, participant string, amount decimal.Decimal, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, ErrPaused
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidAmount
	}

	cfg := s.params.Snapshot()

	balance, err := s.bank.BalanceOf(ctx, cfg.StakeUnit, participant)
	if err != nil {
		return 0, err
	}
	if balance.LessThan(amount) {
		return 0, ErrInsufficientBalance
	}

	// Atomic: if the deposit fails, no registry state is touched.
	if err := s.bank.TransferFrom(ctx, cfg.StakeUnit, participant, s.pool, amount); err != nil {
		return 0, err
	}

	id, err := s.registry.Allocate(ctx, participant, amount, now)
	if err != nil {
		return 0, err
	}

	s.recordEvent(ctx, model.EventStaked, participant, id, amount, now)
	metrics.OperationsTotal.WithLabelValues("open").Inc()
	metrics.ActivePositions.Inc()

	slog.Info("position opened",
		"participant", participant,
		"position_id", id,
		"amount", amount.String(),
	)
	return id, nil
}

// Claim pays out the accrued reward on a position without closing it.
// The minimum-period gate is measured from the last claim, not from the
// position's start. Returns the reward amount paid.
func (s *Service) Claim(ctx context.Context, participant string, id int, now time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return decimal.Zero, ErrPaused
	}

	pos, err := s.activePosition(ctx, participant, id)
	if err != nil {
		return decimal.Zero, err
	}

	cfg := s.params.Snapshot()
	if now.Before(pos.LastClaimedTime.Add(cfg.MinStakingPeriod)) {
		return decimal.Zero, ErrClaimTooSoon
	}

	amount := reward.Accrued(*pos, cfg, now)

	reserve, err := s.bank.BalanceOf(ctx, cfg.RewardUnit, s.pool)
	if err != nil {
		return decimal.Zero, err
	}
	if reserve.LessThan(amount) {
		return decimal.Zero, ErrInsufficientPoolReserve
	}

	if amount.IsPositive() {
		if err := s.bank.Transfer(ctx, cfg.RewardUnit, participant, amount); err != nil {
			return decimal.Zero, err
		}
	}

	if err := s.registry.CreditRewards(ctx, participant, id, amount, now); err != nil {
		return decimal.Zero, err
	}

	s.recordEvent(ctx, model.EventClaimed, participant, id, amount, now)
	metrics.OperationsTotal.WithLabelValues("claim").Inc()
	metrics.RewardsPaid.Add(amount.InexactFloat64())

	slog.Info("reward claimed",
		"participant", participant,
		"position_id", id,
		"reward", amount.String(),
	)
	return amount, nil
}

// Close terminally withdraws a position: principal plus any final reward in
// a single payout. Closing before the minimum staking period (measured from
// the position's start) forfeits the accrued reward — principal only.
// Returns (payout, finalReward).
func (s *Service) Close(ctx context.Context, participant string, id int, now time.Time) (decimal.Decimal, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return decimal.Zero, decimal.Zero, ErrPaused
	}

	pos, err := s.activePosition(ctx, participant, id)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	cfg := s.params.Snapshot()

	finalReward := decimal.Zero
	if !now.Before(pos.StartTime.Add(cfg.MinStakingPeriod)) {
		finalReward = reward.Accrued(*pos, cfg, now)
	}
	payout := pos.Amount.Add(finalReward)

	reserve, err := s.bank.BalanceOf(ctx, cfg.StakeUnit, s.pool)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if reserve.LessThan(payout) {
		return decimal.Zero, decimal.Zero, ErrInsufficientPoolReserve
	}

	if err := s.bank.Transfer(ctx, cfg.StakeUnit, participant, payout); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if finalReward.IsPositive() {
		if err := s.registry.CreditRewards(ctx, participant, id, finalReward, now); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	if err := s.registry.MarkClosed(ctx, participant, id, now); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// The unstake notification carries the principal only, never the reward.
	s.recordEvent(ctx, model.EventUnstaked, participant, id, pos.Amount, now)
	metrics.OperationsTotal.WithLabelValues("close").Inc()
	metrics.RewardsPaid.Add(finalReward.InexactFloat64())
	metrics.ActivePositions.Dec()

	slog.Info("position closed",
		"participant", participant,
		"position_id", id,
		"principal", pos.Amount.String(),
		"reward", finalReward.String(),
	)
	return payout, finalReward, nil
}

// Withdraw moves amount of the stake unit from the pool to the administrator.
// Deliberately unchecked against outstanding obligations — an operational
// trust placed in the administrator role. Not blocked by pause.
func (s *Service) Withdraw(ctx context.Context, caller string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return ErrUnauthorized
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	cfg := s.params.Snapshot()
	if err := s.bank.Transfer(ctx, cfg.StakeUnit, s.admin, amount); err != nil {
		return err
	}

	metrics.OperationsTotal.WithLabelValues("withdraw").Inc()
	slog.Warn("administrative withdrawal",
		"amount", amount.String(),
	)
	return nil
}

// Pause blocks open/claim/close until Unpause. Queries and administrative
// withdrawal stay available. There is no automatic unpause.
func (s *Service) Pause(caller string) error {
	if caller != s.admin {
		return ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	slog.Warn("staking engine paused")
	return nil
}

// Unpause re-enables ledger operations.
func (s *Service) Unpause(caller string) error {
	if caller != s.admin {
		return ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	slog.Info("staking engine unpaused")
	return nil
}

// activePosition resolves (participant, id) to an open position, mapping
// registry misses onto the ledger error taxonomy. Caller holds the lock.
func (s *Service) activePosition(ctx context.Context, participant string, id int) (*model.StakePosition, error) {
	count, err := s.registry.PositionCount(ctx, participant)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotStaked
	}

	pos, err := s.registry.Get(ctx, participant, id)
	if err != nil {
		if errors.Is(err, registry.ErrPositionNotFound) {
			return nil, ErrInvalidID
		}
		return nil, err
	}
	if !pos.Active {
		return nil, ErrInactivePosition
	}
	return pos, nil
}

// recordEvent appends to the event log and broadcasts. Event-log failures
// are logged, not propagated: the operation itself has already settled.
func (s *Service) recordEvent(ctx context.Context, kind, participant string, id int, amount decimal.Decimal, now time.Time) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Type:        kind,
		Participant: participant,
		PositionID:  id,
		Amount:      amount,
		Timestamp:   now,
	}
	if err := s.registry.InsertEvent(ctx, event); err != nil {
		slog.Error("event log append failed", "type", kind, "err", err)
	}
	if s.hub != nil {
		s.hub.Broadcast(event)
	}
}
