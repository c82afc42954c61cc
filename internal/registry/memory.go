package registry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
)

// MemoryRegistry implements Registry with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryRegistry struct {
	mu        sync.RWMutex
	positions map[string][]model.StakePosition // owner → dense slice, index == id
	roster    []string                         // first-opening order
	events    []model.Event
}

// NewMemoryRegistry creates a new in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		positions: make(map[string][]model.StakePosition),
	}
}

func (r *MemoryRegistry) Allocate(_ context.Context, participant string, amount decimal.Decimal, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, known := r.positions[participant]
	if !known {
		r.roster = append(r.roster, participant)
	}

	id := len(existing)
	r.positions[participant] = append(existing, model.StakePosition{
		Owner:           participant,
		ID:              id,
		Amount:          amount,
		StartTime:       now,
		LastClaimedTime: now,
		TotalRewards:    decimal.Zero,
		Active:          true,
	})
	return id, nil
}

func (r *MemoryRegistry) Get(_ context.Context, participant string, id int) (*model.StakePosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, err := r.lookup(participant, id)
	if err != nil {
		return nil, err
	}
	copy := *pos
	return &copy, nil
}

func (r *MemoryRegistry) PositionsOf(_ context.Context, participant string) ([]model.StakePosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.positions[participant]
	out := make([]model.StakePosition, len(src))
	copy(out, src)
	return out, nil
}

func (r *MemoryRegistry) PositionCount(_ context.Context, participant string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions[participant]), nil
}

func (r *MemoryRegistry) MarkClosed(_ context.Context, participant string, id int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.lookup(participant, id)
	if err != nil {
		return err
	}
	pos.Active = false
	pos.LastClaimedTime = now
	return nil
}

func (r *MemoryRegistry) CreditRewards(_ context.Context, participant string, id int, amount decimal.Decimal, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, err := r.lookup(participant, id)
	if err != nil {
		return err
	}
	pos.TotalRewards = pos.TotalRewards.Add(amount)
	pos.LastClaimedTime = now
	return nil
}

func (r *MemoryRegistry) Participants(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.roster))
	copy(out, r.roster)
	return out, nil
}

func (r *MemoryRegistry) InsertEvent(_ context.Context, event *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryRegistry) EventsByParticipant(_ context.Context, participant string) ([]model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []model.Event
	for _, e := range r.events {
		if e.Participant == participant {
			result = append(result, e)
		}
	}
	return result, nil
}

// lookup returns a pointer into the backing slice. Caller holds the lock.
// A zero-amount record is treated as non-existent.
func (r *MemoryRegistry) lookup(participant string, id int) (*model.StakePosition, error) {
	positions := r.positions[participant]
	if id < 0 || id >= len(positions) {
		return nil, ErrPositionNotFound
	}
	pos := &positions[id]
	if pos.Amount.IsZero() {
		return nil, ErrPositionNotFound
	}
	return pos, nil
}
