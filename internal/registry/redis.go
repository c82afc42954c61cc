package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
)

// CachedRegistry wraps a primary Registry (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary registry and invalidate the
// cache; reads check Redis first then fall back to the primary.
type CachedRegistry struct {
	primary Registry
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedRegistry creates a cached wrapper around a primary registry.
func NewCachedRegistry(primary Registry, rdb *redis.Client, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Writes (go to primary, invalidate cache) ---

func (r *CachedRegistry) Allocate(ctx context.Context, participant string, amount decimal.Decimal, now time.Time) (int, error) {
	id, err := r.primary.Allocate(ctx, participant, amount, now)
	if err != nil {
		return 0, err
	}
	r.rdb.Del(ctx, positionsKey(participant), rosterKey())
	return id, nil
}

func (r *CachedRegistry) MarkClosed(ctx context.Context, participant string, id int, now time.Time) error {
	if err := r.primary.MarkClosed(ctx, participant, id, now); err != nil {
		return err
	}
	r.rdb.Del(ctx, positionsKey(participant))
	return nil
}

func (r *CachedRegistry) CreditRewards(ctx context.Context, participant string, id int, amount decimal.Decimal, now time.Time) error {
	if err := r.primary.CreditRewards(ctx, participant, id, amount, now); err != nil {
		return err
	}
	r.rdb.Del(ctx, positionsKey(participant))
	return nil
}

func (r *CachedRegistry) InsertEvent(ctx context.Context, event *model.Event) error {
	return r.primary.InsertEvent(ctx, event)
}

// --- Reads (check cache first) ---

func (r *CachedRegistry) PositionsOf(ctx context.Context, participant string) ([]model.StakePosition, error) {
	// Try cache.
	data, err := r.rdb.Get(ctx, positionsKey(participant)).Bytes()
	if err == nil {
		var positions []model.StakePosition
		if json.Unmarshal(data, &positions) == nil {
			return positions, nil
		}
	}

	// Cache miss: read from primary.
	positions, err := r.primary.PositionsOf(ctx, participant)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(positions); err == nil {
		r.rdb.Set(ctx, positionsKey(participant), data, r.ttl)
	}
	return positions, nil
}

func (r *CachedRegistry) Get(ctx context.Context, participant string, id int) (*model.StakePosition, error) {
	positions, err := r.PositionsOf(ctx, participant)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if positions[i].ID == id && !positions[i].Amount.IsZero() {
			pos := positions[i]
			return &pos, nil
		}
	}
	return nil, ErrPositionNotFound
}

func (r *CachedRegistry) Participants(ctx context.Context) ([]string, error) {
	data, err := r.rdb.Get(ctx, rosterKey()).Bytes()
	if err == nil {
		var roster []string
		if json.Unmarshal(data, &roster) == nil {
			return roster, nil
		}
	}

	roster, err := r.primary.Participants(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(roster); err == nil {
		r.rdb.Set(ctx, rosterKey(), data, r.ttl)
	}
	return roster, nil
}

// --- Passthrough (not cached) ---

func (r *CachedRegistry) PositionCount(ctx context.Context, participant string) (int, error) {
	return r.primary.PositionCount(ctx, participant)
}

func (r *CachedRegistry) EventsByParticipant(ctx context.Context, participant string) ([]model.Event, error) {
	return r.primary.EventsByParticipant(ctx, participant)
}

// --- Cache keys ---

func positionsKey(participant string) string { return fmt.Sprintf("positions:%s", participant) }
func rosterKey() string                      { return "roster" }
