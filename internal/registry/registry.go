// Package registry is the authoritative store for stake positions.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// Position ids are dense, zero-based and append-only per owner: positions
// are allocated by auto-incrementing index and never physically removed,
// only flagged inactive.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
)

// ErrPositionNotFound is returned when no position exists for the given
// (owner, id). A stored record with a zero amount counts as non-existent.
var ErrPositionNotFound = errors.New("registry: position not found")

// Registry is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Registry interface {
	// --- Position operations ---

	// Allocate creates a new active position for participant with the next
	// sequential id and start = last claimed = now. Adds the participant to
	// the roster on their first-ever allocation.
	Allocate(ctx context.Context, participant string, amount decimal.Decimal, now time.Time) (int, error)

	// Get retrieves one position by (participant, id).
	Get(ctx context.Context, participant string, id int) (*model.StakePosition, error)

	// PositionsOf returns every position the participant has ever opened,
	// ordered by id.
	PositionsOf(ctx context.Context, participant string) ([]model.StakePosition, error)

	// PositionCount returns the number of positions ever opened by the
	// participant. Monotonic, never decremented by close.
	PositionCount(ctx context.Context, participant string) (int, error)

	// MarkClosed deactivates a position and stamps its final claim time.
	MarkClosed(ctx context.Context, participant string, id int, now time.Time) error

	// CreditRewards adds amount to the position's cumulative rewards and
	// advances its last claimed time.
	CreditRewards(ctx context.Context, participant string, id int, amount decimal.Decimal, now time.Time) error

	// Participants returns the roster of everyone who has ever opened a
	// position, in first-opening order. Used only for system-wide
	// aggregation — cost is proportional to total participants.
	Participants(ctx context.Context) ([]string, error)

	// --- Immutable event log ---

	// InsertEvent appends an immutable operation record.
	InsertEvent(ctx context.Context, event *model.Event) error

	// EventsByParticipant returns all events for a participant in
	// chronological order.
	EventsByParticipant(ctx context.Context, participant string) ([]model.Event, error)
}
