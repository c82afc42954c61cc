package registry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAllocate_DenseIDs(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	for want := 0; want < 3; want++ {
		id, err := r.Allocate(ctx, "alice", d(100), t0)
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if id != want {
			t.Errorf("expected id %d, got %d", want, id)
		}
	}

	// Another participant starts from zero again.
	id, _ := r.Allocate(ctx, "bob", d(50), t0)
	if id != 0 {
		t.Errorf("expected bob's first id to be 0, got %d", id)
	}

	count, _ := r.PositionCount(ctx, "alice")
	if count != 3 {
		t.Errorf("expected 3 positions for alice, got %d", count)
	}
}

func TestAllocate_InitialState(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	id, _ := r.Allocate(ctx, "alice", d(100), t0)
	pos, err := r.Get(ctx, "alice", id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if !pos.Active {
		t.Error("new position should be active")
	}
	if !pos.StartTime.Equal(t0) || !pos.LastClaimedTime.Equal(t0) {
		t.Error("start and last-claimed should both equal allocation time")
	}
	if !pos.TotalRewards.IsZero() {
		t.Errorf("new position should have zero rewards, got %s", pos.TotalRewards)
	}
}

func TestGet_Missing(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	if _, err := r.Get(ctx, "nobody", 0); err != ErrPositionNotFound {
		t.Errorf("expected ErrPositionNotFound, got %v", err)
	}

	r.Allocate(ctx, "alice", d(100), t0)
	if _, err := r.Get(ctx, "alice", 7); err != ErrPositionNotFound {
		t.Errorf("expected ErrPositionNotFound for wrong id, got %v", err)
	}
	if _, err := r.Get(ctx, "alice", -1); err != ErrPositionNotFound {
		t.Errorf("expected ErrPositionNotFound for negative id, got %v", err)
	}
}

func TestCreditRewards_Accumulates(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	later := t0.Add(time.Hour)

	id, _ := r.Allocate(ctx, "alice", d(100), t0)
	if err := r.CreditRewards(ctx, "alice", id, d(5), later); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := r.CreditRewards(ctx, "alice", id, d(3), later.Add(time.Hour)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	pos, _ := r.Get(ctx, "alice", id)
	if !pos.TotalRewards.Equal(d(8)) {
		t.Errorf("expected cumulative rewards 8, got %s", pos.TotalRewards)
	}
	if !pos.LastClaimedTime.Equal(later.Add(time.Hour)) {
		t.Error("last claimed time not advanced")
	}
}

func TestMarkClosed(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	later := t0.Add(time.Hour)

	id, _ := r.Allocate(ctx, "alice", d(100), t0)
	if err := r.MarkClosed(ctx, "alice", id, later); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	pos, _ := r.Get(ctx, "alice", id)
	if pos.Active {
		t.Error("position should be inactive after close")
	}
	if !pos.LastClaimedTime.Equal(later) {
		t.Error("close should stamp last claimed time")
	}

	// The record stays queryable and the count never decrements.
	count, _ := r.PositionCount(ctx, "alice")
	if count != 1 {
		t.Errorf("expected count 1 after close, got %d", count)
	}
}

func TestParticipants_FirstOpeningOrder(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	r.Allocate(ctx, "carol", d(1), t0)
	r.Allocate(ctx, "alice", d(1), t0)
	r.Allocate(ctx, "carol", d(1), t0) // repeat must not duplicate
	r.Allocate(ctx, "bob", d(1), t0)

	roster, err := r.Participants(ctx)
	if err != nil {
		t.Fatalf("participants failed: %v", err)
	}

	want := []string{"carol", "alice", "bob"}
	if len(roster) != len(want) {
		t.Fatalf("expected %d participants, got %d", len(want), len(roster))
	}
	for i := range want {
		if roster[i] != want[i] {
			t.Errorf("roster[%d]: expected %s, got %s", i, want[i], roster[i])
		}
	}
}

func TestEvents_AppendAndFilter(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	r.InsertEvent(ctx, &model.Event{ID: "1", Type: model.EventStaked, Participant: "alice", Amount: d(100), Timestamp: t0})
	r.InsertEvent(ctx, &model.Event{ID: "2", Type: model.EventStaked, Participant: "bob", Amount: d(200), Timestamp: t0})
	r.InsertEvent(ctx, &model.Event{ID: "3", Type: model.EventClaimed, Participant: "alice", Amount: d(5), Timestamp: t0})

	events, err := r.EventsByParticipant(ctx, "alice")
	if err != nil {
		t.Fatalf("events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for alice, got %d", len(events))
	}
	if events[0].Type != model.EventStaked || events[1].Type != model.EventClaimed {
		t.Error("events out of order")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	id, _ := r.Allocate(ctx, "alice", d(100), t0)
	pos, _ := r.Get(ctx, "alice", id)
	pos.Active = false
	pos.TotalRewards = d(999)

	fresh, _ := r.Get(ctx, "alice", id)
	if !fresh.Active || !fresh.TotalRewards.IsZero() {
		t.Error("mutating a returned position must not affect the store")
	}
}
