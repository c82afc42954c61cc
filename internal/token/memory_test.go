package token

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

const unit = "STAKE"

func TestTransfer_MovesBalance(t *testing.T) {
	b := NewMemoryBank("pool")
	ctx := context.Background()
	b.Mint(unit, "pool", d(100))

	if err := b.Transfer(ctx, unit, "alice", d(40)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	poolBal, _ := b.BalanceOf(ctx, unit, "pool")
	aliceBal, _ := b.BalanceOf(ctx, unit, "alice")
	if !poolBal.Equal(d(60)) || !aliceBal.Equal(d(40)) {
		t.Errorf("expected 60/40 split, got %s/%s", poolBal, aliceBal)
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	b := NewMemoryBank("pool")
	ctx := context.Background()
	b.Mint(unit, "pool", d(10))

	err := b.Transfer(ctx, unit, "alice", d(11))
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// All-or-nothing: balances untouched.
	poolBal, _ := b.BalanceOf(ctx, unit, "pool")
	aliceBal, _ := b.BalanceOf(ctx, unit, "alice")
	if !poolBal.Equal(d(10)) || !aliceBal.IsZero() {
		t.Errorf("failed transfer must not move funds: %s/%s", poolBal, aliceBal)
	}
}

func TestTransferFrom_RequiresAllowance(t *testing.T) {
	b := NewMemoryBank("pool")
	ctx := context.Background()
	b.Mint(unit, "alice", d(100))

	if err := b.TransferFrom(ctx, unit, "alice", "pool", d(50)); err != ErrInsufficientAllowance {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	b.Approve(unit, "alice", d(50))
	if err := b.TransferFrom(ctx, unit, "alice", "pool", d(50)); err != nil {
		t.Fatalf("transfer-from failed: %v", err)
	}

	// Allowance is consumed.
	if err := b.TransferFrom(ctx, unit, "alice", "pool", d(1)); err != ErrInsufficientAllowance {
		t.Errorf("expected allowance to be spent, got %v", err)
	}
}

func TestTransferFrom_InsufficientBalance(t *testing.T) {
	b := NewMemoryBank("pool")
	ctx := context.Background()
	b.Mint(unit, "alice", d(10))
	b.Approve(unit, "alice", d(100))

	if err := b.TransferFrom(ctx, unit, "alice", "pool", d(20)); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Allowance untouched by the failed transfer.
	if err := b.TransferFrom(ctx, unit, "alice", "pool", d(10)); err != nil {
		t.Errorf("allowance should survive a failed transfer: %v", err)
	}
}

func TestTransfer_NegativeAmount(t *testing.T) {
	b := NewMemoryBank("pool")
	ctx := context.Background()
	b.Mint(unit, "pool", d(10))

	if err := b.Transfer(ctx, unit, "alice", d(-5)); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestUnits_AreIndependent(t *testing.T) {
	b := NewMemoryBank("pool")
	ctx := context.Background()
	b.Mint("STAKE", "pool", d(100))

	rwd, _ := b.BalanceOf(ctx, "RWD", "pool")
	if !rwd.IsZero() {
		t.Errorf("minting one unit must not affect another, got %s", rwd)
	}
}
