package token

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryBank implements Bank with in-memory balance maps. Used for testing
// and development. Not suitable for production (no persistence, no real
// custody).
type MemoryBank struct {
	mu         sync.Mutex
	pool       string
	balances   map[string]map[string]decimal.Decimal // unit → account → balance
	allowances map[string]map[string]decimal.Decimal // unit → owner → allowance granted to pool
}

// NewMemoryBank creates an in-memory bank. pool is the account debited by
// Transfer calls.
func NewMemoryBank(pool string) *MemoryBank {
	return &MemoryBank{
		pool:       pool,
		balances:   make(map[string]map[string]decimal.Decimal),
		allowances: make(map[string]map[string]decimal.Decimal),
	}
}

// Mint credits amount of unit to account out of thin air. Test/dev seeding.
func (b *MemoryBank) Mint(unit, account string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(unit, account, amount)
}

// Approve authorizes the pool to move up to amount of unit out of owner's
// account via TransferFrom. Replaces any prior allowance.
func (b *MemoryBank) Approve(unit, owner string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.allowances[unit]
	if !ok {
		m = make(map[string]decimal.Decimal)
		b.allowances[unit] = m
	}
	m[owner] = amount
}

func (b *MemoryBank) BalanceOf(_ context.Context, unit, account string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[unit][account], nil
}

func (b *MemoryBank) Transfer(_ context.Context, unit, to string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(unit, b.pool, to, amount)
}

func (b *MemoryBank) TransferFrom(_ context.Context, unit, from, to string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.allowances[unit][from].LessThan(amount) {
		return ErrInsufficientAllowance
	}
	if err := b.move(unit, from, to, amount); err != nil {
		return err
	}
	b.allowances[unit][from] = b.allowances[unit][from].Sub(amount)
	return nil
}

// move transfers balance between accounts. Caller holds the lock.
func (b *MemoryBank) move(unit, from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.balances[unit][from].LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.balances[unit][from] = b.balances[unit][from].Sub(amount)
	b.credit(unit, to, amount)
	return nil
}

// credit adds to an account balance. Caller holds the lock.
func (b *MemoryBank) credit(unit, account string, amount decimal.Decimal) {
	m, ok := b.balances[unit]
	if !ok {
		m = make(map[string]decimal.Decimal)
		b.balances[unit] = m
	}
	m[account] = m[account].Add(amount)
}
