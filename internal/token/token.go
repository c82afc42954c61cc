// Package token defines the external value-transfer collaborator at its
// interface boundary. The staking engine only assumes atomic all-or-nothing
// transfer semantics per unit; the real mechanism (chain, custodian, core
// banking system) lives behind the Bank interface.
package token

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when a transfer exceeds the sender's
	// balance. No partial transfer takes place.
	ErrInsufficientFunds = errors.New("token: insufficient funds")

	// ErrInsufficientAllowance is returned by TransferFrom when the pool has
	// not been authorized to move the requested amount.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")

	// ErrInvalidAmount is returned for negative transfer amounts.
	ErrInvalidAmount = errors.New("token: amount must not be negative")
)

// Bank moves units between accounts. Every method is atomic: a transfer
// either fully succeeds or leaves all balances untouched.
type Bank interface {
	// BalanceOf returns the balance of account in the given unit.
	// Read-only, no side effects.
	BalanceOf(ctx context.Context, unit, account string) (decimal.Decimal, error)

	// Transfer moves amount of unit from the pool account to `to`.
	Transfer(ctx context.Context, unit, to string, amount decimal.Decimal) error

	// TransferFrom moves amount of unit from `from` to `to`. Requires prior
	// authorization from `from`.
	TransferFrom(ctx context.Context, unit, from, to string, amount decimal.Decimal) error
}
