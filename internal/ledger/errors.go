package ledger

import "errors"

// Error taxonomy for ledger operations. All errors are synchronous and
// non-retryable by the engine itself; no partial state is ever committed
// on a rejected call.
var (
	// ErrInvalidAmount is returned when a stake or withdrawal amount is not
	// positive.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrInsufficientBalance is returned when the participant's stake-unit
	// balance cannot cover the deposit.
	ErrInsufficientBalance = errors.New("ledger: insufficient stake-unit balance")

	// ErrNotStaked is returned when the participant has never opened a
	// position.
	ErrNotStaked = errors.New("ledger: participant has no positions")

	// ErrInvalidID is returned when no position matches the given id.
	ErrInvalidID = errors.New("ledger: no position with that id")

	// ErrInactivePosition is returned for claim/close on a closed position.
	ErrInactivePosition = errors.New("ledger: position is closed")

	// ErrClaimTooSoon is returned when the minimum staking period since the
	// last claim has not elapsed.
	ErrClaimTooSoon = errors.New("ledger: minimum staking period has not elapsed")

	// ErrInsufficientPoolReserve is returned when the pool cannot honor a
	// payout.
	ErrInsufficientPoolReserve = errors.New("ledger: pool reserve cannot cover payout")

	// ErrUnauthorized is returned when a non-administrator calls an
	// administrator-only operation.
	ErrUnauthorized = errors.New("ledger: administrator only")

	// ErrPaused is returned for open/claim/close while the engine is paused.
	ErrPaused = errors.New("ledger: engine is paused")
)
