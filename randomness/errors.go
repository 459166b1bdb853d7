package randomness

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNotRandomPool is returned when the target pool is unknown to the
	// factory or not designated for randomized fulfillment.
	ErrNotRandomPool = errors.New("pool is not a designated random pool")
	// ErrPoolLocked is returned when the pool's trading window has not
	// opened yet.
	ErrPoolLocked = errors.New("pool is not yet unlocked for trading")
	// ErrInvalidCount is returned for a zero desired count.
	ErrInvalidCount = errors.New("desired count must be positive")
	// ErrInvalidInput is returned for a non-positive escrow amount.
	ErrInvalidInput = errors.New("max input must be positive")
	// ErrInsufficientNFTs is returned at request time when the pool holds
	// fewer NFTs than desired.
	ErrInsufficientNFTs = errors.New("pool holds fewer NFTs than desired")
	// ErrRequestOutstanding is returned when the requester already has a
	// non-terminal request.
	ErrRequestOutstanding = errors.New("requester already has an outstanding request")
	// ErrPriceAboveMax is returned when the current final price exceeds the
	// offered escrow.
	ErrPriceAboveMax = errors.New("final price exceeds max input")
	// ErrUnknownRequest is returned for a request id the engine has never
	// seen.
	ErrUnknownRequest = errors.New("unknown request id")
	// ErrNotRequester is returned when someone other than the original
	// requester attempts a cancel.
	ErrNotRequester = errors.New("caller is not the requester")
	// ErrNotPending is returned when cancelling a request that has already
	// left the Pending state.
	ErrNotPending = errors.New("request is not pending")
	// ErrNoClaimableRequest is returned when the requester has no fulfilled,
	// unclaimed request.
	ErrNoClaimableRequest = errors.New("no fulfilled request to claim")
	// ErrCooldownActive is returned when a cancel arrives before the
	// cancellation delay has elapsed.
	ErrCooldownActive = errors.New("cancellation cooldown has not elapsed")
	// ErrReentrantCall is returned when an entry point is re-entered while
	// an earlier call on the same engine is still executing.
	ErrReentrantCall = errors.New("reentrant call rejected")
)

// OracleError wraps a failure from the randomness source. The escrow taken
// for the request has already been returned when this error surfaces.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("randomness oracle request failed: %v", e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// ClaimAbortedError reports a claim that could not complete. The request has
// moved to Failed and the full escrow has been refunded; no funds are stuck.
type ClaimAbortedError struct {
	RequestID uint64
	Refunded  *big.Int
	Reason    error
}

func (e *ClaimAbortedError) Error() string {
	return fmt.Sprintf("claim of request %d aborted (escrow %s refunded): %v", e.RequestID, e.Refunded, e.Reason)
}

func (e *ClaimAbortedError) Unwrap() error {
	return e.Reason
}

// EscrowError is the one genuinely alarming failure mode: a currency
// transfer the engine's accounting depends on did not complete.
type EscrowError struct {
	RequestID uint64
	Op        string
	Err       error
}

func (e *EscrowError) Error() string {
	return fmt.Sprintf("CRITICAL request %d: escrow %s failed: %v", e.RequestID, e.Op, e.Err)
}

func (e *EscrowError) Unwrap() error {
	return e.Err
}
