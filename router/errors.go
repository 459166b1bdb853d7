package router

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownPool is returned when the target pool is not registered with
	// the factory.
	ErrUnknownPool = errors.New("pool is not known to the factory")
	// ErrRandomPool is returned when a fixed-id trade targets a pool
	// designated for randomized fulfillment.
	ErrRandomPool = errors.New("pool requires randomized fulfillment")
	// ErrWrongPoolType is returned when a trade targets a pool holding the
	// wrong side of the market.
	ErrWrongPoolType = errors.New("pool type does not support this trade")
	// ErrNoIDs is returned for an empty id batch.
	ErrNoIDs = errors.New("at least one token id is required")
	// ErrPriceAboveMax is returned when the final buy price exceeds the
	// trader's limit.
	ErrPriceAboveMax = errors.New("final price exceeds max input")
	// ErrOutputBelowMin is returned when the final sell payout is below the
	// trader's limit.
	ErrOutputBelowMin = errors.New("final output below min output")
	// ErrNotAdmin is returned when an administrative operation is attempted
	// by anyone other than the router administrator.
	ErrNotAdmin = errors.New("caller is not the router administrator")
	// ErrReentrantCall is returned when an entry point is re-entered while
	// an earlier call on the same router is still executing.
	ErrReentrantCall = errors.New("reentrant call rejected")
)

// SwapError wraps a pool swap revert. By the time it surfaces, the trader's
// funds or NFTs have been returned in full.
type SwapError struct {
	Pool common.Address
	Err  error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("pool %s swap reverted: %v", e.Pool.Hex(), e.Err)
}

func (e *SwapError) Unwrap() error {
	return e.Err
}

// SettlementError is the critical case: a transfer the router's accounting
// depends on failed after the swap already executed.
type SettlementError struct {
	Pool common.Address
	Op   string
	Err  error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("CRITICAL pool %s: settlement %s failed: %v", e.Pool.Hex(), e.Op, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
