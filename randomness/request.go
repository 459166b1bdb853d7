package randomness

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RequestState is the lifecycle position of a BuyRequest.
type RequestState uint8

const (
	// StatePending means the oracle request is in flight.
	StatePending RequestState = iota
	// StateFulfilled means randomness has arrived and the request is
	// waiting for the requester to claim.
	StateFulfilled
	// StateClaimed is the successful terminal state.
	StateClaimed
	// StateCancelled is the requester-initiated terminal state; the full
	// escrow has been refunded.
	StateCancelled
	// StateFailed is the claim-time failure terminal state; the full escrow
	// has been refunded.
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateClaimed:
		return "claimed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether the state frees the requester to submit again.
func (s RequestState) terminal() bool {
	return s == StateClaimed || s == StateCancelled || s == StateFailed
}

// BuyRequest is one in-flight randomized purchase. The zero-valued escrow
// invariant: every terminal state other than Claimed refunds exactly
// ReservedInput to the requester.
type BuyRequest struct {
	ID               uint64         `json:"id"`
	Requester        common.Address `json:"requester"`
	Pool             common.Address `json:"pool"`
	DesiredCount     uint64         `json:"desiredCount"`
	ReservedInput    *big.Int       `json:"reservedInput"`
	CreatedAt        time.Time      `json:"createdAt"`
	State            RequestState   `json:"state"`
	RandomWords      []*big.Int     `json:"randomWords,omitempty"`
	ResolvedTokenIDs []uint64       `json:"resolvedTokenIds,omitempty"`
}

// copy returns a deep copy safe to hand to callers.
func (r *BuyRequest) copy() BuyRequest {
	out := *r
	out.ReservedInput = new(big.Int).Set(r.ReservedInput)
	if r.RandomWords != nil {
		out.RandomWords = make([]*big.Int, len(r.RandomWords))
		for i, w := range r.RandomWords {
			out.RandomWords[i] = new(big.Int).Set(w)
		}
	}
	if r.ResolvedTokenIDs != nil {
		out.ResolvedTokenIDs = append([]uint64(nil), r.ResolvedTokenIDs...)
	}
	return out
}

// Event describes one lifecycle transition for observability.
type Event struct {
	RequestID uint64
	Requester common.Address
	Pool      common.Address
	State     RequestState
	// Refunded is set on Cancelled and Failed transitions.
	Refunded *big.Int
	// TokenIDs is set on the Claimed transition.
	TokenIDs []uint64
}

// OnEventFunc receives lifecycle events. May be nil.
type OnEventFunc func(Event)
