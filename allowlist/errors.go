package allowlist

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotController is returned when a mutation is attempted by anyone
	// other than the registered controller.
	ErrNotController = errors.New("caller is not the allow-list controller")
	// ErrNotEnforcer is returned when a trusted-sender toggle is attempted
	// by anyone other than the registered enforcement peer.
	ErrNotEnforcer = errors.New("caller is not the allow-list enforcer")
	// ErrOffsetOutOfRange is returned by ReassignAll when the page offset is
	// at or beyond the number of populated entries.
	ErrOffsetOutOfRange = errors.New("reassign offset out of range")
	// ErrZeroAddress is returned when a required address is unset at
	// construction or reconfiguration time.
	ErrZeroAddress = errors.New("address must not be zero")
)

// WrongOwnerError reports an allow-list violation: a token that should be
// held by the registered holder is owned elsewhere.
type WrongOwnerError struct {
	Collection common.Address
	TokenID    uint64
	Want       common.Address
	Got        common.Address
}

func (e *WrongOwnerError) Error() string {
	return fmt.Sprintf("allow-list violation: token %d of %s held by %s, want %s",
		e.TokenID, e.Collection.Hex(), e.Got.Hex(), e.Want.Hex())
}

// UnsupportedInterfaceError reports a collection that implements neither
// ownership model the hook can verify.
type UnsupportedInterfaceError struct {
	Collection common.Address
}

func (e *UnsupportedInterfaceError) Error() string {
	return fmt.Sprintf("collection %s supports neither erc721 nor erc1155", e.Collection.Hex())
}

// CheckError wraps a hook failure with the pool whose swap must abort.
type CheckError struct {
	Pool common.Address
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("transfer check failed for pool %s: %v", e.Pool.Hex(), e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}
