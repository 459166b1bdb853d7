package allowlist

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/daedboi/lssvm2-hooks/nft"
)

// Hook is the enforcement gate a pool invokes immediately after any NFT
// enters or leaves it. It compares actual on-chain ownership against the
// registry and fails the enclosing swap on any mismatch.
//
// The hook runs synchronously inside the pool's swap call, so a returned
// error must abort the entire swap: either every transfer in the batch is
// acceptable or none happen.
type Hook struct {
	system *System
}

// NewHook creates an enforcement hook reading from the given system.
func NewHook(system *System) (*Hook, error) {
	if system == nil {
		return nil, errors.New("allow-list system is required")
	}
	return &Hook{system: system}, nil
}

// CheckTransferOut verifies a batch of tokens that just left the pool.
// collection is the live collection object; its ownership capability is
// probed once for the whole batch.
func (h *Hook) CheckTransferOut(pool, collectionAddr common.Address, collection any, ids []uint64) error {
	return h.check(pool, collectionAddr, collection, ids)
}

// CheckTransferIn verifies a batch of tokens that just entered the pool.
// Inbound transfers run the same registry check as outbound ones: pool
// ownership and approvals can be exercised by anyone able to call the pool
// directly, bypassing the router.
func (h *Hook) CheckTransferIn(pool, collectionAddr common.Address, collection any, ids []uint64) error {
	return h.check(pool, collectionAddr, collection, ids)
}

func (h *Hook) check(pool, collectionAddr common.Address, collection any, ids []uint64) error {
	// The enforcer sets this flag only for the duration of its own swap call.
	if h.system.IsTrustedSender(pool) {
		return nil
	}

	standard := nft.StandardUnsupported
	probed := false

	for _, id := range ids {
		want, ok := h.system.HolderOf(collectionAddr, id)
		if !ok {
			// No entry means no constraint on this token.
			continue
		}

		if !probed {
			standard = nft.DetectStandard(collection)
			probed = true
		}

		switch standard {
		case nft.StandardERC721:
			got, err := collection.(nft.ERC721).OwnerOf(id)
			if err != nil {
				return &CheckError{Pool: pool, Err: err}
			}
			if got != want {
				return &CheckError{Pool: pool, Err: &WrongOwnerError{
					Collection: collectionAddr,
					TokenID:    id,
					Want:       want,
					Got:        got,
				}}
			}
		case nft.StandardERC1155:
			balance, err := collection.(nft.ERC1155).BalanceOf(want, id)
			if err != nil {
				return &CheckError{Pool: pool, Err: err}
			}
			if balance == nil || balance.Sign() <= 0 {
				return &CheckError{Pool: pool, Err: &WrongOwnerError{
					Collection: collectionAddr,
					TokenID:    id,
					Want:       want,
				}}
			}
		default:
			return &CheckError{Pool: pool, Err: &UnsupportedInterfaceError{Collection: collectionAddr}}
		}
	}
	return nil
}
