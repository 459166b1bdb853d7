package nft

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Standard tags the token-ownership model a collection implements.
// It is resolved once per enforcement call and threaded through explicitly
// rather than re-probed per token.
type Standard uint8

const (
	// StandardUnsupported means the collection implements neither
	// ownership model the settlement layer understands.
	StandardUnsupported Standard = iota
	// StandardERC721 is the one-owner-per-token model.
	StandardERC721
	// StandardERC1155 is the balance-per-holder model.
	StandardERC1155
)

func (s Standard) String() string {
	switch s {
	case StandardERC721:
		return "erc721"
	case StandardERC1155:
		return "erc1155"
	default:
		return "unsupported"
	}
}

// ERC721 is the capability the enforcement hook needs from a
// one-owner-per-token collection.
type ERC721 interface {
	OwnerOf(id uint64) (common.Address, error)
}

// ERC1155 is the capability the enforcement hook needs from a
// balance-style collection.
type ERC1155 interface {
	BalanceOf(owner common.Address, id uint64) (*big.Int, error)
}

// DetectStandard probes a collection for the ownership model it supports.
// A collection implementing both models is treated as ERC721, matching the
// order on-chain interface detection would resolve in.
func DetectStandard(collection any) Standard {
	if _, ok := collection.(ERC721); ok {
		return StandardERC721
	}
	if _, ok := collection.(ERC1155); ok {
		return StandardERC1155
	}
	return StandardUnsupported
}
