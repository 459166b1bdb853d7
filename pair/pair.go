// Package pair defines the capability interfaces the settlement core consumes
// from its excluded collaborators: the AMM pair contracts, the factory that
// created them, and the external randomness oracle. The core never reaches
// past these interfaces.
package pair

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolType identifies which side of the market a pool holds.
type PoolType uint8

const (
	// TokenSideHolder pools hold currency and buy NFTs ("buy pools").
	TokenSideHolder PoolType = iota
	// NFTSideHolder pools hold NFTs and sell them for currency.
	NFTSideHolder
	// Trading pools hold both sides.
	Trading
)

func (p PoolType) String() string {
	switch p {
	case TokenSideHolder:
		return "token"
	case NFTSideHolder:
		return "nft"
	case Trading:
		return "trade"
	default:
		return "unknown"
	}
}

// BuyQuote is a pool's raw pricing answer for buying NFTs out of it,
// before the settlement layer's own fee is applied.
type BuyQuote struct {
	PriceBeforeFee *big.Int
	ProtocolCut    *big.Int
	Royalty        *big.Int
}

// SellQuote is a pool's raw pricing answer for selling NFTs into it.
type SellQuote struct {
	AmountReceived *big.Int
	ProtocolCut    *big.Int
	Royalty        *big.Int
}

// Pool is the AMM pair primitive. The pricing curve behind the quotes is an
// opaque oracle as far as the settlement core is concerned.
type Pool interface {
	// NFT returns the collection the pool trades.
	NFT() common.Address
	// Token returns the currency the pool trades against.
	Token() common.Address
	PoolType() PoolType
	// Variant identifies the pair implementation revision.
	Variant() string
	// AllIDs returns the token ids currently held by the pool.
	AllIDs() []uint64

	BuyQuote(count uint64) (BuyQuote, error)
	SellQuote(count uint64) (SellQuote, error)

	// SwapTokenForSpecificNFTs buys the given ids, spending at most maxBudget,
	// delivering the NFTs to recipient. Returns the amount actually spent.
	SwapTokenForSpecificNFTs(ids []uint64, maxBudget *big.Int, recipient common.Address) (*big.Int, error)

	// SwapNFTsForToken sells the given ids into the pool for at least
	// minOutput, delivering currency proceeds to recipient. Buy pools route
	// the received NFTs to their configured asset recipient, not into pool
	// custody. Returns the amount received.
	SwapNFTsForToken(ids []uint64, minOutput *big.Int, recipient common.Address) (*big.Int, error)
}

// Factory is the registry-of-pools the core consults for pool metadata.
type Factory interface {
	IsKnownPool(pool common.Address) bool
	IsRandomPool(pool common.Address) bool
	// UnlockTimeOf returns the unix timestamp at which the pool opens for
	// trading. Zero means always open.
	UnlockTimeOf(pool common.Address) uint64
	// CreatorOf returns the party that funded the pool.
	CreatorOf(pool common.Address) common.Address
}

// RandomnessSource is the opaque async randomness capability. A request
// returns a correlation id; words arrive later through the engine's
// OnRandomnessReady callback, in a separate call.
type RandomnessSource interface {
	RequestRandomWords(count uint64) (uint64, error)
}
