package fees

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/daedboi/lssvm2-hooks/pair"
)

// Breakdown is the settlement layer's pricing answer for one trade.
type Breakdown struct {
	// FinalPrice is what the trader pays (buy) or receives (sell),
	// fee included.
	FinalPrice *big.Int
	// Fee is the wrapper fee owed to the configured recipient.
	Fee *big.Int
	// Royalty is passed through from the pool's quote.
	Royalty *big.Int
}

// QuoteBuy computes the trader-facing price for buying out of a pool.
// The fee base is the pool's price stripped of its own protocol cut and the
// royalty; the fee rounds up so the recipient is never under-collected.
func (c *Config) QuoteBuy(q pair.BuyQuote, collection common.Address, isSingleAssetBuy bool) Breakdown {
	base := new(big.Int).Sub(q.PriceBeforeFee, q.ProtocolCut)
	base.Sub(base, q.Royalty)

	fee := ceilMul(base, c.rateFor(collection, isSingleAssetBuy))

	return Breakdown{
		FinalPrice: new(big.Int).Add(q.PriceBeforeFee, fee),
		Fee:        fee,
		Royalty:    new(big.Int).Set(q.Royalty),
	}
}

// QuoteSell computes the trader-facing payout for selling into a pool.
// The fee base is the gross amount before the pool's cut and royalty were
// deducted; FinalPrice is what the seller actually receives.
func (c *Config) QuoteSell(q pair.SellQuote) Breakdown {
	base := new(big.Int).Add(q.AmountReceived, q.ProtocolCut)
	base.Add(base, q.Royalty)

	fee := ceilMul(base, c.GlobalRate())

	return Breakdown{
		FinalPrice: new(big.Int).Sub(q.AmountReceived, fee),
		Fee:        fee,
		Royalty:    new(big.Int).Set(q.Royalty),
	}
}

// ceilMul computes ceil(base * rate / 1e18). Rounding up is a contract:
// a floor here would silently under-collect the fee on every trade.
func ceilMul(base, rate *big.Int) *big.Int {
	if base.Sign() <= 0 || rate.Sign() == 0 {
		return new(big.Int)
	}
	product := new(big.Int).Mul(base, rate)
	product.Add(product, new(big.Int).Sub(RateDenominator, big.NewInt(1)))
	return product.Div(product, RateDenominator)
}
