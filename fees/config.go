// Package fees computes the settlement layer's own cut on top of a pool's
// raw quote. The wrapper fee is distinct from the pool's built-in fee and
// from any creator royalty. All quantities are integers in the smallest
// currency unit; rates are 1e18 fixed-point where 1e18 is 100%.
package fees

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// RateDenominator is the fixed-point scale: 1e18 == 100%.
	RateDenominator = big.NewInt(1e18)
	// MaxFeeRate caps configurable rates at 5%. Enforced at configuration
	// time, not at calculation time.
	MaxFeeRate = big.NewInt(5e16)
)

var (
	// ErrNotAdmin is returned when a setter is called by anyone other than
	// the administrator.
	ErrNotAdmin = errors.New("caller is not the fee administrator")
	// ErrRateOutOfRange is returned when a configured rate is negative or
	// above MaxFeeRate.
	ErrRateOutOfRange = errors.New("fee rate out of range")
	// ErrZeroAddress is returned when a required address is unset.
	ErrZeroAddress = errors.New("address must not be zero")
)

// Config holds the mutable fee parameters: the global rate, optional
// per-collection override rates, and the fee recipient. All mutation is
// gated on the administrator address injected at construction.
type Config struct {
	mu              sync.RWMutex
	admin           common.Address
	recipient       common.Address
	globalRate      *big.Int
	collectionRates map[common.Address]*big.Int
}

// NewConfig creates a fee configuration. Zero addresses and out-of-range
// rates are rejected here so they can never surface mid-trade.
func NewConfig(admin, recipient common.Address, globalRate *big.Int) (*Config, error) {
	if admin == (common.Address{}) || recipient == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if err := validateRate(globalRate); err != nil {
		return nil, err
	}
	return &Config{
		admin:           admin,
		recipient:       recipient,
		globalRate:      new(big.Int).Set(globalRate),
		collectionRates: make(map[common.Address]*big.Int),
	}, nil
}

func validateRate(rate *big.Int) error {
	if rate == nil || rate.Sign() < 0 || rate.Cmp(MaxFeeRate) > 0 {
		return ErrRateOutOfRange
	}
	return nil
}

// SetGlobalRate updates the rate applied to every trade without a
// per-collection override.
func (c *Config) SetGlobalRate(caller common.Address, rate *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return ErrNotAdmin
	}
	if err := validateRate(rate); err != nil {
		return err
	}
	c.globalRate = new(big.Int).Set(rate)
	return nil
}

// SetCollectionRate configures an override rate for single-asset buys of a
// collection. A zero rate removes the override.
func (c *Config) SetCollectionRate(caller, collection common.Address, rate *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return ErrNotAdmin
	}
	if err := validateRate(rate); err != nil {
		return err
	}
	if rate.Sign() == 0 {
		delete(c.collectionRates, collection)
		return nil
	}
	c.collectionRates[collection] = new(big.Int).Set(rate)
	return nil
}

// SetRecipient re-points where collected fees are paid.
func (c *Config) SetRecipient(caller, recipient common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return ErrNotAdmin
	}
	if recipient == (common.Address{}) {
		return ErrZeroAddress
	}
	c.recipient = recipient
	return nil
}

// SetAdmin hands the configuration to a new administrator.
func (c *Config) SetAdmin(caller, admin common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return ErrNotAdmin
	}
	if admin == (common.Address{}) {
		return ErrZeroAddress
	}
	c.admin = admin
	return nil
}

// Recipient returns the current fee recipient.
func (c *Config) Recipient() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recipient
}

// GlobalRate returns a copy of the current global rate.
func (c *Config) GlobalRate() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.globalRate)
}

// rateFor selects the rate for a buy: the per-collection override applies
// only to single-asset buys and only when configured non-zero.
func (c *Config) rateFor(collection common.Address, isSingleAssetBuy bool) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if isSingleAssetBuy {
		if override, ok := c.collectionRates[collection]; ok && override.Sign() > 0 {
			return new(big.Int).Set(override)
		}
	}
	return new(big.Int).Set(c.globalRate)
}
