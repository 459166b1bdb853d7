// Package router orchestrates single trades against AMM pairs: it pulls
// assets from the trader, pre-authorizes the allow-list so the enforcement
// hook passes, invokes the pool's swap primitive, applies the wrapper fee,
// and distributes proceeds. Randomized buys are delegated to the
// fulfillment engine.
package router

import (
	"errors"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/daedboi/lssvm2-hooks/allowlist"
	"github.com/daedboi/lssvm2-hooks/fees"
	"github.com/daedboi/lssvm2-hooks/pair"
	"github.com/daedboi/lssvm2-hooks/randomness"
)

// Logger defines a standard interface for structured, leveled logging,
// compatible with the standard library's slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// --- Function Type Definitions for Dependencies ---

type PoolResolverFunc func(addr common.Address) (pair.Pool, error)
type TransferTokenFunc func(from, to common.Address, amount *big.Int) error
type TransferNFTFunc func(collection, from, to common.Address, ids []uint64) error
type ListBuyPoolsFunc func() []common.Address

// payoutConfigurable is the optional pool capability the migration path
// probes for when re-pointing payout recipients.
type payoutConfigurable interface {
	SetAssetRecipient(recipient common.Address) error
}

// --- Events ---

// BoughtEvent is emitted after a buy settles.
type BoughtEvent struct {
	Pool     common.Address
	Trader   common.Address
	TokenIDs []uint64
	Spent    *big.Int
	Fee      *big.Int
}

// SoldEvent is emitted after a sell settles.
type SoldEvent struct {
	Pool     common.Address
	Trader   common.Address
	TokenIDs []uint64
	Received *big.Int
	Fee      *big.Int
}

// FeeEvent is emitted whenever a wrapper fee is paid out.
type FeeEvent struct {
	Pool      common.Address
	Recipient common.Address
	Amount    *big.Int
}

type OnBoughtFunc func(BoughtEvent)
type OnSoldFunc func(SoldEvent)
type OnFeeFunc func(FeeEvent)

// Config holds all the dependencies and settings for the Router.
type Config struct {
	SystemName string
	// RouterAddress is the router's own account; assets transit here during
	// settlement.
	RouterAddress common.Address
	// Admin gates migration and other administrative surfaces.
	Admin         common.Address
	Factory       pair.Factory
	ResolvePool   PoolResolverFunc
	Fees          *fees.Config
	AllowList     *allowlist.System
	Engine        *randomness.Engine
	TransferToken TransferTokenFunc
	TransferNFT   TransferNFTFunc
	// ListBuyPools enumerates live token-side pools for migration. Optional;
	// without it migration only re-points allow-list entries.
	ListBuyPools ListBuyPoolsFunc

	OnBought      OnBoughtFunc
	OnSold        OnSoldFunc
	OnFee         OnFeeFunc
	Logger        Logger
	PrometheusReg prometheus.Registerer
}

// validate checks that all essential fields in the Config are provided.
func (c *Config) validate() error {
	if c.SystemName == "" {
		return errors.New("system name is required")
	}
	if c.RouterAddress == (common.Address{}) {
		return errors.New("router address is required")
	}
	if c.Admin == (common.Address{}) {
		return errors.New("admin address is required")
	}
	if c.Factory == nil {
		return errors.New("factory is required")
	}
	if c.ResolvePool == nil {
		return errors.New("pool resolver function is required")
	}
	if c.Fees == nil {
		return errors.New("fee configuration is required")
	}
	if c.AllowList == nil {
		return errors.New("allow-list system is required")
	}
	if c.Engine == nil {
		return errors.New("randomness engine is required")
	}
	if c.TransferToken == nil {
		return errors.New("token transfer function is required")
	}
	if c.TransferNFT == nil {
		return errors.New("nft transfer function is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Router is the single-trade settlement orchestrator.
type Router struct {
	routerAddr    common.Address
	admin         common.Address
	factory       pair.Factory
	resolvePool   PoolResolverFunc
	fees          *fees.Config
	allowList     *allowlist.System
	engine        *randomness.Engine
	transferToken TransferTokenFunc
	transferNFT   TransferNFTFunc
	listBuyPools  ListBuyPoolsFunc

	onBought OnBoughtFunc
	onSold   OnSoldFunc
	onFee    OnFeeFunc
	logger   Logger
	metrics  *Metrics

	// entered is the reentrancy latch; a malicious token callback inside a
	// pool swap must not re-enter settlement mid-flight.
	entered atomic.Bool
}

// NewRouter constructs a router from a validated configuration.
func NewRouter(cfg *Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	reg := cfg.PrometheusReg
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Router{
		routerAddr:    cfg.RouterAddress,
		admin:         cfg.Admin,
		factory:       cfg.Factory,
		resolvePool:   cfg.ResolvePool,
		fees:          cfg.Fees,
		allowList:     cfg.AllowList,
		engine:        cfg.Engine,
		transferToken: cfg.TransferToken,
		transferNFT:   cfg.TransferNFT,
		listBuyPools:  cfg.ListBuyPools,
		onBought:      cfg.OnBought,
		onSold:        cfg.OnSold,
		onFee:         cfg.OnFee,
		logger:        cfg.Logger,
		metrics:       NewMetrics(reg, cfg.SystemName),
	}, nil
}

// Address returns the router's settlement account.
func (r *Router) Address() common.Address {
	return r.routerAddr
}

func (r *Router) enter() error {
	if !r.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (r *Router) exit() {
	r.entered.Store(false)
}

func (r *Router) payFee(pool common.Address, fee *big.Int) error {
	if fee.Sign() <= 0 {
		return nil
	}
	recipient := r.fees.Recipient()
	if err := r.transferToken(r.routerAddr, recipient, fee); err != nil {
		return &SettlementError{Pool: pool, Op: "fee", Err: err}
	}
	if r.onFee != nil {
		r.onFee(FeeEvent{Pool: pool, Recipient: recipient, Amount: new(big.Int).Set(fee)})
	}
	return nil
}

// BuyFixed buys specific ids from a non-random pool. The trader's limit is
// maxInput; anything unspent after the swap and fee comes back.
func (r *Router) BuyFixed(trader, pool common.Address, ids []uint64, maxInput *big.Int) (*big.Int, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()

	timer := prometheus.NewTimer(r.metrics.TradeDuration.WithLabelValues("buy"))
	defer timer.ObserveDuration()

	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	if maxInput == nil || maxInput.Sign() <= 0 {
		return nil, ErrPriceAboveMax
	}
	if !r.factory.IsKnownPool(pool) {
		return nil, ErrUnknownPool
	}
	if r.factory.IsRandomPool(pool) {
		return nil, ErrRandomPool
	}

	p, err := r.resolvePool(pool)
	if err != nil {
		return nil, err
	}
	if p.PoolType() == pair.TokenSideHolder {
		return nil, ErrWrongPoolType
	}

	quote, err := p.BuyQuote(uint64(len(ids)))
	if err != nil {
		return nil, err
	}
	collection := p.NFT()
	breakdown := r.fees.QuoteBuy(quote, collection, len(ids) == 1)
	if breakdown.FinalPrice.Cmp(maxInput) > 0 {
		r.metrics.ErrorsTotal.WithLabelValues("price").Inc()
		return nil, ErrPriceAboveMax
	}

	if err := r.transferToken(trader, r.routerAddr, maxInput); err != nil {
		return nil, &SettlementError{Pool: pool, Op: "deposit", Err: err}
	}

	// Pre-authorize the outgoing tokens so the pool's enforcement hook sees
	// the trader as the legitimate post-swap holder. Prior entries are kept
	// for rollback if the swap reverts.
	prior := r.captureEntries(collection, ids)
	if err := r.allowList.SetBulk(r.routerAddr, collection, ids, trader); err != nil {
		r.refundToken(pool, trader, maxInput)
		return nil, err
	}

	budget := new(big.Int).Sub(breakdown.FinalPrice, breakdown.Fee)
	spent, swapErr := p.SwapTokenForSpecificNFTs(ids, budget, trader)
	if swapErr != nil {
		r.metrics.ErrorsTotal.WithLabelValues("swap").Inc()
		r.restoreEntries(collection, ids, prior)
		r.refundToken(pool, trader, maxInput)
		return nil, &SwapError{Pool: pool, Err: swapErr}
	}

	// The trade has executed; disburse with the trader's leftover first so a
	// fee payout failure never strands the trader's unspent deposit.
	leftover := new(big.Int).Sub(maxInput, spent)
	leftover.Sub(leftover, breakdown.Fee)
	if leftover.Sign() > 0 {
		if err := r.transferToken(r.routerAddr, trader, leftover); err != nil {
			r.logger.Error("leftover refund after buy did not complete",
				"pool", pool.Hex(), "trader", trader.Hex(), "amount", leftover.String(), "error", err)
			return spent, &SettlementError{Pool: pool, Op: "refund", Err: err}
		}
	}
	if err := r.payFee(pool, breakdown.Fee); err != nil {
		return spent, err
	}

	r.metrics.TradesTotal.WithLabelValues("buy").Inc()
	r.logger.Info("fixed buy settled",
		"pool", pool.Hex(), "trader", trader.Hex(), "tokenIds", ids,
		"spent", spent.String(), "fee", breakdown.Fee.String())
	if r.onBought != nil {
		r.onBought(BoughtEvent{Pool: pool, Trader: trader, TokenIDs: ids, Spent: spent, Fee: breakdown.Fee})
	}
	return spent, nil
}

// Sell sells specific ids into a token-side (buy) pool. The pool routes the
// received NFTs to the party that funded it; the router pays the seller the
// realized output minus the wrapper fee.
func (r *Router) Sell(trader, pool common.Address, ids []uint64, minOutput *big.Int) (*big.Int, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()

	timer := prometheus.NewTimer(r.metrics.TradeDuration.WithLabelValues("sell"))
	defer timer.ObserveDuration()

	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	if minOutput == nil || minOutput.Sign() < 0 {
		return nil, ErrOutputBelowMin
	}
	if !r.factory.IsKnownPool(pool) {
		return nil, ErrUnknownPool
	}
	if r.factory.IsRandomPool(pool) {
		return nil, ErrRandomPool
	}

	p, err := r.resolvePool(pool)
	if err != nil {
		return nil, err
	}
	if p.PoolType() != pair.TokenSideHolder {
		return nil, ErrWrongPoolType
	}

	quote, err := p.SellQuote(uint64(len(ids)))
	if err != nil {
		return nil, err
	}
	breakdown := r.fees.QuoteSell(quote)
	if breakdown.FinalPrice.Cmp(minOutput) < 0 {
		r.metrics.ErrorsTotal.WithLabelValues("price").Inc()
		return nil, ErrOutputBelowMin
	}

	collection := p.NFT()
	if err := r.transferNFT(collection, trader, r.routerAddr, ids); err != nil {
		return nil, &SettlementError{Pool: pool, Op: "nft deposit", Err: err}
	}

	if err := r.allowList.SetTrustedSender(r.routerAddr, pool, true); err != nil {
		r.returnNFTs(pool, collection, trader, ids)
		return nil, err
	}
	received, swapErr := p.SwapNFTsForToken(ids, quote.AmountReceived, r.routerAddr)
	// The flag must not survive the swap call, success or revert.
	if clearErr := r.allowList.SetTrustedSender(r.routerAddr, pool, false); clearErr != nil {
		r.logger.Error("failed to clear trusted-sender flag", "pool", pool.Hex(), "error", clearErr)
	}
	if swapErr != nil {
		r.metrics.ErrorsTotal.WithLabelValues("swap").Inc()
		r.returnNFTs(pool, collection, trader, ids)
		return nil, &SwapError{Pool: pool, Err: swapErr}
	}

	// Fee is computed on the realized output, not the quote.
	realized := r.fees.QuoteSell(pair.SellQuote{
		AmountReceived: received,
		ProtocolCut:    quote.ProtocolCut,
		Royalty:        quote.Royalty,
	})
	if err := r.payFee(pool, realized.Fee); err != nil {
		return nil, err
	}
	if realized.FinalPrice.Sign() > 0 {
		if err := r.transferToken(r.routerAddr, trader, realized.FinalPrice); err != nil {
			return nil, &SettlementError{Pool: pool, Op: "payout", Err: err}
		}
	}

	// The sold tokens now legitimately live with the pool's creator.
	creator := r.factory.CreatorOf(pool)
	if err := r.allowList.SetBulk(r.routerAddr, collection, ids, creator); err != nil {
		return nil, err
	}

	r.metrics.TradesTotal.WithLabelValues("sell").Inc()
	r.logger.Info("sell settled",
		"pool", pool.Hex(), "trader", trader.Hex(), "tokenIds", ids,
		"received", received.String(), "fee", realized.Fee.String())
	if r.onSold != nil {
		r.onSold(SoldEvent{Pool: pool, Trader: trader, TokenIDs: ids, Received: received, Fee: realized.Fee})
	}
	return realized.FinalPrice, nil
}

// BuyRandom submits a randomized purchase to the fulfillment engine. The
// engine escrows maxInput from the trader and resolves once randomness
// arrives and the trader claims.
func (r *Router) BuyRandom(trader, pool common.Address, count uint64, maxInput *big.Int) (uint64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()
	return r.engine.Request(trader, pool, count, maxInput)
}

// ClaimRandom resolves the trader's fulfilled randomized purchase.
func (r *Router) ClaimRandom(trader common.Address) ([]uint64, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()
	return r.engine.Claim(trader)
}

// CancelRandom abandons the trader's pending randomized purchase after the
// engine's cancellation cooldown.
func (r *Router) CancelRandom(trader common.Address, requestID uint64) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()
	return r.engine.Cancel(trader, requestID)
}

// MigrateAllowList re-points a bounded page of allow-list entries at
// newHolder and, on the first page, updates each live buy pool's payout
// recipient to match. Used when upgrading to a new hook or router revision.
func (r *Router) MigrateAllowList(caller, newHolder common.Address, offset, limit uint64) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	if caller != r.admin {
		return ErrNotAdmin
	}
	if err := r.allowList.ReassignAll(r.routerAddr, newHolder, offset, limit); err != nil {
		return err
	}
	r.metrics.MigrationPages.WithLabelValues().Inc()

	if offset == 0 && r.listBuyPools != nil {
		for _, addr := range r.listBuyPools() {
			p, err := r.resolvePool(addr)
			if err != nil {
				r.logger.Warn("skipping payout migration for unresolvable pool", "pool", addr.Hex(), "error", err)
				continue
			}
			configurable, ok := p.(payoutConfigurable)
			if !ok {
				continue
			}
			if err := configurable.SetAssetRecipient(newHolder); err != nil {
				r.logger.Warn("failed to re-point pool payout recipient", "pool", addr.Hex(), "error", err)
			}
		}
	}

	r.logger.Info("allow-list page migrated", "newHolder", newHolder.Hex(), "offset", offset, "limit", limit)
	return nil
}

// priorEntry is an allow-list entry snapshot taken before pre-authorization.
type priorEntry struct {
	holder common.Address
	exists bool
}

func (r *Router) captureEntries(collection common.Address, ids []uint64) []priorEntry {
	prior := make([]priorEntry, len(ids))
	for i, id := range ids {
		prior[i].holder, prior[i].exists = r.allowList.HolderOf(collection, id)
	}
	return prior
}

// restoreEntries rolls the pre-authorized entries back to their pre-trade
// state after a failed swap: previously-absent entries are removed, the rest
// re-pointed at their old holders.
func (r *Router) restoreEntries(collection common.Address, ids []uint64, prior []priorEntry) {
	for i, id := range ids {
		var err error
		if prior[i].exists {
			err = r.allowList.Set(r.routerAddr, collection, id, prior[i].holder)
		} else {
			err = r.allowList.Unset(r.routerAddr, collection, id)
		}
		if err != nil {
			r.logger.Error("allow-list rollback after failed buy did not complete",
				"collection", collection.Hex(), "tokenId", id, "error", err)
		}
	}
}

// refundToken returns the trader's full deposit after a failed buy. A refund
// that itself fails is logged loudly; the accounting error is surfaced by
// the enclosing call's error.
func (r *Router) refundToken(pool, trader common.Address, amount *big.Int) {
	if err := r.transferToken(r.routerAddr, trader, amount); err != nil {
		r.logger.Error("refund after failed buy did not complete",
			"pool", pool.Hex(), "trader", trader.Hex(), "amount", amount.String(), "error", err)
	}
}

// returnNFTs hands deposited NFTs back to the trader after a failed sell.
func (r *Router) returnNFTs(pool, collection, trader common.Address, ids []uint64) {
	if err := r.transferNFT(collection, r.routerAddr, trader, ids); err != nil {
		r.logger.Error("nft return after failed sell did not complete",
			"pool", pool.Hex(), "trader", trader.Hex(), "tokenIds", ids, "error", err)
	}
}
