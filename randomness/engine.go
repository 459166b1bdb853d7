// Package randomness implements the request/callback/claim state machine
// that resolves "buy N random NFTs" orders once external randomness arrives.
//
// The oracle boundary is the system's only long-lived pending operation: a
// request and its callback span two separate calls with engine state
// persisted in between. The callback only marks data ready; the risky pool
// swap runs in the user-initiated claim, which the user controls and can
// retry. Every terminal outcome other than Claimed refunds the full escrow.
package randomness

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/daedboi/lssvm2-hooks/allowlist"
	"github.com/daedboi/lssvm2-hooks/fees"
	"github.com/daedboi/lssvm2-hooks/pair"
)

// DefaultCancellationDelay is the minimum wait before a requester may cancel
// a Pending request. The cooldown exists so an in-flight oracle callback
// cannot race a cancellation that has already refunded the escrow the
// callback is about to spend.
const DefaultCancellationDelay = 5 * time.Minute

// Logger defines a standard interface for structured, leveled logging,
// compatible with the standard library's slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TransferFunc moves currency between accounts in the underlying ledger.
type TransferFunc func(from, to common.Address, amount *big.Int) error

// PoolResolverFunc resolves a pool address to its live capability object.
type PoolResolverFunc func(addr common.Address) (pair.Pool, error)

// Config holds all the dependencies and settings for the Engine.
type Config struct {
	SystemName string
	// EngineAddress is the engine's own account; escrowed funds sit here
	// between request and resolution.
	EngineAddress common.Address
	Factory       pair.Factory
	ResolvePool   PoolResolverFunc
	Oracle        pair.RandomnessSource
	Fees          *fees.Config
	AllowList     *allowlist.System
	TransferToken TransferFunc

	CancellationDelay time.Duration
	Now               func() time.Time
	OnEvent           OnEventFunc
	Logger            Logger
	PrometheusReg     prometheus.Registerer
}

// validate checks that all essential fields in the Config are provided.
func (c *Config) validate() error {
	if c.SystemName == "" {
		return errors.New("system name is required")
	}
	if c.EngineAddress == (common.Address{}) {
		return errors.New("engine address is required")
	}
	if c.Factory == nil {
		return errors.New("factory is required")
	}
	if c.ResolvePool == nil {
		return errors.New("pool resolver function is required")
	}
	if c.Oracle == nil {
		return errors.New("randomness oracle is required")
	}
	if c.Fees == nil {
		return errors.New("fee configuration is required")
	}
	if c.AllowList == nil {
		return errors.New("allow-list system is required")
	}
	if c.TransferToken == nil {
		return errors.New("token transfer function is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Engine owns every BuyRequest, keyed by the oracle correlation id and
// indexed by requester for the at-most-one-outstanding check.
type Engine struct {
	engineAddr    common.Address
	factory       pair.Factory
	resolvePool   PoolResolverFunc
	oracle        pair.RandomnessSource
	fees          *fees.Config
	allowList     *allowlist.System
	transferToken TransferFunc

	cancellationDelay time.Duration
	now               func() time.Time
	onEvent           OnEventFunc
	logger            Logger
	metrics           *Metrics

	// entered is the reentrancy latch: a pool swap can call back into the
	// engine mid-claim via a token callback, and such a call must fail fast
	// rather than observe half-updated escrow state.
	entered atomic.Bool

	mu                sync.RWMutex
	requests          map[uint64]*BuyRequest
	outstanding       mapset.Set[common.Address]
	latestByRequester map[common.Address]uint64
}

// NewEngine constructs a fulfillment engine from a validated configuration.
func NewEngine(cfg *Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	delay := cfg.CancellationDelay
	if delay <= 0 {
		delay = DefaultCancellationDelay
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	reg := cfg.PrometheusReg
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Engine{
		engineAddr:        cfg.EngineAddress,
		factory:           cfg.Factory,
		resolvePool:       cfg.ResolvePool,
		oracle:            cfg.Oracle,
		fees:              cfg.Fees,
		allowList:         cfg.AllowList,
		transferToken:     cfg.TransferToken,
		cancellationDelay: delay,
		now:               now,
		onEvent:           cfg.OnEvent,
		logger:            cfg.Logger,
		metrics:           NewMetrics(reg, cfg.SystemName),
		requests:          make(map[uint64]*BuyRequest),
		outstanding:       mapset.NewThreadUnsafeSet[common.Address](),
		latestByRequester: make(map[common.Address]uint64),
	}, nil
}

// Address returns the engine's escrow account.
func (e *Engine) Address() common.Address {
	return e.engineAddr
}

// CancellationDelay returns the configured cancel cooldown.
func (e *Engine) CancellationDelay() time.Duration {
	return e.cancellationDelay
}

func (e *Engine) enter() error {
	if !e.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (e *Engine) exit() {
	e.entered.Store(false)
}

func (e *Engine) emit(event Event) {
	if e.onEvent != nil {
		e.onEvent(event)
	}
}

// Request escrows maxInput from the requester, asks the oracle for count
// random words, and records a Pending BuyRequest under the returned
// correlation id. The price check here is front-run protection pinned at
// request time; the price can still move before fulfillment and is
// re-checked at claim time.
func (e *Engine) Request(requester, pool common.Address, count uint64, maxInput *big.Int) (uint64, error) {
	if err := e.enter(); err != nil {
		return 0, err
	}
	defer e.exit()

	if count == 0 {
		return 0, ErrInvalidCount
	}
	if maxInput == nil || maxInput.Sign() <= 0 {
		return 0, ErrInvalidInput
	}
	if !e.factory.IsKnownPool(pool) || !e.factory.IsRandomPool(pool) {
		return 0, ErrNotRandomPool
	}
	if unlock := e.factory.UnlockTimeOf(pool); unlock != 0 && uint64(e.now().Unix()) < unlock {
		return 0, ErrPoolLocked
	}

	p, err := e.resolvePool(pool)
	if err != nil {
		return 0, err
	}
	if uint64(len(p.AllIDs())) < count {
		return 0, ErrInsufficientNFTs
	}

	e.mu.RLock()
	hasOutstanding := e.outstanding.Contains(requester)
	e.mu.RUnlock()
	if hasOutstanding {
		return 0, ErrRequestOutstanding
	}

	quote, err := p.BuyQuote(count)
	if err != nil {
		return 0, err
	}
	breakdown := e.fees.QuoteBuy(quote, p.NFT(), count == 1)
	if breakdown.FinalPrice.Cmp(maxInput) > 0 {
		return 0, ErrPriceAboveMax
	}

	if err := e.transferToken(requester, e.engineAddr, maxInput); err != nil {
		return 0, &EscrowError{Op: "deposit", Err: err}
	}

	requestID, err := e.oracle.RequestRandomWords(count)
	if err != nil {
		if refundErr := e.transferToken(e.engineAddr, requester, maxInput); refundErr != nil {
			e.logger.Error("escrow refund after oracle failure did not complete",
				"requester", requester.Hex(), "amount", maxInput.String(), "error", refundErr)
			return 0, &EscrowError{Op: "refund", Err: refundErr}
		}
		return 0, &OracleError{Err: err}
	}

	req := &BuyRequest{
		ID:            requestID,
		Requester:     requester,
		Pool:          pool,
		DesiredCount:  count,
		ReservedInput: new(big.Int).Set(maxInput),
		CreatedAt:     e.now(),
		State:         StatePending,
	}

	e.mu.Lock()
	e.requests[requestID] = req
	e.outstanding.Add(requester)
	e.latestByRequester[requester] = requestID
	e.mu.Unlock()

	e.metrics.RequestsTotal.WithLabelValues("submitted").Inc()
	e.metrics.OpenRequests.WithLabelValues().Inc()
	e.metrics.EscrowHeld.WithLabelValues().Add(approxWei(maxInput))
	e.logger.Info("buy request submitted",
		"requestId", requestID, "requester", requester.Hex(), "pool", pool.Hex(),
		"count", count, "escrow", maxInput.String())
	e.emit(Event{RequestID: requestID, Requester: requester, Pool: pool, State: StatePending})

	return requestID, nil
}

// OnRandomnessReady is the oracle callback. It never returns an error: a
// failure surfaced here would stall the oracle subsystem for this engine
// permanently, so unknown ids, replays, and non-Pending requests are simply
// ignored. It performs state mutation only; word-count sufficiency is
// checked at claim time.
func (e *Engine) OnRandomnessReady(requestID uint64, words []*big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.requests[requestID]
	if !ok || req.State != StatePending {
		e.logger.Debug("ignoring randomness delivery", "requestId", requestID, "known", ok)
		return
	}

	req.RandomWords = make([]*big.Int, len(words))
	for i, w := range words {
		req.RandomWords[i] = new(big.Int).Set(w)
	}
	req.State = StateFulfilled

	e.metrics.RequestsTotal.WithLabelValues("fulfilled").Inc()
	e.logger.Info("buy request fulfilled", "requestId", requestID, "words", len(words))
	e.emit(Event{RequestID: requestID, Requester: req.Requester, Pool: req.Pool, State: StateFulfilled})
}

// Claim resolves the requester's fulfilled request: it re-validates supply,
// randomness, and price, samples the NFTs, and executes the pool swap under
// a transient trusted-sender flag. Any failure moves the request to Failed
// with a full refund and surfaces as a ClaimAbortedError; the requester
// never loses funds to an engine-internal failure.
func (e *Engine) Claim(requester common.Address) ([]uint64, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.exit()

	timer := prometheus.NewTimer(e.metrics.ClaimDuration.WithLabelValues())
	defer timer.ObserveDuration()

	e.mu.RLock()
	requestID, ok := e.latestByRequester[requester]
	var req *BuyRequest
	if ok {
		req = e.requests[requestID]
	}
	e.mu.RUnlock()

	if req == nil || req.State != StateFulfilled {
		return nil, ErrNoClaimableRequest
	}

	p, err := e.resolvePool(req.Pool)
	if err != nil {
		return nil, e.abortClaim(req, "resolve", err)
	}

	poolIDs := p.AllIDs()
	if uint64(len(poolIDs)) < req.DesiredCount {
		return nil, e.abortClaim(req, "supply", ErrInsufficientNFTs)
	}
	if uint64(len(req.RandomWords)) < req.DesiredCount {
		return nil, e.abortClaim(req, "randomness", errors.New("insufficient random words"))
	}

	quote, err := p.BuyQuote(req.DesiredCount)
	if err != nil {
		return nil, e.abortClaim(req, "quote", err)
	}
	breakdown := e.fees.QuoteBuy(quote, p.NFT(), req.DesiredCount == 1)
	if breakdown.FinalPrice.Cmp(req.ReservedInput) > 0 {
		return nil, e.abortClaim(req, "price", ErrPriceAboveMax)
	}

	selected := sampleWithoutReplacement(poolIDs, req.RandomWords, req.DesiredCount)

	budget := new(big.Int).Sub(breakdown.FinalPrice, breakdown.Fee)

	if err := e.allowList.SetTrustedSender(e.engineAddr, req.Pool, true); err != nil {
		return nil, e.abortClaim(req, "trust", err)
	}
	spent, swapErr := p.SwapTokenForSpecificNFTs(selected, budget, req.Requester)
	// The flag must not survive the swap call, success or revert.
	if clearErr := e.allowList.SetTrustedSender(e.engineAddr, req.Pool, false); clearErr != nil {
		e.logger.Error("failed to clear trusted-sender flag", "pool", req.Pool.Hex(), "error", clearErr)
	}
	if swapErr != nil {
		return nil, e.abortClaim(req, "swap", swapErr)
	}

	// The swap has executed and the NFTs are with the requester, so the
	// request settles NOW. Disbursement failures below surface as errors but
	// must never re-open swap execution against escrow that is already spent.
	e.mu.Lock()
	req.State = StateClaimed
	req.ResolvedTokenIDs = selected
	e.outstanding.Remove(req.Requester)
	e.mu.Unlock()

	e.metrics.RequestsTotal.WithLabelValues("claimed").Inc()
	e.metrics.OpenRequests.WithLabelValues().Dec()
	e.metrics.EscrowHeld.WithLabelValues().Sub(approxWei(req.ReservedInput))
	e.emit(Event{RequestID: req.ID, Requester: req.Requester, Pool: req.Pool, State: StateClaimed, TokenIDs: selected})

	// Requester first, fee recipient second.
	leftover := new(big.Int).Sub(req.ReservedInput, spent)
	leftover.Sub(leftover, breakdown.Fee)
	if leftover.Sign() > 0 {
		if err := e.transferToken(e.engineAddr, req.Requester, leftover); err != nil {
			e.logger.Error("leftover refund after claim did not complete",
				"requestId", req.ID, "amount", leftover.String(), "error", err)
			return selected, &EscrowError{RequestID: req.ID, Op: "refund", Err: err}
		}
	}
	if breakdown.Fee.Sign() > 0 {
		if err := e.transferToken(e.engineAddr, e.fees.Recipient(), breakdown.Fee); err != nil {
			e.logger.Error("fee payout after claim did not complete",
				"requestId", req.ID, "amount", breakdown.Fee.String(), "error", err)
			return selected, &EscrowError{RequestID: req.ID, Op: "fee", Err: err}
		}
	}

	e.logger.Info("buy request claimed",
		"requestId", req.ID, "requester", req.Requester.Hex(),
		"tokenIds", selected, "spent", spent.String(), "fee", breakdown.Fee.String())

	return selected, nil
}

// abortClaim refunds the full escrow, marks the request Failed, and wraps
// the cause. The refund is always the original escrow, never a partial
// amount.
func (e *Engine) abortClaim(req *BuyRequest, path string, cause error) error {
	refund := new(big.Int).Set(req.ReservedInput)
	if err := e.transferToken(e.engineAddr, req.Requester, refund); err != nil {
		e.logger.Error("escrow refund on claim abort did not complete",
			"requestId", req.ID, "amount", refund.String(), "error", err)
		return &EscrowError{RequestID: req.ID, Op: "refund", Err: err}
	}

	e.mu.Lock()
	req.State = StateFailed
	e.outstanding.Remove(req.Requester)
	e.mu.Unlock()

	e.metrics.RequestsTotal.WithLabelValues("failed").Inc()
	e.metrics.OpenRequests.WithLabelValues().Dec()
	e.metrics.RefundsTotal.WithLabelValues(path).Inc()
	e.metrics.EscrowHeld.WithLabelValues().Sub(approxWei(refund))
	e.logger.Warn("buy request failed at claim time",
		"requestId", req.ID, "path", path, "refunded", refund.String(), "cause", cause)
	e.emit(Event{RequestID: req.ID, Requester: req.Requester, Pool: req.Pool, State: StateFailed, Refunded: refund})

	return &ClaimAbortedError{RequestID: req.ID, Refunded: refund, Reason: cause}
}

// Cancel lets the original requester abandon a Pending request after the
// cancellation cooldown, refunding the full escrow.
func (e *Engine) Cancel(requester common.Address, requestID uint64) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()

	e.mu.RLock()
	req, ok := e.requests[requestID]
	e.mu.RUnlock()

	if !ok {
		return ErrUnknownRequest
	}
	if req.Requester != requester {
		return ErrNotRequester
	}
	if req.State != StatePending {
		return ErrNotPending
	}
	if e.now().Sub(req.CreatedAt) < e.cancellationDelay {
		return ErrCooldownActive
	}

	refund := new(big.Int).Set(req.ReservedInput)
	if err := e.transferToken(e.engineAddr, requester, refund); err != nil {
		return &EscrowError{RequestID: requestID, Op: "refund", Err: err}
	}

	e.mu.Lock()
	req.State = StateCancelled
	e.outstanding.Remove(requester)
	e.mu.Unlock()

	e.metrics.RequestsTotal.WithLabelValues("cancelled").Inc()
	e.metrics.OpenRequests.WithLabelValues().Dec()
	e.metrics.RefundsTotal.WithLabelValues("cancel").Inc()
	e.metrics.EscrowHeld.WithLabelValues().Sub(approxWei(refund))
	e.logger.Info("buy request cancelled", "requestId", requestID, "refunded", refund.String())
	e.emit(Event{RequestID: requestID, Requester: requester, Pool: req.Pool, State: StateCancelled, Refunded: refund})

	return nil
}

// RequestByID returns a copy of a stored request.
func (e *Engine) RequestByID(requestID uint64) (BuyRequest, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	req, ok := e.requests[requestID]
	if !ok {
		return BuyRequest{}, false
	}
	return req.copy(), true
}

// OutstandingRequest returns the requester's current non-terminal request.
func (e *Engine) OutstandingRequest(requester common.Address) (BuyRequest, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.outstanding.Contains(requester) {
		return BuyRequest{}, false
	}
	req, ok := e.requests[e.latestByRequester[requester]]
	if !ok || req.State.terminal() {
		return BuyRequest{}, false
	}
	return req.copy(), true
}

// approxWei converts an escrow amount to float64 for gauge exposition. Lossy
// above 2^53 wei; the metric is an operational signal, not accounting.
func approxWei(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}

// sampleWithoutReplacement draws count distinct ids from poolIDs using the
// standard swap-remove idiom: pick list[word mod remaining], overwrite the
// picked slot with the last live element, shrink. Deterministic given the
// words, never revisits an index.
func sampleWithoutReplacement(poolIDs []uint64, words []*big.Int, count uint64) []uint64 {
	working := append([]uint64(nil), poolIDs...)
	remaining := uint64(len(working))

	selected := make([]uint64, 0, count)
	mod := new(big.Int)
	for i := uint64(0); i < count; i++ {
		index := mod.Mod(words[i], new(big.Int).SetUint64(remaining)).Uint64()
		selected = append(selected, working[index])
		working[index] = working[remaining-1]
		remaining--
	}
	return selected
}
