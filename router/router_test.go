package router

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedboi/lssvm2-hooks/allowlist"
	"github.com/daedboi/lssvm2-hooks/fees"
	"github.com/daedboi/lssvm2-hooks/pair"
	"github.com/daedboi/lssvm2-hooks/randomness"
)

var (
	testAdmin     = common.HexToAddress("0xAD")
	testRecipient = common.HexToAddress("0xFE")
	testRouter    = common.HexToAddress("0xAA")
	testEngine    = common.HexToAddress("0xE6")
	testTrader    = common.HexToAddress("0x1234")
	testCreator   = common.HexToAddress("0xCC")
	testBuyPool   = common.HexToAddress("0xF001")
	testSellPool  = common.HexToAddress("0xF002")
	testNFTAddr   = common.HexToAddress("0xC011")
)

// --- fakes ---

type testLedger struct {
	balances map[common.Address]*big.Int
	// failWhen, when set, can reject individual transfers by party.
	failWhen func(from, to common.Address) error
}

func newTestLedger() *testLedger {
	return &testLedger{balances: make(map[common.Address]*big.Int)}
}

func (l *testLedger) mint(addr common.Address, amount int64) {
	l.balances[addr] = big.NewInt(amount)
}

func (l *testLedger) balance(addr common.Address) int64 {
	if b, ok := l.balances[addr]; ok {
		return b.Int64()
	}
	return 0
}

func (l *testLedger) transfer(from, to common.Address, amount *big.Int) error {
	if l.failWhen != nil {
		if err := l.failWhen(from, to); err != nil {
			return err
		}
	}
	fromBal, ok := l.balances[from]
	if !ok || fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance at %s", from.Hex())
	}
	fromBal.Sub(fromBal, amount)
	toBal, ok := l.balances[to]
	if !ok {
		toBal = new(big.Int)
		l.balances[to] = toBal
	}
	toBal.Add(toBal, amount)
	return nil
}

// nftBook tracks per-collection token ownership for the NFT transfer fake.
type nftBook struct {
	owners map[common.Address]map[uint64]common.Address
	err    error
}

func newNFTBook() *nftBook {
	return &nftBook{owners: make(map[common.Address]map[uint64]common.Address)}
}

func (b *nftBook) assign(collection common.Address, id uint64, owner common.Address) {
	if b.owners[collection] == nil {
		b.owners[collection] = make(map[uint64]common.Address)
	}
	b.owners[collection][id] = owner
}

func (b *nftBook) ownerOf(collection common.Address, id uint64) common.Address {
	return b.owners[collection][id]
}

func (b *nftBook) transfer(collection, from, to common.Address, ids []uint64) error {
	if b.err != nil {
		return b.err
	}
	for _, id := range ids {
		if b.ownerOf(collection, id) != from {
			return fmt.Errorf("token %d not held by %s", id, from.Hex())
		}
	}
	for _, id := range ids {
		b.assign(collection, id, to)
	}
	return nil
}

type fakePool struct {
	addr     common.Address
	nftAddr  common.Address
	poolType pair.PoolType
	ids      []uint64
	buy      pair.BuyQuote
	sell     pair.SellQuote
	ledger   *testLedger
	book     *nftBook
	// operator is the account the pool pulls the buy budget from, the
	// caller of the swap in a real deployment.
	operator common.Address

	swapErr    error
	sellPayout *big.Int // overrides sell.AmountReceived when set
	onBuySwap  func(ids []uint64, budget *big.Int, recipient common.Address) error
	onSellSwap func(ids []uint64, minOutput *big.Int, recipient common.Address) error
}

func (p *fakePool) NFT() common.Address     { return p.nftAddr }
func (p *fakePool) Token() common.Address   { return common.Address{} }
func (p *fakePool) PoolType() pair.PoolType { return p.poolType }
func (p *fakePool) Variant() string         { return "test" }
func (p *fakePool) AllIDs() []uint64        { return append([]uint64(nil), p.ids...) }

func (p *fakePool) BuyQuote(count uint64) (pair.BuyQuote, error) {
	return pair.BuyQuote{
		PriceBeforeFee: new(big.Int).Set(p.buy.PriceBeforeFee),
		ProtocolCut:    new(big.Int).Set(p.buy.ProtocolCut),
		Royalty:        new(big.Int).Set(p.buy.Royalty),
	}, nil
}

func (p *fakePool) SellQuote(count uint64) (pair.SellQuote, error) {
	return pair.SellQuote{
		AmountReceived: new(big.Int).Set(p.sell.AmountReceived),
		ProtocolCut:    new(big.Int).Set(p.sell.ProtocolCut),
		Royalty:        new(big.Int).Set(p.sell.Royalty),
	}, nil
}

func (p *fakePool) SwapTokenForSpecificNFTs(ids []uint64, maxBudget *big.Int, recipient common.Address) (*big.Int, error) {
	if p.onBuySwap != nil {
		if err := p.onBuySwap(ids, maxBudget, recipient); err != nil {
			return nil, err
		}
	}
	if p.swapErr != nil {
		return nil, p.swapErr
	}
	if err := p.ledger.transfer(p.operator, p.addr, maxBudget); err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.book.assign(p.nftAddr, id, recipient)
	}
	return new(big.Int).Set(maxBudget), nil
}

func (p *fakePool) SwapNFTsForToken(ids []uint64, minOutput *big.Int, recipient common.Address) (*big.Int, error) {
	if p.onSellSwap != nil {
		if err := p.onSellSwap(ids, minOutput, recipient); err != nil {
			return nil, err
		}
	}
	if p.swapErr != nil {
		return nil, p.swapErr
	}
	payout := p.sellPayout
	if payout == nil {
		payout = p.sell.AmountReceived
	}
	if err := p.ledger.transfer(p.addr, recipient, payout); err != nil {
		return nil, err
	}
	// Received NFTs go straight to the pool's funding party.
	for _, id := range ids {
		p.book.assign(p.nftAddr, id, testCreator)
	}
	return new(big.Int).Set(payout), nil
}

// migPool additionally exposes a configurable payout recipient.
type migPool struct {
	fakePool
	recipient common.Address
}

func (p *migPool) SetAssetRecipient(recipient common.Address) error {
	p.recipient = recipient
	return nil
}

type fakeFactory struct {
	known   map[common.Address]bool
	random  map[common.Address]bool
	creator map[common.Address]common.Address
}

func (f *fakeFactory) IsKnownPool(p common.Address) bool    { return f.known[p] }
func (f *fakeFactory) IsRandomPool(p common.Address) bool   { return f.random[p] }
func (f *fakeFactory) UnlockTimeOf(p common.Address) uint64 { return 0 }
func (f *fakeFactory) CreatorOf(p common.Address) common.Address {
	return f.creator[p]
}

type fakeOracle struct{ nextID uint64 }

func (o *fakeOracle) RequestRandomWords(count uint64) (uint64, error) {
	o.nextID++
	return o.nextID, nil
}

func testLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fixture ---

type routerFixture struct {
	router   *Router
	engine   *randomness.Engine
	ledger   *testLedger
	book     *nftBook
	buyPool  *fakePool
	sellPool *fakePool
	pools    map[common.Address]pair.Pool
	factory  *fakeFactory
	allow    *allowlist.System
	fees     *fees.Config
	bought   []BoughtEvent
	sold     []SoldEvent
	feePaid  []FeeEvent
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	ledger := newTestLedger()
	ledger.mint(testTrader, 1000)

	book := newNFTBook()

	buyPool := &fakePool{
		addr:     testBuyPool,
		nftAddr:  testNFTAddr,
		poolType: pair.NFTSideHolder,
		ids:      []uint64{1, 2, 3},
		buy: pair.BuyQuote{
			PriceBeforeFee: big.NewInt(100),
			ProtocolCut:    new(big.Int),
			Royalty:        new(big.Int),
		},
		ledger:   ledger,
		book:     book,
		operator: testRouter,
	}
	sellPool := &fakePool{
		addr:     testSellPool,
		nftAddr:  testNFTAddr,
		poolType: pair.TokenSideHolder,
		sell: pair.SellQuote{
			AmountReceived: big.NewInt(100),
			ProtocolCut:    new(big.Int),
			Royalty:        new(big.Int),
		},
		ledger: ledger,
		book:   book,
	}
	ledger.mint(testSellPool, 500)

	factory := &fakeFactory{
		known:   map[common.Address]bool{testBuyPool: true, testSellPool: true},
		random:  map[common.Address]bool{},
		creator: map[common.Address]common.Address{testSellPool: testCreator},
	}

	allow, err := allowlist.NewSystem(testRouter, testEngine, nil)
	require.NoError(t, err)

	feeCfg, err := fees.NewConfig(testAdmin, testRecipient, big.NewInt(1e16)) // 1%
	require.NoError(t, err)

	pools := map[common.Address]pair.Pool{
		testBuyPool:  buyPool,
		testSellPool: sellPool,
	}
	resolve := func(addr common.Address) (pair.Pool, error) {
		if p, ok := pools[addr]; ok {
			return p, nil
		}
		return nil, errors.New("unknown pool")
	}

	engine, err := randomness.NewEngine(&randomness.Config{
		SystemName:    "test",
		EngineAddress: testEngine,
		Factory:       factory,
		ResolvePool:   resolve,
		Oracle:        &fakeOracle{},
		Fees:          feeCfg,
		AllowList:     allow,
		TransferToken: ledger.transfer,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	fx := &routerFixture{
		engine:   engine,
		ledger:   ledger,
		book:     book,
		buyPool:  buyPool,
		sellPool: sellPool,
		pools:    pools,
		factory:  factory,
		allow:    allow,
		fees:     feeCfg,
	}

	router, err := NewRouter(&Config{
		SystemName:    "test",
		RouterAddress: testRouter,
		Admin:         testAdmin,
		Factory:       factory,
		ResolvePool:   resolve,
		Fees:          feeCfg,
		AllowList:     allow,
		Engine:        engine,
		TransferToken: ledger.transfer,
		TransferNFT:   book.transfer,
		ListBuyPools:  func() []common.Address { return []common.Address{testSellPool} },
		OnBought:      func(e BoughtEvent) { fx.bought = append(fx.bought, e) },
		OnSold:        func(e SoldEvent) { fx.sold = append(fx.sold, e) },
		OnFee:         func(e FeeEvent) { fx.feePaid = append(fx.feePaid, e) },
		Logger:        testLogger(),
	})
	require.NoError(t, err)
	fx.router = router
	return fx
}

// --- tests ---

func TestRouterConfigValidation(t *testing.T) {
	_, err := NewRouter(&Config{})
	assert.Error(t, err)

	_, err = NewRouter(&Config{SystemName: "x"})
	assert.ErrorContains(t, err, "router address")
}

func TestBuyFixed(t *testing.T) {
	t.Run("SettlesWithFeeAndLeftoverRefund", func(t *testing.T) {
		fx := newRouterFixture(t)

		// price 100, 1% fee on base 100 -> fee 1, final 101, deposit 105.
		spent, err := fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(105))
		require.NoError(t, err)
		assert.Equal(t, int64(100), spent.Int64())

		assert.Equal(t, int64(899), fx.ledger.balance(testTrader)) // 1000 - 101
		assert.Equal(t, int64(100), fx.ledger.balance(testBuyPool))
		assert.Equal(t, int64(1), fx.ledger.balance(testRecipient))
		assert.Equal(t, int64(0), fx.ledger.balance(testRouter))
		assert.Equal(t, testTrader, fx.book.ownerOf(testNFTAddr, 1))

		holder, ok := fx.allow.HolderOf(testNFTAddr, 1)
		require.True(t, ok)
		assert.Equal(t, testTrader, holder)

		require.Len(t, fx.bought, 1)
		assert.Equal(t, []uint64{1}, fx.bought[0].TokenIDs)
		require.Len(t, fx.feePaid, 1)
		assert.Equal(t, int64(1), fx.feePaid[0].Amount.Int64())
	})

	t.Run("Rejections", func(t *testing.T) {
		fx := newRouterFixture(t)

		_, err := fx.router.BuyFixed(testTrader, testBuyPool, nil, big.NewInt(105))
		assert.ErrorIs(t, err, ErrNoIDs)

		_, err = fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, nil)
		assert.ErrorIs(t, err, ErrPriceAboveMax)

		_, err = fx.router.BuyFixed(testTrader, common.HexToAddress("0x99"), []uint64{1}, big.NewInt(105))
		assert.ErrorIs(t, err, ErrUnknownPool)

		fx.factory.random[testBuyPool] = true
		_, err = fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(105))
		assert.ErrorIs(t, err, ErrRandomPool)
		fx.factory.random[testBuyPool] = false

		// Token-side pools sell currency, not NFTs.
		_, err = fx.router.BuyFixed(testTrader, testSellPool, []uint64{1}, big.NewInt(105))
		assert.ErrorIs(t, err, ErrWrongPoolType)

		// final price 101 > limit 100
		_, err = fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(100))
		assert.ErrorIs(t, err, ErrPriceAboveMax)

		assert.Equal(t, int64(1000), fx.ledger.balance(testTrader))
	})

	t.Run("SwapFailureRefundsDeposit", func(t *testing.T) {
		fx := newRouterFixture(t)
		boom := errors.New("pool reverted")
		fx.buyPool.swapErr = boom

		_, err := fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(105))

		var swapErr *SwapError
		require.ErrorAs(t, err, &swapErr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1000), fx.ledger.balance(testTrader))
		assert.Equal(t, int64(0), fx.ledger.balance(testRouter))
	})

	t.Run("SwapFailureRollsBackPreAuthorizedEntries", func(t *testing.T) {
		fx := newRouterFixture(t)

		// Token 2 carried an entry naming the creator; token 1 had none.
		require.NoError(t, fx.allow.Set(testRouter, testNFTAddr, 2, testCreator))
		fx.buyPool.swapErr = errors.New("pool reverted")

		_, err := fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1, 2}, big.NewInt(300))
		require.Error(t, err)

		_, ok := fx.allow.HolderOf(testNFTAddr, 1)
		assert.False(t, ok, "a previously-absent entry must be removed again")
		holder, ok := fx.allow.HolderOf(testNFTAddr, 2)
		require.True(t, ok)
		assert.Equal(t, testCreator, holder, "a pre-existing entry must be restored")
	})

	t.Run("FeePayoutFailureStillRefundsLeftover", func(t *testing.T) {
		fx := newRouterFixture(t)

		boom := errors.New("fee sink frozen")
		fx.ledger.failWhen = func(_, to common.Address) error {
			if to == testRecipient {
				return boom
			}
			return nil
		}

		spent, err := fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(105))
		var settleErr *SettlementError
		require.ErrorAs(t, err, &settleErr)
		assert.Equal(t, "fee", settleErr.Op)
		require.NotNil(t, spent)
		assert.Equal(t, int64(100), spent.Int64())

		// The trade executed and the trader's leftover came back before the
		// fee payout was attempted; only the fee is left in router custody.
		assert.Equal(t, testTrader, fx.book.ownerOf(testNFTAddr, 1))
		assert.Equal(t, int64(899), fx.ledger.balance(testTrader))
		assert.Equal(t, int64(1), fx.ledger.balance(testRouter))
	})

	t.Run("EnforcementHookBlocksMisroutedTransfer", func(t *testing.T) {
		fx := newRouterFixture(t)

		hook, err := allowlist.NewHook(fx.allow)
		require.NoError(t, err)

		// The pool runs the enforcement hook against live ownership after its
		// internal transfer. Here the transfer never happens, so the hook sees
		// the pool still holding a token whose entry points at the trader.
		fx.book.assign(testNFTAddr, 1, testBuyPool)
		fx.buyPool.onBuySwap = func(ids []uint64, _ *big.Int, _ common.Address) error {
			return hook.CheckTransferOut(testBuyPool, testNFTAddr, bookAs721{fx.book}, ids)
		}

		_, err = fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(105))
		require.Error(t, err)

		var wrongOwner *allowlist.WrongOwnerError
		assert.ErrorAs(t, err, &wrongOwner)
		assert.Equal(t, int64(1000), fx.ledger.balance(testTrader))
	})

	t.Run("RejectsReentrantEntry", func(t *testing.T) {
		fx := newRouterFixture(t)

		var reentrantErr error
		fx.buyPool.onBuySwap = func([]uint64, *big.Int, common.Address) error {
			_, reentrantErr = fx.router.Sell(testTrader, testSellPool, []uint64{9}, big.NewInt(1))
			return nil
		}

		_, err := fx.router.BuyFixed(testTrader, testBuyPool, []uint64{1}, big.NewInt(105))
		require.NoError(t, err)
		assert.ErrorIs(t, reentrantErr, ErrReentrantCall)
	})
}

// bookAs721 adapts the ownership book to the ERC721 ownership lookup.
type bookAs721 struct {
	book *nftBook
}

func (b bookAs721) OwnerOf(id uint64) (common.Address, error) {
	return b.book.ownerOf(testNFTAddr, id), nil
}

func TestSell(t *testing.T) {
	seed := func(fx *routerFixture, ids ...uint64) {
		for _, id := range ids {
			fx.book.assign(testNFTAddr, id, testTrader)
		}
	}

	t.Run("SettlesWithFeeAndCreatorEntries", func(t *testing.T) {
		fx := newRouterFixture(t)
		seed(fx, 7)

		// gross 100, 1% fee -> seller nets 99.
		received, err := fx.router.Sell(testTrader, testSellPool, []uint64{7}, big.NewInt(99))
		require.NoError(t, err)
		assert.Equal(t, int64(99), received.Int64())

		assert.Equal(t, int64(1099), fx.ledger.balance(testTrader))
		assert.Equal(t, int64(400), fx.ledger.balance(testSellPool))
		assert.Equal(t, int64(1), fx.ledger.balance(testRecipient))
		assert.Equal(t, int64(0), fx.ledger.balance(testRouter))

		// The sold token now lives with the pool's creator, and the entry says so.
		assert.Equal(t, testCreator, fx.book.ownerOf(testNFTAddr, 7))
		holder, ok := fx.allow.HolderOf(testNFTAddr, 7)
		require.True(t, ok)
		assert.Equal(t, testCreator, holder)

		require.Len(t, fx.sold, 1)
		assert.Equal(t, int64(100), fx.sold[0].Received.Int64())
	})

	t.Run("TrustedSenderScopedToSwapCall", func(t *testing.T) {
		fx := newRouterFixture(t)
		seed(fx, 7)

		sawTrusted := false
		fx.sellPool.onSellSwap = func([]uint64, *big.Int, common.Address) error {
			sawTrusted = fx.allow.IsTrustedSender(testSellPool)
			return nil
		}

		_, err := fx.router.Sell(testTrader, testSellPool, []uint64{7}, big.NewInt(99))
		require.NoError(t, err)
		assert.True(t, sawTrusted, "flag must be set during the swap")
		assert.False(t, fx.allow.IsTrustedSender(testSellPool), "flag must not survive the swap")
	})

	t.Run("FeeIsChargedOnRealizedOutput", func(t *testing.T) {
		fx := newRouterFixture(t)
		seed(fx, 7)

		// Quote says 100 but the pool realizes 90; fee = ceil(90 * 1%) = 1,
		// seller nets 89.
		fx.sellPool.sellPayout = big.NewInt(90)

		received, err := fx.router.Sell(testTrader, testSellPool, []uint64{7}, big.NewInt(80))
		require.NoError(t, err)
		assert.Equal(t, int64(89), received.Int64())
		assert.Equal(t, int64(1089), fx.ledger.balance(testTrader))
		assert.Equal(t, int64(1), fx.ledger.balance(testRecipient))
	})

	t.Run("SwapFailureReturnsNFTs", func(t *testing.T) {
		fx := newRouterFixture(t)
		seed(fx, 7)
		boom := errors.New("pool reverted")
		fx.sellPool.swapErr = boom

		_, err := fx.router.Sell(testTrader, testSellPool, []uint64{7}, big.NewInt(99))

		var swapErr *SwapError
		require.ErrorAs(t, err, &swapErr)
		assert.Equal(t, testTrader, fx.book.ownerOf(testNFTAddr, 7))
		assert.False(t, fx.allow.IsTrustedSender(testSellPool))
		assert.Equal(t, int64(1000), fx.ledger.balance(testTrader))
	})

	t.Run("Rejections", func(t *testing.T) {
		fx := newRouterFixture(t)
		seed(fx, 7)

		_, err := fx.router.Sell(testTrader, testSellPool, nil, big.NewInt(1))
		assert.ErrorIs(t, err, ErrNoIDs)

		_, err = fx.router.Sell(testTrader, testBuyPool, []uint64{7}, big.NewInt(1))
		assert.ErrorIs(t, err, ErrWrongPoolType)

		fx.factory.random[testSellPool] = true
		_, err = fx.router.Sell(testTrader, testSellPool, []uint64{7}, big.NewInt(1))
		assert.ErrorIs(t, err, ErrRandomPool)
		fx.factory.random[testSellPool] = false

		// net 99 < minOutput 150
		_, err = fx.router.Sell(testTrader, testSellPool, []uint64{7}, big.NewInt(150))
		assert.ErrorIs(t, err, ErrOutputBelowMin)

		assert.Equal(t, testTrader, fx.book.ownerOf(testNFTAddr, 7))
	})
}

func TestRandomDelegation(t *testing.T) {
	fx := newRouterFixture(t)
	fx.factory.random[testBuyPool] = true
	fx.buyPool.operator = testEngine // escrow sits with the engine

	id, err := fx.router.BuyRandom(testTrader, testBuyPool, 1, big.NewInt(102))
	require.NoError(t, err)
	assert.Equal(t, int64(898), fx.ledger.balance(testTrader))

	req, ok := fx.engine.RequestByID(id)
	require.True(t, ok)
	assert.Equal(t, randomness.StatePending, req.State)

	_, err = fx.router.ClaimRandom(testTrader)
	assert.ErrorIs(t, err, randomness.ErrNoClaimableRequest)

	fx.engine.OnRandomnessReady(id, []*big.Int{big.NewInt(4)})
	resolved, err := fx.router.ClaimRandom(testTrader)
	require.NoError(t, err)
	// 4 mod 3 = 1 -> pool ids {1,2,3} index 1 -> token 2.
	assert.Equal(t, []uint64{2}, resolved)

	err = fx.router.CancelRandom(testTrader, id)
	assert.ErrorIs(t, err, randomness.ErrNotPending)
}

func TestMigrateAllowList(t *testing.T) {
	fx := newRouterFixture(t)

	mig := &migPool{fakePool: *fx.sellPool}
	fx.pools[testSellPool] = mig

	require.NoError(t, fx.allow.SetBulk(testRouter, testNFTAddr, []uint64{1, 2, 3}, testTrader))

	newHolder := common.HexToAddress("0xBEEF")

	t.Run("AdminGated", func(t *testing.T) {
		assert.ErrorIs(t, fx.router.MigrateAllowList(testTrader, newHolder, 0, 3), ErrNotAdmin)
	})

	t.Run("ReassignsEntriesAndPayoutRecipients", func(t *testing.T) {
		require.NoError(t, fx.router.MigrateAllowList(testAdmin, newHolder, 0, 2))

		holder, _ := fx.allow.HolderOf(testNFTAddr, 1)
		assert.Equal(t, newHolder, holder)
		holder, _ = fx.allow.HolderOf(testNFTAddr, 3)
		assert.Equal(t, testTrader, holder, "entry past the page is untouched")

		assert.Equal(t, newHolder, mig.recipient)
	})

	t.Run("LaterPagesSkipPayoutUpdate", func(t *testing.T) {
		mig.recipient = common.Address{}
		require.NoError(t, fx.router.MigrateAllowList(testAdmin, newHolder, 2, 1))

		holder, _ := fx.allow.HolderOf(testNFTAddr, 3)
		assert.Equal(t, newHolder, holder)
		assert.Equal(t, common.Address{}, mig.recipient)
	})
}
