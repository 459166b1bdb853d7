package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daedboi/lssvm2-hooks/allowlist"
	"github.com/daedboi/lssvm2-hooks/cmd/settlementd/config"
	"github.com/daedboi/lssvm2-hooks/examples/market"
	"github.com/daedboi/lssvm2-hooks/fees"
	"github.com/daedboi/lssvm2-hooks/pair"
	"github.com/daedboi/lssvm2-hooks/randomness"
	"github.com/daedboi/lssvm2-hooks/router"
)

func main() {
	// create the log handler
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	close := func() {
		os.Exit(1)
	}

	rootLogger := slog.New(rootLogHandler)
	prometheusRegistry := prometheus.DefaultRegisterer
	cfg, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		close()
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feeRate, err := cfg.FeeRate()
	if err != nil {
		rootLogger.Error("Failed to parse fee rate", "error", err)
		close()
	}

	world, err := buildWorld(cfg, feeRate, rootLogger, prometheusRegistry)
	if err != nil {
		rootLogger.Error("Failed to build the settlement world", "error", err)
		close()
	}

	if err := runDemo(world, rootLogger); err != nil {
		rootLogger.Error("Demo trading session failed", "error", err)
		close()
	}

	metricsServer := &http.Server{
		Addr:    cfg.MetricsListenAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		rootLogger.Info("Serving metrics", "addr", cfg.MetricsListenAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rootLogger.Error("Metrics server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsServer.Shutdown(shutdownCtx)
}

// world bundles the wired components and the demo accounts.
type world struct {
	market  *market.Market
	factory *market.Factory
	oracle  *market.Oracle
	engine  *randomness.Engine
	router  *router.Router

	collection *market.Collection
	trader     common.Address
	creator    common.Address
}

// buildWorld assembles an in-memory marketplace and wires the settlement
// layer on top of it. The router and engine share one settlement account, so
// pools can charge a single operator for both fixed and randomized buys.
func buildWorld(cfg *config.SettlementConfig, feeRate *big.Int, logger *slog.Logger, reg prometheus.Registerer) (*world, error) {
	m := market.NewMarket()
	factory := market.NewFactory()
	oracle := market.NewOracle(cfg.OracleSeed)

	settlement := market.Account("settlement")
	admin := market.Account("admin")
	treasury := market.Account(cfg.FeeRecipient)
	creator := market.Account("creator")
	royalties := market.Account("royalties")
	trader := market.Account("alice")

	allowSystem, err := allowlist.NewSystem(settlement, settlement, nil)
	if err != nil {
		return nil, err
	}
	hook, err := allowlist.NewHook(allowSystem)
	if err != nil {
		return nil, err
	}
	feeConfig, err := fees.NewConfig(admin, treasury, feeRate)
	if err != nil {
		return nil, err
	}

	collection := m.NewCollection("punks")
	poolConfig := func(name string, poolType pair.PoolType) market.PoolConfig {
		return market.PoolConfig{
			Name:                 name,
			Collection:           collection,
			Ledger:               m.Ledger,
			Hook:                 hook,
			Type:                 poolType,
			SpotPrice:            big.NewInt(1_000_000),
			Delta:                big.NewInt(50_000),
			ProtocolCutRate:      big.NewInt(5e15), // 0.5%
			ProtocolCutRecipient: treasury,
			RoyaltyRate:          big.NewInt(5e15),
			RoyaltyRecipient:     royalties,
			AssetRecipient:       creator,
			Operator:             settlement,
		}
	}

	buyPool := factory.CreatePool(poolConfig("fixed", pair.NFTSideHolder), creator, false, 0)
	randomPool := factory.CreatePool(poolConfig("random", pair.NFTSideHolder), creator, true, 0)
	sellPool := factory.CreatePool(poolConfig("buyback", pair.TokenSideHolder), creator, false, 0)

	collection.MintBatch(buyPool.Address(), 5)
	collection.MintBatch(randomPool.Address(), 5)
	m.Ledger.Mint(sellPool.Address(), big.NewInt(100_000_000))
	m.Ledger.Mint(trader, big.NewInt(100_000_000))

	engine, err := randomness.NewEngine(&randomness.Config{
		SystemName:        cfg.SystemName,
		EngineAddress:     settlement,
		Factory:           factory,
		ResolvePool:       factory.Resolve,
		Oracle:            oracle,
		Fees:              feeConfig,
		AllowList:         allowSystem,
		TransferToken:     m.Ledger.Transfer,
		CancellationDelay: cfg.CancellationDelay,
		Logger:            logger.With("component", "randomness-engine"),
		PrometheusReg:     reg,
	})
	if err != nil {
		return nil, err
	}

	r, err := router.NewRouter(&router.Config{
		SystemName:    cfg.SystemName,
		RouterAddress: settlement,
		Admin:         admin,
		Factory:       factory,
		ResolvePool:   factory.Resolve,
		Fees:          feeConfig,
		AllowList:     allowSystem,
		Engine:        engine,
		TransferToken: m.Ledger.Transfer,
		TransferNFT:   m.TransferNFT,
		ListBuyPools:  factory.BuyPools,
		Logger:        logger.With("component", "router"),
		PrometheusReg: reg,
	})
	if err != nil {
		return nil, err
	}

	return &world{
		market:     m,
		factory:    factory,
		oracle:     oracle,
		engine:     engine,
		router:     r,
		collection: collection,
		trader:     trader,
		creator:    creator,
	}, nil
}

// runDemo drives one fixed buy, one randomized buy, and one sell through the
// settlement layer, logging the outcome of each step.
func runDemo(w *world, logger *slog.Logger) error {
	fixedPool := market.Account("pool:fixed")
	randomPool := market.Account("pool:random")
	buybackPool := market.Account("pool:buyback")

	fixedIDs := w.collection.IDsOwnedBy(fixedPool)[:2]
	spent, err := w.router.BuyFixed(w.trader, fixedPool, fixedIDs, big.NewInt(3_000_000))
	if err != nil {
		return err
	}
	logger.Info("Fixed buy settled", "tokenIds", fixedIDs, "spent", spent.String())

	requestID, err := w.router.BuyRandom(w.trader, randomPool, 1, big.NewInt(2_000_000))
	if err != nil {
		return err
	}
	w.oracle.Deliver(w.engine.OnRandomnessReady)
	resolved, err := w.router.ClaimRandom(w.trader)
	if err != nil {
		return err
	}
	logger.Info("Random buy claimed", "requestId", requestID, "tokenIds", resolved)

	received, err := w.router.Sell(w.trader, buybackPool, fixedIDs[:1], big.NewInt(0))
	if err != nil {
		return err
	}
	logger.Info("Sell settled", "tokenIds", fixedIDs[:1], "received", received.String())

	logger.Info("Demo session complete",
		"traderBalance", w.market.Ledger.BalanceOf(w.trader).String(),
		"creatorHoldings", len(w.collection.IDsOwnedBy(w.creator)))
	return nil
}

func loadConfig() (*config.SettlementConfig, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.LoadConfig(*configPath)
}
