// Command lpengine is the LP execution and orchestration engine's process
// entrypoint: it wires every component (C1-C11) from internal/config and
// starts the HTTP API (§6) alongside the scheduler/monitor (C8) goroutine,
// generalizing the teacher's single-shot swap script into a long-running
// service.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/aggregator"
	"github.com/solana-zh/lp-engine/internal/budget"
	"github.com/solana-zh/lp-engine/internal/config"
	"github.com/solana-zh/lp-engine/internal/custody"
	"github.com/solana-zh/lp-engine/internal/httpapi"
	"github.com/solana-zh/lp-engine/internal/logging"
	"github.com/solana-zh/lp-engine/internal/notify"
	"github.com/solana-zh/lp-engine/internal/oracle"
	"github.com/solana-zh/lp-engine/internal/pipeline"
	"github.com/solana-zh/lp-engine/internal/position"
	"github.com/solana-zh/lp-engine/internal/scheduler"
	"github.com/solana-zh/lp-engine/internal/seal"
	"github.com/solana-zh/lp-engine/internal/store"
	"github.com/solana-zh/lp-engine/internal/submission"
	"github.com/solana-zh/lp-engine/internal/swaprouter"
	"github.com/solana-zh/lp-engine/internal/venue"
	"github.com/solana-zh/lp-engine/internal/venue/clmm"
	"github.com/solana-zh/lp-engine/internal/venue/dlmm"
	"github.com/solana-zh/lp-engine/internal/venue/whirlpool"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	client, err := sol.NewClient(ctx, cfg.RPCEndpoint, cfg.JitoEndpoint, cfg.RPCRateLimit)
	if err != nil {
		logger.Fatal("connect solana client", zap.Error(err))
	}

	registry := venue.Registry{
		venue.DLMM:      dlmm.New(client),
		venue.WHIRLPOOL: whirlpool.New(client),
		venue.CLMM:      clmm.New(client),
	}
	listers := map[venue.Venue]venue.Lister{
		venue.DLMM:      dlmm.New(client),
		venue.WHIRLPOOL: whirlpool.New(client),
		venue.CLMM:      clmm.New(client),
	}

	agg := aggregator.New(listers)
	oracleAgg := oracle.New(oracle.NewPythSource(nil), oracle.NewSpotSource(nil))
	estimator := budget.New(client)
	indexer := position.New(registry)

	router := swaprouter.NewBreakerRouter(swaprouter.NewJupiterRouter())
	relay := submission.NewJitoRelay(client)

	devKeys := make([]solana.PrivateKey, 0, len(cfg.DevSignerKeys))
	for _, k := range cfg.DevSignerKeys {
		key, err := solana.PrivateKeyFromBase58(k)
		if err != nil {
			logger.Fatal("parse LP_DEV_SIGNER_KEYS entry", zap.Error(err))
		}
		devKeys = append(devKeys, key)
	}
	signer := custody.NewLocalSigner(client, devKeys)

	driver := submission.New(client, relay, signer)

	sealer, err := seal.New("mainnet-beta")
	if err != nil {
		logger.Fatal("build sealer", zap.Error(err))
	}
	if err := sealer.SelfTest(); err != nil {
		logger.Fatal("sealer self-test", zap.Error(err))
	}

	st := store.New(cfg.RedisURL, logger)

	var treasury, tipAccount solana.PublicKey
	if cfg.TreasuryAddress != "" {
		treasury, err = solana.PublicKeyFromBase58(cfg.TreasuryAddress)
		if err != nil {
			logger.Fatal("parse LP_TREASURY_ADDRESS", zap.Error(err))
		}
	}
	if cfg.TipAccount != "" {
		tipAccount, err = solana.PublicKeyFromBase58(cfg.TipAccount)
		if err != nil {
			logger.Fatal("parse LP_TIP_ACCOUNT", zap.Error(err))
		}
	}

	composer := pipeline.New(registry, oracleAgg, estimator, router, driver, signer, sealer, indexer, client, treasury, tipAccount, cfg.ProtocolFeeBps)

	fanout := notify.New(st, cfg.ChatAPIBase, logger)
	monitor := scheduler.New(st, registry, fanout, composer, cfg.MonitorTickInterval, logger)
	go monitor.Run(ctx)

	server := &httpapi.Server{
		Composer:   composer,
		Registry:   registry,
		Indexer:    indexer,
		Aggregator: agg,
		Oracle:     oracleAgg,
		Store:      st,
		Fanout:     fanout,
		Monitor:    monitor,
		Client:     client,
		Logger:     logger,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
