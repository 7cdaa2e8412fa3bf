package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/solana-zh/lp-engine/internal/aggregator"
	"github.com/solana-zh/lp-engine/internal/notify"
	"github.com/solana-zh/lp-engine/internal/oracle"
	"github.com/solana-zh/lp-engine/internal/pipeline"
	"github.com/solana-zh/lp-engine/internal/position"
	"github.com/solana-zh/lp-engine/internal/scheduler"
	"github.com/solana-zh/lp-engine/internal/store"
	"github.com/solana-zh/lp-engine/internal/venue"
	"github.com/solana-zh/lp-engine/pkg/sol"
)

// Server wires every engine component the external HTTP surface (spec §6)
// needs into handler scope. cmd/lpengine/main.go constructs exactly one of
// these at startup and hands it to NewRouter.
type Server struct {
	Composer   *pipeline.Composer
	Registry   venue.Registry
	Indexer    *position.Indexer
	Aggregator *aggregator.Aggregator
	Oracle     *oracle.Aggregator
	Store      *store.Store
	Fanout     *notify.Fanout
	Monitor    *scheduler.Monitor
	Client     *sol.Client
	Logger     *zap.Logger
}

// NewRouter mounts every SPEC_FULL.md §6 endpoint on a chi.Router, following
// the retrieval pack's gateway router idiom: a middleware chain followed by
// grouped r.Route blocks, one per resource.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(recoverer(s.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", s.handleCreateWallet)
		r.Get("/{walletId}", s.handleGetWallet)
		r.Get("/{walletId}/balance", s.handleWalletBalance)
	})

	r.Route("/pools", func(r chi.Router) {
		r.Get("/", s.handleListPools)
		r.Get("/best", s.handleBestPool)
		r.Get("/{address}", s.handleGetPool)
	})

	r.Route("/lp", func(r chi.Router) {
		r.Post("/open", s.handleOpenPreview)
		r.Post("/open/execute", s.handleOpenExecute)
		r.Post("/withdraw", s.handleWithdraw)
		r.Post("/rebalance", s.handleRebalance)
		r.Post("/collect-fees", s.handleCollectFees)
	})

	r.Get("/positions/{walletId}", s.handleListPositions)

	r.Route("/oracle", func(r chi.Router) {
		r.Get("/price/{mint}", s.handleOraclePrice)
		r.Post("/prices", s.handleOraclePrices)
	})

	r.Route("/dca", func(r chi.Router) {
		r.Post("/", s.handleCreateSchedule)
		r.Get("/{walletId}", s.handleListSchedulesForWallet)
		r.Post("/{id}/pause", s.handlePauseSchedule)
		r.Post("/{id}/resume", s.handleResumeSchedule)
		r.Post("/{id}/cancel", s.handleCancelSchedule)
		r.Get("/{id}/history", s.handleScheduleHistory)
	})

	r.Route("/notifications/recipients", func(r chi.Router) {
		r.Post("/", s.handleCreateRecipient)
		r.Patch("/{walletId}", s.handleUpdateRecipient)
	})

	r.Route("/worker", func(r chi.Router) {
		r.Get("/status", s.handleWorkerStatus)
		r.Post("/check", s.handleWorkerCheck)
	})

	return r
}
