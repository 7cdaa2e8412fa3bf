package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/solana-zh/lp-engine/internal/errs"
	"github.com/solana-zh/lp-engine/internal/store"
)

type createScheduleRequest struct {
	WalletID       string `json:"walletId"`
	Venue          string `json:"venue"`
	Pool           string `json:"pool"`
	CollateralMint string `json:"collateralMint"`
	AmountPerTick  uint64 `json:"amountPerTick"`
	TotalBudget    uint64 `json:"totalBudget"`
	TickInterval   string `json:"tickInterval"`
	MaxExecutions  int    `json:"maxExecutions"`
	RangeShape     string `json:"rangeShape"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var body createScheduleRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.WalletID == "" || body.Pool == "" || body.CollateralMint == "" {
		writeError(w, r, errs.New(errs.Validation, "walletId, pool, and collateralMint are required"))
		return
	}
	if body.AmountPerTick == 0 || body.TotalBudget == 0 {
		writeError(w, r, errs.New(errs.Validation, "amountPerTick and totalBudget must be positive"))
		return
	}
	interval, err := time.ParseDuration(body.TickInterval)
	if err != nil {
		writeError(w, r, errs.New(errs.Validation, "tickInterval must be a Go duration string, e.g. \"24h\""))
		return
	}

	sched := store.Schedule{
		ID:             uuid.NewString(),
		WalletID:       body.WalletID,
		Venue:          body.Venue,
		Pool:           body.Pool,
		CollateralMint: body.CollateralMint,
		AmountPerTick:  body.AmountPerTick,
		TotalBudget:    body.TotalBudget,
		TickInterval:   interval,
		NextTick:       time.Now(),
		MaxExecutions:  body.MaxExecutions,
		RangeShape:     body.RangeShape,
		Status:         store.ScheduleActive,
	}
	if err := s.Store.SaveSchedule(r.Context(), sched); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, sched)
}

func (s *Server) handleListSchedulesForWallet(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "walletId")
	scheds, err := s.Store.ListSchedulesForWallet(r.Context(), walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, scheds)
}

func (s *Server) transitionSchedule(w http.ResponseWriter, r *http.Request, to store.ScheduleStatus, allowedFrom ...store.ScheduleStatus) {
	id := chi.URLParam(r, "id")
	sched, ok, err := s.Store.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, errs.New(errs.NotFound, "schedule not found"))
		return
	}

	permitted := false
	for _, from := range allowedFrom {
		if sched.Status == from {
			permitted = true
			break
		}
	}
	if !permitted {
		writeError(w, r, errs.New(errs.Validation, "schedule is not in a state that permits this transition"))
		return
	}

	sched.Status = to
	if err := s.Store.SaveSchedule(r.Context(), *sched); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sched)
}

func (s *Server) handlePauseSchedule(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, store.SchedulePaused, store.ScheduleActive)
}

func (s *Server) handleResumeSchedule(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, store.ScheduleActive, store.SchedulePaused)
}

func (s *Server) handleCancelSchedule(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, store.ScheduleCancelled, store.ScheduleActive, store.SchedulePaused)
}

func (s *Server) handleScheduleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hist, err := s.Store.GetHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, hist)
}
