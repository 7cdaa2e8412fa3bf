package httpapi

import (
	"net/http"

	"github.com/solana-zh/lp-engine/internal/store"
)

func (s *Server) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.Store.GetWorkerState(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if state == nil {
		state = &store.WorkerState{}
	}
	writeData(w, r, http.StatusOK, state)
}

// handleWorkerCheck runs one monitor pass synchronously and reports the
// worker state as it stands right after, for operators who don't want to
// wait out the regular tick interval.
func (s *Server) handleWorkerCheck(w http.ResponseWriter, r *http.Request) {
	s.Monitor.Tick(r.Context())
	state, err := s.Store.GetWorkerState(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, state)
}
