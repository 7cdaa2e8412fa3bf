package httpapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, healthResponse{Status: "ok", Time: time.Now()})
}
