package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/insightdesk/internal/core"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Ingest *core.LimiterStatus `json:"ingest,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.deps.Ingest != nil {
		if l := s.deps.Ingest.Limiter(); l != nil {
			st := l.Status()
			resp.Ingest = &st
		}
	}

	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Error = err.Error()
			writeJSONStatus(w, r, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, r, resp)
}
