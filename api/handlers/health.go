package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/health"
	"github.com/agentfleet/controlplane/types"
)

// HealthHandler exposes fleet health probing and the probe-liveness
// endpoints consumed by the control plane's own orchestrator.
type HealthHandler struct {
	checker *health.Checker
	logger  *zap.Logger
}

// NewHealthHandler creates a fleet health handler.
func NewHealthHandler(checker *health.Checker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, logger: logger}
}

// HandleLiveness answers the control plane's own liveness probe.
//
//	GET /healthz
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
}

// HandleCheckNow probes a single agent on demand and returns the result.
//
//	POST /v1/agents/{agent_id}/health/check
func (h *HealthHandler) HandleCheckNow(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])
	result := h.checker.PerformCheck(r.Context(), agentID)
	WriteSuccess(w, result)
}

// HandleCheckAll probes every registered agent concurrently and returns the
// results keyed by agent id.
//
//	POST /v1/agents/health/check
func (h *HealthHandler) HandleCheckAll(w http.ResponseWriter, r *http.Request) {
	results := h.checker.CheckAllNow(r.Context())
	WriteSuccess(w, results)
}

// HandleHistory returns an agent's recent probe history.
//
//	GET /v1/agents/{agent_id}/health/history?limit=
func (h *HealthHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	WriteSuccess(w, h.checker.History(agentID, limit))
}

// HandleStatistics returns an agent's probe statistics.
//
//	GET /v1/agents/{agent_id}/health/statistics
func (h *HealthHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])
	WriteSuccess(w, h.checker.Statistics(agentID))
}
