package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/internal/metrics"
	"github.com/agentfleet/controlplane/lifecycle"
	"github.com/agentfleet/controlplane/types"
)

// LifecycleHandler exposes agent deployment, update, rollback, scaling, and
// teardown over HTTP, delegating every operation to a lifecycle.Manager.
type LifecycleHandler struct {
	manager *lifecycle.Manager
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewLifecycleHandler creates a lifecycle handler. metrics may be nil.
func NewLifecycleHandler(manager *lifecycle.Manager, collector *metrics.Collector, logger *zap.Logger) *LifecycleHandler {
	return &LifecycleHandler{manager: manager, metrics: collector, logger: logger}
}

type deployRequest struct {
	Version     string            `json:"version"`
	Environment types.Environment `json:"environment"`
}

// HandleDeploy deploys a version to an agent.
//
//	POST /v1/agents/{agent_id}/deployments
func (h *LifecycleHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	var req deployRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	err := h.manager.Deploy(r.Context(), agentID, req.Version, req.Environment)
	h.recordOperation("deploy", err)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	dep, _ := h.manager.CurrentDeployment(agentID)
	WriteCreated(w, dep)
}

type updateRequest struct {
	Version string `json:"version"`
}

// HandleUpdate pushes a new version to an already-running agent.
//
//	PUT /v1/agents/{agent_id}/version
func (h *LifecycleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	var req updateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	err := h.manager.Update(r.Context(), agentID, req.Version)
	h.recordOperation("update", err)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	dep, _ := h.manager.CurrentDeployment(agentID)
	WriteSuccess(w, dep)
}

type rollbackRequest struct {
	TargetVersion string `json:"target_version"`
	Reason        string `json:"reason,omitempty"`
}

// HandleRollback reverts an agent to a prior version.
//
//	POST /v1/agents/{agent_id}/rollbacks
func (h *LifecycleHandler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	var req rollbackRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	err := h.manager.Rollback(r.Context(), agentID, req.TargetVersion, req.Reason)
	h.recordOperation("rollback", err)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]string{"agent_id": string(agentID), "state": string(h.manager.State(agentID))})
}

type scaleRequest struct {
	Instances int `json:"instances"`
}

// HandleScale adjusts an agent's instance count.
//
//	POST /v1/agents/{agent_id}/scale
func (h *LifecycleHandler) HandleScale(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	var req scaleRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	err := h.manager.Scale(r.Context(), agentID, req.Instances)
	h.recordOperation("scale", err)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]string{"agent_id": string(agentID), "state": string(h.manager.State(agentID))})
}

// HandleStop stops a running agent.
//
//	POST /v1/agents/{agent_id}/stop
func (h *LifecycleHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	err := h.manager.Stop(r.Context(), agentID)
	h.recordOperation("stop", err)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]string{"agent_id": string(agentID), "state": string(h.manager.State(agentID))})
}

// HandleDeregister stops (if needed) and deregisters an agent's lifecycle
// state, purging its transition log, deployments, and rollbacks.
//
//	DELETE /v1/agents/{agent_id}/lifecycle
func (h *LifecycleHandler) HandleDeregister(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	err := h.manager.Deregister(r.Context(), agentID)
	h.recordOperation("deregister", err)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]string{"agent_id": string(agentID)})
}

// HandleState returns an agent's current lifecycle state.
//
//	GET /v1/agents/{agent_id}/state
func (h *LifecycleHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])
	WriteSuccess(w, map[string]types.LifecycleState{"state": h.manager.State(agentID)})
}

// HandleTransitions returns an agent's append-only transition log.
//
//	GET /v1/agents/{agent_id}/transitions
func (h *LifecycleHandler) HandleTransitions(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])
	WriteSuccess(w, h.manager.Transitions(agentID))
}

func (h *LifecycleHandler) recordOperation(operation string, err error) {
	if h.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	h.metrics.RecordLifecycleOperation(operation, result)
}
