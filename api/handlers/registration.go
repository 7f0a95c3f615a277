package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/health"
	"github.com/agentfleet/controlplane/internal/metrics"
	"github.com/agentfleet/controlplane/registration"
	"github.com/agentfleet/controlplane/types"
)

// RegistrationHandler exposes the registration protocol over HTTP: validate
// an inbound request, register the resulting agent record, start its health
// polling, and tear both down on deregistration.
type RegistrationHandler struct {
	discovery *discovery.Registry
	health    *health.Checker
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewRegistrationHandler creates a registration handler. checker and
// collector may both be nil.
func NewRegistrationHandler(reg *discovery.Registry, checker *health.Checker, collector *metrics.Collector, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{discovery: reg, health: checker, metrics: collector, logger: logger}
}

// HandleRegister validates and registers an agent.
//
//	POST /v1/agents
func (h *RegistrationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registration.Request
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	result := registration.Validate(&req)
	if !result.Valid {
		h.recordRegistration("rejected")
		WriteError(w, types.NewError(types.ErrInvalidRegistration, "registration request failed validation").WithValidationErrors(result.Errors), h.logger)
		return
	}

	record := registration.ToRecord(&req)
	if err := h.discovery.Register(record); err != nil {
		h.recordRegistration("conflict")
		WriteError(w, err, h.logger)
		return
	}

	h.recordRegistration("accepted")
	if h.health != nil {
		h.health.Start(record.AgentID)
	}
	WriteCreated(w, record)
}

// HandleDeregister removes an agent from the fleet.
//
//	DELETE /v1/agents/{agent_id}
func (h *RegistrationHandler) HandleDeregister(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])

	if err := h.discovery.Deregister(agentID); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if h.health != nil {
		h.health.Stop(agentID)
	}
	if h.metrics != nil {
		h.metrics.RecordDeregistration("requested")
	}
	WriteSuccess(w, map[string]string{"agent_id": string(agentID)})
}

func (h *RegistrationHandler) recordRegistration(result string) {
	if h.metrics != nil {
		h.metrics.RecordRegistration(result)
	}
}
