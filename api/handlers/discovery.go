package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/api"
	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/types"
)

// DiscoveryHandler exposes agent lookup, fleet-wide discovery, and
// capability search over HTTP.
type DiscoveryHandler struct {
	discovery *discovery.Registry
	logger    *zap.Logger
}

// NewDiscoveryHandler creates a discovery handler.
func NewDiscoveryHandler(reg *discovery.Registry, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: reg, logger: logger}
}

// HandleGetAgent returns a single agent record.
//
//	GET /v1/agents/{agent_id}
func (h *DiscoveryHandler) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := types.AgentID(mux.Vars(r)["agent_id"])
	agent, ok := h.discovery.Get(agentID)
	if !ok {
		WriteErrorMessage(w, types.ErrAgentNotFound, "agent not found: "+string(agentID), h.logger)
		return
	}
	WriteSuccess(w, agent)
}

// HandleDiscover filters agents by capability/tag/namespace/status.
//
//	GET /v1/agents?capability=...&tag=...&namespace=...&status=...&limit=&offset=
func (h *DiscoveryHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := ParsePageParams(r)

	query := discovery.DiscoverQuery{
		Capabilities: q["capability"],
		Tags:         q["tag"],
		Namespace:    q.Get("namespace"),
		Status:       types.HealthStatus(q.Get("status")),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}

	agents, total := h.discovery.Discover(query)
	WriteSuccess(w, api.Page{Items: agents, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// HandleStatistics returns a fleet-wide summary of agent counts.
//
//	GET /v1/agents/statistics
func (h *DiscoveryHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.discovery.Statistics())
}

// HandleSearchByCapability returns every agent providing a given capability id.
//
//	GET /v1/capabilities/{capability_id}/agents
func (h *DiscoveryHandler) HandleSearchByCapability(w http.ResponseWriter, r *http.Request) {
	capabilityID := mux.Vars(r)["capability_id"]
	agents, total := h.discovery.SearchByCapability(capabilityID)
	WriteSuccess(w, api.Page{Items: agents, Total: total})
}

// CapabilityHandler exposes the capability registry's search operation
// directly, independent of any particular agent.
type CapabilityHandler struct {
	capabilities *capability.Registry
	logger       *zap.Logger
}

// NewCapabilityHandler creates a capability search handler.
func NewCapabilityHandler(caps *capability.Registry, logger *zap.Logger) *CapabilityHandler {
	return &CapabilityHandler{capabilities: caps, logger: logger}
}

// HandleSearch filters capabilities by category/tag/free-text query.
//
//	GET /v1/capabilities?category=...&tag=...&q=...&limit=&offset=
func (h *CapabilityHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := ParsePageParams(r)

	result := h.capabilities.Search(capability.SearchQuery{
		Category: q.Get("category"),
		Tags:     q["tag"],
		Query:    q.Get("q"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})

	WriteSuccess(w, api.Page{Items: result.Capabilities, Total: result.Total, Limit: page.Limit, Offset: page.Offset})
}

// HandleGetCapability returns the versioned record for a single capability id.
//
//	GET /v1/capabilities/{capability_id}
func (h *CapabilityHandler) HandleGetCapability(w http.ResponseWriter, r *http.Request) {
	capabilityID := mux.Vars(r)["capability_id"]
	record, ok := h.capabilities.Get(capabilityID)
	if !ok {
		WriteErrorMessage(w, types.ErrCapabilityNotFound, "capability not found: "+capabilityID, h.logger)
		return
	}
	WriteSuccess(w, record)
}
