package discovery

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/types"
)

// Registry is the authoritative in-memory index of agents: their records,
// health, and the tag/namespace/capability indices used for discovery.
type Registry struct {
	mu sync.RWMutex

	agents      map[types.AgentID]*types.AgentRecord
	byTag       map[string]map[types.AgentID]struct{}
	byNamespace map[string]map[types.AgentID]struct{}

	capabilities *capability.Registry
	logger       *zap.Logger
}

// New creates an empty discovery registry backed by caps for
// capability-driven lookups.
func New(caps *capability.Registry, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caps == nil {
		caps = capability.New(logger)
	}
	return &Registry{
		agents:       make(map[types.AgentID]*types.AgentRecord),
		byTag:        make(map[string]map[types.AgentID]struct{}),
		byNamespace:  make(map[string]map[types.AgentID]struct{}),
		capabilities: caps,
		logger:       logger.With(zap.String("component", "discovery_registry")),
	}
}

// Register stores a new agent record and indexes its declared
// capabilities, tags, and namespace. Returns ErrRegistrationConflict if the
// agent id already exists.
func (r *Registry) Register(agent *types.AgentRecord) error {
	if agent == nil || agent.AgentID == "" {
		return types.NewError(types.ErrInvalidRegistration, "agent record or agent id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agent.AgentID]; exists {
		return types.Newf(types.ErrRegistrationConflict, "agent %q is already registered", agent.AgentID)
	}

	r.agents[agent.AgentID] = agent
	r.indexAgent(agent)

	for _, cap := range agent.Metadata.Capabilities {
		r.capabilities.Register(agent.AgentID, cap)
	}

	r.logger.Info("agent registered",
		zap.String("agent_id", string(agent.AgentID)),
		zap.Int("capabilities", len(agent.Metadata.Capabilities)),
	)
	return nil
}

func (r *Registry) indexAgent(agent *types.AgentRecord) {
	for _, tag := range agent.Metadata.Tags {
		if r.byTag[tag] == nil {
			r.byTag[tag] = make(map[types.AgentID]struct{})
		}
		r.byTag[tag][agent.AgentID] = struct{}{}
	}
	ns := agent.Policy.Isolation.Namespace
	if ns != "" {
		if r.byNamespace[ns] == nil {
			r.byNamespace[ns] = make(map[types.AgentID]struct{})
		}
		r.byNamespace[ns][agent.AgentID] = struct{}{}
	}
}

func (r *Registry) unindexAgent(agent *types.AgentRecord) {
	for _, tag := range agent.Metadata.Tags {
		delete(r.byTag[tag], agent.AgentID)
	}
	ns := agent.Policy.Isolation.Namespace
	delete(r.byNamespace[ns], agent.AgentID)
}

// Deregister removes an agent from the map and every index. Returns
// ErrAgentNotFound if the id is unknown.
func (r *Registry) Deregister(agentID types.AgentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, exists := r.agents[agentID]
	if !exists {
		return types.Newf(types.ErrAgentNotFound, "agent %q not found", agentID)
	}

	r.unindexAgent(agent)
	delete(r.agents, agentID)
	r.capabilities.Deregister(agentID)

	r.logger.Info("agent deregistered", zap.String("agent_id", string(agentID)))
	return nil
}

// Get returns a clone of the agent record, or false if unknown.
func (r *Registry) Get(agentID types.AgentID) (*types.AgentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return nil, false
	}
	return agent.Clone(), true
}

// All returns a clone of every registered agent record.
func (r *Registry) All() []*types.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.AgentRecord, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, agent.Clone())
	}
	return out
}

// UpdateHealth atomically replaces the health block of agentID and bumps
// its updated_at timestamp. Returns ErrAgentNotFound if the id is unknown.
func (r *Registry) UpdateHealth(agentID types.AgentID, health types.Health) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, exists := r.agents[agentID]
	if !exists {
		return types.Newf(types.ErrAgentNotFound, "agent %q not found", agentID)
	}

	agent.Health = health
	agent.Metadata.UpdatedAt = time.Now()
	return nil
}

// SearchByCapability returns every agent providing capabilityID, joined
// from the capability registry's provider set.
func (r *Registry) SearchByCapability(capabilityID string) ([]*types.AgentRecord, int) {
	providers := r.capabilities.ProvidersOf(capabilityID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.AgentRecord, 0, len(providers))
	for id := range providers {
		if agent, ok := r.agents[id]; ok {
			out = append(out, agent.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, len(out)
}

// DiscoverQuery filters the Discover operation. All non-zero filters
// combine with AND.
type DiscoverQuery struct {
	Capabilities []string
	Tags         []string
	Namespace    string
	Status       types.HealthStatus
	Limit        int
	Offset       int
}

// Discover filters agents by capability/tag/namespace/status, sorts by
// health status (healthy > degraded > unknown > unhealthy), then
// load-balancing weight descending, then id ascending, and paginates after
// sorting.
func (r *Registry) Discover(q DiscoverQuery) ([]*types.AgentRecord, int) {
	var capSets []map[types.AgentID]struct{}
	for _, cid := range q.Capabilities {
		capSets = append(capSets, r.capabilities.ProvidersOf(cid))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidate map[types.AgentID]struct{}
	if len(capSets) > 0 || q.Namespace != "" || len(q.Tags) > 0 {
		sets := append([]map[types.AgentID]struct{}{}, capSets...)
		if q.Namespace != "" {
			sets = append(sets, r.byNamespace[q.Namespace])
		}
		for _, tag := range q.Tags {
			sets = append(sets, r.byTag[tag])
		}
		candidate = intersectAll(sets)
	}

	matches := make([]*types.AgentRecord, 0, len(r.agents))
	for id, agent := range r.agents {
		if candidate != nil {
			if _, ok := candidate[id]; !ok {
				continue
			}
		}
		if q.Status != "" && agent.Health.Status != q.Status {
			continue
		}
		matches = append(matches, agent)
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if ra, rb := types.HealthRank(a.Health.Status), types.HealthRank(b.Health.Status); ra != rb {
			return ra > rb
		}
		if a.Policy.LoadBalancing.Weight != b.Policy.LoadBalancing.Weight {
			return a.Policy.LoadBalancing.Weight > b.Policy.LoadBalancing.Weight
		}
		return a.AgentID < b.AgentID
	})

	total := len(matches)
	out := make([]*types.AgentRecord, 0, len(matches))
	for i, m := range matches {
		if i < q.Offset {
			continue
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		out = append(out, m.Clone())
	}
	return out, total
}

func intersectAll(sets []map[types.AgentID]struct{}) map[types.AgentID]struct{} {
	if len(sets) == 0 {
		return nil
	}
	result := make(map[types.AgentID]struct{}, len(sets[0]))
	for id := range sets[0] {
		result[id] = struct{}{}
	}
	for _, s := range sets[1:] {
		for id := range result {
			if _, ok := s[id]; !ok {
				delete(result, id)
			}
		}
	}
	return result
}

// Statistics is the fleet-wide snapshot returned by Registry.Statistics.
type Statistics struct {
	Total             int
	Healthy           int
	Degraded          int
	Unhealthy         int
	Unknown           int
	ByNamespace       map[string]int
	ByCapabilityCount map[int]int
}

// Statistics aggregates counts across the whole registry.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		ByNamespace:       make(map[string]int),
		ByCapabilityCount: make(map[int]int),
	}
	for _, agent := range r.agents {
		stats.Total++
		switch agent.Health.Status {
		case types.HealthHealthy:
			stats.Healthy++
		case types.HealthDegraded:
			stats.Degraded++
		case types.HealthUnhealthy:
			stats.Unhealthy++
		default:
			stats.Unknown++
		}
		stats.ByNamespace[agent.Policy.Isolation.Namespace]++
		stats.ByCapabilityCount[len(agent.Metadata.Capabilities)]++
	}
	return stats
}

// Capabilities exposes the backing capability registry for components (the
// scheduler, the HTTP API) that need capability-level search without going
// through the agent-joined SearchByCapability path.
func (r *Registry) Capabilities() *capability.Registry {
	return r.capabilities
}
