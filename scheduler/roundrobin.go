package scheduler

import (
	"sort"
	"sync"

	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/types"
)

// roundRobin hands out the next healthy agent for a given rotation key,
// cycling independently per key the same way the source capability matcher
// cycled per capability name.
type roundRobin struct {
	mu    sync.Mutex
	index map[string]int
}

func newRoundRobin() *roundRobin {
	return &roundRobin{index: make(map[string]int)}
}

// next returns the next healthy agent for key, or false if no healthy agent
// exists. healthyAgents must already be sorted into a stable order.
func (r *roundRobin) next(key string, healthyAgents []*types.AgentRecord) (types.AgentID, bool) {
	if len(healthyAgents) == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.index[key] % len(healthyAgents)
	r.index[key] = idx + 1
	return healthyAgents[idx].AgentID, true
}

// healthyAgents returns every agent in reg whose last observed health is
// healthy, sorted by agent id for a deterministic rotation order.
func healthyAgents(reg *discovery.Registry) []*types.AgentRecord {
	all := reg.All()
	healthy := make([]*types.AgentRecord, 0, len(all))
	for _, a := range all {
		if a.Health.Status == types.HealthHealthy {
			healthy = append(healthy, a)
		}
	}
	sort.Slice(healthy, func(i, j int) bool {
		return healthy[i].AgentID < healthy[j].AgentID
	})
	return healthy
}
