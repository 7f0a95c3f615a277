package health

import (
	"sync"

	"github.com/agentfleet/controlplane/types"
)

const historyCapacity = 100

// historyStore keeps a bounded, per-agent FIFO of probe results.
type historyStore struct {
	mu      sync.RWMutex
	byAgent map[types.AgentID][]Result
}

func newHistoryStore() *historyStore {
	return &historyStore{byAgent: make(map[types.AgentID][]Result)}
}

// append adds r to the agent's history, dropping the oldest entry once the
// buffer holds historyCapacity results.
func (h *historyStore) append(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.byAgent[r.AgentID]
	entries = append(entries, r)
	if len(entries) > historyCapacity {
		entries = entries[len(entries)-historyCapacity:]
	}
	h.byAgent[r.AgentID] = entries
}

// get returns the newest-last history for agentID, trimmed to the last
// limit entries when limit > 0.
func (h *historyStore) get(agentID types.AgentID, limit int) []Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.byAgent[agentID]
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	out := make([]Result, len(entries))
	copy(out, entries)
	return out
}

// Stats summarizes an agent's probe history.
type Stats struct {
	TotalChecks           int
	SuccessfulChecks      int
	FailedChecks          int
	AverageResponseTimeMS float64
	Uptime                float64
	LastCheck             *Result
}

func (h *historyStore) statistics(agentID types.AgentID) Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.byAgent[agentID]
	var stats Stats
	if len(entries) == 0 {
		return stats
	}

	var totalMS float64
	for _, r := range entries {
		stats.TotalChecks++
		switch r.Status {
		case types.HealthHealthy:
			stats.SuccessfulChecks++
		case types.HealthUnhealthy:
			stats.FailedChecks++
		}
		totalMS += float64(r.ResponseTime.Milliseconds())
	}
	stats.AverageResponseTimeMS = totalMS / float64(len(entries))
	stats.Uptime = float64(stats.SuccessfulChecks) / float64(stats.TotalChecks)
	last := entries[len(entries)-1]
	stats.LastCheck = &last
	return stats
}
