package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/internal/pool"
	"github.com/agentfleet/controlplane/internal/tlsutil"
	"github.com/agentfleet/controlplane/types"
)

// agentTimer owns one agent's ticker goroutine and the mutex that
// serializes its probes: a tick that fires while the previous probe is
// still in flight is skipped rather than queued.
type agentTimer struct {
	cancel  context.CancelFunc
	probeMu sync.Mutex
}

// Checker is the long-running per-agent health supervisor.
type Checker struct {
	discovery *discovery.Registry
	bus       *events.Bus
	logger    *zap.Logger

	httpClient *http.Client

	cfgMu sync.RWMutex
	cfg   Config

	timersMu sync.Mutex
	timers   map[types.AgentID]*agentTimer

	history *historyStore

	running atomic.Bool

	probePool *pool.GoroutinePool
}

// NewChecker wires a checker against a discovery registry and event bus.
func NewChecker(reg *discovery.Registry, bus *events.Bus, logger *zap.Logger, cfg Config) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Checker{
		discovery:  reg,
		bus:        bus,
		logger:     logger.With(zap.String("component", "health_checker")),
		httpClient: tlsutil.SecureHTTPClient(cfg.Timeout),
		cfg:        cfg,
		timers:     make(map[types.AgentID]*agentTimer),
		history:    newHistoryStore(),
		probePool:  pool.NewGoroutinePool(pool.DefaultGoroutinePoolConfig()),
	}
}

func (c *Checker) configSnapshot() Config {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// UpdateConfig merges partial into the live configuration. Already-armed
// timers are not re-armed: they keep the interval they were armed with, and
// a new interval applies only to timers armed afterwards by Start or
// StartAll. The other fields take effect from each timer's next probe.
func (c *Checker) UpdateConfig(partial Config) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	c.cfg = c.cfg.Merge(partial)
}

// Start arms a periodic probe timer for agentID. Calling Start again for
// an already-monitored agent cancels and replaces its timer.
func (c *Checker) Start(agentID types.AgentID) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	c.startLocked(agentID)
}

func (c *Checker) startLocked(agentID types.AgentID) {
	if existing, ok := c.timers[agentID]; ok {
		existing.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	timer := &agentTimer{cancel: cancel}
	c.timers[agentID] = timer

	go c.run(ctx, agentID, timer)
}

// Stop cancels agentID's timer. Stopping an unmonitored agent is a no-op.
func (c *Checker) Stop(agentID types.AgentID) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if timer, ok := c.timers[agentID]; ok {
		timer.cancel()
		delete(c.timers, agentID)
	}
}

// StartAll enumerates the discovery registry and arms a timer for every
// known agent.
func (c *Checker) StartAll() {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()

	c.running.Store(true)
	for _, agent := range c.discovery.All() {
		c.startLocked(agent.AgentID)
	}
}

// StopAll cancels every armed timer and clears the running flag. It is a
// no-op unless StartAll has run since the last StopAll; timers armed only
// through Start are then left running.
func (c *Checker) StopAll() {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()

	if !c.running.CompareAndSwap(true, false) {
		return
	}
	for id, timer := range c.timers {
		timer.cancel()
		delete(c.timers, id)
	}
}

// run is the per-agent ticker loop. Each tick attempts to acquire the
// agent's probe mutex without blocking; a tick that arrives while the
// previous probe is still running is dropped.
func (c *Checker) run(ctx context.Context, agentID types.AgentID, timer *agentTimer) {
	ticker := time.NewTicker(c.configSnapshot().Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !timer.probeMu.TryLock() {
				continue
			}
			c.PerformCheck(ctx, agentID)
			timer.probeMu.Unlock()
		}
	}
}

// PerformCheck runs the probe algorithm against agentID once, records the
// result in history, emits the event sequence, and pushes the outcome back
// into the discovery registry. It can be called directly for an on-demand
// check outside the ticker loop.
func (c *Checker) PerformCheck(ctx context.Context, agentID types.AgentID) Result {
	agent, ok := c.discovery.Get(agentID)
	if !ok {
		return Result{AgentID: agentID, Status: types.HealthUnknown, Timestamp: time.Now(), Error: "Agent not found"}
	}

	cfg := c.configSnapshot()
	endpoint := agent.Endpoint.URL + cfg.EndpointPath

	result := c.probe(ctx, agentID, endpoint, cfg)
	c.history.append(result)

	previous := agent.Health.Status
	c.pushHealth(agent, previous, result)
	c.emit(agent, previous, result)

	return result
}

func (c *Checker) emit(agent *types.AgentRecord, previous types.HealthStatus, result Result) {
	now := time.Now()

	c.bus.Emit(events.Event{
		Type: events.HealthCheckCompleted, AgentID: agent.AgentID, Timestamp: now,
		Data: result,
	})

	if result.Status != previous {
		c.bus.Emit(events.Event{
			Type: events.HealthStatusChanged, AgentID: agent.AgentID, Timestamp: now,
			Data: map[string]types.HealthStatus{"previous": previous, "current": result.Status},
		})
	}

	if result.Status == types.HealthUnhealthy {
		c.bus.Emit(events.Event{Type: events.AgentUnhealthy, AgentID: agent.AgentID, Timestamp: now, Data: result})
	}

	if previous == types.HealthUnhealthy && result.Status == types.HealthHealthy {
		c.bus.Emit(events.Event{Type: events.AgentRecovered, AgentID: agent.AgentID, Timestamp: now, Data: result})
	}
}

func (c *Checker) pushHealth(agent *types.AgentRecord, previous types.HealthStatus, result Result) {
	errorCount := agent.Health.ErrorCount
	switch result.Status {
	case types.HealthHealthy:
		errorCount = 0
	case types.HealthUnhealthy, types.HealthDegraded:
		errorCount = agent.Health.ErrorCount + 1
	}

	health := agent.Health
	health.Status = result.Status
	health.LastResponseTimeMS = result.ResponseTime.Milliseconds()
	health.LastHeartbeat = result.Timestamp
	health.ErrorCount = errorCount
	if result.Details.Body != nil {
		health.ResourceUsage = resourceUsageFromBody(result.Details.Body)
		if metrics := customMetricsFromBody(result.Details.Body); metrics != nil {
			health.CustomMetrics = metrics
		}
	}

	if err := c.discovery.UpdateHealth(agent.AgentID, health); err != nil {
		c.logger.Warn("failed to push health update", zap.String("agent_id", string(agent.AgentID)), zap.Error(err))
	}
}

// CheckAllNow runs PerformCheck against every agent currently in the
// discovery registry, bounded by the probe pool's worker limit rather than
// spawning one unbounded goroutine per agent. It blocks until every probe
// has completed and returns the results keyed by agent ID.
func (c *Checker) CheckAllNow(ctx context.Context) map[types.AgentID]Result {
	agents := c.discovery.All()

	var mu sync.Mutex
	results := make(map[types.AgentID]Result, len(agents))

	var wg sync.WaitGroup
	wg.Add(len(agents))
	for _, agent := range agents {
		agentID := agent.AgentID
		err := c.probePool.Submit(ctx, func(ctx context.Context) error {
			defer wg.Done()
			result := c.PerformCheck(ctx, agentID)
			mu.Lock()
			results[agentID] = result
			mu.Unlock()
			return nil
		})
		if err != nil {
			wg.Done()
			c.logger.Warn("failed to submit probe to pool", zap.String("agent_id", string(agentID)), zap.Error(err))
		}
	}
	wg.Wait()

	return results
}

// Close releases the checker's probe pool. It does not stop armed ticker
// timers; call StopAll first.
func (c *Checker) Close() {
	c.probePool.Close()
}

// History returns agentID's probe history, newest-last, trimmed to the
// last limit entries when limit > 0.
func (c *Checker) History(agentID types.AgentID, limit int) []Result {
	return c.history.get(agentID, limit)
}

// Statistics summarizes agentID's probe history.
func (c *Checker) Statistics(agentID types.AgentID) Stats {
	return c.history.statistics(agentID)
}

// OnEvent subscribes fn to every event the checker emits.
func (c *Checker) OnEvent(fn events.Handler) uint64 {
	return c.bus.Subscribe(fn)
}

// OffEvent removes a subscription previously returned by OnEvent.
func (c *Checker) OffEvent(id uint64) {
	c.bus.Unsubscribe(id)
}
