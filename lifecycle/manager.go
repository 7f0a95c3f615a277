package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/registration"
	"github.com/agentfleet/controlplane/types"
)

// Manager is the per-agent lifecycle state machine.
type Manager struct {
	cfg    Config
	hooks  Hooks
	bus    *events.Bus
	logger *zap.Logger

	locksMu sync.Mutex
	locks   map[types.AgentID]*sync.Mutex

	mu                 sync.RWMutex
	states             map[types.AgentID]types.LifecycleState
	transitionLog      map[types.AgentID][]types.LifecycleTransition
	deployments        map[string]*types.Deployment
	deploymentsByAgent map[types.AgentID][]string
	currentDeployment  map[types.AgentID]string
	rollbacks          map[string]*types.Rollback
	rollbacksByAgent   map[types.AgentID][]string
}

// NewManager creates a lifecycle manager. hooks may be the zero value;
// every unset hook behaves as an immediate no-op success.
func NewManager(bus *events.Bus, logger *zap.Logger, cfg Config, hooks Hooks) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Manager{
		cfg:                cfg,
		hooks:              hooks,
		bus:                bus,
		logger:             logger.With(zap.String("component", "lifecycle_manager")),
		locks:              make(map[types.AgentID]*sync.Mutex),
		states:             make(map[types.AgentID]types.LifecycleState),
		transitionLog:      make(map[types.AgentID][]types.LifecycleTransition),
		deployments:        make(map[string]*types.Deployment),
		deploymentsByAgent: make(map[types.AgentID][]string),
		currentDeployment:  make(map[types.AgentID]string),
		rollbacks:          make(map[string]*types.Rollback),
		rollbacksByAgent:   make(map[types.AgentID][]string),
	}
}

// lockFor returns (creating if needed) the mutex serializing operations on
// a single agent. Concurrent transition attempts on the same agent are
// resolved by whichever caller acquires this lock first; the loser
// observes the new state and either fails with ErrInvalidLifecycleTransition
// or proceeds against it.
func (m *Manager) lockFor(agentID types.AgentID) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.locks[agentID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[agentID] = lock
	}
	return lock
}

func (m *Manager) stateOf(agentID types.AgentID) types.LifecycleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[agentID]
	if !ok {
		return types.StateInitializing
	}
	return state
}

// transition moves agentID from its current state to to, recording a
// LifecycleTransition. Returns ErrInvalidLifecycleTransition if the move
// is not permitted by the transition table. Callers must hold the
// per-agent lock.
func (m *Manager) transition(agentID types.AgentID, to types.LifecycleState, reason string) error {
	m.mu.Lock()
	from, ok := m.states[agentID]
	if !ok {
		from = types.StateInitializing
	}
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return types.Newf(types.ErrInvalidLifecycleTransition, "agent %q: %s -> %s is not a valid transition", agentID, from, to)
	}

	now := time.Now()
	m.states[agentID] = to
	m.transitionLog[agentID] = append(m.transitionLog[agentID], types.LifecycleTransition{
		From: from, To: to, Timestamp: now, Reason: reason,
	})
	m.mu.Unlock()

	m.bus.Emit(events.Event{
		Type: events.StateChanged, AgentID: agentID, Timestamp: now,
		Data: map[string]any{"from": from, "to": to, "reason": reason},
	})
	return nil
}

// State returns agentID's current lifecycle state.
func (m *Manager) State(agentID types.AgentID) types.LifecycleState {
	return m.stateOf(agentID)
}

// Transitions returns agentID's append-only transition log.
func (m *Manager) Transitions(agentID types.AgentID) []types.LifecycleTransition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.LifecycleTransition, len(m.transitionLog[agentID]))
	copy(out, m.transitionLog[agentID])
	return out
}

// CurrentDeployment returns agentID's active deployment record, if any.
func (m *Manager) CurrentDeployment(agentID types.AgentID) (*types.Deployment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.currentDeployment[agentID]
	if !ok {
		return nil, false
	}
	dep, ok := m.deployments[id]
	if !ok {
		return nil, false
	}
	clone := *dep
	return &clone, true
}

// Deployment looks up a deployment record by id.
func (m *Manager) Deployment(id string) (*types.Deployment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dep, ok := m.deployments[id]
	if !ok {
		return nil, false
	}
	clone := *dep
	return &clone, true
}

// RollbackRecord looks up a rollback record by id.
func (m *Manager) RollbackRecord(id string) (*types.Rollback, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rb, ok := m.rollbacks[id]
	if !ok {
		return nil, false
	}
	clone := *rb
	return &clone, true
}

// Initialize moves agentID from initializing to registered, delegating the
// actual initialization work to the Initialize hook. A hook error
// transitions the agent to failed and is returned unchanged to the caller.
func (m *Manager) Initialize(ctx context.Context, agentID types.AgentID) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.hooks.initialize(ctx, agentID); err != nil {
		m.transition(agentID, types.StateFailed, err.Error())
		return err
	}
	return m.transition(agentID, types.StateRegistered, "initialize")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func isTimeout(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == context.DeadlineExceeded
}
