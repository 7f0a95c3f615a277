package lifecycle

import (
	"context"
	"time"

	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/types"
)

// Scale adjusts agentID's instance count. The agent must currently be
// running.
func (m *Manager) Scale(ctx context.Context, agentID types.AgentID, instances int) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.transition(agentID, types.StateScaling, "scale"); err != nil {
		return err
	}

	if err := m.hooks.scale(ctx, agentID, instances); err != nil {
		m.transition(agentID, types.StateFailed, err.Error())
		m.bus.Emit(events.Event{Type: events.ErrorEvent, AgentID: agentID, Timestamp: time.Now(), Data: err.Error()})
		return err
	}

	return m.transition(agentID, types.StateRunning, "scale")
}

// Stop is a no-op if agentID is already stopped or deregistered;
// otherwise it transitions through stopping to stopped.
func (m *Manager) Stop(ctx context.Context, agentID types.AgentID) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()
	return m.stopLocked(ctx, agentID)
}

// stopLocked performs the Stop operation; callers must already hold
// agentID's lock.
func (m *Manager) stopLocked(ctx context.Context, agentID types.AgentID) error {
	current := m.stateOf(agentID)
	if current == types.StateStopped || current == types.StateDeregistered {
		return nil
	}

	if err := m.transition(agentID, types.StateStopping, "stop"); err != nil {
		return err
	}

	if err := m.hooks.stop(ctx, agentID); err != nil {
		m.transition(agentID, types.StateFailed, err.Error())
		return err
	}

	return m.transition(agentID, types.StateStopped, "stop")
}

// Deregister stops a running agent first if needed, transitions it to
// deregistered, and purges its transition log, deployments, and
// rollbacks.
func (m *Manager) Deregister(ctx context.Context, agentID types.AgentID) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	if m.stateOf(agentID) == types.StateRunning {
		if err := m.stopLocked(ctx, agentID); err != nil {
			return err
		}
	}

	if err := m.transition(agentID, types.StateDeregistered, "deregister"); err != nil {
		return err
	}

	m.purge(agentID)
	return nil
}

func (m *Manager) purge(agentID types.AgentID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.transitionLog, agentID)
	for _, id := range m.deploymentsByAgent[agentID] {
		delete(m.deployments, id)
	}
	delete(m.deploymentsByAgent, agentID)
	delete(m.currentDeployment, agentID)
	for _, id := range m.rollbacksByAgent[agentID] {
		delete(m.rollbacks, id)
	}
	delete(m.rollbacksByAgent, agentID)
}
