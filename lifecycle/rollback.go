package lifecycle

import (
	"context"
	"time"

	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/registration"
	"github.com/agentfleet/controlplane/types"
)

// Rollback reverts agentID to targetVersion. The agent must currently be
// running or failed.
func (m *Manager) Rollback(ctx context.Context, agentID types.AgentID, targetVersion, reason string) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	current, _ := m.CurrentDeployment(agentID)
	fromVersion := ""
	deploymentID := ""
	if current != nil {
		fromVersion = current.Version
		deploymentID = current.ID
	}

	if err := m.transition(agentID, types.StateRollingBack, reason); err != nil {
		return err
	}

	rb := &types.Rollback{
		ID:           registration.RollbackID(string(agentID)),
		DeploymentID: deploymentID,
		FromVersion:  fromVersion,
		ToVersion:    targetVersion,
		Reason:       reason,
		Status:       types.RollbackPending,
		CreatedAt:    time.Now(),
	}
	m.storeRollback(agentID, rb)

	m.bus.Emit(events.Event{Type: events.RollbackStarted, AgentID: agentID, Timestamp: time.Now(), Data: rb})

	rollbackCtx, cancel := withTimeout(ctx, m.cfg.RollbackTimeout)
	defer cancel()

	err := m.hooks.rollback(rollbackCtx, agentID, targetVersion, reason)
	if isTimeout(rollbackCtx, err) {
		err = context.DeadlineExceeded
	}

	if err != nil {
		failReason := err.Error()
		if err == context.DeadlineExceeded {
			failReason = "rollback timeout"
		}
		m.markRollbackFailed(rb.ID)
		m.transition(agentID, types.StateFailed, failReason)
		m.bus.Emit(events.Event{Type: events.ErrorEvent, AgentID: agentID, Timestamp: time.Now(), Data: failReason})
		if err != context.DeadlineExceeded {
			return err
		}
		return types.Newf(types.ErrOperationTimeout, "rollback failed for agent %q: %s", agentID, failReason)
	}

	m.markRollbackCompleted(rb.ID)
	if err := m.transition(agentID, types.StateRunning, reason); err != nil {
		return err
	}
	m.bus.Emit(events.Event{Type: events.RollbackCompleted, AgentID: agentID, Timestamp: time.Now(), Data: rb})
	return nil
}

func (m *Manager) storeRollback(agentID types.AgentID, rb *types.Rollback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks[rb.ID] = rb
	m.rollbacksByAgent[agentID] = append(m.rollbacksByAgent[agentID], rb.ID)
}

func (m *Manager) markRollbackCompleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rb, ok := m.rollbacks[id]; ok {
		rb.Status = types.RollbackCompleted
		now := time.Now()
		rb.CompletedAt = &now
	}
}

func (m *Manager) markRollbackFailed(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rb, ok := m.rollbacks[id]; ok {
		rb.Status = types.RollbackFailed
	}
}
