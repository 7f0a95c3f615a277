package lifecycle

import (
	"context"
	"time"

	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/registration"
	"github.com/agentfleet/controlplane/types"
)

// Deploy creates a deployment record and pushes version to agentID. The
// agent must currently be registered or stopped (enforced by the
// deploying-state transition itself). On success the agent moves to
// running; on failure or timeout it moves to failed and the deployment is
// marked failed.
func (m *Manager) Deploy(ctx context.Context, agentID types.AgentID, version string, env types.Environment) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.transition(agentID, types.StateDeploying, "deploy"); err != nil {
		return err
	}

	dep := &types.Deployment{
		ID:          registration.DeploymentID(string(agentID)),
		AgentID:     agentID,
		Version:     version,
		Environment: env,
		Status:      types.DeploymentPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.storeDeployment(dep)

	m.bus.Emit(events.Event{Type: events.DeploymentStarted, AgentID: agentID, Timestamp: time.Now(), Data: dep})

	return m.runDeploy(ctx, agentID, dep)
}

// Update pushes newVersion to an already-running agent, superseding its
// current deployment. It uses its own running<->updating transition path
// rather than the deploying state deploy uses directly, since the
// transition table only allows "updating" from "running".
func (m *Manager) Update(ctx context.Context, agentID types.AgentID, newVersion string) error {
	lock := m.lockFor(agentID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.transition(agentID, types.StateUpdating, "update"); err != nil {
		return err
	}

	prev, _ := m.CurrentDeployment(agentID)
	env := types.EnvProduction
	if prev != nil {
		env = prev.Environment
	}

	dep := &types.Deployment{
		ID:          registration.DeploymentID(string(agentID)),
		AgentID:     agentID,
		Version:     newVersion,
		Environment: env,
		Status:      types.DeploymentPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.storeDeployment(dep)
	if prev != nil {
		m.supersede(prev.ID)
	}

	m.bus.Emit(events.Event{Type: events.DeploymentStarted, AgentID: agentID, Timestamp: time.Now(), Data: dep})

	return m.runDeploy(ctx, agentID, dep)
}

// runDeploy calls the Deploy hook under the manager's deployment timeout
// and settles the state machine and deployment record based on the
// outcome. Callers must already hold agentID's lock.
func (m *Manager) runDeploy(ctx context.Context, agentID types.AgentID, dep *types.Deployment) error {
	deployCtx, cancel := withTimeout(ctx, m.cfg.DeploymentTimeout)
	defer cancel()

	err := m.hooks.deploy(deployCtx, agentID, dep.Version, dep.Environment)
	if isTimeout(deployCtx, err) {
		err = context.DeadlineExceeded
	}

	if err != nil {
		reason := err.Error()
		if err == context.DeadlineExceeded {
			reason = "deploy timeout"
		}
		m.markDeploymentFailed(dep.ID)
		m.transition(agentID, types.StateFailed, reason)
		m.bus.Emit(events.Event{Type: events.ErrorEvent, AgentID: agentID, Timestamp: time.Now(), Data: reason})
		if err != context.DeadlineExceeded {
			return err
		}
		return types.Newf(types.ErrOperationTimeout, "deploy failed for agent %q: %s", agentID, reason)
	}

	m.markDeploymentRunning(dep.ID)
	if err := m.transition(agentID, types.StateRunning, "deploy"); err != nil {
		return err
	}
	m.bus.Emit(events.Event{Type: events.DeploymentCompleted, AgentID: agentID, Timestamp: time.Now(), Data: dep})
	return nil
}

func (m *Manager) storeDeployment(dep *types.Deployment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deployments[dep.ID] = dep
	m.deploymentsByAgent[dep.AgentID] = append(m.deploymentsByAgent[dep.AgentID], dep.ID)
	m.currentDeployment[dep.AgentID] = dep.ID
}

func (m *Manager) markDeploymentRunning(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dep, ok := m.deployments[id]; ok {
		dep.Status = types.DeploymentRunning
		dep.UpdatedAt = time.Now()
	}
}

func (m *Manager) markDeploymentFailed(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dep, ok := m.deployments[id]; ok {
		dep.Status = types.DeploymentFailed
		dep.UpdatedAt = time.Now()
	}
}

func (m *Manager) supersede(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dep, ok := m.deployments[id]; ok {
		dep.Status = types.DeploymentSuperseded
		dep.UpdatedAt = time.Now()
	}
}
