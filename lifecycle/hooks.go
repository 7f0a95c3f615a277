package lifecycle

import (
	"context"

	"github.com/agentfleet/controlplane/types"
)

// Hooks are the external collaborators the manager delegates real work to:
// standing up an agent process, pushing a new version, adjusting instance
// counts, reverting to a prior version, and tearing an agent down. A nil
// hook is treated as an immediate no-op success, so a Manager is usable
// before any real infrastructure is wired in.
type Hooks struct {
	Initialize func(ctx context.Context, agentID types.AgentID) error
	Deploy     func(ctx context.Context, agentID types.AgentID, version string, env types.Environment) error
	Scale      func(ctx context.Context, agentID types.AgentID, instances int) error
	Rollback   func(ctx context.Context, agentID types.AgentID, targetVersion, reason string) error
	Stop       func(ctx context.Context, agentID types.AgentID) error
}

func (h Hooks) initialize(ctx context.Context, agentID types.AgentID) error {
	if h.Initialize == nil {
		return nil
	}
	return h.Initialize(ctx, agentID)
}

func (h Hooks) deploy(ctx context.Context, agentID types.AgentID, version string, env types.Environment) error {
	if h.Deploy == nil {
		return nil
	}
	return h.Deploy(ctx, agentID, version, env)
}

func (h Hooks) scale(ctx context.Context, agentID types.AgentID, instances int) error {
	if h.Scale == nil {
		return nil
	}
	return h.Scale(ctx, agentID, instances)
}

func (h Hooks) rollback(ctx context.Context, agentID types.AgentID, targetVersion, reason string) error {
	if h.Rollback == nil {
		return nil
	}
	return h.Rollback(ctx, agentID, targetVersion, reason)
}

func (h Hooks) stop(ctx context.Context, agentID types.AgentID) error {
	if h.Stop == nil {
		return nil
	}
	return h.Stop(ctx, agentID)
}
