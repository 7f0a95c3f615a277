package lifecycle

import "github.com/agentfleet/controlplane/types"

// validTransitions is the fixed transition table: any pair not listed here
// fails with ErrInvalidLifecycleTransition.
var validTransitions = map[types.LifecycleState][]types.LifecycleState{
	types.StateInitializing: {types.StateRegistered, types.StateFailed},
	types.StateRegistered:   {types.StateDeploying, types.StateDeregistered},
	types.StateDeploying:    {types.StateRunning, types.StateFailed},
	types.StateRunning:      {types.StateScaling, types.StateUpdating, types.StateRollingBack, types.StateStopping, types.StateFailed},
	types.StateScaling:      {types.StateRunning, types.StateFailed},
	types.StateUpdating:     {types.StateRunning, types.StateFailed},
	types.StateRollingBack:  {types.StateRunning, types.StateFailed},
	types.StateFailed:       {types.StateRollingBack, types.StateStopping},
	types.StateStopping:     {types.StateStopped, types.StateFailed},
	types.StateStopped:      {types.StateDeploying, types.StateDeregistered},
	types.StateDeregistered: {},
}

// CanTransition reports whether moving from to is permitted.
func CanTransition(from, to types.LifecycleState) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
