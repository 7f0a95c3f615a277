package lifecycle

import "time"

// Config holds the per-operation timeouts. Operations exceeding their
// bound transition the agent to failed with reason "<op> timeout".
type Config struct {
	DeploymentTimeout  time.Duration
	RollbackTimeout    time.Duration
	HealthCheckTimeout time.Duration
}

// DefaultConfig returns the manager's documented default timeouts.
func DefaultConfig() Config {
	return Config{
		DeploymentTimeout:  300 * time.Second,
		RollbackTimeout:    180 * time.Second,
		HealthCheckTimeout: 30 * time.Second,
	}
}
