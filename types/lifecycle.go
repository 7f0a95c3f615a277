package types

import "time"

// LifecycleState is the operational phase of an agent in the lifecycle
// state machine (see package lifecycle for the transition table).
type LifecycleState string

const (
	StateInitializing LifecycleState = "initializing"
	StateRegistered   LifecycleState = "registered"
	StateDeploying    LifecycleState = "deploying"
	StateRunning      LifecycleState = "running"
	StateScaling      LifecycleState = "scaling"
	StateUpdating     LifecycleState = "updating"
	StateRollingBack  LifecycleState = "rolling_back"
	StateFailed       LifecycleState = "failed"
	StateStopping     LifecycleState = "stopping"
	StateStopped      LifecycleState = "stopped"
	StateDeregistered LifecycleState = "deregistered"
)

// LifecycleTransition is one recorded state change for an agent. The
// transition log is append-only per agent.
type LifecycleTransition struct {
	From      LifecycleState `json:"from"`
	To        LifecycleState `json:"to"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Environment is the target deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// DeploymentStatus is the lifecycle of a single deployment record.
type DeploymentStatus string

const (
	DeploymentPending    DeploymentStatus = "pending"
	DeploymentRunning    DeploymentStatus = "running"
	DeploymentFailed     DeploymentStatus = "failed"
	DeploymentSuperseded DeploymentStatus = "superseded"
)

// Deployment records one deploy/update operation against an agent.
type Deployment struct {
	ID            string               `json:"id"`
	AgentID       AgentID              `json:"agent_id"`
	Version       string               `json:"version"`
	Environment   Environment          `json:"environment"`
	Status        DeploymentStatus     `json:"status"`
	Instances     int                  `json:"instances"`
	Resources     ResourceRequirements `json:"resources"`
	Configuration map[string]string    `json:"configuration,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RollbackStatus is the lifecycle of a single rollback record.
type RollbackStatus string

const (
	RollbackPending   RollbackStatus = "pending"
	RollbackCompleted RollbackStatus = "completed"
	RollbackFailed    RollbackStatus = "failed"
)

// Rollback records one rollback operation against a deployment.
type Rollback struct {
	ID           string         `json:"id"`
	DeploymentID string         `json:"deployment_id"`
	FromVersion  string         `json:"from_version"`
	ToVersion    string         `json:"to_version"`
	Reason       string         `json:"reason,omitempty"`
	Status       RollbackStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
