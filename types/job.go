package types

import "time"

// JobStatus is the aggregate status of a job across its tasks.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a unit of work submitted to the scheduler; it decomposes into one
// or more tasks.
type Job struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Owner      string         `json:"owner,omitempty"`
	Parameters map[string]any `json:"parameters"`
	Status     JobStatus      `json:"status"`
	Tasks      []*Task        `json:"tasks"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TaskStatus is the lifecycle of a single task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskAssigned  TaskStatus = "assigned"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskResources is the numeric resource request attached to a task, as
// distinct from an agent's string-valued ResourceRequirements.
type TaskResources struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"`
	GPU    float64 `json:"gpu"`
}

// Task is one schedulable unit of work decomposed from a Job.
type Task struct {
	ID              string         `json:"id"`
	JobID           string         `json:"job_id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Input           map[string]any `json:"input,omitempty"`
	Dependencies    []string       `json:"dependencies,omitempty"`
	Status          TaskStatus     `json:"status"`
	AssignedAgentID *AgentID       `json:"assigned_agent_id,omitempty"`
	Resources       TaskResources  `json:"resources"`
	Priority        int            `json:"priority"`
	Retries         int            `json:"retries"`
	// PermanentlyFailed deduplicates the failed-metric bump in
	// handle_failures once a task has exhausted its retries.
	PermanentlyFailed bool      `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AssignmentStatus is the lifecycle of one task-to-agent assignment.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentFailed    AssignmentStatus = "failed"
)

// Assignment records a decision to run a given task on a given agent, or on
// no agent yet (AgentID == nil) when no healthy agent was available.
type Assignment struct {
	TaskID     string           `json:"task_id"`
	AgentID    *AgentID         `json:"agent_id,omitempty"`
	Status     AssignmentStatus `json:"status"`
	AssignedAt time.Time        `json:"assigned_at"`
}
