package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/registration"
	"github.com/agentfleet/controlplane/types"
)

// Metrics is the scheduler's cumulative counters, returned by CollectMetrics.
type Metrics struct {
	Jobs      int   `json:"jobs"`
	Tasks     int   `json:"tasks"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Snapshot extends Metrics with the agent count, returned by Monitor.
type Snapshot struct {
	Metrics
	Agents int `json:"agents"`
}

// Scheduler decomposes jobs into tasks and assigns each task to a healthy
// agent by round-robin rotation, retrying failed tasks up to a configured
// bound.
type Scheduler struct {
	discovery *discovery.Registry
	bus       *events.Bus
	logger    *zap.Logger

	cfgMu sync.RWMutex
	cfg   Config

	rr *roundRobin

	mu    sync.RWMutex
	jobs  map[string]*types.Job
	tasks map[string]*types.Task

	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a Scheduler backed by reg for agent health lookups.
func New(reg *discovery.Registry, bus *events.Bus, logger *zap.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Scheduler{
		discovery: reg,
		bus:       bus,
		logger:    logger.With(zap.String("component", "scheduler")),
		cfg:       cfg,
		rr:        newRoundRobin(),
		jobs:      make(map[string]*types.Job),
		tasks:     make(map[string]*types.Task),
	}
}

func (s *Scheduler) configSnapshot() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// LoadConfig merges partial onto the scheduler's live config.
func (s *Scheduler) LoadConfig(partial Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = s.cfg.Merge(partial)
}

// Submit decomposes name into a single baseline task per job (one task,
// type "generic", resources {cpu:1, memory:512, disk:0, gpu:0}, priority 1),
// stores the job and its tasks, schedules them, and returns the job.
func (s *Scheduler) Submit(name, owner string, parameters map[string]any) *types.Job {
	if parameters == nil {
		parameters = map[string]any{}
	}
	now := time.Now()
	job := &types.Job{
		ID:         registration.JobID(),
		Name:       name,
		Owner:      owner,
		Parameters: parameters,
		Status:     types.JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	task := &types.Task{
		ID:        registration.TaskID(job.ID, 0),
		JobID:     job.ID,
		Name:      fmt.Sprintf("%s-task-%d", job.Name, 0),
		Type:      "generic",
		Status:    types.TaskPending,
		Resources: types.TaskResources{CPU: 1, Memory: 512, Disk: 0, GPU: 0},
		Priority:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.Tasks = append(job.Tasks, task)

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.tasks[task.ID] = task
	s.mu.Unlock()

	s.bus.Emit(events.Event{Type: events.JobSubmitted, Timestamp: now, Data: job})

	s.Schedule([]*types.Task{task})
	return job
}

// Schedule orders tasks per the configured scheduling type and assigns each
// to the next healthy agent in rotation, keyed by task type. A task finding
// no healthy agent is assigned agent_id = nil and left pending.
func (s *Scheduler) Schedule(tasks []*types.Task) []*types.Assignment {
	cfg := s.configSnapshot()
	ordered := orderTasks(tasks, cfg.SchedulingType)
	healthy := healthyAgents(s.discovery)

	assignments := make([]*types.Assignment, 0, len(ordered))
	for _, task := range ordered {
		agentID, ok := s.rr.next(task.Type, healthy)

		assignment := &types.Assignment{
			TaskID:     task.ID,
			Status:     types.AssignmentAssigned,
			AssignedAt: time.Now(),
		}

		s.mu.Lock()
		if ok {
			task.AssignedAgentID = &agentID
			task.Status = types.TaskAssigned
			assignment.AgentID = &agentID
		} else {
			task.Status = types.TaskPending
		}
		task.UpdatedAt = time.Now()
		s.mu.Unlock()

		assignments = append(assignments, assignment)
		s.bus.Emit(events.Event{Type: events.TaskAssigned, Timestamp: assignment.AssignedAt, Data: assignment})
	}
	return assignments
}

// orderTasks returns tasks reordered for scheduling without mutating the
// input slice: FIFO preserves submission order, priority sorts by priority
// descending with created_at ascending as a tiebreaker.
func orderTasks(tasks []*types.Task, schedulingType SchedulingType) []*types.Task {
	ordered := make([]*types.Task, len(tasks))
	copy(ordered, tasks)
	if schedulingType != SchedulingPriority {
		return ordered
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}

// CompleteTask marks taskID completed and bumps the completed metric.
// An unknown task id is a no-op.
func (s *Scheduler) CompleteTask(taskID string, agentID types.AgentID) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return
	}
	task.Status = types.TaskCompleted
	task.AssignedAgentID = &agentID
	task.UpdatedAt = time.Now()
	jobID := task.JobID
	s.mu.Unlock()

	s.completed.Add(1)
	s.refreshJobStatus(jobID)
	s.bus.Emit(events.Event{Type: events.TaskCompleted, AgentID: agentID, Timestamp: time.Now(), Data: task})
}

// HandleFailures scans every failed task: one still under its retry budget
// is reset to pending and re-scheduled; one that has exhausted its retries
// is left failed and bumps the failed metric exactly once, via
// PermanentlyFailed.
func (s *Scheduler) HandleFailures() []*types.Assignment {
	cfg := s.configSnapshot()

	var toReschedule []*types.Task
	var newlyFailed []*types.Task

	s.mu.Lock()
	for _, task := range s.tasks {
		if task.Status != types.TaskFailed {
			continue
		}
		if task.Retries < cfg.MaxRetries {
			task.Retries++
			task.Status = types.TaskPending
			task.UpdatedAt = time.Now()
			toReschedule = append(toReschedule, task)
		} else if !task.PermanentlyFailed {
			task.PermanentlyFailed = true
			newlyFailed = append(newlyFailed, task)
		}
	}
	s.mu.Unlock()

	for _, task := range newlyFailed {
		s.failed.Add(1)
		s.bus.Emit(events.Event{Type: events.TaskFailed, Timestamp: time.Now(), Data: task})
	}

	if len(toReschedule) == 0 {
		return nil
	}
	return s.Schedule(toReschedule)
}

// Cancel marks jobID and all of its non-terminal tasks failed without
// consuming a retry. It does not relax Task.Retries <= MaxRetries; a
// cancelled task simply never competes for a retry again.
func (s *Scheduler) Cancel(jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return types.Newf(types.ErrJobNotFound, "job %q not found", jobID)
	}
	job.Status = types.JobFailed
	job.UpdatedAt = time.Now()
	for _, task := range job.Tasks {
		if task.Status == types.TaskCompleted {
			continue
		}
		task.Status = types.TaskFailed
		task.PermanentlyFailed = true
		task.UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	s.bus.Emit(events.Event{Type: events.JobCancelled, Timestamp: time.Now(), Data: job})
	return nil
}

// refreshJobStatus recomputes jobID's aggregate status from its tasks:
// completed once every task is completed, failed once any task has
// permanently failed, running otherwise.
func (s *Scheduler) refreshJobStatus(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return
	}

	allCompleted := true
	anyPermanentlyFailed := false
	for _, task := range job.Tasks {
		if task.PermanentlyFailed {
			anyPermanentlyFailed = true
		}
		if task.Status != types.TaskCompleted {
			allCompleted = false
		}
	}

	switch {
	case anyPermanentlyFailed:
		job.Status = types.JobFailed
	case allCompleted:
		job.Status = types.JobCompleted
	default:
		job.Status = types.JobRunning
	}
	job.UpdatedAt = time.Now()
}

// Job looks up a job record by id.
func (s *Scheduler) Job(jobID string) (*types.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

// Task looks up a task record by id.
func (s *Scheduler) Task(taskID string) (*types.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	return task, ok
}

// Monitor returns a point-in-time snapshot of job, task, and agent counts
// alongside the cumulative completed/failed counters.
func (s *Scheduler) Monitor() Snapshot {
	metrics := s.CollectMetrics()
	return Snapshot{
		Metrics: metrics,
		Agents:  len(s.discovery.All()),
	}
}

// CollectMetrics returns a copy of the scheduler's job, task, completed, and
// failed counters.
func (s *Scheduler) CollectMetrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Metrics{
		Jobs:      len(s.jobs),
		Tasks:     len(s.tasks),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
	}
}
