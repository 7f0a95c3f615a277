package scheduler

import (
	"testing"

	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/types"
)

func testAgent(id types.AgentID, status types.HealthStatus) *types.AgentRecord {
	return &types.AgentRecord{
		AgentID:  id,
		Metadata: types.Metadata{Name: string(id)},
		Health:   types.Health{Status: status},
	}
}

func newTestScheduler(t *testing.T, agents ...*types.AgentRecord) (*Scheduler, *discovery.Registry) {
	t.Helper()
	reg := discovery.New(capability.New(nil), nil)
	for _, a := range agents {
		if err := reg.Register(a); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return New(reg, nil, nil, DefaultConfig()), reg
}

func TestSubmit_DecomposesOneBaselineTask(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthHealthy))

	job := s.Submit("ingest", "alice", nil)
	if len(job.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(job.Tasks))
	}
	task := job.Tasks[0]
	if task.Name != "ingest-task-0" || task.Type != "generic" || task.Priority != 1 {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.Resources != (types.TaskResources{CPU: 1, Memory: 512, Disk: 0, GPU: 0}) {
		t.Errorf("unexpected resources: %+v", task.Resources)
	}
	if task.Status != types.TaskAssigned || task.AssignedAgentID == nil || *task.AssignedAgentID != "agent-1" {
		t.Errorf("expected task assigned to agent-1, got %+v", task)
	}
}

func TestSchedule_NoHealthyAgentLeavesTaskPendingWithNilAgent(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthUnhealthy))

	job := s.Submit("ingest", "alice", nil)
	task := job.Tasks[0]
	if task.Status != types.TaskPending {
		t.Errorf("status = %v, want pending", task.Status)
	}
	if task.AssignedAgentID != nil {
		t.Errorf("expected nil agent assignment, got %v", *task.AssignedAgentID)
	}
}

func TestSchedule_RoundRobinsAcrossHealthyAgents(t *testing.T) {
	s, _ := newTestScheduler(t,
		testAgent("agent-1", types.HealthHealthy),
		testAgent("agent-2", types.HealthHealthy),
	)

	tasks := []*types.Task{
		{ID: "t1", Type: "generic"},
		{ID: "t2", Type: "generic"},
		{ID: "t3", Type: "generic"},
	}
	s.mu.Lock()
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	s.mu.Unlock()

	assignments := s.Schedule(tasks)
	if len(assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(assignments))
	}
	if *assignments[0].AgentID == *assignments[1].AgentID {
		t.Error("expected rotation to alternate agents")
	}
	if *assignments[0].AgentID != *assignments[2].AgentID {
		t.Error("expected rotation to wrap back to the first agent on the third task")
	}
}

func TestSchedule_PriorityOrdersDescendingByPriority(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthHealthy))
	s.LoadConfig(Config{SchedulingType: SchedulingPriority})

	low := &types.Task{ID: "low", Type: "generic", Priority: 1}
	high := &types.Task{ID: "high", Type: "generic", Priority: 3}
	mid := &types.Task{ID: "mid", Type: "generic", Priority: 2}

	ordered := orderTasks([]*types.Task{low, high, mid}, SchedulingPriority)
	if ordered[0].ID != "high" || ordered[1].ID != "mid" || ordered[2].ID != "low" {
		t.Errorf("unexpected order: %v, %v, %v", ordered[0].ID, ordered[1].ID, ordered[2].ID)
	}
}

func TestCompleteTask_UnknownTaskIsNoOp(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.CompleteTask("does-not-exist", "agent-1")
	if s.CollectMetrics().Completed != 0 {
		t.Error("expected no metric bump for an unknown task")
	}
}

func TestCompleteTask_MarksCompletedAndJobCompleted(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthHealthy))
	job := s.Submit("ingest", "alice", nil)
	task := job.Tasks[0]

	s.CompleteTask(task.ID, "agent-1")

	got, _ := s.Task(task.ID)
	if got.Status != types.TaskCompleted {
		t.Errorf("status = %v, want completed", got.Status)
	}
	gotJob, _ := s.Job(job.ID)
	if gotJob.Status != types.JobCompleted {
		t.Errorf("job status = %v, want completed", gotJob.Status)
	}
	if s.CollectMetrics().Completed != 1 {
		t.Error("expected completed metric to be 1")
	}
}

func TestHandleFailures_RetriesUnderBudgetThenPermanentlyFails(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthHealthy))
	s.LoadConfig(Config{MaxRetries: 1})

	task := &types.Task{ID: "t1", Type: "generic", Status: types.TaskFailed}
	s.mu.Lock()
	s.tasks["t1"] = task
	s.mu.Unlock()

	s.HandleFailures()
	if task.Status != types.TaskPending || task.Retries != 1 {
		t.Fatalf("expected one retry consumed and task pending, got %+v", task)
	}

	task.Status = types.TaskFailed
	s.HandleFailures()
	if task.Status != types.TaskFailed || !task.PermanentlyFailed {
		t.Fatalf("expected task to permanently fail after exhausting retries, got %+v", task)
	}
	if s.CollectMetrics().Failed != 1 {
		t.Error("expected failed metric to be 1")
	}

	// A second HandleFailures pass must not double-count the same task.
	s.HandleFailures()
	if s.CollectMetrics().Failed != 1 {
		t.Error("expected failed metric to stay deduplicated at 1")
	}
}

func TestCancel_MarksJobAndNonTerminalTasksFailed(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthHealthy))
	job := s.Submit("ingest", "alice", nil)

	if err := s.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, _ := s.Job(job.ID)
	if got.Status != types.JobFailed {
		t.Errorf("job status = %v, want failed", got.Status)
	}
	if got.Tasks[0].Status != types.TaskFailed || !got.Tasks[0].PermanentlyFailed {
		t.Errorf("expected task failed without consuming a retry, got %+v", got.Tasks[0])
	}
	if got.Tasks[0].Retries != 0 {
		t.Error("Cancel must not consume a retry")
	}
}

func TestCancel_UnknownJob(t *testing.T) {
	s, _ := newTestScheduler(t)
	err := s.Cancel("missing")
	if types.GetErrorCode(err) != types.ErrJobNotFound {
		t.Errorf("error = %v, want ErrJobNotFound", err)
	}
}

func TestMonitor_ReflectsJobsTasksAndAgents(t *testing.T) {
	s, _ := newTestScheduler(t, testAgent("agent-1", types.HealthHealthy))
	s.Submit("ingest", "alice", nil)

	snap := s.Monitor()
	if snap.Jobs != 1 || snap.Tasks != 1 || snap.Agents != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
