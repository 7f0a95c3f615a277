package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/scheduler"
	"github.com/agentfleet/controlplane/types"
)

// SchedulerHandler exposes job submission, lookup, cancellation, and
// monitoring over HTTP, delegating every operation to a scheduler.Scheduler.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// NewSchedulerHandler creates a scheduler handler.
func NewSchedulerHandler(s *scheduler.Scheduler, logger *zap.Logger) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s, logger: logger}
}

type submitRequest struct {
	Name       string         `json:"name"`
	Owner      string         `json:"owner,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// HandleSubmit decomposes and schedules a new job.
//
//	POST /v1/jobs
func (h *SchedulerHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.Name == "" {
		WriteErrorMessage(w, types.ErrInvalidRegistration, "job name must not be empty", h.logger)
		return
	}

	job := h.scheduler.Submit(req.Name, req.Owner, req.Parameters)
	WriteCreated(w, job)
}

// HandleGetJob returns a job record by id.
//
//	GET /v1/jobs/{job_id}
func (h *SchedulerHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	job, ok := h.scheduler.Job(jobID)
	if !ok {
		WriteErrorMessage(w, types.ErrJobNotFound, "job not found: "+jobID, h.logger)
		return
	}
	WriteSuccess(w, job)
}

// HandleGetTask returns a task record by id.
//
//	GET /v1/tasks/{task_id}
func (h *SchedulerHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]
	task, ok := h.scheduler.Task(taskID)
	if !ok {
		WriteErrorMessage(w, types.ErrTaskNotFound, "task not found: "+taskID, h.logger)
		return
	}
	WriteSuccess(w, task)
}

// HandleCancel cancels a job and all of its non-terminal tasks.
//
//	POST /v1/jobs/{job_id}/cancel
func (h *SchedulerHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if err := h.scheduler.Cancel(jobID); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"job_id": jobID, "status": string(types.JobFailed)})
}

// HandleHandleFailures re-schedules failed tasks still under their retry
// budget and permanently fails the rest. Intended to be driven by an
// operator or an external timer, not the HTTP caller's own retry loop.
//
//	POST /v1/jobs/retry-failures
func (h *SchedulerHandler) HandleHandleFailures(w http.ResponseWriter, r *http.Request) {
	assignments := h.scheduler.HandleFailures()
	WriteSuccess(w, assignments)
}

// HandleMonitor returns a point-in-time snapshot of job, task, agent, and
// cumulative completion/failure counts.
//
//	GET /v1/scheduler/monitor
func (h *SchedulerHandler) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.scheduler.Monitor())
}
