package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/health"
	"github.com/agentfleet/controlplane/internal/ctxkeys"
	"github.com/agentfleet/controlplane/internal/metrics"
	"github.com/agentfleet/controlplane/lifecycle"
	"github.com/agentfleet/controlplane/scheduler"
)

// Registry bundles every core component the HTTP surface delegates to.
type Registry struct {
	Discovery    *discovery.Registry
	Capabilities *capability.Registry
	Health       *health.Checker
	Lifecycle    *lifecycle.Manager
	Scheduler    *scheduler.Scheduler
	Metrics      *metrics.Collector
}

// NewRouter builds the full /v1 fleet API, plus the control plane's own
// liveness endpoint, on a fresh gorilla/mux router.
func NewRouter(reg Registry, logger *zap.Logger) *mux.Router {
	registrationHandler := NewRegistrationHandler(reg.Discovery, reg.Health, reg.Metrics, logger)
	discoveryHandler := NewDiscoveryHandler(reg.Discovery, logger)
	capabilityHandler := NewCapabilityHandler(reg.Capabilities, logger)
	healthHandler := NewHealthHandler(reg.Health, logger)
	lifecycleHandler := NewLifecycleHandler(reg.Lifecycle, reg.Metrics, logger)
	schedulerHandler := NewSchedulerHandler(reg.Scheduler, logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler.HandleLiveness).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(scopeMiddleware(logger))

	v1.HandleFunc("/agents", registrationHandler.HandleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/agents", discoveryHandler.HandleDiscover).Methods(http.MethodGet)
	v1.HandleFunc("/agents/statistics", discoveryHandler.HandleStatistics).Methods(http.MethodGet)
	v1.HandleFunc("/agents/health/check", healthHandler.HandleCheckAll).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{agent_id}", discoveryHandler.HandleGetAgent).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{agent_id}", registrationHandler.HandleDeregister).Methods(http.MethodDelete)

	v1.HandleFunc("/agents/{agent_id}/health/check", healthHandler.HandleCheckNow).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{agent_id}/health/history", healthHandler.HandleHistory).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{agent_id}/health/statistics", healthHandler.HandleStatistics).Methods(http.MethodGet)

	v1.HandleFunc("/agents/{agent_id}/deployments", lifecycleHandler.HandleDeploy).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{agent_id}/version", lifecycleHandler.HandleUpdate).Methods(http.MethodPut)
	v1.HandleFunc("/agents/{agent_id}/rollbacks", lifecycleHandler.HandleRollback).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{agent_id}/scale", lifecycleHandler.HandleScale).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{agent_id}/stop", lifecycleHandler.HandleStop).Methods(http.MethodPost)
	v1.HandleFunc("/agents/{agent_id}/lifecycle", lifecycleHandler.HandleDeregister).Methods(http.MethodDelete)
	v1.HandleFunc("/agents/{agent_id}/state", lifecycleHandler.HandleState).Methods(http.MethodGet)
	v1.HandleFunc("/agents/{agent_id}/transitions", lifecycleHandler.HandleTransitions).Methods(http.MethodGet)

	v1.HandleFunc("/capabilities", capabilityHandler.HandleSearch).Methods(http.MethodGet)
	v1.HandleFunc("/capabilities/{capability_id}", capabilityHandler.HandleGetCapability).Methods(http.MethodGet)
	v1.HandleFunc("/capabilities/{capability_id}/agents", discoveryHandler.HandleSearchByCapability).Methods(http.MethodGet)

	v1.HandleFunc("/jobs", schedulerHandler.HandleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/retry-failures", schedulerHandler.HandleHandleFailures).Methods(http.MethodPost)
	v1.HandleFunc("/jobs/{job_id}", schedulerHandler.HandleGetJob).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{job_id}/cancel", schedulerHandler.HandleCancel).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{task_id}", schedulerHandler.HandleGetTask).Methods(http.MethodGet)
	v1.HandleFunc("/scheduler/monitor", schedulerHandler.HandleMonitor).Methods(http.MethodGet)

	return r
}

// scopeMiddleware stamps the agent/job identifiers a matched route carries
// onto the request context, so any downstream logging can correlate a
// request to the fleet entity it addresses without re-parsing mux vars.
func scopeMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			vars := mux.Vars(r)

			if agentID, ok := vars["agent_id"]; ok && agentID != "" {
				ctx = ctxkeys.WithAgentID(ctx, agentID)
			}
			if jobID, ok := vars["job_id"]; ok && jobID != "" {
				ctx = ctxkeys.WithJobID(ctx, jobID)
			}

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)

			fields := []zap.Field{zap.String("route", r.URL.Path)}
			if agentID, ok := ctxkeys.AgentID(ctx); ok {
				fields = append(fields, zap.String("agent_id", agentID))
			}
			if jobID, ok := ctxkeys.JobID(ctx); ok {
				fields = append(fields, zap.String("job_id", jobID))
			}
			logger.Debug("fleet request scope", fields...)
		})
	}
}
