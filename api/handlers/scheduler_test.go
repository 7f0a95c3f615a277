package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/api"
	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/scheduler"
)

func TestSchedulerHandler_HandleSubmit(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	sched := scheduler.New(reg, events.NewBus(nil), zap.NewNop(), scheduler.DefaultConfig())
	handler := NewSchedulerHandler(sched, zap.NewNop())

	body, _ := json.Marshal(map[string]any{"name": "ingest", "owner": "team-a"})
	r := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleSubmit(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp api.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestSchedulerHandler_HandleSubmit_RejectsEmptyName(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	sched := scheduler.New(reg, events.NewBus(nil), zap.NewNop(), scheduler.DefaultConfig())
	handler := NewSchedulerHandler(sched, zap.NewNop())

	body, _ := json.Marshal(map[string]any{"name": ""})
	r := httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleSubmit(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerHandler_HandleGetJob_NotFound(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	sched := scheduler.New(reg, events.NewBus(nil), zap.NewNop(), scheduler.DefaultConfig())
	handler := NewSchedulerHandler(sched, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/v1/jobs/{job_id}", handler.HandleGetJob).Methods(http.MethodGet)

	r := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedulerHandler_HandleCancel(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	sched := scheduler.New(reg, events.NewBus(nil), zap.NewNop(), scheduler.DefaultConfig())
	handler := NewSchedulerHandler(sched, zap.NewNop())

	job := sched.Submit("ingest", "team-a", nil)

	router := mux.NewRouter()
	router.HandleFunc("/v1/jobs/{job_id}/cancel", handler.HandleCancel).Methods(http.MethodPost)

	r := httptest.NewRequest(http.MethodPost, "/v1/jobs/"+job.ID+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSchedulerHandler_HandleMonitor(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	sched := scheduler.New(reg, events.NewBus(nil), zap.NewNop(), scheduler.DefaultConfig())
	handler := NewSchedulerHandler(sched, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/v1/scheduler/monitor", nil)
	w := httptest.NewRecorder()
	handler.HandleMonitor(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
