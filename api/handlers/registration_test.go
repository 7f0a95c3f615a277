package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/api"
	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/health"
	"github.com/agentfleet/controlplane/types"
)

func validRegisterBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"agent_id": "agent-1",
		"name":     "Agent One",
		"version":  "1.0.0",
		"capabilities": []map[string]any{
			{"id": "cap.echo", "name": "echo", "version": "1.0.0"},
		},
		"endpoint": map[string]any{
			"url":      "https://agent-1.internal:8443",
			"protocol": "https",
			"auth":     map[string]any{"type": "bearer"},
		},
	})
	return body
}

func TestRegistrationHandler_HandleRegister_Success(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	handler := NewRegistrationHandler(reg, nil, nil, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(validRegisterBody()))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.HandleRegister(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp api.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)

	_, ok := reg.Get("agent-1")
	assert.True(t, ok)
}

func TestRegistrationHandler_HandleRegister_InvalidRequest(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	handler := NewRegistrationHandler(reg, nil, nil, zap.NewNop())

	body, _ := json.Marshal(map[string]any{"name": ""})
	r := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleRegister(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp api.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrInvalidRegistration), resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Errors)
}

func TestRegistrationHandler_HandleRegister_Conflict(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	handler := NewRegistrationHandler(reg, nil, nil, zap.NewNop())

	r1 := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(validRegisterBody()))
	w1 := httptest.NewRecorder()
	handler.HandleRegister(w1, r1)
	require.Equal(t, http.StatusCreated, w1.Code)

	r2 := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(validRegisterBody()))
	w2 := httptest.NewRecorder()
	handler.HandleRegister(w2, r2)

	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestRegistrationHandler_HandleRegister_StartsHealthPolling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := discovery.New(capability.New(nil), nil)
	cfg := health.DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	checker := health.NewChecker(reg, events.NewBus(nil), zap.NewNop(), cfg)
	defer checker.Close()

	completed := make(chan struct{}, 1)
	checker.OnEvent(func(ev events.Event) {
		if ev.Type == events.HealthCheckCompleted {
			select {
			case completed <- struct{}{}:
			default:
			}
		}
	})

	handler := NewRegistrationHandler(reg, checker, nil, zap.NewNop())

	body, _ := json.Marshal(map[string]any{
		"agent_id":     "agent-1",
		"name":         "agent-1",
		"version":      "1.0.0",
		"capabilities": []map[string]any{{"id": "cap.echo", "name": "echo", "version": "1.0.0"}},
		"endpoint":     map[string]any{"url": srv.URL, "protocol": "http"},
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/agents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleRegister(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("expected health polling to start after registration")
	}
}

func TestRegistrationHandler_HandleDeregister(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	handler := NewRegistrationHandler(reg, nil, nil, zap.NewNop())

	require.NoError(t, reg.Register(&types.AgentRecord{
		AgentID:  "agent-1",
		Metadata: types.Metadata{Name: "agent-1"},
		Endpoint: types.Endpoint{URL: "https://agent-1.internal", Protocol: "https"},
	}))

	router := mux.NewRouter()
	router.HandleFunc("/v1/agents/{agent_id}", handler.HandleDeregister).Methods(http.MethodDelete)

	r := httptest.NewRequest(http.MethodDelete, "/v1/agents/agent-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := reg.Get("agent-1")
	assert.False(t, ok)
}

func TestRegistrationHandler_HandleDeregister_NotFound(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	handler := NewRegistrationHandler(reg, nil, nil, zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/v1/agents/{agent_id}", handler.HandleDeregister).Methods(http.MethodDelete)

	r := httptest.NewRequest(http.MethodDelete, "/v1/agents/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
