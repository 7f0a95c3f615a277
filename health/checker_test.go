package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentfleet/controlplane/capability"
	"github.com/agentfleet/controlplane/discovery"
	"github.com/agentfleet/controlplane/events"
	"github.com/agentfleet/controlplane/types"
)

func newTestRegistry(t *testing.T, endpointURL string) (*discovery.Registry, types.AgentID) {
	t.Helper()
	reg := discovery.New(capability.New(nil), nil)
	agent := &types.AgentRecord{
		AgentID:  "agent-1",
		Metadata: types.Metadata{Name: "agent-1"},
		Endpoint: types.Endpoint{URL: endpointURL, Protocol: "http"},
		Health:   types.Health{Status: types.HealthUnknown},
	}
	if err := reg.Register(agent); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg, agent.AgentID
}

func TestPerformCheck_FastEmptyBodyClassifiedHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg, agentID := newTestRegistry(t, srv.URL)
	cfg := DefaultConfig()
	cfg.Retries = 1
	checker := NewChecker(reg, events.NewBus(nil), nil, cfg)

	var gotCompleted, gotChanged, gotUnhealthy int32
	checker.OnEvent(func(ev events.Event) {
		switch ev.Type {
		case events.HealthCheckCompleted:
			atomic.AddInt32(&gotCompleted, 1)
		case events.HealthStatusChanged:
			atomic.AddInt32(&gotChanged, 1)
		case events.AgentUnhealthy:
			atomic.AddInt32(&gotUnhealthy, 1)
		}
	})

	result := checker.PerformCheck(context.Background(), agentID)
	if result.Status != types.HealthHealthy {
		t.Errorf("status = %v, want healthy for a fast empty-body 200", result.Status)
	}
	if atomic.LoadInt32(&gotCompleted) != 1 {
		t.Errorf("health_check_completed fired %d times, want 1", gotCompleted)
	}
	if atomic.LoadInt32(&gotChanged) != 1 {
		t.Errorf("health_status_changed fired %d times, want 1", gotChanged)
	}
	if atomic.LoadInt32(&gotUnhealthy) != 0 {
		t.Errorf("agent_unhealthy fired %d times, want 0", gotUnhealthy)
	}
}

func TestPerformCheck_RetryThenSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			panic(http.ErrAbortHandler)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	reg, agentID := newTestRegistry(t, srv.URL)
	cfg := DefaultConfig()
	cfg.Retries = 3
	checker := NewChecker(reg, events.NewBus(nil), nil, cfg)

	result := checker.PerformCheck(context.Background(), agentID)
	if result.Status != types.HealthHealthy {
		t.Errorf("status = %v, want healthy after eventual success", result.Status)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(checker.History(agentID, 0)) != 1 {
		t.Errorf("history length = %d, want 1 (only the final attempt recorded)", len(checker.History(agentID, 0)))
	}
}

func TestPerformCheck_RecoveryPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	reg, agentID := newTestRegistry(t, srv.URL)
	reg.UpdateHealth(agentID, types.Health{Status: types.HealthUnhealthy, ErrorCount: 5})

	cfg := DefaultConfig()
	cfg.Retries = 1
	checker := NewChecker(reg, events.NewBus(nil), nil, cfg)

	var order []events.Type
	checker.OnEvent(func(ev events.Event) { order = append(order, ev.Type) })

	checker.PerformCheck(context.Background(), agentID)

	want := []events.Type{events.HealthCheckCompleted, events.HealthStatusChanged, events.AgentRecovered}
	if len(order) != len(want) {
		t.Fatalf("events = %v, want %v", order, want)
	}
	for i, ev := range want {
		if order[i] != ev {
			t.Errorf("event[%d] = %v, want %v", i, order[i], ev)
		}
	}

	agent, _ := reg.Get(agentID)
	if agent.Health.ErrorCount != 0 {
		t.Errorf("error_count = %d, want 0 after recovery", agent.Health.ErrorCount)
	}
}

func TestPerformCheck_AgentNotFound(t *testing.T) {
	reg := discovery.New(capability.New(nil), nil)
	checker := NewChecker(reg, events.NewBus(nil), nil, DefaultConfig())

	result := checker.PerformCheck(context.Background(), "missing")
	if result.Status != types.HealthUnknown {
		t.Errorf("status = %v, want unknown", result.Status)
	}
	if result.Error != "Agent not found" {
		t.Errorf("error = %q, want %q", result.Error, "Agent not found")
	}
}

func TestCheckAllNow_ProbesEveryRegisteredAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := discovery.New(capability.New(nil), nil)
	ids := []types.AgentID{"agent-1", "agent-2", "agent-3"}
	for _, id := range ids {
		agent := &types.AgentRecord{
			AgentID:  id,
			Metadata: types.Metadata{Name: string(id)},
			Endpoint: types.Endpoint{URL: srv.URL, Protocol: "http"},
			Health:   types.Health{Status: types.HealthUnknown},
		}
		if err := reg.Register(agent); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Retries = 1
	checker := NewChecker(reg, events.NewBus(nil), nil, cfg)
	defer checker.Close()

	results := checker.CheckAllNow(context.Background())
	if len(results) != len(ids) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(ids))
	}
	for _, id := range ids {
		result, ok := results[id]
		if !ok {
			t.Errorf("missing result for %s", id)
			continue
		}
		if result.Status != types.HealthHealthy {
			t.Errorf("result[%s].Status = %v, want healthy", id, result.Status)
		}
	}
}

func TestPerformCheck_NonUnhealthyStatusNeverRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg, agentID := newTestRegistry(t, srv.URL)
	cfg := DefaultConfig()
	cfg.Retries = 5
	checker := NewChecker(reg, events.NewBus(nil), nil, cfg)

	checker.PerformCheck(context.Background(), agentID)
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (a 2xx response must not be retried)", calls)
	}
}

// TestPerformCheck_StatusChangedObservesRegistryAlreadyUpdated checks that
// by the time a health_status_changed subscriber runs, the registry's
// health.status for that agent already reflects the event's current value
// — the push to the registry happens before the event fires, not after.
func TestPerformCheck_StatusChangedObservesRegistryAlreadyUpdated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg, agentID := newTestRegistry(t, srv.URL)
	cfg := DefaultConfig()
	cfg.Retries = 1
	checker := NewChecker(reg, events.NewBus(nil), nil, cfg)

	var sawDuringEvent types.HealthStatus
	checker.OnEvent(func(ev events.Event) {
		if ev.Type != events.HealthStatusChanged {
			return
		}
		agent, ok := reg.Get(agentID)
		if !ok {
			t.Fatal("agent disappeared from registry during event handling")
		}
		sawDuringEvent = agent.Health.Status
	})

	result := checker.PerformCheck(context.Background(), agentID)

	if sawDuringEvent != result.Status {
		t.Errorf("registry status during health_status_changed = %v, want %v (the event's current)", sawDuringEvent, result.Status)
	}
}
