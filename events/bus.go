package events

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/types"
)

// Type is the tag of the typed event union.
type Type string

const (
	HealthCheckCompleted Type = "health_check_completed"
	HealthStatusChanged  Type = "health_status_changed"
	AgentUnhealthy       Type = "agent_unhealthy"
	AgentRecovered       Type = "agent_recovered"
	StateChanged         Type = "state_changed"
	DeploymentStarted    Type = "deployment_started"
	DeploymentCompleted  Type = "deployment_completed"
	RollbackStarted      Type = "rollback_started"
	RollbackCompleted    Type = "rollback_completed"
	ErrorEvent           Type = "error"
	JobSubmitted         Type = "job_submitted"
	JobCancelled         Type = "job_cancelled"
	TaskAssigned         Type = "task_assigned"
	TaskCompleted        Type = "task_completed"
	TaskFailed           Type = "task_failed"
)

// Event is the single wire shape for every control-plane event: a type tag,
// the agent it concerns, a timestamp, and type-specific data.
type Event struct {
	Type      Type          `json:"type"`
	AgentID   types.AgentID `json:"agent_id"`
	Timestamp time.Time     `json:"timestamp"`
	Data      any           `json:"data,omitempty"`
}

// Handler receives emitted events. A handler must not block indefinitely:
// it runs synchronously inside Emit, in the order listeners subscribed.
type Handler func(Event)

// Bus is a minimal pub/sub fan-out for Event values. Unlike the source
// system's fire-and-forget goroutine-per-listener dispatch, Bus calls
// listeners synchronously and in subscription order so that, for a single
// agent, events are observed in the order their causing operations
// completed.
type Bus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	order    []uint64
	counter  atomic.Uint64
	logger   *zap.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[uint64]Handler),
		logger:   logger.With(zap.String("component", "event_bus")),
	}
}

// subscriptionID is returned by Subscribe so callers can Unsubscribe later.
type subscriptionID = uint64

// Subscribe registers fn and returns a token that Unsubscribe accepts.
func (b *Bus) Subscribe(fn Handler) subscriptionID {
	id := b.counter.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = fn
	b.order = append(b.order, id)
	return id
}

// Unsubscribe removes a previously subscribed handler. Unknown ids are a no-op.
func (b *Bus) Unsubscribe(id subscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[id]; !ok {
		return
	}
	delete(b.handlers, id)
	for i, hid := range b.order {
		if hid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Emit dispatches ev to every subscribed handler in subscription order. A
// handler that panics is recovered and logged; it never prevents later
// handlers from running and never propagates to the caller.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	ids := make([]uint64, len(b.order))
	copy(ids, b.order)
	handlers := make(map[uint64]Handler, len(b.handlers))
	for k, v := range b.handlers {
		handlers[k] = v
	}
	b.mu.RUnlock()

	for _, id := range ids {
		fn, ok := handlers[id]
		if !ok {
			continue
		}
		b.invoke(fn, ev)
	}
}

func (b *Bus) invoke(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				zap.Any("recover", r),
				zap.String("event_type", string(ev.Type)),
				zap.String("agent_id", string(ev.AgentID)),
			)
		}
	}()
	fn(ev)
}
