package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.registrationsTotal)
	assert.NotNil(t, collector.probesTotal)
	assert.NotNil(t, collector.lifecycleOperationsTotal)
	assert.NotNil(t, collector.jobsSubmittedTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)

	collector.RecordHTTPRequest("GET", "/test", 200, 50*time.Millisecond, 512, 1024)

	newCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.GreaterOrEqual(t, newCount, count)
}

func TestCollector_RecordRegistration(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordRegistration("accepted")
	collector.RecordRegistration("rejected")

	count := testutil.CollectAndCount(collector.registrationsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordDeregistrationAndGauge(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordDeregistration("stopped")
	collector.SetRegisteredAgents("healthy", 3)
	collector.SetRegisteredAgents("unhealthy", 1)

	deregCount := testutil.CollectAndCount(collector.deregistrationsTotal)
	assert.Greater(t, deregCount, 0)

	gaugeCount := testutil.CollectAndCount(collector.registeredAgents)
	assert.Equal(t, 2, gaugeCount)
}

func TestCollector_RecordProbe(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordProbe("agent-1", "success", 25*time.Millisecond)
	collector.RecordHealthTransition("healthy", "unhealthy")

	probeCount := testutil.CollectAndCount(collector.probesTotal)
	assert.Greater(t, probeCount, 0)

	transitionCount := testutil.CollectAndCount(collector.healthTransitions)
	assert.Greater(t, transitionCount, 0)
}

func TestCollector_RecordLifecycleOperation(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordLifecycleOperation("deploy", "success")
	collector.RecordLifecycleTransition("agent-1", "registered", "deploying")

	opCount := testutil.CollectAndCount(collector.lifecycleOperationsTotal)
	assert.Greater(t, opCount, 0)

	transitionCount := testutil.CollectAndCount(collector.lifecycleStateTransitions)
	assert.Greater(t, transitionCount, 0)
}

func TestCollector_RecordSchedulerMetrics(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	collector.RecordJobSubmitted("team-a")
	collector.RecordTaskAssigned("generic")
	collector.RecordTaskCompleted("generic")
	collector.RecordTaskFailed("generic")

	assert.Greater(t, testutil.CollectAndCount(collector.jobsSubmittedTotal), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.tasksAssignedTotal), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.tasksCompletedTotal), 0)
	assert.Greater(t, testutil.CollectAndCount(collector.tasksFailedTotal), 0)
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.RecordProbe("agent-1", "success", 10*time.Millisecond)
			collector.RecordJobSubmitted("team-a")
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	httpCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, httpCount, 0)

	probeCount := testutil.CollectAndCount(collector.probesTotal)
	assert.Greater(t, probeCount, 0)

	jobCount := testutil.CollectAndCount(collector.jobsSubmittedTotal)
	assert.Greater(t, jobCount, 0)
}

func TestCollector_MetricsRegistration(t *testing.T) {
	logger := zap.NewNop()

	registry := prometheus.NewRegistry()

	collector := NewCollector(nextTestNamespace(), logger)

	registry.MustRegister(collector.httpRequestsTotal)
	registry.MustRegister(collector.httpRequestDuration)

	collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 0, 0)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)
}
