// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 发现与注册表指标
	registrationsTotal   *prometheus.CounterVec
	deregistrationsTotal *prometheus.CounterVec
	registeredAgents     *prometheus.GaugeVec

	// 健康检查指标
	probesTotal       *prometheus.CounterVec
	probeDuration     *prometheus.HistogramVec
	healthTransitions *prometheus.CounterVec

	// 生命周期指标
	lifecycleOperationsTotal  *prometheus.CounterVec
	lifecycleStateTransitions *prometheus.CounterVec

	// 调度器指标
	jobsSubmittedTotal  *prometheus.CounterVec
	tasksAssignedTotal  *prometheus.CounterVec
	tasksCompletedTotal *prometheus.CounterVec
	tasksFailedTotal    *prometheus.CounterVec

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 发现与注册表指标
	c.registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of agent registration attempts by result (accepted, rejected, conflict)",
		},
		[]string{"result"},
	)

	c.deregistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deregistrations_total",
			Help:      "Total number of agent deregistrations",
		},
		[]string{"reason"},
	)

	c.registeredAgents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_agents",
			Help:      "Current number of registered agents by health status",
		},
		[]string{"health_status"},
	)

	// 健康检查指标
	c.probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_probes_total",
			Help:      "Total number of health probes executed",
		},
		[]string{"result"},
	)

	c.probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "health_probe_duration_seconds",
			Help:      "Health probe duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"agent_id"},
	)

	c.healthTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_status_transitions_total",
			Help:      "Total number of agent health status transitions",
		},
		[]string{"from_status", "to_status"},
	)

	// 生命周期指标
	c.lifecycleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Total number of lifecycle operations (deploy/update/rollback/scale/stop/deregister)",
		},
		[]string{"operation", "result"},
	)

	c.lifecycleStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_state_transitions_total",
			Help:      "Total number of agent lifecycle state transitions",
		},
		[]string{"agent_id", "from_state", "to_state"},
	)

	// 调度器指标
	c.jobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to the scheduler",
		},
		[]string{"owner"},
	)

	c.tasksAssignedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_assigned_total",
			Help:      "Total number of tasks assigned to an agent",
		},
		[]string{"task_type"},
	)

	c.tasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks that completed successfully",
		},
		[]string{"task_type"},
	)

	c.tasksFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks that permanently failed",
		},
		[]string{"task_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🔍 发现与注册表指标记录
// =============================================================================

// RecordRegistration 记录一次注册尝试的结果（"accepted"、"rejected" 或 "conflict"）。
func (c *Collector) RecordRegistration(result string) {
	c.registrationsTotal.WithLabelValues(result).Inc()
}

// RecordDeregistration 记录一次注销，按原因分组（"stopped"、"expired" 等）。
func (c *Collector) RecordDeregistration(reason string) {
	c.deregistrationsTotal.WithLabelValues(reason).Inc()
}

// SetRegisteredAgents 设置当前按健康状态分组的已注册 agent 数量。
func (c *Collector) SetRegisteredAgents(healthStatus string, count int) {
	c.registeredAgents.WithLabelValues(healthStatus).Set(float64(count))
}

// =============================================================================
// 🩺 健康检查指标记录
// =============================================================================

// RecordProbe 记录一次健康探测。
func (c *Collector) RecordProbe(agentID, result string, duration time.Duration) {
	c.probesTotal.WithLabelValues(result).Inc()
	c.probeDuration.WithLabelValues(agentID).Observe(duration.Seconds())
}

// RecordHealthTransition 记录一次健康状态迁移。
func (c *Collector) RecordHealthTransition(fromStatus, toStatus string) {
	c.healthTransitions.WithLabelValues(fromStatus, toStatus).Inc()
}

// =============================================================================
// 🚀 生命周期指标记录
// =============================================================================

// RecordLifecycleOperation 记录一次生命周期操作（deploy/update/rollback/scale/stop/deregister）。
func (c *Collector) RecordLifecycleOperation(operation, result string) {
	c.lifecycleOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordLifecycleTransition 记录一次 agent 生命周期状态迁移。
func (c *Collector) RecordLifecycleTransition(agentID, fromState, toState string) {
	c.lifecycleStateTransitions.WithLabelValues(agentID, fromState, toState).Inc()
}

// =============================================================================
// 📋 调度器指标记录
// =============================================================================

// RecordJobSubmitted 记录一次作业提交。
func (c *Collector) RecordJobSubmitted(owner string) {
	c.jobsSubmittedTotal.WithLabelValues(owner).Inc()
}

// RecordTaskAssigned 记录一次任务分配。
func (c *Collector) RecordTaskAssigned(taskType string) {
	c.tasksAssignedTotal.WithLabelValues(taskType).Inc()
}

// RecordTaskCompleted 记录一次任务成功完成。
func (c *Collector) RecordTaskCompleted(taskType string) {
	c.tasksCompletedTotal.WithLabelValues(taskType).Inc()
}

// RecordTaskFailed 记录一次任务永久失败。
func (c *Collector) RecordTaskFailed(taskType string) {
	c.tasksFailedTotal.WithLabelValues(taskType).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
