package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, HealthConfig{}, cfg.Health)
	assert.NotEqual(t, LifecycleConfig{}, cfg.Lifecycle)
	assert.NotEqual(t, SchedulerConfig{}, cfg.Scheduler)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestDefaultHealthConfig(t *testing.T) {
	cfg := DefaultHealthConfig()
	assert.Equal(t, 30000, cfg.IntervalMS)
	assert.Equal(t, 10000, cfg.TimeoutMS)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 2, cfg.SuccessThreshold)
	assert.Equal(t, 3, cfg.FailureThreshold)
	assert.Equal(t, "/health", cfg.EndpointPath)
}

func TestDefaultLifecycleConfig(t *testing.T) {
	cfg := DefaultLifecycleConfig()
	assert.Equal(t, 300000, cfg.DeploymentTimeoutMS)
	assert.Equal(t, 180000, cfg.RollbackTimeoutMS)
	assert.Equal(t, 30000, cfg.HealthCheckTimeoutMS)
}

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.Equal(t, "FIFO", cfg.Type)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "fleetctl", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.001)
}

// --- Conversion to runtime configs ---

func TestHealthConfig_ToHealthConfig(t *testing.T) {
	wire := DefaultHealthConfig()
	runtime := wire.ToHealthConfig()
	assert.Equal(t, 30*time.Second, runtime.Interval)
	assert.Equal(t, 10*time.Second, runtime.Timeout)
	assert.Equal(t, wire.Retries, runtime.Retries)
	assert.Equal(t, wire.SuccessThreshold, runtime.SuccessThreshold)
	assert.Equal(t, wire.FailureThreshold, runtime.FailureThreshold)
	assert.Equal(t, wire.EndpointPath, runtime.EndpointPath)
}

func TestLifecycleConfig_ToLifecycleConfig(t *testing.T) {
	wire := DefaultLifecycleConfig()
	runtime := wire.ToLifecycleConfig()
	assert.Equal(t, 300*time.Second, runtime.DeploymentTimeout)
	assert.Equal(t, 180*time.Second, runtime.RollbackTimeout)
	assert.Equal(t, 30*time.Second, runtime.HealthCheckTimeout)
}

func TestSchedulerConfig_ToSchedulerConfig(t *testing.T) {
	wire := DefaultSchedulerConfig()
	runtime := wire.ToSchedulerConfig()
	assert.EqualValues(t, wire.Type, runtime.SchedulingType)
	assert.Equal(t, wire.MaxRetries, runtime.MaxRetries)
}
