// =============================================================================
// Fleetctl default configuration
// =============================================================================
package config

import "time"

// DefaultConfig returns the control plane's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Health:    DefaultHealthConfig(),
		Lifecycle: DefaultLifecycleConfig(),
		Scheduler: DefaultSchedulerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the server's default ports and timeouts.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultHealthConfig mirrors health.DefaultConfig in milliseconds.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		IntervalMS:       30000,
		TimeoutMS:        10000,
		Retries:          3,
		SuccessThreshold: 2,
		FailureThreshold: 3,
		EndpointPath:     "/health",
	}
}

// DefaultLifecycleConfig mirrors lifecycle.DefaultConfig in milliseconds.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		DeploymentTimeoutMS:  300000,
		RollbackTimeoutMS:    180000,
		HealthCheckTimeoutMS: 30000,
	}
}

// DefaultSchedulerConfig mirrors scheduler.DefaultConfig.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Type:       "FIFO",
		MaxRetries: 3,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns telemetry disabled by default.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "fleetctl",
		SampleRate:   0.1,
	}
}
