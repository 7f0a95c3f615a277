package config

import (
	"time"

	"github.com/agentfleet/controlplane/health"
	"github.com/agentfleet/controlplane/lifecycle"
	"github.com/agentfleet/controlplane/scheduler"
)

// ToHealthConfig converts the millisecond-valued wire config into the
// time.Duration-valued config the health checker uses at runtime.
func (h HealthConfig) ToHealthConfig() health.Config {
	return health.Config{
		Interval:         time.Duration(h.IntervalMS) * time.Millisecond,
		Timeout:          time.Duration(h.TimeoutMS) * time.Millisecond,
		Retries:          h.Retries,
		SuccessThreshold: h.SuccessThreshold,
		FailureThreshold: h.FailureThreshold,
		EndpointPath:     h.EndpointPath,
	}
}

// ToLifecycleConfig converts the millisecond-valued wire config into the
// lifecycle manager's runtime Config.
func (l LifecycleConfig) ToLifecycleConfig() lifecycle.Config {
	return lifecycle.Config{
		DeploymentTimeout:  time.Duration(l.DeploymentTimeoutMS) * time.Millisecond,
		RollbackTimeout:    time.Duration(l.RollbackTimeoutMS) * time.Millisecond,
		HealthCheckTimeout: time.Duration(l.HealthCheckTimeoutMS) * time.Millisecond,
	}
}

// ToSchedulerConfig converts the wire config into the scheduler's runtime
// Config.
func (s SchedulerConfig) ToSchedulerConfig() scheduler.Config {
	return scheduler.Config{
		SchedulingType: scheduler.SchedulingType(s.Type),
		MaxRetries:     s.MaxRetries,
	}
}
