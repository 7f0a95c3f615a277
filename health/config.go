package health

import "time"

// Config holds the tunables for the checker's probe loop. All durations are
// expressed in milliseconds in the wire/config representation but stored
// here as time.Duration.
type Config struct {
	Interval         time.Duration
	Timeout          time.Duration
	Retries          int
	SuccessThreshold int
	FailureThreshold int
	CustomHeaders    map[string]string
	CustomBody       []byte
	EndpointPath     string
}

// DefaultConfig returns the checker's documented defaults.
func DefaultConfig() Config {
	return Config{
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		Retries:          3,
		SuccessThreshold: 2,
		FailureThreshold: 3,
		EndpointPath:     "/health",
	}
}

// Merge applies the non-zero fields of partial onto a copy of c and returns
// the result. Running timers are not re-armed by a merge: a timer keeps the
// interval it was armed with, while the other fields take effect from its
// next probe, which reads the live config.
func (c Config) Merge(partial Config) Config {
	merged := c
	if partial.Interval != 0 {
		merged.Interval = partial.Interval
	}
	if partial.Timeout != 0 {
		merged.Timeout = partial.Timeout
	}
	if partial.Retries != 0 {
		merged.Retries = partial.Retries
	}
	if partial.SuccessThreshold != 0 {
		merged.SuccessThreshold = partial.SuccessThreshold
	}
	if partial.FailureThreshold != 0 {
		merged.FailureThreshold = partial.FailureThreshold
	}
	if partial.CustomHeaders != nil {
		merged.CustomHeaders = partial.CustomHeaders
	}
	if partial.CustomBody != nil {
		merged.CustomBody = partial.CustomBody
	}
	if partial.EndpointPath != "" {
		merged.EndpointPath = partial.EndpointPath
	}
	return merged
}
