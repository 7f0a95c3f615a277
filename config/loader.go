// =============================================================================
// Fleetctl configuration loader
// =============================================================================
// Merges configuration from three sources: built-in defaults, an optional
// YAML file, then environment variables. Priority: defaults -> YAML -> env.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the control plane's complete configuration.
type Config struct {
	// Server holds the HTTP listener's ports and timeouts.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Health holds the health checker's tunables.
	Health HealthConfig `yaml:"health" env:"HEALTH"`

	// Lifecycle holds the lifecycle manager's per-operation timeouts.
	Lifecycle LifecycleConfig `yaml:"lifecycle" env:"LIFECYCLE"`

	// Scheduler holds the job/task scheduler's tunables.
	Scheduler SchedulerConfig `yaml:"scheduler" env:"SCHEDULER"`

	// Log configures the zap logger shared across the control plane.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures the OpenTelemetry SDK.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the control plane's HTTP listener.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// HealthConfig configures the health checker. Durations are expressed in
// milliseconds in this config-layer representation; health.Config stores
// them as time.Duration once converted by ToHealthConfig.
type HealthConfig struct {
	IntervalMS       int    `yaml:"interval_ms" env:"INTERVAL_MS"`
	TimeoutMS        int    `yaml:"timeout_ms" env:"TIMEOUT_MS"`
	Retries          int    `yaml:"retries" env:"RETRIES"`
	SuccessThreshold int    `yaml:"success_threshold" env:"SUCCESS_THRESHOLD"`
	FailureThreshold int    `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	EndpointPath     string `yaml:"endpoint_path" env:"ENDPOINT_PATH"`
}

// LifecycleConfig configures the lifecycle manager's per-operation timeouts,
// expressed in milliseconds.
type LifecycleConfig struct {
	DeploymentTimeoutMS  int `yaml:"deployment_timeout_ms" env:"DEPLOYMENT_TIMEOUT_MS"`
	RollbackTimeoutMS    int `yaml:"rollback_timeout_ms" env:"ROLLBACK_TIMEOUT_MS"`
	HealthCheckTimeoutMS int `yaml:"health_check_timeout_ms" env:"HEALTH_CHECK_TIMEOUT_MS"`
}

// SchedulerConfig configures the job/task scheduler.
type SchedulerConfig struct {
	Type       string `yaml:"type" env:"TYPE"`
	MaxRetries int    `yaml:"max_retries" env:"MAX_RETRIES"`
}

// LogConfig configures the shared zap logger.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures the OpenTelemetry SDK (internal/telemetry).
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads a Config from defaults, an optional YAML file, and the
// environment, in that priority order.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a Loader with the FLEETCTL environment prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "FLEETCTL",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file path to load.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a config validator run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load merges defaults, the YAML file (if set), and the environment, then
// runs every registered validator.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks v's fields recursively, applying env overrides
// keyed by prefix + "_" + the field's env tag.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads a config from path, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads a config from defaults and the environment only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate runs the config's built-in sanity checks.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Health.Retries < 0 {
		errs = append(errs, "health.retries must not be negative")
	}
	if c.Scheduler.Type != "FIFO" && c.Scheduler.Type != "priority" {
		errs = append(errs, "scheduler.type must be FIFO or priority")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
