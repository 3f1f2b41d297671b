package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic Conductor.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Environment EnvironmentConfig `yaml:"environment"`
	Catalog     CatalogConfig     `yaml:"catalog"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ExecutionConfig controls plan execution timing.
//
// Durations are expressed in milliseconds so that YAML files stay readable
// for operators; use the getter methods to obtain time.Duration values.
type ExecutionConfig struct {
	// SettleDelayMS is the pause between two completed steps.
	SettleDelayMS int `yaml:"settle_delay_ms"`

	// PostCheckDelayMS is how long a specialist waits before re-reading
	// device state to verify a command took effect.
	PostCheckDelayMS int `yaml:"post_check_delay_ms"`

	// PlanTTLMinutes is how long an unexecuted plan is kept before it is swept.
	PlanTTLMinutes int `yaml:"plan_ttl_minutes"`
}

// SimulationConfig controls the simulated device transport.
type SimulationConfig struct {
	// Enabled selects the simulated transport instead of MQTT.
	Enabled bool `yaml:"enabled"`

	MinLatencyMS int `yaml:"min_latency_ms"`
	MaxLatencyMS int `yaml:"max_latency_ms"`

	// FailureRate is the probability (0.0-1.0) that a single command fails.
	FailureRate float64 `yaml:"failure_rate"`

	// Seed fixes the random source. Zero means seed from the clock.
	Seed int64 `yaml:"seed"`
}

// EnvironmentConfig configures the context provider.
type EnvironmentConfig struct {
	// QuietHoursStart and QuietHoursEnd are "HH:MM" in the site timezone.
	// The window may wrap midnight.
	QuietHoursStart string `yaml:"quiet_hours_start"`
	QuietHoursEnd   string `yaml:"quiet_hours_end"`

	// Defaults used until a weather reading arrives over MQTT.
	DefaultOutdoorTemp float64 `yaml:"default_outdoor_temp"`
	DefaultRaining     bool    `yaml:"default_raining"`
	Occupancy          string  `yaml:"occupancy"`

	WeatherTopic string `yaml:"weather_topic"`
}

// CatalogConfig points at optional YAML files that seed the device registry
// and override the built-in plan templates.
type CatalogConfig struct {
	DevicesFile   string `yaml:"devices_file"`
	TemplatesFile string `yaml:"templates_file"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CONDUCTOR_SECTION_KEY
// For example: CONDUCTOR_DATABASE_PATH, CONDUCTOR_API_PORT
//
// An empty path skips step 2, which lets the CLI run without a config file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/conductor.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-conductor",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Execution: ExecutionConfig{
			SettleDelayMS:    300,
			PostCheckDelayMS: 500,
			PlanTTLMinutes:   15,
		},
		Simulation: SimulationConfig{
			Enabled:      true,
			MinLatencyMS: 50,
			MaxLatencyMS: 250,
			FailureRate:  0.05,
		},
		Environment: EnvironmentConfig{
			QuietHoursStart:    "22:00",
			QuietHoursEnd:      "07:00",
			DefaultOutdoorTemp: 15,
			Occupancy:          "home",
			WeatherTopic:       "conductor/sensor/weather",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CONDUCTOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CONDUCTOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CONDUCTOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CONDUCTOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CONDUCTOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CONDUCTOR_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CONDUCTOR_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("CONDUCTOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Simulation
	if v := os.Getenv("CONDUCTOR_SIMULATION_FAILURE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Simulation.FailureRate = rate
		}
	}

	// Logging
	if v := os.Getenv("CONDUCTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together so an operator can fix
// a config file in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is invalid", c.Site.Timezone))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Execution.SettleDelayMS < 0 {
		errs = append(errs, "execution.settle_delay_ms must not be negative")
	}
	if c.Execution.PostCheckDelayMS < 0 {
		errs = append(errs, "execution.post_check_delay_ms must not be negative")
	}
	if c.Execution.PlanTTLMinutes < 1 {
		errs = append(errs, "execution.plan_ttl_minutes must be at least 1")
	}

	if c.Simulation.FailureRate < 0 || c.Simulation.FailureRate > 1 {
		errs = append(errs, "simulation.failure_rate must be between 0 and 1")
	}
	if c.Simulation.MinLatencyMS < 0 || c.Simulation.MaxLatencyMS < c.Simulation.MinLatencyMS {
		errs = append(errs, "simulation latency bounds must satisfy 0 <= min_latency_ms <= max_latency_ms")
	}
	if !c.Simulation.Enabled && !c.MQTT.Enabled {
		errs = append(errs, "either simulation.enabled or mqtt.enabled must be set to actuate devices")
	}

	if _, err := ParseClock(c.Environment.QuietHoursStart); err != nil {
		errs = append(errs, "environment.quiet_hours_start: "+err.Error())
	}
	if _, err := ParseClock(c.Environment.QuietHoursEnd); err != nil {
		errs = append(errs, "environment.quiet_hours_end: "+err.Error())
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ParseClock parses an "HH:MM" string into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetSettleDelay returns the inter-step settle delay.
func (c *Config) GetSettleDelay() time.Duration {
	return time.Duration(c.Execution.SettleDelayMS) * time.Millisecond
}

// GetPostCheckDelay returns the delay before post-check state reads.
func (c *Config) GetPostCheckDelay() time.Duration {
	return time.Duration(c.Execution.PostCheckDelayMS) * time.Millisecond
}

// GetPlanTTL returns how long unexecuted plans are retained.
func (c *Config) GetPlanTTL() time.Duration {
	return time.Duration(c.Execution.PlanTTLMinutes) * time.Minute
}

// GetLatencyBounds returns the simulated transport latency range.
func (c *Config) GetLatencyBounds() (minLatency, maxLatency time.Duration) {
	return time.Duration(c.Simulation.MinLatencyMS) * time.Millisecond,
		time.Duration(c.Simulation.MaxLatencyMS) * time.Millisecond
}
