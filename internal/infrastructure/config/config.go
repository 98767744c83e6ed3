package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for thermlog.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Engine    EngineConfig    `yaml:"engine"`
	Sinks     SinksConfig     `yaml:"sinks"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig identifies the host this daemon samples.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// EngineConfig contains participant logging engine settings.
// All durations are in milliseconds.
type EngineConfig struct {
	PollIntervalMs     int      `yaml:"poll_interval_ms"`
	MinPollIntervalMs  int      `yaml:"min_poll_interval_ms"`
	MaxPollIntervalMs  int      `yaml:"max_poll_interval_ms"`
	MinGranularityMs   int      `yaml:"min_granularity_ms"`
	ScheduleDelayMs    int      `yaml:"schedule_delay_ms"`
	MinScheduleDelayMs int      `yaml:"min_schedule_delay_ms"`
	StartupDelayMs     int      `yaml:"startup_delay_ms"`
	PrimitiveTimeoutMs int      `yaml:"primitive_timeout_ms"`
	Routes             []string `yaml:"routes"`

	// AutoStart enrolls AutoStartTargets at startup, as a start command would.
	AutoStart        bool     `yaml:"auto_start"`
	AutoStartTargets []string `yaml:"auto_start_targets"`
}

// SinksConfig contains route backend settings.
type SinksConfig struct {
	File     FileSinkConfig     `yaml:"file"`
	EventLog EventLogSinkConfig `yaml:"eventlog"`
}

// FileSinkConfig contains the file route settings.
type FileSinkConfig struct {
	// Directory is created on first use if missing.
	Directory string `yaml:"directory"`

	// Name is the default file target. Empty means a timestamped name
	// is generated each time the file route is opened.
	Name string `yaml:"name"`
}

// EventLogSinkConfig contains the system event log route settings.
type EventLogSinkConfig struct {
	Tag string `yaml:"tag"`
}

// SamplerConfig contains host source sampler settings.
type SamplerConfig struct {
	Enabled   bool     `yaml:"enabled"`
	PeriodMs  int      `yaml:"period_ms"`
	Sources   []string `yaml:"sources"`
	Directory string   `yaml:"directory"`
	FileName  string   `yaml:"file_name"`
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
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

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains settings for the stream route's WebSocket hub.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // minutes
}

// minJWTSecretLength is the shortest accepted HMAC secret.
const minJWTSecretLength = 32

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. A .env file in the working directory, if present
//  3. YAML file values (override defaults)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: THERMLOG_SECTION_KEY
// For example: THERMLOG_DATABASE_PATH, THERMLOG_ENGINE_POLL_INTERVAL_MS
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	// A missing .env is the normal case outside development.
	_ = godotenv.Load() //nolint:errcheck // optional file

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration. It is valid except for the
// JWT secret, which must always be supplied when the API is enabled.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "host-001",
			Name: "thermlog",
		},
		Engine: EngineConfig{
			PollIntervalMs:     2000,
			MinPollIntervalMs:  1500,
			MaxPollIntervalMs:  600000,
			MinGranularityMs:   1,
			ScheduleDelayMs:    5000,
			MinScheduleDelayMs: 1500,
			StartupDelayMs:     1500,
			Routes:             []string{"file"},
			PrimitiveTimeoutMs: 500,
		},
		Sinks: SinksConfig{
			File: FileSinkConfig{
				Directory: "./logs",
			},
			EventLog: EventLogSinkConfig{
				Tag: "thermlog",
			},
		},
		Sampler: SamplerConfig{
			PeriodMs:  1000,
			Sources:   []string{"cpu", "memory", "load"},
			Directory: "./logs",
		},
		Database: DatabaseConfig{
			Path:        "./data/thermlog.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "thermlog",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
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
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: THERMLOG_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("THERMLOG_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("THERMLOG_ENGINE_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.PollIntervalMs = n
		}
	}
	if v := os.Getenv("THERMLOG_ENGINE_ROUTES"); v != "" {
		cfg.Engine.Routes = splitList(v)
	}
	if v := os.Getenv("THERMLOG_SINKS_FILE_DIRECTORY"); v != "" {
		cfg.Sinks.File.Directory = v
	}

	if v := os.Getenv("THERMLOG_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("THERMLOG_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("THERMLOG_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("THERMLOG_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("THERMLOG_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("THERMLOG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("THERMLOG_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// splitList splits a comma separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	e := c.Engine
	if e.MinPollIntervalMs < 1 {
		errs = append(errs, "engine.min_poll_interval_ms must be positive")
	}
	if e.MaxPollIntervalMs < e.MinPollIntervalMs {
		errs = append(errs, "engine.max_poll_interval_ms must not be below engine.min_poll_interval_ms")
	}
	if e.PollIntervalMs < e.MinPollIntervalMs || e.PollIntervalMs > e.MaxPollIntervalMs {
		errs = append(errs, fmt.Sprintf("engine.poll_interval_ms must be between %d and %d", e.MinPollIntervalMs, e.MaxPollIntervalMs))
	}
	if e.MinGranularityMs < 1 {
		errs = append(errs, "engine.min_granularity_ms must be at least 1")
	}
	if e.ScheduleDelayMs < e.MinScheduleDelayMs {
		errs = append(errs, fmt.Sprintf("engine.schedule_delay_ms must be at least %d", e.MinScheduleDelayMs))
	}
	if e.StartupDelayMs < 0 {
		errs = append(errs, "engine.startup_delay_ms must not be negative")
	}

	if c.Sinks.File.Directory == "" {
		errs = append(errs, "sinks.file.directory is required")
	}

	if c.Sampler.Enabled {
		if c.Sampler.FileName == "" {
			errs = append(errs, "sampler.file_name is required when the sampler is enabled")
		}
		if len(c.Sampler.Sources) == 0 {
			errs = append(errs, "sampler.sources must name at least one source")
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		// Tokens signed with a short secret can be brute forced offline.
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set THERMLOG_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollInterval returns the default engine poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalMs) * time.Millisecond
}

// ScheduleDelay returns the default delay for the schedule command.
func (c *Config) ScheduleDelay() time.Duration {
	return time.Duration(c.Engine.ScheduleDelayMs) * time.Millisecond
}

// SamplerPeriod returns the sampler period.
func (c *Config) SamplerPeriod() time.Duration {
	return time.Duration(c.Sampler.PeriodMs) * time.Millisecond
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
