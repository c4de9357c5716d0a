package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "PRIVATEPUB"

// Config is the root configuration structure for privatepub.
//
// The publishing and signing keys live at the top level of an environment
// document; the ambient sections (api, logging, ...) sit alongside them.
type Config struct {
	PubSubConfig `yaml:",inline"`

	Adapter  AdapterConfig  `yaml:"adapter"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Vault    VaultConfig    `yaml:"vault"`
}

// PubSubConfig holds the keys read by the message builder, publisher,
// signer and status logger.
type PubSubConfig struct {
	// Server is the URL of the broker's HTTP publish endpoint.
	Server string `yaml:"server" envconfig:"SERVER"`

	// SecretToken is the shared secret used to sign subscriptions and
	// authenticate server-side publishes.
	SecretToken string `yaml:"secret_token" envconfig:"SECRET_TOKEN"`

	// SignatureExpiration is the ticket lifetime in seconds.
	// nil means tickets never expire.
	SignatureExpiration *int `yaml:"signature_expiration" envconfig:"SIGNATURE_EXPIRATION"`

	// LogState suppresses lifecycle status lines when true.
	LogState bool `yaml:"log_state" envconfig:"LOG_STATE"`

	// PublishTimeout bounds a publish round trip in seconds. 0 disables it.
	PublishTimeout int `yaml:"publish_timeout" envconfig:"PUBLISH_TIMEOUT"`

	// StrictStatus turns non-2xx broker responses into publish errors.
	StrictStatus bool `yaml:"strict_status" envconfig:"STRICT_STATUS"`
}

// AdapterConfig contains the options handed to the external broker.
type AdapterConfig struct {
	Mount   string `yaml:"mount"`
	Timeout int    `yaml:"timeout"`
	Ping    int    `yaml:"ping"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
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

// DatabaseConfig contains SQLite settings for the audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains settings for the lifecycle event relay.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTReconnectConfig contains reconnection backoff settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// InfluxDBConfig contains settings for publish telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	Measurements InfluxMeasurements `yaml:"measurements"`
}

// InfluxMeasurements names the measurements telemetry is written to.
type InfluxMeasurements struct {
	Publish   string `yaml:"publish"`
	Ticket    string `yaml:"ticket"`
	Lifecycle string `yaml:"lifecycle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings for the HTTP surface.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains service token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// VaultConfig contains HashiCorp Vault settings.
type VaultConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Address     string `yaml:"address"`
	Token       string `yaml:"token"`
	Namespace   string `yaml:"namespace"`
	Mount       string `yaml:"mount"`
	SecretsPath string `yaml:"secrets_path"`
}

// Load reads the given environment from a YAML file and applies overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML environment document (overrides defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern PRIVATEPUB_KEY for the top-level
// keys (PRIVATEPUB_SERVER, PRIVATEPUB_SECRET_TOKEN) and PRIVATEPUB_SECTION_KEY
// for the ambient sections (PRIVATEPUB_SECURITY_JWT_SECRET).
//
// Parameters:
//   - path: Path to the YAML configuration file
//   - environment: Top-level key to select (e.g. "production")
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, the environment is missing, or validation fails
func Load(path, environment string) (*Config, error) {
	store := &Store{cfg: defaultConfig()}
	if err := store.LoadFile(path, environment); err != nil {
		return nil, err
	}

	cfg := store.Config()
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// defaultConfig returns a Config with sensible ambient defaults.
// The publishing keys are left empty: they have no safe default.
func defaultConfig() *Config {
	return &Config{
		PubSubConfig: PubSubConfig{
			PublishTimeout: 10,
		},
		Adapter: AdapterConfig{
			Mount:   "/faye",
			Timeout: 45,
			Ping:    15,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 9292,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/privatepub.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "privatepub",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "privatepub",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
			Measurements: InfluxMeasurements{
				Publish:   "privatepub_publish",
				Ticket:    "privatepub_ticket",
				Lifecycle: "privatepub_lifecycle",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
		Vault: VaultConfig{
			Address: "http://localhost:8200",
			Mount:   "secret",
		},
	}
}

// Validate checks the configuration for errors and security issues.
//
// The publishing keys are deliberately not required here: a missing server
// is reported by the publisher at the time of use.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.SignatureExpiration != nil && !validExpiration(*c.SignatureExpiration) {
		errs = append(errs, fmt.Sprintf("signature_expiration must be between 0 and %d seconds", MaxSignatureExpiration))
	}
	if c.PublishTimeout < 0 {
		errs = append(errs, "publish_timeout must not be negative")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}

		// Anyone holding the JWT secret can mint tickets for any channel.
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required when the api is enabled (set PRIVATEPUB_SECURITY_JWT_SECRET)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	if c.InfluxDB.Enabled {
		m := c.InfluxDB.Measurements
		if m.Publish == "" || m.Ticket == "" || m.Lifecycle == "" {
			errs = append(errs, "influxdb.measurements.publish, ticket and lifecycle are required when influxdb is enabled")
		}
	}

	if c.Vault.Enabled && c.Vault.SecretsPath == "" {
		errs = append(errs, "vault.secrets_path is required when vault is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MaxSignatureExpiration is the longest ticket lifetime, in seconds, that
// fits in a time.Duration.
const MaxSignatureExpiration = int64(math.MaxInt64 / int64(time.Second))

func validExpiration(seconds int) bool {
	return seconds >= 0 && int64(seconds) <= MaxSignatureExpiration
}

// Expiration returns the ticket lifetime and whether an expiration policy is set.
func (p PubSubConfig) Expiration() (time.Duration, bool) {
	if p.SignatureExpiration == nil {
		return 0, false
	}
	return time.Duration(*p.SignatureExpiration) * time.Second, true
}

// Timeout returns the publish timeout as a Duration (0 means none).
func (p PubSubConfig) Timeout() time.Duration {
	return time.Duration(p.PublishTimeout) * time.Second
}

// ReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) ReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}

// clone returns a copy that shares no pointers or slices with c.
func (c *Config) clone() *Config {
	out := *c
	if c.SignatureExpiration != nil {
		v := *c.SignatureExpiration
		out.SignatureExpiration = &v
	}
	out.API.CORS.AllowedOrigins = append([]string(nil), c.API.CORS.AllowedOrigins...)
	out.API.CORS.AllowedMethods = append([]string(nil), c.API.CORS.AllowedMethods...)
	out.API.CORS.AllowedHeaders = append([]string(nil), c.API.CORS.AllowedHeaders...)
	return &out
}
