package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "privatepub.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
development:
  server: "http://localhost:9292/faye"
  secret_token: "dev-secret"
production:
  server: "https://faye.example.com/faye"
  secret_token: "prod-secret"
  signature_expiration: 3600
  api:
    enabled: true
    port: 8443
  security:
    jwt:
      secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(configPath, "production")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server != "https://faye.example.com/faye" {
		t.Errorf("Server = %q, want %q", cfg.Server, "https://faye.example.com/faye")
	}
	if cfg.SecretToken != "prod-secret" {
		t.Errorf("SecretToken = %q, want %q", cfg.SecretToken, "prod-secret")
	}
	if cfg.SignatureExpiration == nil || *cfg.SignatureExpiration != 3600 {
		t.Errorf("SignatureExpiration = %v, want 3600", cfg.SignatureExpiration)
	}
	if cfg.API.Port != 8443 {
		t.Errorf("API.Port = %d, want 8443", cfg.API.Port)
	}
	// Defaults survive for keys the document does not set.
	if cfg.Adapter.Mount != "/faye" {
		t.Errorf("Adapter.Mount = %q, want default %q", cfg.Adapter.Mount, "/faye")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/privatepub.yaml", "production")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MissingEnvironment(t *testing.T) {
	configPath := writeConfig(t, `
development:
  server: "http://localhost:9292/faye"
`)

	_, err := Load(configPath, "production")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Load() error = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "production environment does not exist") {
		t.Errorf("error %q should name the missing environment", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath, "invalid")
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
test:
  server: "http://x"
  secret_token: "from-file"
`)
	t.Setenv("PRIVATEPUB_SECRET_TOKEN", "from-env")
	t.Setenv("PRIVATEPUB_SIGNATURE_EXPIRATION", "30")

	cfg, err := Load(configPath, "test")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SecretToken != "from-env" {
		t.Errorf("SecretToken = %q, want %q", cfg.SecretToken, "from-env")
	}
	if cfg.SignatureExpiration == nil || *cfg.SignatureExpiration != 30 {
		t.Errorf("SignatureExpiration = %v, want 30", cfg.SignatureExpiration)
	}
	if cfg.Server != "http://x" {
		t.Errorf("Server = %q, want file value %q", cfg.Server, "http://x")
	}
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"
	negative := -1
	overflowing := math.MaxInt

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "empty config is valid",
			config:  &Config{},
			wantErr: false,
		},
		{
			name: "api enabled with secret",
			config: &Config{
				API:      APIConfig{Enabled: true, Port: 9292},
				Security: SecurityConfig{JWT: JWTConfig{Secret: validJWTSecret}},
			},
			wantErr: false,
		},
		{
			name: "api enabled without secret",
			config: &Config{
				API: APIConfig{Enabled: true, Port: 9292},
			},
			wantErr: true,
		},
		{
			name: "api enabled with short secret",
			config: &Config{
				API:      APIConfig{Enabled: true, Port: 9292},
				Security: SecurityConfig{JWT: JWTConfig{Secret: "short"}},
			},
			wantErr: true,
		},
		{
			name: "invalid api port",
			config: &Config{
				API:      APIConfig{Enabled: true, Port: 70000},
				Security: SecurityConfig{JWT: JWTConfig{Secret: validJWTSecret}},
			},
			wantErr: true,
		},
		{
			name: "invalid mqtt qos",
			config: &Config{
				MQTT: MQTTConfig{Enabled: true, QoS: 3},
			},
			wantErr: true,
		},
		{
			name: "negative signature expiration",
			config: &Config{
				PubSubConfig: PubSubConfig{SignatureExpiration: &negative},
			},
			wantErr: true,
		},
		{
			name: "signature expiration overflows a duration",
			config: &Config{
				PubSubConfig: PubSubConfig{SignatureExpiration: &overflowing},
			},
			wantErr: true,
		},
		{
			name: "influxdb without measurement names",
			config: &Config{
				InfluxDB: InfluxDBConfig{Enabled: true, Measurements: InfluxMeasurements{Publish: "p"}},
			},
			wantErr: true,
		},
		{
			name: "vault without secrets path",
			config: &Config{
				Vault: VaultConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPubSubConfig_Expiration(t *testing.T) {
	var p PubSubConfig
	if _, ok := p.Expiration(); ok {
		t.Error("Expiration() ok = true with no policy configured")
	}

	seconds := 30
	p.SignatureExpiration = &seconds
	d, ok := p.Expiration()
	if !ok || d.Seconds() != 30 {
		t.Errorf("Expiration() = %v, %v, want 30s, true", d, ok)
	}
}

func TestPubSubConfig_LongestExpiration(t *testing.T) {
	longest := int(MaxSignatureExpiration)
	cfg := &Config{PubSubConfig: PubSubConfig{SignatureExpiration: &longest}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	d, ok := cfg.Expiration()
	if !ok || d <= 0 {
		t.Errorf("Expiration() = %v, %v, want a positive duration", d, ok)
	}
}

func TestAPITimeoutConfig(t *testing.T) {
	tc := APITimeoutConfig{Read: 10, Write: 20, Idle: 90}
	if got := tc.ReadTimeout(); got != 10*time.Second {
		t.Errorf("ReadTimeout() = %v, want 10s", got)
	}
	if got := tc.WriteTimeout(); got != 20*time.Second {
		t.Errorf("WriteTimeout() = %v, want 20s", got)
	}
	if got := tc.IdleTimeout(); got != 90*time.Second {
		t.Errorf("IdleTimeout() = %v, want 90s", got)
	}
}

func TestApplySecretData(t *testing.T) {
	cfg := &Config{PubSubConfig: PubSubConfig{Server: "http://keep", SecretToken: "old"}}

	applySecretData(cfg, map[string]any{"secret_token": "from-vault", "server": 42})

	if cfg.SecretToken != "from-vault" {
		t.Errorf("SecretToken = %q, want %q", cfg.SecretToken, "from-vault")
	}
	if cfg.Server != "http://keep" {
		t.Errorf("Server = %q, non-string vault value should be ignored", cfg.Server)
	}
}

func TestApplyVaultSecrets_Disabled(t *testing.T) {
	cfg := &Config{}
	if err := ApplyVaultSecrets(t.Context(), cfg); err != nil {
		t.Errorf("ApplyVaultSecrets() with vault disabled error = %v", err)
	}
}
