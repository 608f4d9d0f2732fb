package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
site:
  id: "test-site"
hub:
  url: "ws://hub.local:8123/api/websocket"
  token: "test-token"
  reconnect_delay: 3
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8090
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}

	if cfg.Hub.URL != "ws://hub.local:8123/api/websocket" {
		t.Errorf("Hub.URL = %q, want %q", cfg.Hub.URL, "ws://hub.local:8123/api/websocket")
	}

	if cfg.Hub.ReconnectDelay != 3 {
		t.Errorf("Hub.ReconnectDelay = %d, want 3", cfg.Hub.ReconnectDelay)
	}

	// Unset fields keep their defaults.
	if cfg.Hub.RequestTimeout != 10 {
		t.Errorf("Hub.RequestTimeout = %d, want default 10", cfg.Hub.RequestTimeout)
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
hub:
  url: "ws://hub.local:8123/api/websocket"
  token: "test-token"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Hub.Token = "test-token"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: true,
		},
		{
			name:    "missing hub URL",
			mutate:  func(c *Config) { c.Hub.URL = "" },
			wantErr: true,
		},
		{
			name:    "hub URL wrong scheme",
			mutate:  func(c *Config) { c.Hub.URL = "http://hub.local:8123" },
			wantErr: true,
		},
		{
			name:    "missing hub token",
			mutate:  func(c *Config) { c.Hub.Token = "" },
			wantErr: true,
		},
		{
			name:    "negative debounce window",
			mutate:  func(c *Config) { c.Hub.DebounceWindowMS = -1 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Token = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Hub: HubConfig{
			RequestTimeout:    10,
			KeepaliveInterval: 30,
			PongTimeout:       5,
			ReconnectDelay:    5,
			DebounceWindowMS:  500,
		},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetRequestTimeout().Seconds(); got != 10 {
		t.Errorf("GetRequestTimeout() = %v, want 10", got)
	}

	if got := cfg.GetKeepaliveInterval().Seconds(); got != 30 {
		t.Errorf("GetKeepaliveInterval() = %v, want 30", got)
	}

	if got := cfg.GetDebounceWindow(); got != 500*time.Millisecond {
		t.Errorf("GetDebounceWindow() = %v, want 500ms", got)
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	// Set environment variables
	t.Setenv("GRAYMESH_HUB_URL", "wss://hub.example.com/api/websocket")
	t.Setenv("GRAYMESH_HUB_TOKEN", "env-token")
	t.Setenv("GRAYMESH_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GRAYMESH_MQTT_USERNAME", "testuser")
	t.Setenv("GRAYMESH_MQTT_PASSWORD", "testpass")
	t.Setenv("GRAYMESH_API_HOST", "192.168.1.1")
	t.Setenv("GRAYMESH_API_PORT", "9999")
	t.Setenv("GRAYMESH_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Hub.URL != "wss://hub.example.com/api/websocket" {
		t.Errorf("Hub.URL = %q, want override", cfg.Hub.URL)
	}

	if cfg.Hub.Token != "env-token" {
		t.Errorf("Hub.Token = %q, want %q", cfg.Hub.Token, "env-token")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}

	if cfg.Hub.URL == "" {
		t.Error("defaultConfig should have non-empty Hub.URL")
	}

	if cfg.Hub.DebounceWindowMS != 500 {
		t.Errorf("defaultConfig Hub.DebounceWindowMS = %d, want 500", cfg.Hub.DebounceWindowMS)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8090 {
		t.Errorf("defaultConfig API.Port = %d, want 8090", cfg.API.Port)
	}
}
