package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"store": {"base_url": "http://store.local", "requests_per_minute": 60}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Store.Timeout() != 30*time.Second {
		t.Errorf("Store.Timeout() = %v, want 30s", cfg.Store.Timeout())
	}
	if cfg.Report.CacheTTL() != time.Hour {
		t.Errorf("Report.CacheTTL() = %v, want 1h", cfg.Report.CacheTTL())
	}
	if cfg.Report.Timezone != "utc" || cfg.Report.CompactLimit != 10 {
		t.Errorf("Report = %+v", cfg.Report)
	}
	if cfg.Redis.Prefix != "gamewatch" {
		t.Errorf("Redis.Prefix = %q, want gamewatch", cfg.Redis.Prefix)
	}
	if cfg.RabbitMQ.QueueName != "report_jobs" || cfg.RabbitMQ.Port != 5672 {
		t.Errorf("RabbitMQ = %+v", cfg.RabbitMQ)
	}
	if cfg.AWS.Enabled() {
		t.Error("AWS.Enabled() = true without a bucket")
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := writeConfig(t, `{
		"env": "production",
		"port": 9000,
		"app_name": "watch",
		"store": {"base_url": "http://store.local", "api_key": "k", "timeout_seconds": 5},
		"report": {"timezone": "+02:00", "compact_limit": 3},
		"aws": {"bucket": "exports", "region": "eu-west-1"},
		"logging": {"level": "debug", "format": "json"}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != 9000 || cfg.Env != "production" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Redis.Prefix != "watch" {
		t.Errorf("Redis.Prefix = %q, want app name", cfg.Redis.Prefix)
	}
	if cfg.Report.Timezone != "+02:00" || cfg.Report.CompactLimit != 3 {
		t.Errorf("Report = %+v", cfg.Report)
	}
	if !cfg.AWS.Enabled() {
		t.Error("AWS.Enabled() = false with bucket and region")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "invalid json", body: `{`, wantErr: "error parsing config file"},
		{name: "missing store", body: `{}`, wantErr: "store.base_url is required"},
		{name: "negative rate", body: `{"store": {"base_url": "x", "requests_per_minute": -1}}`, wantErr: "requests_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}
}
