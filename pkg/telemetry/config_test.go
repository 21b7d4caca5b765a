// ABOUTME: Tests for telemetry configuration validation, environment variable loading, and default values
// ABOUTME: Ensures configuration behaves correctly with valid and invalid inputs

package telemetry

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServiceName != "blocktable" {
		t.Errorf("Expected default service name 'blocktable', got '%s'", cfg.ServiceName)
	}

	if cfg.Enabled {
		t.Error("Expected telemetry to be disabled by default")
	}

	if len(cfg.Exporters) != 1 || cfg.Exporters[0] != ExporterStdout {
		t.Errorf("Expected default exporters ['stdout'], got %v", cfg.Exporters)
	}

	if cfg.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %f", cfg.SampleRate)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"empty service name", func(c *Config) { c.ServiceName = "" }, true},
		{"empty service version", func(c *Config) { c.ServiceVersion = "" }, true},
		{"negative sample rate", func(c *Config) { c.SampleRate = -0.1 }, true},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.5 }, true},
		{"zero export interval", func(c *Config) { c.ExportInterval = 0 }, true},
		{"zero export timeout", func(c *Config) { c.ExportTimeout = 0 }, true},
		{"unknown exporter", func(c *Config) { c.Exporters = []string{"jaeger"} }, true},
		{"otlp without endpoint", func(c *Config) {
			c.Exporters = []string{ExporterOTLP}
			c.OTLPEndpoint = ""
		}, true},
		{"otlp and stdout", func(c *Config) { c.Exporters = []string{ExporterOTLP, ExporterStdout} }, false},
		{"no exporters", func(c *Config) { c.Exporters = nil }, false},
		{"prometheus on any port", func(c *Config) {
			c.Exporters = []string{ExporterPrometheus}
			c.PrometheusPort = 0
		}, false},
		{"prometheus port out of range", func(c *Config) {
			c.Exporters = []string{ExporterPrometheus}
			c.PrometheusPort = 70000
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BLOCKTABLE_TELEMETRY_SERVICE_NAME", "inspector")
	t.Setenv("BLOCKTABLE_TELEMETRY_ENABLED", "true")
	t.Setenv("BLOCKTABLE_TELEMETRY_EXPORTERS", "stdout, otlp")
	t.Setenv("BLOCKTABLE_TELEMETRY_SAMPLE_RATE", "0.25")
	t.Setenv("BLOCKTABLE_TELEMETRY_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("BLOCKTABLE_TELEMETRY_PROMETHEUS_PORT", "9464")
	t.Setenv("BLOCKTABLE_TELEMETRY_EXPORT_INTERVAL", "10s")
	t.Setenv("BLOCKTABLE_TELEMETRY_EXPORT_TIMEOUT", "not-a-duration")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	if cfg.ServiceName != "inspector" || !cfg.Enabled {
		t.Errorf("unexpected service %q enabled=%v", cfg.ServiceName, cfg.Enabled)
	}
	if !cfg.HasExporter(ExporterStdout) || !cfg.HasExporter(ExporterOTLP) {
		t.Errorf("expected both exporters, got %v", cfg.Exporters)
	}
	if cfg.SampleRate != 0.25 {
		t.Errorf("expected sample rate 0.25, got %f", cfg.SampleRate)
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Errorf("expected endpoint collector:4317, got %s", cfg.OTLPEndpoint)
	}
	if cfg.PrometheusPort != 9464 {
		t.Errorf("expected prometheus port 9464, got %d", cfg.PrometheusPort)
	}
	if cfg.ExportInterval != 10*time.Second {
		t.Errorf("expected export interval 10s, got %s", cfg.ExportInterval)
	}
	// Unparseable values keep the default
	if cfg.ExportTimeout != 30*time.Second {
		t.Errorf("expected default export timeout, got %s", cfg.ExportTimeout)
	}
}
