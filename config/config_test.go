package config

import (
	"log/slog"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/tomyedwab/odbcstream/odbc"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	p := path.Join(t.TempDir(), "odbcstream.yaml")
	if err := os.WriteFile(p, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BatchSize != DefaultBatchSize || cfg.BlobBatchSize != odbc.DefaultBatchSize {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.Trace != "" {
		t.Errorf("Expected tracing to be off by default, got %q", cfg.Trace)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
database: /var/lib/odbcstream/data.db
batch_size: 250
trace: trace.db
log_level: debug
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database != "/var/lib/odbcstream/data.db" || cfg.BatchSize != 250 || cfg.Trace != "trace.db" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	// Unset keys keep their defaults
	if cfg.BlobBatchSize != odbc.DefaultBatchSize || cfg.MaxStrLen != DefaultMaxStrLen {
		t.Errorf("Expected defaults for unset keys, got %+v", cfg)
	}
	level, err := cfg.Level()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v (%v)", level, err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{"bad yaml", "batch_size: [", "failed to parse"},
		{"zero batch", "batch_size: 0", "batch_size must be positive"},
		{"negative blob batch", "blob_batch_size: -1", "blob_batch_size must be positive"},
		{"unknown level", "log_level: loud", "unknown log_level"},
		{"bad retention", "trace_retention: a week", "invalid trace_retention"},
		{"negative retention", "trace_retention: -1h", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := Load(path.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestRetention(t *testing.T) {
	cfg, err := Load(writeConfig(t, "trace: trace.db\ntrace_retention: 72h\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	d, err := cfg.Retention()
	if err != nil || d != 72*time.Hour {
		t.Errorf("Expected 72h, got %v (%v)", d, err)
	}

	d, err = Default().Retention()
	if err != nil || d != 0 {
		t.Errorf("Expected no retention by default, got %v (%v)", d, err)
	}
}
