package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTOMATION_MAX_STEPS", "")
	t.Setenv("QUEUE_CAPACITY", "")

	cfg := Load()
	if cfg.AutomationMaxSteps != 5 {
		t.Errorf("AutomationMaxSteps = %d, want 5", cfg.AutomationMaxSteps)
	}
	if cfg.AutomationProbeTimeout != 2*time.Second {
		t.Errorf("AutomationProbeTimeout = %s, want 2s", cfg.AutomationProbeTimeout)
	}
	if cfg.AutomationNavigationTimeout != 15*time.Second {
		t.Errorf("AutomationNavigationTimeout = %s, want 15s", cfg.AutomationNavigationTimeout)
	}
	if cfg.QueueLoopBackoff != time.Second {
		t.Errorf("QueueLoopBackoff = %s, want 1s", cfg.QueueLoopBackoff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	t.Setenv("AUTOMATION_MAX_STEPS", "8")
	t.Setenv("QUEUE_CAPACITY", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()
	if cfg.AutomationMaxSteps != 8 {
		t.Errorf("AutomationMaxSteps = %d, want 8", cfg.AutomationMaxSteps)
	}
	if cfg.QueueCapacity != 256 {
		t.Errorf("QueueCapacity = %d, want default 256", cfg.QueueCapacity)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.AutomationPacingMin = 2 * time.Second
	cfg.AutomationPacingMax = time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected pacing error")
	}

	cfg = Load()
	cfg.AutoApplyEnabled = true
	cfg.AutoApplySchedule = "every day at nine"
	if err := cfg.Validate(); err == nil {
		t.Error("expected schedule error")
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "task_id", "t1")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["task_id"] != "t1" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Error("unknown level should default to info")
	}
}
