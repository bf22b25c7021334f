package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, service string) *Logger {
	return NewWithWriter(&Config{Level: "debug", Format: "json"}, service, buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json", Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewWithWriter_JSONServiceField(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "dataops").Info("hello")

	m := decodeLine(t, &buf)
	if m[FieldService] != "dataops" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
	if m["message"] != "hello" {
		t.Errorf("expected message 'hello', got %v", m["message"])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "test").WithComponent("executor").Info("x")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "executor" {
		t.Errorf("expected component 'executor', got %v", m[FieldComponent])
	}
}

func TestWithContext_RunAndTask(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRun(context.Background(), "run-42")
	ctx = ContextWithTask(ctx, "run_gold_layer")

	jsonLogger(&buf, "test").WithContext(ctx).Info("attempt")

	m := decodeLine(t, &buf)
	if m[FieldRunID] != "run-42" {
		t.Errorf("expected run_id run-42, got %v", m[FieldRunID])
	}
	if m[FieldTaskID] != "run_gold_layer" {
		t.Errorf("expected task_id run_gold_layer, got %v", m[FieldTaskID])
	}
}

func TestWithContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "test").WithContext(context.Background()).Info("x")

	m := decodeLine(t, &buf)
	if _, ok := m[FieldRunID]; ok {
		t.Error("run_id should be absent without a run in context")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "test").WithFields(map[string]interface{}{FieldAttempt: 2}).Warn("retrying")

	m := decodeLine(t, &buf)
	if m[FieldAttempt] != float64(2) {
		t.Errorf("expected attempt 2, got %v", m[FieldAttempt])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "test").WithError(fmt.Errorf("boom")).Error("failed")

	m := decodeLine(t, &buf)
	if m["error"] != "boom" {
		t.Errorf("expected error 'boom', got %v", m["error"])
	}
}

func TestNop(t *testing.T) {
	// Must not panic.
	Nop().Info("discarded", Fields("k", "v"))
}

func TestInit(t *testing.T) {
	Init(&Config{ServiceName: "dataops", Level: "info", Format: "console", Output: "stdout"})
	gl := GetGlobalLogger()
	if gl == nil {
		t.Fatal("expected global logger to be set after Init")
	}
	if gl.service != "dataops" {
		t.Errorf("expected service from config, got %q", gl.service)
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	Init(&Config{Level: "debug", Format: "console", Output: "stdout"})
	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	WithContext(context.Background()).Info("ctx msg")
	WithComponent("scheduler").Info("component msg")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp to be enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"bad level", Config{Level: "verbose", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
		{"stderr output", Config{Level: "info", Format: "json", Output: "stderr"}, false},
		{"bad output", Config{Level: "info", Format: "json", Output: "syslog"}, true},
		{"file without path", Config{Level: "info", Format: "json", Output: OutputFile}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "dataops", &buf)
	l.Info("run started")

	out := buf.String()
	if !strings.Contains(out, "[DAT][INF]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
	if !strings.Contains(out, "run started") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("reg")
	Register("notifier", l)
	if Get("notifier") != l {
		t.Error("expected registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	if Get("never-registered") == nil {
		t.Fatal("expected fallback logger")
	}
}

func TestComponentLevels(t *testing.T) {
	if err := SetComponentLevels(map[string]string{"scheduler": "warn"}); err != nil {
		t.Fatalf("SetComponentLevels: %v", err)
	}
	t.Cleanup(func() { _ = SetComponentLevels(nil) })

	var buf bytes.Buffer
	base := jsonLogger(&buf, "dataops")
	base.WithComponent("scheduler").Info("cron tick")
	if buf.Len() != 0 {
		t.Errorf("info from a warn component was written: %q", buf.String())
	}
	base.WithComponent("scheduler").Warn("scheduled run skipped")
	if !strings.Contains(buf.String(), "scheduled run skipped") {
		t.Errorf("warn missing: %q", buf.String())
	}
	buf.Reset()
	base.WithComponent("dag").Info("task finished")
	if !strings.Contains(buf.String(), "task finished") {
		t.Errorf("other components keep the global level: %q", buf.String())
	}

	if err := SetComponentLevels(map[string]string{"dag": "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestFields(t *testing.T) {
	m := Fields(FieldTaskID, "run_bronze_layer", FieldAttempt, 1, "dangling")
	if m[FieldTaskID] != "run_bronze_layer" {
		t.Errorf("unexpected task_id %v", m[FieldTaskID])
	}
	if m[FieldAttempt] != 1 {
		t.Errorf("unexpected attempt %v", m[FieldAttempt])
	}
	if len(m) != 2 {
		t.Errorf("expected dangling key to be dropped, got %d entries", len(m))
	}
}

func TestFields_NonStringKey(t *testing.T) {
	m := Fields(1, "x", "ok", true)
	if len(m) != 1 || m["ok"] != true {
		t.Errorf("expected only string keys, got %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("notify", fmt.Errorf("timeout"))
	if m[FieldOperation] != "notify" || m[FieldError] != "timeout" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("health_check", 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", m[FieldDuration])
	}
}

func TestMergeWithError_NilMap(t *testing.T) {
	m := MergeWithError(nil, fmt.Errorf("bad"))
	if m[FieldError] != "bad" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestMergeWithDuration_Existing(t *testing.T) {
	m := MergeWithDuration(map[string]interface{}{"k": "v"}, time.Second)
	if m["k"] != "v" || m[FieldDuration] != int64(1000) {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestNewWithStderrOutput(t *testing.T) {
	if outputWriter(&Config{Output: "stderr"}) != os.Stderr {
		t.Error("expected stderr writer")
	}
	if outputWriter(&Config{Output: "anything"}) != os.Stdout {
		t.Error("expected stdout fallback")
	}
}

func TestFileOutput_RotatingWriterShared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataops.log")
	cfg := &Config{Level: "info", Format: "json", Output: OutputFile, File: FileConfig{Path: path}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !cfg.NoColor || cfg.File.MaxSizeMB != 100 {
		t.Errorf("file defaults = %+v", cfg)
	}
	if outputWriter(cfg) != outputWriter(cfg) {
		t.Error("expected one writer per file path")
	}

	New(cfg, "dataops").Info("run finished", Fields(FieldRunID, "r-1"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"run_id":"r-1"`) {
		t.Errorf("log file = %q", data)
	}

	missing := &Config{Output: OutputFile}
	missing.ApplyDefaults()
	if err := missing.Validate(); err == nil {
		t.Error("expected an error without a file path")
	}
}
