package logging

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	saved := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = saved })
	return logs
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	saved := logger
	t.Cleanup(func() { logger = saved })

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	saved := logger
	t.Cleanup(func() { logger = saved })

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("logger level does not follow " + LogLevelEnvVar)
	}
}

func TestHelpers(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogSSDPResponse("192.168.1.10:1900", "ssdp:all", "http://192.168.1.10/desc.xml")
	LogSOAPCall("http://192.168.1.10/ctl", "RenderingControl", "GetVolume", 200, 15*time.Millisecond)
	LogECPCall("POST", "/keypress/Home", 200, 8*time.Millisecond)
	LogHTTPRequest("192.168.1.20:5000", "GET", "/report.pdf", 200)
	LogCommand("ping", []string{"-c", "1", "10.0.0.1"}, 0, time.Second)

	entries := logs.All()
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}

	want := []struct {
		msg   string
		level zapcore.Level
		key   string
	}{
		{"SSDP response", zapcore.DebugLevel, "location"},
		{"SOAP call", zapcore.DebugLevel, "action"},
		{"ECP call", zapcore.DebugLevel, "path"},
		{"HTTP request", zapcore.InfoLevel, "status_code"},
		{"Command executed", zapcore.DebugLevel, "exit_code"},
	}
	for i, w := range want {
		e := entries[i]
		if e.Message != w.msg || e.Level != w.level {
			t.Errorf("entry %d = %q/%v, want %q/%v", i, e.Message, e.Level, w.msg, w.level)
		}
		if _, ok := e.ContextMap()[w.key]; !ok {
			t.Errorf("entry %q missing field %q", e.Message, w.key)
		}
	}
}

func TestLevelHelpers(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	Debug("hidden")
	Info("hidden")
	Warn("shown")
	Error("shown", zap.String("k", "v"))

	if got := logs.FilterMessage("shown").Len(); got != 2 {
		t.Errorf("got %d entries at warn and above, want 2", got)
	}
	if got := logs.FilterMessage("hidden").Len(); got != 0 {
		t.Errorf("got %d entries below warn, want 0", got)
	}
}
