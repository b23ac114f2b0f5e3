package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)
	logger.SetLevel(DebugLevel)

	logger.Debug("scanning frames", Fields{"frames": 200})
	logger.Warn("mask ended early")
	logger.Error(errors.New("boom"), "synthesis failed", Fields{"frame": 53})

	if !strings.Contains(stdout.String(), "[DEBUG] scanning frames frames=200") {
		t.Errorf("stdout missing debug line: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "[WARN] mask ended early") {
		t.Errorf("stderr missing warn line: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "[ERROR] synthesis failed: boom frame=53") {
		t.Errorf("stderr missing error line: %q", stderr.String())
	}
}

func TestDefaultLoggerFiltersBelowLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&stdout, &stderr, false)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	if stdout.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", stdout.String())
	}
}

func TestWithFieldsAndContext(t *testing.T) {
	var stdout bytes.Buffer
	base := NewDefaultLoggerWithWriters(&stdout, &stdout, false)

	ctx := ContextWithFields(context.Background(), Fields{"file": "a.f32"})
	logger := base.WithFields(Fields{"component": "resets"}).WithContext(ctx)
	logger.Info("done")

	line := stdout.String()
	if !strings.Contains(line, "component=resets file=a.f32") {
		t.Errorf("fields not merged in key order: %q", line)
	}
}

func TestFatalCallsExit(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &out, false)
	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("bad"), "stop")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"", InfoLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
