// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// restoreGlobal resets the global logger after a test reconfigures it.
func restoreGlobal(t *testing.T) {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		SetLevel(prevLevel)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Caller {
		t.Error("Caller = true, want false")
	}
	if !cfg.Timestamp {
		t.Error("Timestamp = false, want true")
	}
}

func TestInit(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("output missing message: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("output missing level: %s", output)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer

	Init(Config{Level: "warn", Output: &buf})
	Info().Msg("hidden")
	Warn().Msg("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info message written at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("warn message missing: %s", output)
	}
}

func TestInit_ConsoleFormat(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer

	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console message")

	output := buf.String()
	if !strings.Contains(output, "console message") {
		t.Errorf("output missing message: %s", output)
	}
	if strings.Contains(output, `"message"`) {
		t.Errorf("console output looks like JSON: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "Info", "warning", "disabled"} {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = false, want true", level)
		}
	}
	for _, level := range []string{"", "verbose", "loud"} {
		if ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = true, want false", level)
		}
	}
}

func TestWithComponent(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevel(zerolog.DebugLevel)

	logger := WithComponent("catalog")
	logger.Info().Msg("loaded")

	if !strings.Contains(buf.String(), `"component":"catalog"`) {
		t.Errorf("output missing component: %s", buf.String())
	}
}

func TestErr(t *testing.T) {
	restoreGlobal(t)
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	SetLevel(zerolog.DebugLevel)

	Err(errors.New("boom")).Msg("failed")

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("output missing error: %s", buf.String())
	}
}
