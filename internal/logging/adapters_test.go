// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestSlogHandler_Handle(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		want  string
	}{
		{"debug", slog.LevelDebug, `"level":"debug"`},
		{"info", slog.LevelInfo, `"level":"info"`},
		{"warn", slog.LevelWarn, `"level":"warn"`},
		{"error", slog.LevelError, `"level":"error"`},
	}

	restoreGlobal(t)
	SetLevel(zerolog.TraceLevel)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewSlogHandler(zerolog.New(&buf)))

			logger.Log(context.Background(), tt.level, "supervisor event",
				slog.String("service", "http"),
				slog.Int("restarts", 2),
				slog.Duration("backoff", time.Second),
			)

			output := buf.String()
			for _, want := range []string{tt.want, `"service":"http"`, `"restarts":2`, "supervisor event"} {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %s: %s", want, output)
				}
			}
		})
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := NewSlogHandler(zerolog.New(nil).Level(zerolog.WarnLevel))

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true for a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false for a warn logger")
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	restoreGlobal(t)
	SetLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf))).
		With(slog.String("tree", "root")).
		WithGroup("svc").
		WithGroup("http")

	logger.Info("started", slog.String("addr", ":8080"), slog.Group("limits", slog.Int("rps", 100)))

	output := buf.String()
	for _, want := range []string{
		`"tree":"root"`,
		`"svc.http.addr":":8080"`,
		`"svc.http.limits.rps":100`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWatermillLogger(t *testing.T) {
	restoreGlobal(t)
	SetLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	var adapter watermill.LoggerAdapter = NewWatermillLogger(zerolog.New(&buf))

	adapter = adapter.With(watermill.LogFields{"router": "ingest"})
	adapter.Info("handler started", watermill.LogFields{"handler": "interactions"})
	adapter.Error("handler failed", errors.New("boom"), watermill.LogFields{"attempt": 3})
	adapter.Debug("debug line", nil)
	adapter.Trace("trace line", nil)

	output := buf.String()
	for _, want := range []string{
		`"router":"ingest"`,
		`"handler":"interactions"`,
		`"error":"boom"`,
		`"attempt":3`,
		"debug line",
		"trace line",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
	if n := strings.Count(output, `"router":"ingest"`); n != 4 {
		t.Errorf("With() fields on %d lines, want 4", n)
	}
}
