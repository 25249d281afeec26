// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/triviafeed/internal/feed"
)

const sampleCatalog = `[
  {"id": "q1", "topic": "Science", "subtopic": "Physics", "branch": "Optics", "difficulty": "easy"},
  {"id": "q2", "topic": "History", "subtopic": "Ancient", "branch": "Rome", "tags": ["empire"]},
  {"id": "q3", "topic": "Science", "subtopic": "Biology"},
  {"id": "q1", "topic": "Arts", "subtopic": "Painting", "branch": "Baroque"},
  {"id": "q4", "topic": "Geography", "subtopic": "Rivers", "branch": "Nile"}
]`

// staticSource returns fixed items or an error.
type staticSource struct {
	items []feed.Item
	err   error
	calls atomic.Int32
}

func (s *staticSource) Load(context.Context) ([]feed.Item, error) {
	s.calls.Add(1)
	return s.items, s.err
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestCatalog_RefreshFromFile(t *testing.T) {
	c := New(NewFileSource(writeCatalog(t, sampleCatalog)), zerolog.Nop())

	if c.Len() != 0 || !c.RefreshedAt().IsZero() {
		t.Fatal("new catalog should be empty")
	}

	result, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// q3 lacks a branch, the second q1 is a duplicate.
	if result.Loaded != 3 || result.Rejected != 2 {
		t.Errorf("Refresh() = %+v, want 3 loaded, 2 rejected", result)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.RefreshedAt().IsZero() {
		t.Error("RefreshedAt() is zero after refresh")
	}

	item, err := c.Get("q1")
	if err != nil {
		t.Fatalf("Get(q1) error = %v", err)
	}
	if item.Topic != "Science" {
		t.Errorf("Get(q1).Topic = %q, want the first occurrence (Science)", item.Topic)
	}

	ids := make([]string, 0, c.Len())
	for _, it := range c.Items() {
		ids = append(ids, it.ID)
	}
	if want := []string{"q1", "q2", "q4"}; len(ids) != 3 || ids[0] != want[0] || ids[1] != want[1] || ids[2] != want[2] {
		t.Errorf("Items() ids = %v, want %v (source order)", ids, want)
	}
}

func TestCatalog_GetUnknown(t *testing.T) {
	c := New(&staticSource{}, zerolog.Nop())
	if _, err := c.Get("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrItemNotFound", err)
	}
}

func TestCatalog_FailedRefreshKeepsSnapshot(t *testing.T) {
	src := &staticSource{items: []feed.Item{
		{ID: "a", Topic: "Science", Subtopic: "Physics", Branch: "Optics"},
	}}
	c := New(src, zerolog.Nop())

	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	src.err = errors.New("upstream down")
	if _, err := c.Refresh(context.Background()); err == nil {
		t.Fatal("second Refresh() error = nil, want error")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after failed refresh, want 1", c.Len())
	}
	if _, err := c.Get("a"); err != nil {
		t.Errorf("Get(a) after failed refresh: %v", err)
	}
}

func TestCatalog_SnapshotIsolation(t *testing.T) {
	src := &staticSource{items: []feed.Item{
		{ID: "a", Topic: "Science", Subtopic: "Physics", Branch: "Optics", Tags: []string{"light"}},
	}}
	c := New(src, zerolog.Nop())
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.items[0].Tags[0] = "mutated"
	if got, _ := c.Get("a"); got.Tags[0] != "light" {
		t.Errorf("catalog shares tags with the source: %v", got.Tags)
	}

	before := c.Items()
	src.items = []feed.Item{{ID: "b", Topic: "Arts", Subtopic: "Music", Branch: "Jazz"}}
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(before) != 1 || before[0].ID != "a" {
		t.Errorf("earlier snapshot changed: %v", before)
	}
}

func TestDecodeItems(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"array", `[{"id":"a"},{"id":"b"}]`, 2, false},
		{"wrapped", `{"items":[{"id":"a"}]}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"object without items", `{"questions":[]}`, 0, true},
		{"garbage", `not json`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := decodeItems([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeItems() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(items) != tt.want {
				t.Errorf("len(items) = %d, want %d", len(items), tt.want)
			}
		})
	}
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := src.Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestHTTPSource_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{URL: srv.URL, Timeout: time.Second, MaxFailures: 3}, zerolog.Nop())
	c := New(src, zerolog.Nop())

	result, err := c.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if result.Loaded != 3 {
		t.Errorf("Loaded = %d, want 3", result.Loaded)
	}
}

func TestHTTPSource_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPSourceConfig{
		URL:            srv.URL,
		Timeout:        time.Second,
		MaxFailures:    2,
		BreakerTimeout: time.Hour,
	}, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := src.Load(context.Background()); err == nil {
			t.Fatalf("Load() #%d error = nil, want failure", i+1)
		}
	}
	if src.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", src.State())
	}

	_, err := src.Load(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Load() with open breaker error = %v, want ErrOpenState", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("upstream hits = %d, want 2", got)
	}
}
