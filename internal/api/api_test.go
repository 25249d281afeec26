// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/catalog"
	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/ingest"
	"github.com/tomtom215/triviafeed/internal/profiles"
	"github.com/tomtom215/triviafeed/internal/storage"
)

// switchSource serves items until failing is set.
type switchSource struct {
	mu      sync.Mutex
	items   []feed.Item
	failing bool
}

func (s *switchSource) Load(context.Context) ([]feed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errors.New("source down")
	}
	return s.items, nil
}

func (s *switchSource) fail() {
	s.mu.Lock()
	s.failing = true
	s.mu.Unlock()
}

// failingCounter is a store probe that always fails.
type failingCounter struct{}

func (failingCounter) Count(context.Context) (int, error) { return 0, errors.New("disk gone") }

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ingest.InteractionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event ingest.InteractionEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func testItems() []feed.Item {
	var items []feed.Item
	for _, topic := range feed.DefaultConfig().ColdStart.InitialTopics {
		for i := 0; i < 3; i++ {
			items = append(items, feed.Item{
				ID:       fmt.Sprintf("%s-%d", strings.ToLower(topic), i),
				Topic:    topic,
				Subtopic: fmt.Sprintf("%s sub %d", topic, i),
				Branch:   fmt.Sprintf("%s branch %d", topic, i),
			})
		}
	}
	return items
}

type testServer struct {
	handler http.Handler
	source  *switchSource
	store   *storage.MemoryStore
}

type serverOption func(*serverDeps)

type serverDeps struct {
	counter   ProfileCounter
	publisher EventPublisher
	empty     bool
	mw        *ChiMiddlewareConfig
}

func withCounter(c ProfileCounter) serverOption { return func(d *serverDeps) { d.counter = c } }

func withPublisher(p EventPublisher) serverOption { return func(d *serverDeps) { d.publisher = p } }

func withEmptyCatalog() serverOption { return func(d *serverDeps) { d.empty = true } }

func withMiddleware(cfg *ChiMiddlewareConfig) serverOption { return func(d *serverDeps) { d.mw = cfg } }

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	deps := &serverDeps{}
	for _, opt := range opts {
		opt(deps)
	}

	source := &switchSource{items: testItems()}
	cat := catalog.New(source, zerolog.Nop())
	if !deps.empty {
		if _, err := cat.Refresh(context.Background()); err != nil {
			t.Fatalf("catalog refresh: %v", err)
		}
	}

	store := storage.NewMemoryStore(zerolog.Nop())
	engine, err := feed.NewEngine(nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	manager := profiles.NewManager(engine, store, cat, zerolog.Nop())

	var counter ProfileCounter = store
	if deps.counter != nil {
		counter = deps.counter
	}
	mw := deps.mw
	if mw == nil {
		mw = DefaultChiMiddlewareConfig()
		mw.RateLimitDisabled = true
	}

	h := NewHandler(manager, cat, counter, deps.publisher, zerolog.Nop())
	return &testServer{
		handler: NewRouter(h, mw).SetupChi(),
		source:  source,
		store:   store,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not an envelope: %v: %s", err, rec.Body.String())
		}
	}
	return rec, resp
}

// decodeData re-decodes the envelope data into dst.
func decodeData(t *testing.T, resp APIResponse, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatal(err)
	}
}

func TestFeed_FreshUser(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/users/alice/feed?size=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success || resp.Meta == nil {
		t.Fatalf("envelope = %+v", resp)
	}

	var got FeedResponse
	decodeData(t, resp, &got)
	if got.UserID != "alice" || got.Phase != "exploration" {
		t.Errorf("user/phase = %s/%s", got.UserID, got.Phase)
	}
	if len(got.Items) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(got.Items))
	}
	for _, it := range got.Items {
		if !it.Exploration {
			t.Errorf("item %s not marked exploration", it.ID)
		}
		if len(it.Reasons) == 0 {
			t.Errorf("item %s has no reasons", it.ID)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestFeed_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"non-numeric size", "/api/v1/users/alice/feed?size=abc", ErrCodeBadRequest},
		{"negative size", "/api/v1/users/alice/feed?size=-1", ErrCodeValidationFailed},
		{"bad user id", "/api/v1/users/al%20ice/feed", ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestFeed_EmptyCatalog(t *testing.T) {
	s := newTestServer(t, withEmptyCatalog())

	rec, resp := s.do(t, http.MethodGet, "/api/v1/users/alice/feed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got FeedResponse
	decodeData(t, resp, &got)
	if len(got.Items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(got.Items))
	}
}

func TestRecordInteraction_Sync(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodPost, "/api/v1/users/bob/interactions",
		`{"question_id":"science-0","time_spent_ms":2100,"was_correct":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var change feed.WeightChange
	decodeData(t, resp, &change)
	if change.Classification != feed.ClassCorrect {
		t.Errorf("classification = %s, want correct", change.Classification)
	}
	if change.TopicBefore != feed.DefaultWeight || change.TopicAfter <= change.TopicBefore {
		t.Errorf("topic weight %v -> %v", change.TopicBefore, change.TopicAfter)
	}

	p, err := s.store.Get(context.Background(), "bob")
	if err != nil {
		t.Fatalf("profile not saved: %v", err)
	}
	if p.TotalQuestionsAnswered != 1 {
		t.Errorf("TotalQuestionsAnswered = %d, want 1", p.TotalQuestionsAnswered)
	}
}

func TestRecordInteraction_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown question", `{"question_id":"nope"}`, http.StatusNotFound, ErrCodeUnknownQuestion},
		{"missing question", `{"was_skipped":true}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"negative time", `{"question_id":"science-0","time_spent_ms":-5}`, http.StatusBadRequest, ErrCodeValidationFailed},
		{"unknown field", `{"question_id":"science-0","bogus":1}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"malformed", `{"question_id":`, http.StatusBadRequest, ErrCodeBadRequest},
		{"trailing data", `{"question_id":"science-0"}{}`, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, http.MethodPost, "/api/v1/users/bob/interactions", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestRecordInteraction_Async(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestServer(t, withPublisher(pub))

	viewed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	body := fmt.Sprintf(`{"question_id":"arts-1","was_skipped":true,"viewed_at":%q}`, viewed.Format(time.RFC3339))
	rec, resp := s.do(t, http.MethodPost, "/api/v1/users/carol/interactions", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var queued QueuedInteraction
	decodeData(t, resp, &queued)
	if queued.Status != "queued" || queued.QuestionID != "arts-1" {
		t.Errorf("queued = %+v", queued)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.UserID != "carol" || !ev.Record.WasSkipped || !ev.Record.ViewedAt.Equal(viewed) {
		t.Errorf("event = %+v", ev)
	}
	if _, err := s.store.Get(context.Background(), "carol"); !errors.Is(err, storage.ErrProfileNotFound) {
		t.Error("async interaction was applied inline")
	}
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/users/dave/profile", "")
	if rec.Code != http.StatusNotFound || resp.Error.Code != ErrCodeNotFound {
		t.Fatalf("missing profile: status %d, error %+v", rec.Code, resp.Error)
	}

	s.do(t, http.MethodPost, "/api/v1/users/dave/interactions", `{"question_id":"history-2","was_correct":false}`)

	rec, resp = s.do(t, http.MethodGet, "/api/v1/users/dave/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view ProfileView
	decodeData(t, resp, &view)
	if view.UserID != "dave" || view.TotalQuestionsAnswered != 1 || view.InteractionCount != 1 {
		t.Errorf("view = %+v", view)
	}
	if len(view.Topics) != 1 || view.Topics[0].Name != "History" {
		t.Fatalf("topics = %+v", view.Topics)
	}
	history := view.Topics[0]
	if len(history.Children) != 1 || len(history.Children[0].Children) != 1 {
		t.Errorf("tree shape = %+v", history)
	}
	if view.Phase != "exploration" || view.ColdStartComplete {
		t.Errorf("phase = %s, complete = %v", view.Phase, view.ColdStartComplete)
	}
}

func TestResetProfile(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/users/erin/feed?size=3", "")

	rec, _ := s.do(t, http.MethodDelete, "/api/v1/users/erin/profile", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, err := s.store.Get(context.Background(), "erin"); !errors.Is(err, storage.ErrProfileNotFound) {
		t.Errorf("profile still stored: %v", err)
	}

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/users/erin/profile", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second reset status = %d, want 404", rec.Code)
	}
}

func TestRefreshCatalog(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodPost, "/api/v1/catalog/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got CatalogRefreshResponse
	decodeData(t, resp, &got)
	if got.Loaded != len(testItems()) || got.Items != len(testItems()) {
		t.Errorf("refresh = %+v", got)
	}

	s.source.fail()
	rec, resp = s.do(t, http.MethodPost, "/api/v1/catalog/refresh", "")
	if rec.Code != http.StatusServiceUnavailable || resp.Error.Code != ErrCodeCatalogUnavailable {
		t.Fatalf("failed refresh: status %d, error %+v", rec.Code, resp.Error)
	}

	// The previous catalog is still served.
	rec, resp = s.do(t, http.MethodGet, "/api/v1/users/frank/feed?size=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("feed after failed refresh: %d", rec.Code)
	}
	var batch FeedResponse
	decodeData(t, resp, &batch)
	if len(batch.Items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(batch.Items))
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		opts       []serverOption
		wantStatus int
		want       string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"empty catalog", []serverOption{withEmptyCatalog()}, http.StatusServiceUnavailable, "degraded"},
		{"store down", []serverOption{withCounter(failingCounter{})}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.opts...)
			rec, resp := s.do(t, http.MethodGet, "/api/v1/health", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var health HealthResponse
			decodeData(t, resp, &health)
			if health.Status != tt.want {
				t.Errorf("status = %s, want %s", health.Status, tt.want)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t, withCounter(failingCounter{}))
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouting(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/api/v1/nowhere", "")
	if rec.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown route: %d %+v", rec.Code, resp.Error)
	}

	rec, resp = s.do(t, http.MethodPut, "/api/v1/users/alice/feed", "")
	if rec.Code != http.StatusMethodNotAllowed || resp.Error == nil || resp.Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("wrong method: %d %+v", rec.Code, resp.Error)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	s.handler.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK || !strings.Contains(mrec.Body.String(), "triviafeed_api_requests_total") {
		t.Errorf("metrics endpoint: %d", mrec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	s := newTestServer(t, withMiddleware(cfg))

	for i := 0; i < 2; i++ {
		if rec, _ := s.do(t, http.MethodGet, "/api/v1/users/alice/profile", ""); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited", i)
		}
	}
	rec, resp := s.do(t, http.MethodGet, "/api/v1/users/alice/profile", "")
	if rec.Code != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("third request: %d %+v", rec.Code, resp.Error)
	}

	// Health probes are exempt.
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("health probe status = %d", rec.Code)
	}
}
