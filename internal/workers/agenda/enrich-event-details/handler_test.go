package enricheventdetails

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var details = map[string]string{
	"E1": `{"record":{"titles":["Schrijfcafé"],"summaries":["Samen schrijven"],
		"custom":{"evenement":{"deeplink":"https://oba.nl/e/1"},
		"gebeurtenis":{"datum":{"start":"2025-03-15T14:00:00+01:00","end":"2025-03-15T16:00:00+01:00"},"gebouw":"OBA Oosterdok","zaal":"Zaal 3"}}}}`,
	"E2": `{"titel":"Taalcafé","starttijd":"2025-03-16T10:00:00+01:00","locatienaam":"OBA Osdorp"}`,
	"E3": `not json`,
}

type detailServer struct {
	mu       sync.Mutex
	queries  []string
	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (d *detailServer) handler(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt32(&d.inFlight, 1)
	defer atomic.AddInt32(&d.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&d.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&d.maxSeen, seen, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	d.mu.Lock()
	d.queries = append(d.queries, r.URL.RawQuery)
	d.mu.Unlock()

	body, ok := details[r.URL.Query().Get("id")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newDetailServer(t *testing.T, d *detailServer) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(d.handler))
	t.Cleanup(srv.Close)
	return srv
}

func createTestHandler(t *testing.T, baseURL string, concurrency int) *Handler {
	cfg := LoadConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "legacy-key"
	cfg.Concurrency = concurrency
	cfg.Timeout = 2 * time.Second
	h, err := NewHandler(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Enrich_OverlaysDetails(t *testing.T) {
	d := &detailServer{}
	srv := newDetailServer(t, d)
	h := createTestHandler(t, srv.URL, 4)

	refs := []EventRef{
		{NativeID: "E1", Base: models.RawEvent{Title: "oud", Cover: "https://cover/1.jpg"}},
		{NativeID: "E2"},
	}
	events, failed := h.Enrich(context.Background(), refs)
	require.Len(t, events, 2)
	assert.Zero(t, failed)

	first := events[0]
	assert.Equal(t, "Schrijfcafé", first.Title)
	assert.Equal(t, "https://cover/1.jpg", first.Cover)
	assert.Equal(t, "https://oba.nl/e/1", first.Link)
	assert.Equal(t, "Samen schrijven", first.Summary)
	assert.Equal(t, "2025-03-15T14:00:00+01:00", first.Start)
	assert.Equal(t, "2025-03-15T16:00:00+01:00", first.End)
	assert.Equal(t, "OBA Oosterdok", first.Building)
	assert.Equal(t, "Zaal 3", first.Room)

	second := events[1]
	assert.Equal(t, "Taalcafé", second.Title)
	assert.Equal(t, "2025-03-16T10:00:00+01:00", second.Start)
	assert.Equal(t, "OBA Osdorp", second.LocationName)
}

func TestHandler_Enrich_DropsFailuresKeepsOrder(t *testing.T) {
	d := &detailServer{}
	srv := newDetailServer(t, d)
	h := createTestHandler(t, srv.URL, 2)

	refs := []EventRef{{NativeID: "E2"}, {NativeID: "missing"}, {NativeID: "E3"}, {NativeID: "E1"}}
	events, failed := h.Enrich(context.Background(), refs)
	require.Len(t, events, 2)
	assert.Equal(t, 2, failed)
	assert.Equal(t, "Taalcafé", events[0].Title)
	assert.Equal(t, "Schrijfcafé", events[1].Title)
}

func TestHandler_Enrich_BoundedConcurrency(t *testing.T) {
	d := &detailServer{delay: 30 * time.Millisecond}
	srv := newDetailServer(t, d)
	h := createTestHandler(t, srv.URL, 2)

	refs := make([]EventRef, 6)
	for i := range refs {
		refs[i] = EventRef{NativeID: "E2"}
	}
	events, failed := h.Enrich(context.Background(), refs)
	assert.Len(t, events, 6)
	assert.Zero(t, failed)
	assert.LessOrEqual(t, atomic.LoadInt32(&d.maxSeen), int32(2))
}

func TestHandler_Enrich_Empty(t *testing.T) {
	h := createTestHandler(t, "http://127.0.0.1:0", 4)
	events, failed := h.Enrich(context.Background(), nil)
	assert.Empty(t, events)
	assert.Zero(t, failed)
}

func TestHandler_Execute_FromDocuments(t *testing.T) {
	d := &detailServer{}
	srv := newDetailServer(t, d)
	h := createTestHandler(t, srv.URL, 4)

	docs := []models.Document{
		{"nativeid": "E1", "afbeelding": "https://cover/1.jpg"},
		{"titel": "zonder id"},
		{"native_id": "E2"},
	}
	out, err := h.Execute(context.Background(), &Input{Documents: docs})
	require.NoError(t, err)
	require.Len(t, out.Events, 2)
	assert.Equal(t, "https://cover/1.jpg", out.Events[0].Cover)
	assert.Equal(t, "Taalcafé", out.Events[1].Title)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range d.queries {
		assert.Contains(t, q, "output=json")
		assert.Contains(t, q, "authorization=legacy-key")
	}
}

// ==========================
// Helper Function Tests
// ==========================

func TestRefs(t *testing.T) {
	docs := []models.Document{
		{"nativeid": "E1", "titel": "Een"},
		{"titel": "zonder id"},
		{"id": float64(42)},
	}
	refs := Refs(docs)
	require.Len(t, refs, 2)
	assert.Equal(t, "E1", refs[0].NativeID)
	assert.Equal(t, "Een", refs[0].Base.Title)
	assert.Equal(t, "42", refs[1].NativeID)
}

func TestHandler_DetailURL(t *testing.T) {
	h := createTestHandler(t, "https://zoeken.oba.nl/api/v1/", 1)
	assert.Equal(t,
		"https://zoeken.oba.nl/api/v1/details/?id=%7Coba-agenda%7C1&output=json&authorization=legacy-key",
		h.DetailURL("|oba-agenda|1"))
}

func TestScalar(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string trimmed", in: "  a ", want: "a"},
		{name: "number", in: float64(12), want: "12"},
		{name: "list first non-empty", in: []interface{}{"", nil, "b"}, want: "b"},
		{name: "object", in: map[string]interface{}{"a": "b"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scalar(tt.in))
		})
	}
}
