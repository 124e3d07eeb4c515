package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/common/database"
	apperrors "nexi-assistant/internal/common/errors"
	"nexi-assistant/internal/common/intentstore"
	"nexi-assistant/internal/common/llm"
	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/models"
	turnorchestrator "nexi-assistant/internal/workers/conversation/turn-orchestrator"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeTurns struct {
	mu     sync.Mutex
	inputs []turnorchestrator.Input
	env    models.Envelope
	err    error
	panic  bool
}

func (f *fakeTurns) Execute(_ context.Context, input *turnorchestrator.Input) (*turnorchestrator.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("boom")
	}
	f.inputs = append(f.inputs, *input)
	if f.err != nil {
		return nil, f.err
	}
	env := f.env
	env.ThreadID = input.ThreadID
	return &turnorchestrator.Output{Envelope: env}, nil
}

func (f *fakeTurns) last(t *testing.T) turnorchestrator.Input {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.inputs)
	return f.inputs[len(f.inputs)-1]
}

type pingerFunc func(ctx context.Context) error

func (p pingerFunc) Ping(ctx context.Context) error { return p(ctx) }

type fixture struct {
	turns   *fakeTurns
	llm     *llm.MockClient
	store   *intentstore.MemoryStore
	handler http.Handler
}

func newFixture(t *testing.T, mutate func(*Config, *Dependencies)) *fixture {
	t.Helper()
	f := &fixture{
		turns: &fakeTurns{env: models.Envelope{Response: models.EnvelopeBody{
			Type:    models.EnvelopeText,
			Message: models.StringPtr("Hallo!"),
			Results: []interface{}{},
		}}},
		llm:   &llm.MockClient{},
		store: intentstore.NewMemoryStore(),
	}
	cfg := Config{
		AllowedOrigins: []string{"https://oba.nl"},
		CatalogueURL:   "https://zoeken.oba.nl/api/v1",
		CatalogueKey:   "legacy-key",
	}
	deps := Dependencies{Turns: f.turns, Conversations: f.llm, Store: f.store}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	srv, err := NewServer(cfg, deps, logger.NewTestLogger(t))
	require.NoError(t, err)
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ==========================
// Constructor
// ==========================

func TestNewServer_MissingDependencies(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, logger.NewNoOpLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDependency))
	assert.Contains(t, err.Error(), "turns")
	assert.Contains(t, err.Error(), "store")
}

// ==========================
// /send_message
// ==========================

func TestSendMessage_ReturnsEnvelope(t *testing.T) {
	f := newFixture(t, nil)
	f.turns.env.Response.URL = models.StringPtr("https://oba.nl/agenda?a=1&b=2")

	w := f.do(http.MethodPost, "/send_message", `{"thread_id":"conv_1","user_input":"Hoi"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "a=1&b=2")

	body := decodeMap(t, w)
	assert.Equal(t, "conv_1", body["thread_id"])
	resp := body["response"].(map[string]interface{})
	assert.Equal(t, "text", resp["type"])
	assert.Equal(t, "Hallo!", resp["message"])
	assert.Nil(t, resp["location"])

	in := f.turns.last(t)
	assert.Equal(t, "Hoi", in.UserText)
	assert.Equal(t, turnorchestrator.SourceSendMessage, in.Source)
}

func TestSendMessage_EmptyThreadIsPassedThrough(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/send_message", `{"user_input":"Hoi"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", f.turns.last(t).ThreadID)
}

func TestSendMessage_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"user_input":`, "invalid JSON body"},
		{"missing input", `{"thread_id":"conv_1"}`, "user_input is required"},
		{"blank input", `{"user_input":"   "}`, "user_input is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			w := f.do(http.MethodPost, "/send_message", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeMap(t, w)["error"])
			assert.Empty(t, f.turns.inputs)
		})
	}
}

func TestSendMessage_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/send_message", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSendMessage_TurnErrors(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.turns.err = apperrors.NewInvalidRequestError("empty turn")
		w := f.do(http.MethodPost, "/send_message", `{"user_input":"Hoi"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeMap(t, w)["error"])
	})

	t.Run("unexpected error", func(t *testing.T) {
		f := newFixture(t, nil)
		f.turns.err = errors.New("nil pointer somewhere")
		w := f.do(http.MethodPost, "/send_message", `{"user_input":"Hoi"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal server error", decodeMap(t, w)["error"])
	})
}

// ==========================
// /apply_filters
// ==========================

func TestApplyFilters_StringAndObject(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/apply_filters", `{"thread_id":"conv_1","filter_values":"Alleen Engelse boeken"}`)
	require.Equal(t, http.StatusOK, w.Code)
	in := f.turns.last(t)
	assert.Equal(t, "Alleen Engelse boeken", in.UserText)
	assert.Equal(t, "conv_1", in.ThreadID)
	assert.Equal(t, turnorchestrator.SourceApplyFilters, in.Source)

	w = f.do(http.MethodPost, "/apply_filters", `{"thread_id":"conv_1","filter_values":{ "taal": "Engels", "jaar": [2020, 2021] }}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"taal":"Engels","jaar":[2020,2021]}`, f.turns.last(t).UserText)
}

func TestApplyFilters_MissingValues(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/apply_filters", `{"thread_id":"conv_1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "filter_values is required", decodeMap(t, w)["error"])
}

func TestFilterText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"string", `"jeugd"`, "jeugd", false},
		{"escaped string", `"Titel \"Dune\""`, `Titel "Dune"`, false},
		{"number", `42`, "42", false},
		{"bool", `true`, "true", false},
		{"array", `[ "a", "b" ]`, `["a","b"]`, false},
		{"null", `null`, "", true},
		{"empty", ``, "", true},
		{"blank string", `"  "`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterText(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ==========================
// /start_thread and /reset
// ==========================

func TestStartThread(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.On("CreateConversation", mock.Anything).Return("conv_9", nil).Once()

	w := f.do(http.MethodPost, "/start_thread", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conv_9", decodeMap(t, w)["thread_id"])
	f.llm.AssertExpectations(t)
}

func TestStartThread_UpstreamFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.llm.On("CreateConversation", mock.Anything).Return("", errors.New("503")).Once()

	w := f.do(http.MethodPost, "/start_thread", "")

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "conversation service unavailable", decodeMap(t, w)["error"])
}

func TestReset_ClearsPinnedIntent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, "conv_1", models.ActiveSearch))

	w := f.do(http.MethodPost, "/reset", `{"thread_id":"conv_1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reset", decodeMap(t, w)["status"])
	got, err := f.store.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ActiveRouter, got)
}

func TestReset_EmptyBody(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reset", decodeMap(t, w)["status"])
}

func TestReset_InvalidBody(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/reset", `{"thread_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==========================
// Catalogue proxies
// ==========================

func TestResolverProxy_PassesThrough(t *testing.T) {
	var gotURL string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<aquabrowser><itemid>|oba-catalogus|123</itemid></aquabrowser>`))
	}))
	defer upstream.Close()

	f := newFixture(t, func(c *Config, _ *Dependencies) { c.CatalogueURL = upstream.URL })

	w := f.do(http.MethodGet, "/proxy/resolver?ppn=12345", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<itemid>|oba-catalogus|123</itemid>")
	assert.Equal(t, "/resolver/ppn/?id=12345&authorization=legacy-key", gotURL)
}

func TestDetailsProxy_PassesThroughStatus(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("id")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer upstream.Close()

	f := newFixture(t, func(c *Config, _ *Dependencies) { c.CatalogueURL = upstream.URL })

	w := f.do(http.MethodGet, "/proxy/details?item_id=123", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
	assert.Equal(t, "|oba-catalogus|123", gotQuery)
}

func TestProxy_MissingParameters(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/proxy/resolver", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/proxy/details?item_id=", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodPost, "/proxy/details?item_id=1", "").Code)
}

func TestProxy_UpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()

	f := newFixture(t, func(c *Config, _ *Dependencies) { c.CatalogueURL = upstream.URL })

	w := f.do(http.MethodGet, "/proxy/resolver?ppn=1", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCatalogueURLs(t *testing.T) {
	assert.Equal(t,
		"https://zoeken.oba.nl/api/v1/resolver/ppn/?id=12345&authorization=k",
		ResolverURL("https://zoeken.oba.nl/api/v1/", "k", "12345"))
	assert.Equal(t,
		"https://zoeken.oba.nl/api/v1/details/?id=%7Coba-catalogus%7C99&output=json&authorization=k",
		CatalogueDetailsURL("https://zoeken.oba.nl/api/v1", "k", "99"))
}

// ==========================
// Health
// ==========================

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestReady_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()

	f := newFixture(t, func(_ *Config, d *Dependencies) {
		d.Checks = map[string]Pinger{"redis": rdb}
	})

	w := f.do(http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decodeMap(t, w)["status"])

	mr.Close()
	w = f.do(http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeMap(t, w)
	assert.Equal(t, "unavailable", body["status"])
	assert.Contains(t, body["error"], "redis")
}

func TestReady_FailingCheck(t *testing.T) {
	f := newFixture(t, func(_ *Config, d *Dependencies) {
		d.Checks = map[string]Pinger{
			"ok":            pingerFunc(func(context.Context) error { return nil }),
			"elasticsearch": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		}
	})

	w := f.do(http.MethodGet, "/ready", "")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "elasticsearch: connection refused", decodeMap(t, w)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(http.MethodGet, "/health", "")

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `assistant_http_requests_total{route="/health",status="200"}`)
}

// ==========================
// Middleware
// ==========================

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/health", "", RequestIDHeader, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = f.do(http.MethodGet, "/health", "")
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodOptions, "/send_message", "", "Origin", "https://oba.nl")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://oba.nl", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(http.MethodGet, "/health", "", "Origin", "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	f := newFixture(t, func(c *Config, _ *Dependencies) { c.AllowedOrigins = []string{"*"} })
	w := f.do(http.MethodGet, "/health", "", "Origin", "https://anything.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	f := newFixture(t, nil)
	f.turns.panic = true

	w := f.do(http.MethodPost, "/send_message", `{"user_input":"Hoi"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeMap(t, w)["error"])
}
