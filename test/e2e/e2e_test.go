// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexi-assistant/internal/app"
	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/common/database"
	"nexi-assistant/internal/common/logger"
)

const (
	threadID    = "conv_e2e"
	roleRouter  = "ROUTER"
	roleSearch  = "SEARCH"
	roleCompare = "COMPARE"
	roleAgenda  = "AGENDA"
	intentKey   = "nexi:intent:" + threadID
)

const agendaXML = `<?xml version="1.0" encoding="UTF-8"?>
<aquabrowser>
  <results>
    <result>
      <titles><title>Voorleesuurtje</title></titles>
      <custom>
        <evenement><deeplink>https://oba.nl/agenda/voorleesuurtje</deeplink></evenement>
        <gebeurtenis>
          <datum start="2025-03-15T14:00:00+01:00" end="2025-03-15T16:00:00+01:00"/>
          <gebouw>OBA Oosterdok</gebouw>
          <zaal>Theaterzaal</zaal>
        </gebeurtenis>
      </custom>
    </result>
  </results>
</aquabrowser>`

// ==========================
// Fake upstreams
// ==========================

// fakeLLM answers the conversation and responses endpoints from a script keyed
// on the instructions and input of each call.
type fakeLLM struct {
	legacyURL string
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/conversations" {
		writeJSON(w, map[string]interface{}{"id": threadID})
		return
	}

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	instructions, _ := body["instructions"].(string)

	if _, ok := body["input"].([]interface{}); ok {
		writeJSON(w, textResponse("De OBA is elke dag open van 10 tot 22 uur."))
		return
	}
	input, _ := body["input"].(string)

	switch instructions {
	case roleRouter:
		switch {
		case input == "hoi":
			writeJSON(w, textResponse("Hallo! Waar kan ik je mee helpen?"))
		case strings.Contains(input, "draken"):
			writeJSON(w, textResponse("SEARCH_QUERY: draken"))
		case strings.Contains(input, "te doen"):
			writeJSON(w, textResponse("AGENDA_VRAAG: voorlezen dit weekend"))
		case input == "openingstijden":
			writeJSON(w, map[string]interface{}{
				"id": "resp_tool",
				"output": []interface{}{map[string]interface{}{
					"type":      "function_call",
					"call_id":   "call_1",
					"name":      "build_faq_params",
					"arguments": `{"user_query":"openingstijden"}`,
				}},
			})
		default:
			writeJSON(w, textResponse("Sorry?"))
		}
	case roleSearch:
		filter := ""
		if strings.Contains(input, "Engels") {
			filter = "language :=Engels"
		}
		stage, _ := json.Marshal(map[string]string{
			"q":          "draken",
			"collection": "obadb30725",
			"query_by":   "embedding",
			"filter_by":  filter,
			"Message":    "Hier zijn drakenboeken",
		})
		writeJSON(w, textResponse(string(stage)))
	case roleAgenda:
		stage, _ := json.Marshal(map[string]string{
			"API":     f.legacyURL + "/search/?q=table:evenementen&refine=true",
			"URL":     "https://oba.nl/nl/agenda/volledige-agenda?Wanneer=b_upcomingweekend",
			"Message": "Dit is er te doen",
		})
		writeJSON(w, textResponse(string(stage)))
	default:
		writeJSON(w, textResponse("onbekend"))
	}
}

func textResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"id": "resp_1",
		"output": []interface{}{map[string]interface{}{
			"type":    "message",
			"content": []interface{}{map[string]interface{}{"type": "output_text", "text": text}},
		}},
	}
}

// fakeTypesense serves multi_search and records every search.
type fakeTypesense struct {
	mu       sync.Mutex
	searches []map[string]interface{}
}

func (f *fakeTypesense) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Searches []map[string]interface{} `json:"searches"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if len(body.Searches) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	search := body.Searches[0]
	f.mu.Lock()
	f.searches = append(f.searches, search)
	f.mu.Unlock()

	var docs []interface{}
	switch search["collection"] {
	case "obadb30725":
		docs = []interface{}{
			map[string]interface{}{"document": map[string]interface{}{"ppn": "123", "short_title": "Eragon", "main_author": "Paolini"}},
			map[string]interface{}{"document": map[string]interface{}{"short_title": "zonder ppn"}},
		}
	case "obafaq":
		docs = []interface{}{
			map[string]interface{}{"document": map[string]interface{}{"vraag": "Wanneer is de OBA open?", "antwoord": "Elke dag van 10 tot 22 uur."}},
		}
	}
	writeJSON(w, map[string]interface{}{
		"results": []interface{}{map[string]interface{}{"found": len(docs), "hits": docs}},
	})
}

func (f *fakeTypesense) last(t *testing.T) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.searches)
	return f.searches[len(f.searches)-1]
}

func newLegacy(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("authorization") != "legacy-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(agendaXML))
	})
	mux.HandleFunc("/details/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"record": map[string]interface{}{"id": r.URL.Query().Get("id")}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ==========================
// Server setup
// ==========================

type env struct {
	server    *httptest.Server
	typesense *fakeTypesense
	redis     *miniredis.Miniredis
}

func newEnv(t *testing.T) *env {
	t.Helper()

	legacy := newLegacy(t)
	llmSrv := httptest.NewServer(&fakeLLM{legacyURL: legacy.URL})
	t.Cleanup(llmSrv.Close)
	ts := &fakeTypesense{}
	tsSrv := httptest.NewServer(ts)
	t.Cleanup(tsSrv.Close)

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		App:    config.AppConfig{Name: "nexi-assistant-e2e"},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		LLM: config.LLMConfig{
			BaseURL:   llmSrv.URL,
			APIKey:    "sk-test",
			Model:     "gpt-test",
			FastModel: "gpt-test-nano",
			Timeout:   5000,
			UseTools:  true,
			Roles: config.RolesConfig{
				Router:  roleRouter,
				Search:  roleSearch,
				Compare: roleCompare,
				Agenda:  roleAgenda,
			},
		},
		Search: config.SearchConfig{
			Backend: config.BackendTypesense,
			URL:     tsSrv.URL + "/multi_search",
			APIKey:  "ts-key",
			PerPage: 15,
			Timeout: 5000,
		},
		Collections: config.CollectionsConfig{
			Books:            "obadb30725",
			BooksKraaiennest: "obadbkraaiennest",
			FAQ:              "obafaq",
			Events:           "obadbevents",
		},
		Legacy: config.LegacyConfig{
			BaseURL:           legacy.URL,
			APIKey:            "legacy-key",
			Timeout:           5000,
			DetailConcurrency: 2,
		},
		IntentStore: config.IntentStoreConfig{Backend: config.StoreRedis, Prefix: "nexi:intent:"},
	}

	handler, err := app.NewHandler(cfg, app.Infra{Redis: rdb}, logger.NewTestLogger(t))
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &env{server: srv, typesense: ts, redis: mr}
}

func (e *env) post(t *testing.T, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *env) intent(t *testing.T) string {
	t.Helper()
	if !e.redis.Exists(intentKey) {
		return ""
	}
	v, err := e.redis.Get(intentKey)
	require.NoError(t, err)
	return v
}

func response(t *testing.T, out map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp, ok := out["response"].(map[string]interface{})
	require.True(t, ok, "missing response in %v", out)
	return resp
}

// ==========================
// Conversation flow
// ==========================

func TestFullConversation(t *testing.T) {
	e := newEnv(t)

	t.Run("start thread", func(t *testing.T) {
		status, out := e.post(t, "/start_thread", map[string]string{})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, threadID, out["thread_id"])
	})

	t.Run("plain reply", func(t *testing.T) {
		status, out := e.post(t, "/send_message", map[string]string{"thread_id": threadID, "user_input": "hoi"})
		require.Equal(t, http.StatusOK, status)
		resp := response(t, out)
		assert.Equal(t, "text", resp["type"])
		assert.Equal(t, "Hallo! Waar kan ik je mee helpen?", resp["message"])
		assert.Equal(t, []interface{}{}, resp["results"])
		assert.Equal(t, threadID, out["thread_id"])
		assert.Equal(t, "router", e.intent(t))
	})

	t.Run("book search", func(t *testing.T) {
		status, out := e.post(t, "/send_message", map[string]string{"thread_id": threadID, "user_input": "boeken over draken"})
		require.Equal(t, http.StatusOK, status)
		resp := response(t, out)
		assert.Equal(t, "collection", resp["type"])
		assert.Equal(t, "Hier zijn drakenboeken", resp["message"])
		results := resp["results"].([]interface{})
		require.Len(t, results, 1)
		assert.Equal(t, "Eragon", results[0].(map[string]interface{})["short_title"])
		assert.Equal(t, "obadb30725", e.typesense.last(t)["collection"])
		assert.Equal(t, "search", e.intent(t))
	})

	t.Run("apply filters on pinned search", func(t *testing.T) {
		status, out := e.post(t, "/apply_filters", map[string]interface{}{
			"thread_id":     threadID,
			"filter_values": map[string]string{"taal": "Engels"},
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "collection", response(t, out)["type"])
		assert.Equal(t, "language :=Engels", e.typesense.last(t)["filter_by"])
		assert.Equal(t, "search", e.intent(t))
	})

	t.Run("reset", func(t *testing.T) {
		status, out := e.post(t, "/reset", map[string]string{"thread_id": threadID})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "reset", out["status"])
		assert.Equal(t, "", e.intent(t))
	})

	t.Run("agenda via legacy api", func(t *testing.T) {
		status, out := e.post(t, "/send_message", map[string]string{"thread_id": threadID, "user_input": "wat is er te doen dit weekend"})
		require.Equal(t, http.StatusOK, status)
		resp := response(t, out)
		assert.Equal(t, "agenda", resp["type"])
		assert.Equal(t, "https://oba.nl/nl/agenda/volledige-agenda?Wanneer=b_upcomingweekend", resp["url"])
		assert.Equal(t, "Dit is er te doen", resp["message"])
		results := resp["results"].([]interface{})
		require.Len(t, results, 1)
		item := results[0].(map[string]interface{})
		assert.Equal(t, "Voorleesuurtje", item["title"])
		assert.Equal(t, "OBA Oosterdok, Theaterzaal", item["location"])
		assert.Equal(t, "agenda", e.intent(t))
	})

	t.Run("faq tool call", func(t *testing.T) {
		_, _ = e.post(t, "/reset", map[string]string{"thread_id": threadID})

		status, out := e.post(t, "/send_message", map[string]string{"thread_id": threadID, "user_input": "openingstijden"})
		require.Equal(t, http.StatusOK, status)
		resp := response(t, out)
		assert.Equal(t, "faq", resp["type"])
		assert.Equal(t, "De OBA is elke dag open van 10 tot 22 uur.", resp["message"])
		results := resp["results"].([]interface{})
		require.Len(t, results, 1)
		assert.Equal(t, "Wanneer is de OBA open?", results[0].(map[string]interface{})["vraag"])
		assert.Equal(t, "obafaq", e.typesense.last(t)["collection"])
		assert.Equal(t, "router", e.intent(t))
	})

	t.Run("invalid request", func(t *testing.T) {
		status, out := e.post(t, "/send_message", map[string]string{"thread_id": threadID})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "user_input is required", out["error"])
	})
}

func TestOperationalEndpoints(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(e.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(e.server.URL + "/proxy/details?item_id=42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "|oba-catalogus|42", body["record"].(map[string]interface{})["id"])

	e.redis.Close()
	resp, err = http.Get(e.server.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
