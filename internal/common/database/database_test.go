package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/models"
)

func TestRedis_PingAndClose(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
}

func TestRedis_IntentStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	store, err := client.IntentStore(config.IntentStoreConfig{Prefix: "nexi:intent:", TTL: 60000})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "conv_1", models.ActiveAgenda))
	got, err := store.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.ActiveAgenda, got)
	assert.True(t, mr.Exists("nexi:intent:conv_1"))
	assert.Greater(t, mr.TTL("nexi:intent:conv_1"), time.Duration(0))
}

func TestRedis_PingErrorNamesAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := NewRedis(config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestRedis_PingFailsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestElasticsearch_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestElasticsearch_PingChecksCollectionIndices(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if strings.Contains(r.URL.Path, "obadbevents") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.ElasticsearchConfig{URL: server.URL}

	client, err := NewElasticsearch(cfg, "obadb30725", "", "obafaq")
	require.NoError(t, err)
	require.NoError(t, client.Ping(context.Background()))
	mu.Lock()
	assert.Equal(t, []string{"HEAD /", "HEAD /obadb30725,obafaq"}, paths)
	mu.Unlock()

	client, err = NewElasticsearch(cfg, CollectionIndices(config.CollectionsConfig{
		Books: "obadb30725", FAQ: "obafaq", Events: "obadbevents",
	})...)
	require.NoError(t, err)
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obadbevents")
}

func TestElasticsearch_PingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{server.URL}})
	require.NoError(t, err)
	assert.Error(t, client.Ping(context.Background()))
}
