// internal/workers/search/query-typesense/handler.go
package querytypesense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	commonhttp "nexi-assistant/internal/common/http"
	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
)

const TaskType = "query-typesense"

const multiSearchPath = "/multi_search"

var (
	ErrSearchUnavailable = errors.New("SEARCH_UNAVAILABLE")
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

type Handler struct {
	config *Config
	client *typesense.Client
	logger logger.Logger
}

// NewHandler builds the Typesense client on the shared traced HTTP client, so
// every search is sent once with the configured timeout.
func NewHandler(config *Config, log logger.Logger) *Handler {
	h := &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
	if config.URL == "" {
		return h
	}
	apiClient, err := api.NewClientWithResponses(ServerURL(config.URL),
		api.WithAPIKey(config.APIKey),
		api.WithHTTPClient(commonhttp.NewClient(config.Timeout)),
	)
	if err != nil {
		h.logger.Error("typesense client setup failed", map[string]interface{}{"error": err.Error()})
		return h
	}
	h.client = typesense.NewClient(typesense.WithAPIClient(apiClient))
	return h
}

// ServerURL accepts either the server root or the full multi_search endpoint.
func ServerURL(raw string) string {
	return strings.TrimSuffix(strings.TrimRight(raw, "/"), multiSearchPath)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.Search(ctx, &input.Params)
	if err != nil {
		return nil, err
	}
	return &Output{Result: *result}, nil
}

// Search runs one query against the multi_search endpoint.
func (h *Handler) Search(ctx context.Context, params *models.SearchParams) (*models.SearchResult, error) {
	start := time.Now()
	if h.client == nil {
		return nil, h.fail(fmt.Errorf("%w: search url not configured", ErrSearchUnavailable))
	}

	perPage := h.config.PerPage
	if params.PerPage > 0 {
		perPage = params.PerPage
	}
	searches := api.MultiSearchSearchesParameter{Searches: []api.MultiSearchCollectionParameters{{
		Q:             pointer.String(params.Query),
		QueryBy:       pointer.String(params.QueryBy),
		Collection:    params.Collection,
		Prefix:        pointer.String("false"),
		VectorQuery:   pointer.String(params.VectorQuery),
		IncludeFields: pointer.String("*"),
		PerPage:       pointer.Int(perPage),
		FilterBy:      pointer.String(params.FilterBy),
	}}}

	h.logger.Debug("search request", map[string]interface{}{
		"collection": params.Collection,
		"queryBy":    params.QueryBy,
		"filterBy":   params.FilterBy,
	})

	// The typed result drops the per-search code and error, so the raw body
	// is decoded here.
	raw, err := h.client.MultiSearch.PerformWithContentType(ctx, nil, searches, "application/json")
	if err != nil {
		return nil, h.fail(h.classify(ctx, err))
	}
	if raw.StatusCode() != http.StatusOK {
		return nil, h.fail(h.classify(ctx, &typesense.HTTPError{Status: raw.StatusCode(), Body: raw.Body}))
	}
	var resp multiSearchResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, h.fail(fmt.Errorf("%w: %v", ErrSearchUnavailable, err))
	}

	if len(resp.Results) == 0 {
		return nil, h.fail(fmt.Errorf("%w: empty results array", ErrSearchQueryFailed))
	}
	first := resp.Results[0]
	if first.Error != "" {
		if first.Code == http.StatusNotFound {
			return nil, h.fail(fmt.Errorf("%w: %s", ErrIndexNotFound, params.Collection))
		}
		return nil, h.fail(fmt.Errorf("%w: %s", ErrSearchQueryFailed, first.Error))
	}

	docs := make([]models.Document, 0, len(first.Hits))
	for _, hit := range first.Hits {
		if hit.Document != nil {
			docs = append(docs, hit.Document)
		}
	}

	h.logger.Info("search completed", map[string]interface{}{
		"collection": params.Collection,
		"hits":       len(docs),
		"found":      first.Found,
	})
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &models.SearchResult{
		Documents: docs,
		Found:     first.Found,
		TookMs:    first.SearchTimeMs,
	}, nil
}

func (h *Handler) classify(ctx context.Context, err error) error {
	var statusErr *typesense.HTTPError
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrSearchTimeout, err)
	case errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrIndexNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
}

func (h *Handler) fail(err error) error {
	metrics.StepsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
	return err
}

func errorCode(err error) string {
	for _, sentinel := range []error{ErrSearchTimeout, ErrIndexNotFound, ErrSearchQueryFailed, ErrSearchUnavailable} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "UNKNOWN_ERROR"
}
