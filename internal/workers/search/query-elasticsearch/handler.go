// internal/workers/search/query-elasticsearch/handler.go
package queryelasticsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
	"nexi-assistant/internal/workers/search/query-elasticsearch/queries"
)

const (
	TaskType = "query-elasticsearch"
)

var (
	ErrElasticsearchConnectionFailed = errors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrSearchQueryFailed             = errors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout                 = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound                 = errors.New("INDEX_NOT_FOUND")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	result, err := h.run(ctx, &input.Params)
	if err != nil {
		return nil, err
	}
	return &Output{
		Result: models.SearchResult{
			Documents: result.Documents,
			Found:     int(result.TotalHits),
			TookMs:    result.Took,
		},
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
	}, nil
}

// Search runs params against the index named by the collection.
func (h *Handler) Search(ctx context.Context, params *models.SearchParams) (*models.SearchResult, error) {
	out, err := h.Execute(ctx, &Input{Params: *params})
	if err != nil {
		return nil, err
	}
	return &out.Result, nil
}

func (h *Handler) run(ctx context.Context, params *models.SearchParams) (*queries.QueryResult, error) {
	start := time.Now()
	if h.client == nil {
		return nil, h.fail(fmt.Errorf("%w: no client", ErrElasticsearchConnectionFailed))
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	size := h.config.PerPage
	if params.PerPage > 0 {
		size = params.PerPage
	}

	result, err := queries.Execute(ctx, h.client, params, size)
	if err != nil {
		return nil, h.fail(h.mapError(ctx, err))
	}

	h.logger.Info("search completed", map[string]interface{}{
		"index":     params.Collection,
		"hits":      len(result.Documents),
		"totalHits": result.TotalHits,
	})
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return result, nil
}

func (h *Handler) mapError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrSearchTimeout, err)
	case errors.Is(err, queries.ErrMissingIndex), errors.Is(err, queries.ErrIndexNotFound):
		return fmt.Errorf("%w: %v", ErrIndexNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
}

func (h *Handler) fail(err error) error {
	metrics.StepsFailed.WithLabelValues(TaskType, h.mapErrorToCode(err)).Inc()
	return err
}

func (h *Handler) mapErrorToCode(err error) string {
	if errors.Is(err, ErrIndexNotFound) {
		return "INDEX_NOT_FOUND"
	} else if errors.Is(err, ErrSearchTimeout) {
		return "SEARCH_TIMEOUT"
	} else if errors.Is(err, ErrSearchQueryFailed) {
		return "SEARCH_QUERY_FAILED"
	} else if errors.Is(err, ErrElasticsearchConnectionFailed) {
		return "ELASTICSEARCH_CONNECTION_FAILED"
	}
	return "UNKNOWN_ERROR"
}
