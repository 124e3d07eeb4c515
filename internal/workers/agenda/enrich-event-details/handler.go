// internal/workers/agenda/enrich-event-details/handler.go
package enricheventdetails

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	commonhttp "nexi-assistant/internal/common/http"
	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
	shaperesults "nexi-assistant/internal/workers/results/shape-results"
)

const TaskType = "enrich-event-details"

var (
	ErrDetailUnavailable = errors.New("DETAIL_UNAVAILABLE")
	ErrDetailDecode      = errors.New("DETAIL_DECODE_FAILED")
)

type Handler struct {
	config    *Config
	client    *commonhttp.Client
	extractor *extractor
	logger    logger.Logger
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	ex, err := newExtractor()
	if err != nil {
		return nil, err
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Handler{
		config:    config,
		client:    commonhttp.NewClient(config.Timeout),
		extractor: ex,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	events, failed := h.Enrich(ctx, Refs(input.Documents))
	return &Output{Events: events, Failed: failed}, nil
}

// Refs pairs each events hit that has a native ID with the fields it carries.
func Refs(docs []models.Document) []EventRef {
	refs := make([]EventRef, 0, len(docs))
	for _, doc := range docs {
		id := shaperesults.NativeID(doc)
		if id == "" {
			continue
		}
		refs = append(refs, EventRef{NativeID: id, Base: shaperesults.EventFromDocument(doc)})
	}
	return refs
}

// Enrich fetches the detail record of every ref with bounded concurrency.
// Failed fetches are dropped; the rest keep input order.
func (h *Handler) Enrich(ctx context.Context, refs []EventRef) ([]models.RawEvent, int) {
	start := time.Now()
	results := make([]*models.RawEvent, len(refs))
	sem := semaphore.NewWeighted(int64(h.config.Concurrency))
	var wg sync.WaitGroup

	for i, ref := range refs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, ref EventRef) {
			defer wg.Done()
			defer sem.Release(1)

			ev, err := h.fetch(ctx, ref)
			if err != nil {
				h.logger.Warn("event detail fetch failed", map[string]interface{}{
					"nativeId": ref.NativeID,
					"error":    err.Error(),
				})
				metrics.StepsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
				return
			}
			results[i] = &ev
		}(i, ref)
	}
	wg.Wait()

	events := make([]models.RawEvent, 0, len(refs))
	for _, ev := range results {
		if ev != nil {
			events = append(events, *ev)
		}
	}
	failed := len(refs) - len(events)

	h.logger.Info("event details enriched", map[string]interface{}{
		"requested": len(refs),
		"enriched":  len(events),
		"failed":    failed,
	})
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return events, failed
}

func (h *Handler) fetch(ctx context.Context, ref EventRef) (models.RawEvent, error) {
	body, err := h.client.GetOK(ctx, h.DetailURL(ref.NativeID), map[string]string{"Accept": "application/json"})
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("%w: %v", ErrDetailUnavailable, err)
	}
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return models.RawEvent{}, fmt.Errorf("%w: %v", ErrDetailDecode, err)
	}
	return h.extractor.event(data, ref.Base), nil
}

// DetailURL builds the JSON detail call for one native ID.
func (h *Handler) DetailURL(nativeID string) string {
	base := strings.TrimRight(h.config.BaseURL, "/")
	raw := base + "/details/?id=" + url.QueryEscape(nativeID) + "&output=json"
	return commonhttp.EnsureQueryParam(raw, "authorization", h.config.APIKey)
}

func errorCode(err error) string {
	if errors.Is(err, ErrDetailDecode) {
		return ErrDetailDecode.Error()
	}
	return ErrDetailUnavailable.Error()
}
