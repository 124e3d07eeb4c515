// internal/workers/conversation/extract-intent/handler.go
package extractintent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
)

const TaskType = "extract-intent"

var (
	ErrNotJSONObject = errors.New("NOT_JSON_OBJECT")
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute classifies one assistant reply. It never fails.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	start := time.Now()
	intent, mode := h.extract(input.Reply)

	h.logger.Debug("intent extracted", map[string]interface{}{
		"kind":     intent.Kind,
		"mode":     mode,
		"queryLen": len(intent.Query),
	})
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Intent: intent, Mode: mode}, nil
}

// Extract classifies reply with the default markers.
func Extract(reply string) models.Intent {
	h := &Handler{config: LoadConfig()}
	intent, _ := h.extract(reply)
	return intent
}

func (h *Handler) extract(reply string) (models.Intent, string) {
	if obj, err := decodeObject(reply); err == nil {
		if marker, ok := obj["Marker"].(string); ok {
			if intent, found := h.matchMarkers(marker); found {
				return intent, ModeStructured
			}
			return models.NoIntent(firstNonEmpty(stringField(obj, "Message"), marker)), ModeStructured
		}
		if msg := firstNonEmpty(stringField(obj, "Message"), stringField(obj, "message")); msg != "" {
			return models.NoIntent(msg), ModeStructured
		}
		return models.NoIntent(models.UnknownFormatMessage), ModeUnknown
	}

	if intent, found := h.matchMarkers(reply); found {
		return intent, ModeMarker
	}
	return models.NoIntent(reply), ModeNone
}

// matchMarkers checks markers in fixed priority; position in text does not
// matter.
func (h *Handler) matchMarkers(text string) (models.Intent, bool) {
	checks := []struct {
		marker string
		kind   models.IntentKind
	}{
		{h.config.SearchMarker, models.IntentSearch},
		{h.config.CompareMarker, models.IntentCompare},
		{h.config.AgendaMarker, models.IntentAgenda},
	}
	for _, c := range checks {
		if c.marker == "" {
			continue
		}
		if idx := strings.Index(text, c.marker); idx >= 0 {
			return models.Intent{
				Kind:  c.kind,
				Query: strings.TrimSpace(text[idx+len(c.marker):]),
			}, true
		}
	}
	return models.Intent{}, false
}

// ParseSearchParams reads a search stage reply. Missing fields stay empty.
func ParseSearchParams(reply string) (*models.SearchParams, error) {
	obj, err := decodeObject(reply)
	if err != nil {
		return nil, err
	}
	return searchParamsFrom(obj), nil
}

// ParseAgendaReply reads an agenda stage reply.
func ParseAgendaReply(reply string) (*AgendaReply, error) {
	obj, err := decodeObject(reply)
	if err != nil {
		return nil, err
	}
	out := &AgendaReply{
		API:     stringField(obj, "API"),
		URL:     stringField(obj, "URL"),
		Message: firstNonEmpty(stringField(obj, "Message"), stringField(obj, "message")),
	}
	if _, hasCollection := obj["collection"]; hasCollection {
		out.Search = searchParamsFrom(obj)
	}
	return out, nil
}

// IsStagePayload reports whether reply is a stage JSON object: it has no
// "Marker" key and carries at least one of keys.
func IsStagePayload(reply string, keys ...string) bool {
	obj, err := decodeObject(reply)
	if err != nil {
		return false
	}
	if _, marked := obj["Marker"]; marked {
		return false
	}
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// Keys lists the top-level keys of a JSON object reply, for diagnostics.
func Keys(reply string) []string {
	obj, err := decodeObject(reply)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return keys
}

func searchParamsFrom(obj map[string]interface{}) *models.SearchParams {
	return &models.SearchParams{
		Query:       stringField(obj, "q"),
		QueryBy:     stringField(obj, "query_by"),
		Collection:  stringField(obj, "collection"),
		VectorQuery: stringField(obj, "vector_query"),
		FilterBy:    stringField(obj, "filter_by"),
		Message:     firstNonEmpty(stringField(obj, "Message"), stringField(obj, "message")),
	}
}

// decodeObject parses reply as a JSON object, tolerating a fenced code block.
func decodeObject(reply string) (map[string]interface{}, error) {
	text := stripFence(strings.TrimSpace(reply))
	if !strings.HasPrefix(text, "{") {
		return nil, ErrNotJSONObject
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSONObject, err)
	}
	if obj == nil {
		return nil, ErrNotJSONObject
	}
	return obj, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringField(obj map[string]interface{}, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
