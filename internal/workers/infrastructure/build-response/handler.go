// internal/workers/infrastructure/build-response/handler.go
package buildresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/common/validation"
	"nexi-assistant/internal/models"
)

const TaskType = "build-response"

var (
	ErrUnknownEnvelopeType = errors.New("UNKNOWN_ENVELOPE_TYPE")
)

type Handler struct {
	config    *Config
	logger    logger.Logger
	validator *validation.Validator
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	v := validation.NewValidator()
	for t, schema := range resultSchemas {
		if err := v.Register(string(t), schema); err != nil {
			log.Error("invalid result schema", map[string]interface{}{"type": t, "error": err})
		}
	}
	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		validator: v,
	}
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	start := time.Now()

	if _, ok := resultSchemas[input.Type]; !ok {
		metrics.StepsFailed.WithLabelValues(TaskType, "UNKNOWN_ENVELOPE_TYPE").Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelopeType, input.Type)
	}

	env := Build(input.Type, input.Results, input.URL, input.Message, input.ConversationID)
	if h.config.ValidateResults {
		h.checkResults(env)
	}

	metrics.EnvelopesBuilt.WithLabelValues(string(env.Response.Type)).Inc()
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Envelope: env}, nil
}

func (h *Handler) checkResults(env models.Envelope) {
	raw, err := json.Marshal(env.Response.Results)
	if err != nil {
		h.logger.Warn("results not encodable", map[string]interface{}{
			"type":  env.Response.Type,
			"error": err,
		})
		return
	}
	result, err := h.validator.ValidateJSON(string(env.Response.Type), raw)
	if err != nil {
		h.logger.Warn("result validation skipped", map[string]interface{}{"error": err})
		return
	}
	if !result.Valid {
		h.logger.Warn("results do not match envelope type", map[string]interface{}{
			"type":           env.Response.Type,
			"conversationId": env.ThreadID,
			"errors":         result.Error(),
		})
	}
}

// Build assembles an envelope. results nil becomes an empty list and message
// passes through NormalizeMessage.
func Build(t models.EnvelopeType, results interface{}, url *string, message interface{}, conversationID string) models.Envelope {
	return models.Envelope{
		Response: models.EnvelopeBody{
			Type:     t,
			URL:      url,
			Message:  NormalizeMessage(message),
			Results:  normalizeResults(results),
			Location: nil,
		},
		ThreadID: conversationID,
	}
}

// TextEnvelope is a text envelope with no results.
func TextEnvelope(message interface{}, conversationID string) models.Envelope {
	return Build(models.EnvelopeText, nil, nil, message, conversationID)
}

func normalizeResults(results interface{}) interface{} {
	if results == nil {
		return []interface{}{}
	}
	v := reflect.ValueOf(results)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return []interface{}{}
		}
		return results
	case reflect.Ptr, reflect.Map:
		if v.IsNil() {
			return []interface{}{}
		}
	}
	return results
}

// NormalizeMessage reduces any message-like value to display text. Maps and
// JSON-object strings yield their Message or message field, or nil without
// one. The result is a fixed point: normalizing it again returns the same
// value.
func NormalizeMessage(raw interface{}) *string {
	switch v := raw.(type) {
	case nil:
		return nil
	case *string:
		if v == nil {
			return nil
		}
		return normalizeString(*v)
	case string:
		return normalizeString(v)
	case map[string]interface{}:
		if inner, ok := messageField(v); ok {
			return NormalizeMessage(inner)
		}
		return nil
	case json.RawMessage:
		return normalizeString(string(v))
	default:
		return normalizeString(fmt.Sprint(v))
	}
}

func normalizeString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			if inner, ok := messageField(obj); ok {
				return NormalizeMessage(inner)
			}
			return nil
		}
	}
	return &s
}

func messageField(obj map[string]interface{}) (interface{}, bool) {
	for _, key := range []string{"Message", "message"} {
		if v, ok := obj[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
