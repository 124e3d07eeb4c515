// internal/workers/conversation/turn-orchestrator/handler.go
package turnorchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "nexi-assistant/internal/common/errors"
	"nexi-assistant/internal/common/intentstore"
	"nexi-assistant/internal/common/llm"
	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/common/observability"
	"nexi-assistant/internal/models"
	fetchlegacyagenda "nexi-assistant/internal/workers/agenda/fetch-legacy-agenda"
	extractintent "nexi-assistant/internal/workers/conversation/extract-intent"
	buildresponse "nexi-assistant/internal/workers/infrastructure/build-response"
	shaperesults "nexi-assistant/internal/workers/results/shape-results"
)

const TaskType = "turn-orchestrator"

// Steps reported in failure logs and mapped to error codes.
const (
	stepLLM    = "llm"
	stepSearch = "search"
	stepLegacy = "legacy"
)

var (
	ErrMissingDependency = errors.New("MISSING_DEPENDENCY")
)

// Dependencies are the collaborators of one Handler. Observability may be nil.
type Dependencies struct {
	LLM             llm.Client
	Store           intentstore.Store
	Searcher        Searcher
	Legacy          AgendaFetcher
	Details         DetailEnricher
	Tools           ToolExecutor
	ToolDefinitions []map[string]interface{}
	Extractor       *extractintent.Handler
	Shaper          *shaperesults.Handler
	Builder         *buildresponse.Handler
	Observability   *observability.Observability
}

func (d Dependencies) validate() error {
	missing := []string{}
	if d.LLM == nil {
		missing = append(missing, "llm")
	}
	if d.Store == nil {
		missing = append(missing, "store")
	}
	if d.Searcher == nil {
		missing = append(missing, "searcher")
	}
	if d.Legacy == nil {
		missing = append(missing, "legacy")
	}
	if d.Details == nil {
		missing = append(missing, "details")
	}
	if d.Tools == nil {
		missing = append(missing, "tools")
	}
	if d.Extractor == nil || d.Shaper == nil || d.Builder == nil {
		missing = append(missing, "workers")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	return nil
}

type Handler struct {
	config *Config
	deps   Dependencies
	errs   *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) (*Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		deps:   deps,
		errs:   apperrors.NewErrorHandler(l),
		logger: l,
	}, nil
}

// Execute answers one user turn. Upstream failures are returned as text
// envelopes; the error return is reserved for a nil input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: nil input", apperrors.NewInvalidRequestError("empty turn"))
	}
	start := time.Now()
	source := input.Source
	if source == "" {
		source = SourceSendMessage
	}

	metrics.TurnsActive.WithLabelValues(source).Inc()
	defer metrics.TurnsActive.WithLabelValues(source).Dec()

	ctx, span := h.deps.Observability.StartSpan(ctx, "conversation.turn", attribute.String("source", source))
	defer span.End()

	env := h.turn(ctx, input)
	envType := string(env.Response.Type)
	span.SetAttributes(attribute.String("envelope_type", envType))

	h.deps.Observability.RecordTurn(ctx, envType, source)
	h.deps.Observability.RecordTurnDuration(ctx, time.Since(start), envType)
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	h.logger.Info("turn answered", map[string]interface{}{
		"conversationId": env.ThreadID,
		"source":         source,
		"envelopeType":   envType,
		"duration":       time.Since(start).String(),
	})
	return &Output{Envelope: env}, nil
}

func (h *Handler) turn(ctx context.Context, input *Input) models.Envelope {
	convID := strings.TrimSpace(input.ThreadID)
	if convID == "" {
		id, err := h.createConversation(ctx)
		if err != nil {
			return h.failure(ctx, "", stepLLM, err, nil)
		}
		convID = id
	}

	active := h.activeIntent(ctx, convID)

	var tools []map[string]interface{}
	if active == models.ActiveRouter && h.config.UseTools {
		tools = h.deps.ToolDefinitions
	}
	reply, err := h.send(ctx, convID, h.config.role(active), input.UserText, tools)
	if err != nil {
		return h.failure(ctx, convID, stepLLM, err, map[string]interface{}{"activeIntent": active})
	}

	if reply.HasToolCalls() {
		return h.toolTurn(ctx, convID, input.UserText, reply.ToolCalls)
	}

	if active != models.ActiveRouter {
		if env, ok := h.pinned(ctx, convID, active, reply.Text); ok {
			return env
		}
	}
	return h.markerTurn(ctx, convID, reply.Text)
}

// pinned dispatches a stage payload sent while a stage intent is active, e.g.
// after filter refinement. Replies carrying a Marker, or lacking every stage
// key, go through the extractor instead.
func (h *Handler) pinned(ctx context.Context, convID string, active models.ActiveIntent, text string) (models.Envelope, bool) {
	switch active {
	case models.ActiveSearch, models.ActiveCompare:
		if !extractintent.IsStagePayload(text, "collection", "q") {
			return models.Envelope{}, false
		}
		params, err := extractintent.ParseSearchParams(text)
		if err != nil {
			return models.Envelope{}, false
		}
		return h.dispatchSearch(ctx, convID, params), true
	case models.ActiveAgenda:
		if !extractintent.IsStagePayload(text, "API", "collection") {
			return models.Envelope{}, false
		}
		reply, err := extractintent.ParseAgendaReply(text)
		if err != nil || (!reply.HasLegacyQuery() && reply.Search == nil) {
			return models.Envelope{}, false
		}
		return h.dispatchAgenda(ctx, convID, reply, text), true
	}
	return models.Envelope{}, false
}

func (h *Handler) markerTurn(ctx context.Context, convID, text string) models.Envelope {
	out, err := h.deps.Extractor.Execute(ctx, &extractintent.Input{Reply: text})
	if err != nil {
		return h.failure(ctx, convID, stepLLM, err, nil)
	}
	intent := out.Intent
	if out.Mode == extractintent.ModeUnknown {
		stdErr := apperrors.NewUnknownFormatError(stepLLM, extractintent.Keys(text))
		h.errs.Log("reply not recognized", stdErr, map[string]interface{}{"conversationId": convID})
		metrics.StepsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	}

	h.setIntent(ctx, convID, intent.ActiveIntent())
	if intent.Kind == models.IntentNone {
		return h.envelope(ctx, models.EnvelopeText, nil, nil, intent.Query, convID)
	}

	stage := intent.ActiveIntent()
	reply, err := h.send(ctx, convID, h.config.role(stage), intent.Query, nil)
	if err != nil {
		return h.failure(ctx, convID, stepLLM, err, map[string]interface{}{"activeIntent": stage})
	}

	if intent.Kind == models.IntentAgenda {
		agenda, err := extractintent.ParseAgendaReply(reply.Text)
		if err != nil {
			return h.malformed(ctx, convID, stage, reply.Text, err)
		}
		return h.dispatchAgenda(ctx, convID, agenda, reply.Text)
	}

	params, err := extractintent.ParseSearchParams(reply.Text)
	if err != nil {
		return h.malformed(ctx, convID, stage, reply.Text, err)
	}
	return h.dispatchSearch(ctx, convID, params)
}

func (h *Handler) createConversation(ctx context.Context) (string, error) {
	ctx, cancel := h.llmContext(ctx)
	defer cancel()
	return h.deps.LLM.CreateConversation(ctx)
}

func (h *Handler) send(ctx context.Context, convID, instructions, text string, tools []map[string]interface{}) (*llm.Reply, error) {
	ctx, cancel := h.llmContext(ctx)
	defer cancel()
	reply, err := h.deps.LLM.SendTurn(ctx, llm.TurnRequest{
		ConversationID: convID,
		Instructions:   instructions,
		Input:          text,
		Tools:          tools,
	})
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return &llm.Reply{}, nil
	}
	return reply, nil
}

func (h *Handler) llmContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.LLMTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.config.LLMTimeout)
}

func (h *Handler) activeIntent(ctx context.Context, convID string) models.ActiveIntent {
	intent, err := h.deps.Store.Get(ctx, convID)
	if err != nil {
		h.logger.Warn("active intent lookup failed, using router", map[string]interface{}{
			"conversationId": convID,
			"error":          err.Error(),
		})
		return models.ActiveRouter
	}
	return models.ParseActiveIntent(string(intent))
}

func (h *Handler) setIntent(ctx context.Context, convID string, intent models.ActiveIntent) {
	if err := h.deps.Store.Set(ctx, convID, intent); err != nil {
		h.logger.Warn("active intent update failed", map[string]interface{}{
			"conversationId": convID,
			"intent":         intent,
			"error":          err.Error(),
		})
	}
}

// envelope builds through the response worker so results are checked and
// counted. The worker only rejects unknown types, which callers never pass.
func (h *Handler) envelope(ctx context.Context, t models.EnvelopeType, results interface{}, url *string, message interface{}, convID string) models.Envelope {
	out, err := h.deps.Builder.Execute(ctx, &buildresponse.Input{
		Type:           t,
		Results:        results,
		URL:            url,
		Message:        message,
		ConversationID: convID,
	})
	if err != nil {
		return buildresponse.Build(t, results, url, message, convID)
	}
	return out.Envelope
}

// failure logs err as a StandardError and returns the generic failure text.
func (h *Handler) failure(ctx context.Context, convID, step string, err error, fields map[string]interface{}) models.Envelope {
	stdErr := h.classify(step, err, fields)
	logFields := map[string]interface{}{"conversationId": convID, "step": step}
	for k, v := range fields {
		logFields[k] = v
	}
	h.errs.Log("turn step failed", stdErr, logFields)
	metrics.StepsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	return h.envelope(ctx, models.EnvelopeText, nil, nil, models.FailureMessage, convID)
}

func (h *Handler) classify(step string, err error, fields map[string]interface{}) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUpstreamTimeoutError(step, err)
	}

	switch step {
	case stepLLM:
		return apperrors.NewLLMRequestFailedError(err)
	case stepSearch:
		collection, _ := fields["collection"].(string)
		return apperrors.NewSearchQueryFailedError(collection, err)
	case stepLegacy:
		if errors.Is(err, fetchlegacyagenda.ErrXMLParseFailed) {
			return apperrors.NewXMLParseFailedError(err)
		}
		return apperrors.NewLegacyAPIFailedError(err)
	}
	return h.errs.Normalize(step, err)
}

// malformed answers a stage reply that is not a JSON object with the raw text.
func (h *Handler) malformed(ctx context.Context, convID string, stage models.ActiveIntent, text string, err error) models.Envelope {
	stdErr := apperrors.NewMalformedReplyError(string(stage), err)
	h.errs.Log("stage reply is not JSON", stdErr, map[string]interface{}{"conversationId": convID})
	metrics.StepsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	return h.envelope(ctx, models.EnvelopeText, nil, nil, text, convID)
}
