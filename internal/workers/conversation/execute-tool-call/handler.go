// internal/workers/conversation/execute-tool-call/handler.go
package executetoolcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/common/validation"
	"nexi-assistant/pkg/registry"
)

const TaskType = "execute-tool-call"

var (
	ErrUnknownTool      = errors.New("UNKNOWN_TOOL")
	ErrInvalidArguments = errors.New("INVALID_ARGUMENTS")
)

type Handler struct {
	config    *Config
	validator *validation.Validator
	logger    logger.Logger
}

func NewHandler(config *Config, reg *registry.ToolRegistry, log logger.Logger) (*Handler, error) {
	v, err := reg.Validator()
	if err != nil {
		return nil, fmt.Errorf("compile tool schemas: %w", err)
	}
	return &Handler{
		config:    config,
		validator: v,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

// Execute runs one tool call. Unknown tools and invalid arguments produce an
// Output carrying {"error": ...}; the error return is always nil.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	start := time.Now()
	out := &Output{CallID: input.CallID, Name: input.Name}

	if err := h.run(input, out); err != nil {
		out.Error = err.Error()
		out.Result = map[string]interface{}{"error": out.Error}
		out.Search, out.Agenda = nil, nil

		h.logger.Warn("tool call rejected", map[string]interface{}{
			"tool":   input.Name,
			"callId": input.CallID,
			"error":  out.Error,
		})
		metrics.ToolCalls.WithLabelValues(h.toolLabel(input.Name), "error").Inc()
		metrics.StepsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
		return out, nil
	}

	fields := map[string]interface{}{"tool": input.Name, "callId": input.CallID}
	if out.Search != nil {
		fields["collection"] = out.Search.Collection
		fields["queryBy"] = out.Search.QueryBy
		fields["filterBy"] = out.Search.FilterBy
	}
	if out.Agenda != nil {
		fields["api"] = out.Agenda.API
	}
	h.logger.Info("tool executed", fields)

	metrics.ToolCalls.WithLabelValues(input.Name, "ok").Inc()
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return out, nil
}

func (h *Handler) run(input *Input, out *Output) error {
	if !h.validator.Has(input.Name) {
		return fmt.Errorf("%w: %s", ErrUnknownTool, input.Name)
	}

	payload, err := h.validate(input.Name, input.Arguments)
	if err != nil {
		return err
	}

	switch input.Name {
	case ToolFAQ:
		var a faqArgs
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		out.Search = h.buildFAQParams(a)
	case ToolSearch:
		var a searchArgs
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		out.Search = h.buildSearchParams(a)
	case ToolCompare:
		var a compareArgs
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		out.Search = h.buildCompareParams(a)
	case ToolAgenda:
		var a agendaArgs
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		out.Agenda, out.Search = h.buildAgendaQuery(a)
	default:
		return fmt.Errorf("%w: %s has no implementation", ErrUnknownTool, input.Name)
	}

	if out.Agenda != nil {
		out.Result = agendaResult(out.Agenda)
	} else {
		out.Result = searchResult(out.Search)
	}
	return nil
}

// validate decodes the raw arguments, applies aliases the schema does not
// list and checks the result against the tool schema.
func (h *Handler) validate(name, arguments string) ([]byte, error) {
	raw := strings.TrimSpace(arguments)
	if raw == "" {
		raw = "{}"
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if waar, ok := args["waar"].(string); ok && name == ToolAgenda {
		args["waar"] = canonicalLocation(waar)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	result, err := h.validator.ValidateJSON(name, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArguments, result.Error())
	}
	return payload, nil
}

func (h *Handler) toolLabel(name string) string {
	if h.validator.Has(name) {
		return name
	}
	return "unknown"
}

func errorCode(err error) string {
	if errors.Is(err, ErrUnknownTool) {
		return ErrUnknownTool.Error()
	}
	return ErrInvalidArguments.Error()
}
