// internal/workers/conversation/turn-orchestrator/tools.go
package turnorchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "nexi-assistant/internal/common/errors"
	"nexi-assistant/internal/common/llm"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
	executetoolcall "nexi-assistant/internal/workers/conversation/execute-tool-call"
	extractintent "nexi-assistant/internal/workers/conversation/extract-intent"
	buildresponse "nexi-assistant/internal/workers/infrastructure/build-response"
)

const (
	ackInstruction = "Zeg iets als: Ik heb voor je gezocht en deze resultaten gevonden."
	faqInstruction = "Formuleer in de taal van de gebruiker een kort en helder antwoord (B1, max 150 woorden) " +
		"op basis van de onderstaande FAQ-resultaten. Gebruik alleen de gegeven info, parafraseer. " +
		"Vraag: %s\nFAQ-resultaten (JSON): %s"
)

// toolTurn executes every tool call, dispatches each result and commits the
// outputs in an acknowledgement turn. The last dispatched envelope wins.
func (h *Handler) toolTurn(ctx context.Context, convID, userText string, calls []llm.ToolCall) models.Envelope {
	var env *models.Envelope
	outputs := make([]llm.ToolOutput, 0, len(calls))

	for _, call := range calls {
		out := h.executeTool(ctx, call)
		if !out.Failed() {
			dispatched := h.dispatchTool(ctx, convID, out)
			env = &dispatched
		}
		outputs = append(outputs, llm.ToolOutput{CallID: call.CallID, Output: out.ResultJSON()})
	}

	instruction := ackInstruction
	if env != nil && env.Response.Type == models.EnvelopeFAQ {
		instruction = fmt.Sprintf(faqInstruction, userText, h.faqPromptJSON(env.Response.Results))
	}
	ackText := h.acknowledge(ctx, convID, instruction, outputs)

	h.setIntent(ctx, convID, models.ActiveRouter)

	if env == nil {
		if ackText == "" {
			ackText = models.DoneMessage
		}
		return h.envelope(ctx, models.EnvelopeText, nil, nil, ackText, convID)
	}
	if env.Response.Message == nil && ackText != "" {
		env.Response.Message = buildresponse.NormalizeMessage(ackText)
	}
	return *env
}

func (h *Handler) executeTool(ctx context.Context, call llm.ToolCall) *executetoolcall.Output {
	out, err := h.deps.Tools.Execute(ctx, &executetoolcall.Input{
		CallID:    call.CallID,
		Name:      call.Name,
		Arguments: call.Arguments,
	})
	if err != nil || out == nil {
		msg := "tool execution failed"
		if err != nil {
			msg = err.Error()
		}
		out = &executetoolcall.Output{CallID: call.CallID, Name: call.Name, Error: msg}
		out.Result = map[string]interface{}{"error": msg}
	}
	if out.Failed() {
		var stdErr *apperrors.StandardError
		if strings.Contains(out.Error, executetoolcall.ErrUnknownTool.Error()) {
			stdErr = apperrors.NewUnknownToolError(call.Name)
		} else {
			stdErr = apperrors.NewInvalidToolArgumentsError(call.Name, out.Error)
		}
		h.errs.Log("tool call not executed", stdErr, map[string]interface{}{"callId": call.CallID})
		metrics.StepsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	}
	return out
}

// dispatchTool turns one successful tool result into an envelope. FAQ answers
// with hits leave the message empty for the acknowledgement to fill.
func (h *Handler) dispatchTool(ctx context.Context, convID string, out *executetoolcall.Output) models.Envelope {
	if out.Agenda != nil {
		reply := &extractintent.AgendaReply{API: out.Agenda.API, URL: out.Agenda.URL, Message: out.Agenda.Message}
		return h.dispatchAgenda(ctx, convID, reply, out.ResultJSON())
	}

	env := h.dispatchSearch(ctx, convID, out.Search)
	if env.Response.Type == models.EnvelopeFAQ && resultCount(env.Response.Results) > 0 {
		env.Response.Message = nil
	}
	return env
}

func (h *Handler) acknowledge(ctx context.Context, convID, instruction string, outputs []llm.ToolOutput) string {
	ctx, cancel := h.llmContext(ctx)
	defer cancel()
	reply, err := h.deps.LLM.SubmitToolOutputs(ctx, llm.ToolOutputRequest{
		ConversationID: convID,
		Instructions:   instruction,
		Model:          h.config.FastModel,
		Outputs:        outputs,
	})
	if err != nil {
		h.logger.Warn("tool acknowledgement failed", map[string]interface{}{
			"conversationId": convID,
			"error":          err.Error(),
		})
		return ""
	}
	if reply == nil {
		return ""
	}
	return strings.TrimSpace(reply.Text)
}

func (h *Handler) faqPromptJSON(results interface{}) string {
	items, _ := results.([]models.FAQItem)
	if n := h.config.FAQPromptItems; n > 0 && len(items) > n {
		items = items[:n]
	}
	if items == nil {
		items = []models.FAQItem{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}

func resultCount(results interface{}) int {
	switch r := results.(type) {
	case []models.FAQItem:
		return len(r)
	case []models.AgendaItem:
		return len(r)
	case []map[string]interface{}:
		return len(r)
	case []interface{}:
		return len(r)
	}
	return 0
}
