package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nexi-assistant/internal/common/config"
	commonhttp "nexi-assistant/internal/common/http"
)

var (
	ErrLLMRequestFailed  = errors.New("LLM_REQUEST_FAILED")
	ErrEmptyConversation = errors.New("EMPTY_CONVERSATION_ID")
)

// OpenAIClient talks to the Conversations and Responses endpoints.
type OpenAIClient struct {
	baseURL   string
	apiKey    string
	model     string
	fastModel string
	http      *commonhttp.Client
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	return &OpenAIClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		fastModel: cfg.FastModel,
		http:      commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
	}
}

// FastModel returns the model used for acknowledgement turns.
func (c *OpenAIClient) FastModel() string { return c.fastModel }

type responseItem struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type responseBody struct {
	ID     string         `json:"id"`
	Output []responseItem `json:"output"`
}

func (c *OpenAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *OpenAIClient) CreateConversation(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.http.PostJSON(ctx, c.baseURL+"/conversations", c.headers(), map[string]interface{}{}, &out); err != nil {
		return "", fmt.Errorf("%w: create conversation: %v", ErrLLMRequestFailed, err)
	}
	if out.ID == "" {
		return "", ErrEmptyConversation
	}
	return out.ID, nil
}

func (c *OpenAIClient) SendTurn(ctx context.Context, req TurnRequest) (*Reply, error) {
	body := map[string]interface{}{
		"model":        c.pick(req.Model, c.model),
		"instructions": req.Instructions,
		"conversation": req.ConversationID,
		"input":        req.Input,
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
		body["tool_choice"] = "auto"
	}
	return c.respond(ctx, body)
}

func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, req ToolOutputRequest) (*Reply, error) {
	items := make([]map[string]interface{}, 0, len(req.Outputs))
	for _, o := range req.Outputs {
		items = append(items, map[string]interface{}{
			"type":    "function_call_output",
			"call_id": o.CallID,
			"output":  o.Output,
		})
	}
	body := map[string]interface{}{
		"model":        c.pick(req.Model, c.fastModel),
		"instructions": req.Instructions,
		"conversation": req.ConversationID,
		"input":        items,
		"tools":        []interface{}{},
		"tool_choice":  "none",
	}
	return c.respond(ctx, body)
}

func (c *OpenAIClient) respond(ctx context.Context, body map[string]interface{}) (*Reply, error) {
	var out responseBody
	if err := c.http.PostJSON(ctx, c.baseURL+"/responses", c.headers(), body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMRequestFailed, err)
	}
	return toReply(&out), nil
}

func (c *OpenAIClient) pick(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

func toReply(body *responseBody) *Reply {
	reply := &Reply{ResponseID: body.ID}
	var text strings.Builder
	for _, item := range body.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					text.WriteString(part.Text)
				}
			}
		case "function_call", "tool_call":
			callID := item.CallID
			if callID == "" {
				callID = item.ID
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				CallID:    callID,
				Name:      item.Name,
				Arguments: item.Arguments,
			})
		}
	}
	reply.Text = strings.TrimSpace(text.String())
	return reply
}
