package llm

import "context"

// Client is a hosted conversation service that keeps the transcript server-side.
type Client interface {
	CreateConversation(ctx context.Context) (string, error)
	SendTurn(ctx context.Context, req TurnRequest) (*Reply, error)
	SubmitToolOutputs(ctx context.Context, req ToolOutputRequest) (*Reply, error)
}

// TurnRequest is one user turn. Model empty means the client default; Tools
// nil means no tools are offered.
type TurnRequest struct {
	ConversationID string
	Instructions   string
	Input          string
	Model          string
	Tools          []map[string]interface{}
}

// ToolOutputRequest commits function_call_output items to the conversation.
// The reply is produced with tools disabled.
type ToolOutputRequest struct {
	ConversationID string
	Instructions   string
	Model          string
	Outputs        []ToolOutput
}

type ToolOutput struct {
	CallID string
	Output string
}

// ToolCall is a function call requested by the model. Arguments is the raw
// JSON argument object.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments string
}

// Reply is the assistant output of one turn.
type Reply struct {
	ResponseID string
	Text       string
	ToolCalls  []ToolCall
}

func (r *Reply) HasToolCalls() bool { return r != nil && len(r.ToolCalls) > 0 }
