// internal/workers/conversation/turn-orchestrator/models.go
package turnorchestrator

import (
	"context"

	"nexi-assistant/internal/models"
	enricheventdetails "nexi-assistant/internal/workers/agenda/enrich-event-details"
	executetoolcall "nexi-assistant/internal/workers/conversation/execute-tool-call"
)

// Entry points reported as the turn source.
const (
	SourceSendMessage  = "send_message"
	SourceApplyFilters = "apply_filters"
)

type Input struct {
	ThreadID string `json:"thread_id"`
	UserText string `json:"user_text"`
	Source   string `json:"source"`
}

type Output struct {
	Envelope models.Envelope `json:"envelope"`
}

// Searcher runs one query against the configured search backend.
type Searcher interface {
	Search(ctx context.Context, params *models.SearchParams) (*models.SearchResult, error)
}

// AgendaFetcher reads events from the legacy search API.
type AgendaFetcher interface {
	Fetch(ctx context.Context, apiURL string) ([]models.RawEvent, error)
}

// DetailEnricher resolves events hits to their detail records.
type DetailEnricher interface {
	Enrich(ctx context.Context, refs []enricheventdetails.EventRef) ([]models.RawEvent, int)
}

// ToolExecutor runs one model tool call.
type ToolExecutor interface {
	Execute(ctx context.Context, input *executetoolcall.Input) (*executetoolcall.Output, error)
}
