// internal/workers/conversation/execute-tool-call/models.go
package executetoolcall

import (
	"bytes"
	"encoding/json"
	"strings"

	"nexi-assistant/internal/models"
)

const (
	ToolFAQ     = "build_faq_params"
	ToolSearch  = "build_search_params"
	ToolCompare = "build_compare_params"
	ToolAgenda  = "build_agenda_query"
)

const statusDone = "KLAAR"

type Input struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Output carries the raw tool result returned to the model plus the typed
// payload the orchestrator dispatches. At most one of Search and Agenda is
// set; both are nil when Error is set.
type Output struct {
	CallID string                 `json:"call_id"`
	Name   string                 `json:"name"`
	Result map[string]interface{} `json:"result"`
	Search *models.SearchParams   `json:"search,omitempty"`
	Agenda *models.AgendaQuery    `json:"agenda,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func (o *Output) Failed() bool { return o.Error != "" }

// ResultJSON encodes Result for a function_call_output item. HTML characters
// are left unescaped so URLs survive verbatim.
func (o *Output) ResultJSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o.Result); err != nil {
		return `{"error":"unencodable tool result"}`
	}
	return strings.TrimSpace(buf.String())
}

type bookFilters struct {
	Indeling []string `json:"indeling"`
	Language string   `json:"language"`
}

type faqArgs struct {
	UserQuery string `json:"user_query"`
}

type searchArgs struct {
	UserQuery           string       `json:"user_query"`
	QueryByChoice       string       `json:"query_by_choice"`
	VectorAlpha         *float64     `json:"vector_alpha"`
	LocationKraaiennest bool         `json:"location_kraaiennest"`
	Filters             *bookFilters `json:"filters"`
}

type compareArgs struct {
	ComparisonQuery     string       `json:"comparison_query"`
	Original            string       `json:"original"`
	Mode                string       `json:"mode"`
	VectorAlpha         *float64     `json:"vector_alpha"`
	LocationKraaiennest bool         `json:"location_kraaiennest"`
	Filters             *bookFilters `json:"filters"`
}

type agendaArgs struct {
	Scenario       string `json:"scenario"`
	Waar           string `json:"waar"`
	Leeftijd       string `json:"leeftijd"`
	Wanneer        string `json:"wanneer"`
	TypeActiviteit string `json:"type_activiteit"`
	AgendaText     string `json:"agenda_text"`
}
