// internal/workers/conversation/extract-intent/models.go
package extractintent

import "nexi-assistant/internal/models"

const (
	MarkerSearch  = "SEARCH_QUERY:"
	MarkerCompare = "VERGELIJKINGS_QUERY:"
	MarkerAgenda  = "AGENDA_VRAAG:"
)

// Extraction modes reported in Output.
const (
	ModeMarker     = "marker"
	ModeStructured = "structured"
	ModeNone       = "none"
	ModeUnknown    = "unknown"
)

type Input struct {
	Reply string `json:"reply"`
}

type Output struct {
	Intent models.Intent `json:"intent"`
	Mode   string        `json:"mode"`
}

// AgendaReply is the agenda stage payload. Either API and URL are set, or
// Search holds an events collection query.
type AgendaReply struct {
	API     string
	URL     string
	Message string
	Search  *models.SearchParams
}

// HasLegacyQuery reports whether the reply names a legacy API call.
func (a *AgendaReply) HasLegacyQuery() bool {
	return a.API != "" && a.URL != ""
}
