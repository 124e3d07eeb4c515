// internal/workers/search/query-typesense/models.go
package querytypesense

import "nexi-assistant/internal/models"

type Input struct {
	Params models.SearchParams `json:"params"`
}

type Output struct {
	Result models.SearchResult `json:"result"`
}

// multiSearchResponse keeps the per-search code and error that the typed
// client result leaves out.
type multiSearchResponse struct {
	Results []searchResponse `json:"results"`
}

type searchResponse struct {
	Found        int    `json:"found"`
	SearchTimeMs int64  `json:"search_time_ms"`
	Code         int    `json:"code"`
	Error        string `json:"error"`
	Hits         []struct {
		Document models.Document `json:"document"`
	} `json:"hits"`
}
