// internal/workers/search/query-elasticsearch/models.go
package queryelasticsearch

import "nexi-assistant/internal/models"

type Input struct {
	Params models.SearchParams `json:"params"`
}

type Output struct {
	Result    models.SearchResult `json:"result"`
	TotalHits int64               `json:"totalHits"`
	MaxScore  float64             `json:"maxScore"`
}
