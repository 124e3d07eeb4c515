// internal/workers/agenda/fetch-legacy-agenda/models.go
package fetchlegacyagenda

import "nexi-assistant/internal/models"

type Input struct {
	API string `json:"API"`
}

type Output struct {
	Events []models.RawEvent `json:"events"`
}
