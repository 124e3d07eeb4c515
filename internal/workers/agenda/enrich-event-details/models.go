// internal/workers/agenda/enrich-event-details/models.go
package enricheventdetails

import "nexi-assistant/internal/models"

// EventRef is one events collection hit to enrich. Base holds the fields the
// hit already carried; detail fields override them when present.
type EventRef struct {
	NativeID string          `json:"native_id"`
	Base     models.RawEvent `json:"base"`
}

type Input struct {
	Documents []models.Document `json:"documents"`
}

type Output struct {
	Events []models.RawEvent `json:"events"`
	Failed int               `json:"failed"`
}
