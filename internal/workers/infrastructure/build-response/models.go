// internal/workers/infrastructure/build-response/models.go
package buildresponse

import "nexi-assistant/internal/models"

type Input struct {
	Type           models.EnvelopeType `json:"type"`
	Results        interface{}         `json:"results"`
	URL            *string             `json:"url"`
	Message        interface{}         `json:"message"`
	ConversationID string              `json:"conversationId"`
}

type Output struct {
	Envelope models.Envelope `json:"envelope"`
}

// resultSchemas describe the items allowed in results for each envelope type.
var resultSchemas = map[models.EnvelopeType]map[string]interface{}{
	models.EnvelopeCollection: {
		"type": "array",
		"items": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"ppn"},
			"properties": map[string]interface{}{
				"ppn":         map[string]interface{}{"type": []interface{}{"string", "number"}},
				"short_title": map[string]interface{}{"type": []interface{}{"string", "null"}},
			},
		},
	},
	models.EnvelopeFAQ: {
		"type": "array",
		"items": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"vraag", "antwoord", "location"},
			"properties": map[string]interface{}{
				"vraag":    map[string]interface{}{"type": "string"},
				"antwoord": map[string]interface{}{"type": "string"},
				"location": map[string]interface{}{"type": []interface{}{"string", "null"}},
			},
		},
	},
	models.EnvelopeAgenda: {
		"type": "array",
		"items": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"title", "cover", "link", "summary", "date", "time", "location", "raw_date"},
			"properties": map[string]interface{}{
				"title": map[string]interface{}{"type": "string"},
				"raw_date": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"start", "end"},
				},
			},
		},
	},
	models.EnvelopeText: {
		"type":     "array",
		"maxItems": 0,
	},
}
