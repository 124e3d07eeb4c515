// internal/workers/results/shape-results/models.go
package shaperesults

import "nexi-assistant/internal/models"

// Result kinds accepted by Execute.
const (
	KindBooks  = "books"
	KindFAQ    = "faq"
	KindAgenda = "agenda"
)

type Input struct {
	Kind      string            `json:"kind"`
	Documents []models.Document `json:"documents,omitempty"`
	Events    []models.RawEvent `json:"events,omitempty"`
}

type Output struct {
	Books  []map[string]interface{} `json:"books,omitempty"`
	FAQ    []models.FAQItem         `json:"faq,omitempty"`
	Agenda []models.AgendaItem      `json:"agenda,omitempty"`
	Count  int                      `json:"count"`
}

// Results returns the shaped list for the requested kind.
func (o *Output) Results() interface{} {
	switch {
	case o.Books != nil:
		return o.Books
	case o.FAQ != nil:
		return o.FAQ
	case o.Agenda != nil:
		return o.Agenda
	}
	return []interface{}{}
}
