package models

// EnvelopeType determines the shape of every element of Results.
type EnvelopeType string

const (
	EnvelopeCollection EnvelopeType = "collection"
	EnvelopeAgenda     EnvelopeType = "agenda"
	EnvelopeFAQ        EnvelopeType = "faq"
	EnvelopeText       EnvelopeType = "text"
)

// Envelope is the single response contract returned to the frontend.
// ThreadID carries the conversation id.
type Envelope struct {
	Response EnvelopeBody `json:"response"`
	ThreadID string       `json:"thread_id"`
}

// EnvelopeBody holds the typed payload. Results is never nil once built;
// URL, Message and Location encode as null when unset.
type EnvelopeBody struct {
	Type     EnvelopeType `json:"type"`
	URL      *string      `json:"url"`
	Message  *string      `json:"message"`
	Results  interface{}  `json:"results"`
	Location *string      `json:"location"`
}

const (
	NoResultsMessage     = "Sorry, ik heb niets gevonden. Misschien kun je je zoekopdracht anders formuleren."
	FailureMessage       = "Er ging iets mis bij het zoeken. Probeer het later nog eens."
	UnknownFormatMessage = "Sorry, ik kon dit antwoord niet verwerken (onbekend formaat)."
	DoneMessage          = "Klaar."
)

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
