package models

// Document is one raw search backend hit.
type Document map[string]interface{}

// SearchParams is the normalized query sent to the search backend. Absent
// fields stay empty strings and degrade to an unfiltered query.
type SearchParams struct {
	Query       string `json:"q"`
	QueryBy     string `json:"query_by"`
	Collection  string `json:"collection"`
	VectorQuery string `json:"vector_query"`
	FilterBy    string `json:"filter_by"`
	Message     string `json:"Message,omitempty"`
	PerPage     int    `json:"-"`
}

// SearchResult is what a backend returns for one query.
type SearchResult struct {
	Documents []Document `json:"documents"`
	Found     int        `json:"found"`
	TookMs    int64      `json:"took_ms"`
}

// AgendaQuery is the scenario A agenda payload: a frontend URL plus the
// equivalent legacy API call.
type AgendaQuery struct {
	API     string `json:"API"`
	URL     string `json:"URL"`
	Message string `json:"Message,omitempty"`
}

// FAQItem is one shaped FAQ hit.
type FAQItem struct {
	Vraag    string  `json:"vraag"`
	Antwoord string  `json:"antwoord"`
	Location *string `json:"location"`
}
