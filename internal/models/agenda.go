package models

// AgendaItem is one event as shown by the frontend. Date and Time are display
// strings derived from RawDate; they are empty when RawDate cannot be parsed.
type AgendaItem struct {
	Title    string  `json:"title"`
	Cover    string  `json:"cover"`
	Link     string  `json:"link"`
	Summary  string  `json:"summary"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Location string  `json:"location"`
	RawDate  RawDate `json:"raw_date"`
}

type RawDate struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RawEvent holds the unshaped fields read from the legacy XML feed or an
// event detail document.
type RawEvent struct {
	Title        string
	Cover        string
	Link         string
	Summary      string
	Start        string
	End          string
	Building     string
	Room         string
	LocationName string
}
