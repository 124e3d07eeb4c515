// internal/workers/conversation/execute-tool-call/config.go
package executetoolcall

import "nexi-assistant/internal/common/config"

type Config struct {
	Collections    config.CollectionsConfig
	AgendaFrontURL string
	AgendaAPIURL   string
}

func LoadConfig() *Config {
	return &Config{
		Collections: config.CollectionsConfig{
			Books:            "obadb30725",
			BooksKraaiennest: "obadbkraaiennest",
			FAQ:              "obafaq",
			Events:           "obadbevents",
		},
		AgendaFrontURL: "https://oba.nl/nl/agenda/volledige-agenda",
		AgendaAPIURL:   "https://zoeken.oba.nl/api/v1/search/?q=table:evenementen&refine=true",
	}
}
