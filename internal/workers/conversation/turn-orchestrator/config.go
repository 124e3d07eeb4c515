// internal/workers/conversation/turn-orchestrator/config.go
package turnorchestrator

import (
	"time"

	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/models"
)

type Config struct {
	Roles          config.RolesConfig
	Collections    config.CollectionsConfig
	UseTools       bool
	FastModel      string
	LLMTimeout     time.Duration
	FAQPromptItems int
}

func LoadConfig() *Config {
	return &Config{
		Collections: config.CollectionsConfig{
			Books:            "obadb30725",
			BooksKraaiennest: "obadbkraaiennest",
			FAQ:              "obafaq",
			Events:           "obadbevents",
		},
		UseTools:       true,
		LLMTimeout:     30 * time.Second,
		FAQPromptItems: 2,
	}
}

// role returns the instructions sent while intent is pinned.
func (c *Config) role(intent models.ActiveIntent) string {
	switch intent {
	case models.ActiveSearch:
		return c.Roles.Search
	case models.ActiveCompare:
		return c.Roles.Compare
	case models.ActiveAgenda:
		return c.Roles.Agenda
	default:
		return c.Roles.Router
	}
}
