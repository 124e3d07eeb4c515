// internal/workers/agenda/enrich-event-details/config.go
package enricheventdetails

import "time"

type Config struct {
	BaseURL     string
	APIKey      string
	Concurrency int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BaseURL:     "https://zoeken.oba.nl/api/v1",
		Concurrency: 4,
		Timeout:     15 * time.Second,
	}
}
