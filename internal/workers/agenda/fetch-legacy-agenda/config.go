// internal/workers/agenda/fetch-legacy-agenda/config.go
package fetchlegacyagenda

import "time"

type Config struct {
	APIKey  string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
