// internal/workers/search/query-typesense/config.go
package querytypesense

import "time"

type Config struct {
	URL     string
	APIKey  string
	PerPage int
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		PerPage: 15,
		Timeout: 15 * time.Second,
	}
}
