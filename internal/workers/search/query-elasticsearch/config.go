// internal/workers/search/query-elasticsearch/config.go
package queryelasticsearch

import "time"

type Config struct {
	PerPage int
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		PerPage: 15,
		Timeout: 15 * time.Second,
	}
}
