// internal/workers/infrastructure/build-response/config.go
package buildresponse

import "time"

type Config struct {
	// ValidateResults checks result items against the per-type schema. A
	// mismatch is logged, never returned.
	ValidateResults bool
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ValidateResults: true,
		Timeout:         time.Second,
	}
}
