// internal/workers/conversation/extract-intent/config.go
package extractintent

// Config holds the literal markers in priority order.
type Config struct {
	SearchMarker  string
	CompareMarker string
	AgendaMarker  string
}

func LoadConfig() *Config {
	return &Config{
		SearchMarker:  MarkerSearch,
		CompareMarker: MarkerCompare,
		AgendaMarker:  MarkerAgenda,
	}
}
