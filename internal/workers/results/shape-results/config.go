// internal/workers/results/shape-results/config.go
package shaperesults

import "time"

type Config struct {
	Timezone     string
	DateLayout   string
	TimeLayout   string
	DefaultTitle string
}

func LoadConfig() *Config {
	return &Config{
		Timezone:     "Europe/Amsterdam",
		DateLayout:   "Monday 2 January",
		TimeLayout:   "15:04",
		DefaultTitle: "Geen titel",
	}
}

func (c *Config) location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
