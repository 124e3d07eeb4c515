package config

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Search      SearchConfig      `mapstructure:"search"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Legacy      LegacyConfig      `mapstructure:"legacy"`
	IntentStore IntentStoreConfig `mapstructure:"intent_store"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Tools       ToolsConfig       `mapstructure:"tools"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// LLMConfig holds the hosted conversation service settings.
type LLMConfig struct {
	BaseURL   string      `mapstructure:"base_url"`
	APIKey    string      `mapstructure:"api_key"`
	Model     string      `mapstructure:"model"`
	FastModel string      `mapstructure:"fast_model"`
	Timeout   int         `mapstructure:"timeout"` // milliseconds
	UseTools  bool        `mapstructure:"use_tools"`
	Roles     RolesConfig `mapstructure:"roles"`
}

// RolesConfig holds the instructions sent with each pinned intent.
type RolesConfig struct {
	Router  string `mapstructure:"router"`
	Search  string `mapstructure:"search"`
	Compare string `mapstructure:"compare"`
	Agenda  string `mapstructure:"agenda"`
}

type SearchConfig struct {
	Backend string `mapstructure:"backend"` // typesense | elasticsearch
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	PerPage int    `mapstructure:"per_page"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type CollectionsConfig struct {
	Books            string `mapstructure:"books"`
	BooksKraaiennest string `mapstructure:"books_kraaiennest"`
	FAQ              string `mapstructure:"faq"`
	Events           string `mapstructure:"events"`
}

// LegacyConfig holds the zoeken.oba.nl API settings.
type LegacyConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	Timeout           int    `mapstructure:"timeout"` // milliseconds
	DetailConcurrency int    `mapstructure:"detail_concurrency"`
}

type IntentStoreConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
	Prefix  string `mapstructure:"prefix"`
	TTL     int    `mapstructure:"ttl"` // milliseconds, 0 disables expiry
}

type DatabaseConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the URL field or the first address
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ToolsConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
