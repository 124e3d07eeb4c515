package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendTypesense     = "typesense"
	BackendElasticsearch = "elasticsearch"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values that are still empty from the environment
// variable names the frontend deployment already uses.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.Search.URL, "TYPESENSE_API_URL")
	setIfEmpty(&cfg.Search.APIKey, "TYPESENSE_API_KEY")
	setIfEmpty(&cfg.Legacy.APIKey, "OBA_API_KEY")
	setIfEmpty(&cfg.Collections.Books, "COLLECTION_BOOKS")
	setIfEmpty(&cfg.Collections.BooksKraaiennest, "COLLECTION_BOOKS_KN")
	setIfEmpty(&cfg.Collections.FAQ, "COLLECTION_FAQ")
	setIfEmpty(&cfg.Collections.Events, "COLLECTION_EVENTS")
	setIfEmpty(&cfg.Database.Redis.Address, "REDIS_ADDRESS")
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "nexi-assistant"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4.1-mini"
	}
	if cfg.LLM.FastModel == "" {
		cfg.LLM.FastModel = "gpt-4.1-nano"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30000
	}

	if cfg.Search.Backend == "" {
		cfg.Search.Backend = BackendTypesense
	}
	if cfg.Search.PerPage == 0 {
		cfg.Search.PerPage = 15
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 15000
	}

	if cfg.Collections.Books == "" {
		cfg.Collections.Books = "obadb30725"
	}
	if cfg.Collections.BooksKraaiennest == "" {
		cfg.Collections.BooksKraaiennest = "obadbkraaiennest"
	}
	if cfg.Collections.FAQ == "" {
		cfg.Collections.FAQ = "obafaq"
	}
	if cfg.Collections.Events == "" {
		cfg.Collections.Events = "obadbevents"
	}

	if cfg.Legacy.BaseURL == "" {
		cfg.Legacy.BaseURL = "https://zoeken.oba.nl/api/v1"
	}
	if cfg.Legacy.Timeout == 0 {
		cfg.Legacy.Timeout = 15000
	}
	if cfg.Legacy.DetailConcurrency == 0 {
		cfg.Legacy.DetailConcurrency = 4
	}

	if cfg.IntentStore.Backend == "" {
		cfg.IntentStore.Backend = StoreMemory
	}
	if cfg.IntentStore.Prefix == "" {
		cfg.IntentStore.Prefix = "nexi:intent:"
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL != "" {
		cfg.Database.Elasticsearch.Addresses = []string{cfg.Database.Elasticsearch.URL}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	roles := &cfg.LLM.Roles
	if roles.Router == "" {
		roles.Router = defaultRouterRole
	}
	if roles.Search == "" {
		roles.Search = defaultSearchRole
	}
	if roles.Compare == "" {
		roles.Compare = defaultCompareRole
	}
	if roles.Agenda == "" {
		roles.Agenda = defaultAgendaRole
	}
	roles.Router = renderRole(roles.Router, cfg.Collections)
	roles.Search = renderRole(roles.Search, cfg.Collections)
	roles.Compare = renderRole(roles.Compare, cfg.Collections)
	roles.Agenda = renderRole(roles.Agenda, cfg.Collections)
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}

	switch cfg.Search.Backend {
	case BackendTypesense:
		if cfg.Search.URL == "" {
			return fmt.Errorf("search.url is required for the typesense backend")
		}
	case BackendElasticsearch:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch backend")
		}
	default:
		return fmt.Errorf("search.backend must be %q or %q, got %q", BackendTypesense, BackendElasticsearch, cfg.Search.Backend)
	}

	switch cfg.IntentStore.Backend {
	case StoreMemory:
	case StoreRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis intent store")
		}
	default:
		return fmt.Errorf("intent_store.backend must be %q or %q, got %q", StoreMemory, StoreRedis, cfg.IntentStore.Backend)
	}

	if cfg.Legacy.DetailConcurrency < 1 {
		return fmt.Errorf("legacy.detail_concurrency must be positive")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
