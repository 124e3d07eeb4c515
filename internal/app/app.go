// internal/app/app.go
package app

import (
	"fmt"
	"net/http"
	"strings"

	"nexi-assistant/internal/api"
	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/common/database"
	"nexi-assistant/internal/common/intentstore"
	"nexi-assistant/internal/common/llm"
	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/observability"
	enricheventdetails "nexi-assistant/internal/workers/agenda/enrich-event-details"
	fetchlegacyagenda "nexi-assistant/internal/workers/agenda/fetch-legacy-agenda"
	executetoolcall "nexi-assistant/internal/workers/conversation/execute-tool-call"
	extractintent "nexi-assistant/internal/workers/conversation/extract-intent"
	turnorchestrator "nexi-assistant/internal/workers/conversation/turn-orchestrator"
	buildresponse "nexi-assistant/internal/workers/infrastructure/build-response"
	shaperesults "nexi-assistant/internal/workers/results/shape-results"
	queryelasticsearch "nexi-assistant/internal/workers/search/query-elasticsearch"
	querytypesense "nexi-assistant/internal/workers/search/query-typesense"
	"nexi-assistant/pkg/registry"
)

// Infra holds the connections opened by the caller. LLM nil means the hosted
// client from cfg.LLM; Redis and Elasticsearch are only needed by the backends
// that use them.
type Infra struct {
	LLM           llm.Client
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Observability *observability.Observability
}

// NewHandler wires every worker behind the HTTP route layer.
func NewHandler(cfg *config.Config, infra Infra, log logger.Logger) (http.Handler, error) {
	llmClient := infra.LLM
	if llmClient == nil {
		llmClient = llm.NewOpenAIClient(cfg.LLM)
	}

	store, err := newIntentStore(cfg, infra)
	if err != nil {
		return nil, err
	}

	reg, err := registry.LoadRegistry(cfg.Tools.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load tool registry: %w", err)
	}

	searcher, err := newSearcher(cfg, infra, log)
	if err != nil {
		return nil, err
	}

	legacy := fetchlegacyagenda.NewHandler(&fetchlegacyagenda.Config{
		APIKey:  cfg.Legacy.APIKey,
		Timeout: config.GetDuration(cfg.Legacy.Timeout),
	}, log)

	details, err := enricheventdetails.NewHandler(&enricheventdetails.Config{
		BaseURL:     cfg.Legacy.BaseURL,
		APIKey:      cfg.Legacy.APIKey,
		Concurrency: cfg.Legacy.DetailConcurrency,
		Timeout:     config.GetDuration(cfg.Legacy.Timeout),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("enrich-event-details: %w", err)
	}

	toolCfg := executetoolcall.LoadConfig()
	toolCfg.Collections = cfg.Collections
	toolCfg.AgendaAPIURL = strings.TrimRight(cfg.Legacy.BaseURL, "/") + "/search/?q=table:evenementen&refine=true"
	tools, err := executetoolcall.NewHandler(toolCfg, reg, log)
	if err != nil {
		return nil, fmt.Errorf("execute-tool-call: %w", err)
	}

	orchCfg := turnorchestrator.LoadConfig()
	orchCfg.Roles = cfg.LLM.Roles
	orchCfg.Collections = cfg.Collections
	orchCfg.UseTools = cfg.LLM.UseTools
	orchCfg.FastModel = cfg.LLM.FastModel
	orchCfg.LLMTimeout = config.GetDuration(cfg.LLM.Timeout)

	orchestrator, err := turnorchestrator.NewHandler(orchCfg, turnorchestrator.Dependencies{
		LLM:             llmClient,
		Store:           store,
		Searcher:        searcher,
		Legacy:          legacy,
		Details:         details,
		Tools:           tools,
		ToolDefinitions: reg.Definitions(),
		Extractor:       extractintent.NewHandler(extractintent.LoadConfig(), log),
		Shaper:          shaperesults.NewHandler(shaperesults.LoadConfig(), log),
		Builder:         buildresponse.NewHandler(buildresponse.LoadConfig(), log),
		Observability:   infra.Observability,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("turn-orchestrator: %w", err)
	}

	checks := map[string]api.Pinger{}
	if infra.Redis != nil {
		checks["redis"] = infra.Redis
	}
	if infra.Elasticsearch != nil {
		checks["elasticsearch"] = infra.Elasticsearch
	}

	srv, err := api.NewServer(api.Config{
		ServiceName:    cfg.App.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CatalogueURL:   cfg.Legacy.BaseURL,
		CatalogueKey:   cfg.Legacy.APIKey,
		ProxyTimeout:   config.GetDuration(cfg.Legacy.Timeout),
	}, api.Dependencies{
		Turns:         orchestrator,
		Conversations: llmClient,
		Store:         store,
		Checks:        checks,
	}, log)
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

func newIntentStore(cfg *config.Config, infra Infra) (intentstore.Store, error) {
	if cfg.IntentStore.Backend == config.StoreRedis && infra.Redis != nil {
		return infra.Redis.IntentStore(cfg.IntentStore)
	}
	return intentstore.New(cfg.IntentStore, nil)
}

func newSearcher(cfg *config.Config, infra Infra, log logger.Logger) (turnorchestrator.Searcher, error) {
	timeout := config.GetDuration(cfg.Search.Timeout)
	switch cfg.Search.Backend {
	case "", config.BackendTypesense:
		return querytypesense.NewHandler(&querytypesense.Config{
			URL:     cfg.Search.URL,
			APIKey:  cfg.Search.APIKey,
			PerPage: cfg.Search.PerPage,
			Timeout: timeout,
		}, log), nil
	case config.BackendElasticsearch:
		if infra.Elasticsearch == nil {
			return nil, fmt.Errorf("search backend %q without elasticsearch client", cfg.Search.Backend)
		}
		return queryelasticsearch.NewHandler(&queryelasticsearch.Config{
			PerPage: cfg.Search.PerPage,
			Timeout: timeout,
		}, infra.Elasticsearch.Client, log), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Search.Backend)
	}
}
