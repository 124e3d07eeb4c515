// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	commonhttp "nexi-assistant/internal/common/http"
	"nexi-assistant/internal/common/intentstore"
	"nexi-assistant/internal/common/logger"
	turnorchestrator "nexi-assistant/internal/workers/conversation/turn-orchestrator"
)

var ErrMissingDependency = errors.New("MISSING_DEPENDENCY")

// TurnRunner answers one user turn.
type TurnRunner interface {
	Execute(ctx context.Context, input *turnorchestrator.Input) (*turnorchestrator.Output, error)
}

// ConversationCreator opens a new server-side conversation.
type ConversationCreator interface {
	CreateConversation(ctx context.Context) (string, error)
}

// Pinger is a backing service checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	ServiceName    string
	AllowedOrigins []string
	CatalogueURL   string
	CatalogueKey   string
	ProxyTimeout   time.Duration
	ReadyTimeout   time.Duration
}

// Dependencies of the route layer. Checks may be empty.
type Dependencies struct {
	Turns         TurnRunner
	Conversations ConversationCreator
	Store         intentstore.Store
	Checks        map[string]Pinger
}

type Server struct {
	config    Config
	deps      Dependencies
	catalogue *commonhttp.Client
	logger    logger.Logger
}

func NewServer(config Config, deps Dependencies, log logger.Logger) (*Server, error) {
	missing := []string{}
	if deps.Turns == nil {
		missing = append(missing, "turns")
	}
	if deps.Conversations == nil {
		missing = append(missing, "conversations")
	}
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	if config.ServiceName == "" {
		config.ServiceName = "nexi-assistant"
	}
	if config.ProxyTimeout <= 0 {
		config.ProxyTimeout = 15 * time.Second
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 2 * time.Second
	}
	return &Server{
		config:    config,
		deps:      deps,
		catalogue: commonhttp.NewClient(config.ProxyTimeout),
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
	}, nil
}

// Handler returns the full route tree wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "/send_message", s.handleSendMessage)
	s.route(mux, "/apply_filters", s.handleApplyFilters)
	s.route(mux, "/start_thread", s.handleStartThread)
	s.route(mux, "/reset", s.handleReset)
	s.route(mux, "/proxy/resolver", s.handleResolverProxy)
	s.route(mux, "/proxy/details", s.handleDetailsProxy)
	s.route(mux, "/health", s.handleHealth)
	s.route(mux, "/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	h := chainMiddlewares(mux,
		s.withRecovery,
		s.withAccessLog,
		withRequestID,
		s.withCORS,
	)
	return otelhttp.NewHandler(h, s.config.ServiceName)
}

// route registers h under pattern with a fixed route label for metrics and spans.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, otelhttp.WithRouteTag(pattern, withRouteMetrics(pattern, h)))
}
