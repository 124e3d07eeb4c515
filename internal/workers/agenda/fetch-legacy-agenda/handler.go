// internal/workers/agenda/fetch-legacy-agenda/handler.go
package fetchlegacyagenda

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	commonhttp "nexi-assistant/internal/common/http"
	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
)

const TaskType = "fetch-legacy-agenda"

var (
	ErrMissingAPIURL     = errors.New("MISSING_API_URL")
	ErrLegacyUnavailable = errors.New("LEGACY_API_UNAVAILABLE")
	ErrXMLParseFailed    = errors.New("XML_PARSE_FAILED")
)

// XPath expressions relative to one //result node.
const (
	resultPath       = "//result"
	titlePath        = ".//titles/title"
	coverPath        = ".//coverimages/coverimage"
	linkPath         = ".//custom/evenement/deeplink"
	summaryPath      = ".//summaries/summary"
	datumPath        = ".//custom/gebeurtenis/datum"
	buildingPath     = ".//custom/gebeurtenis/gebouw"
	roomPath         = ".//custom/gebeurtenis/zaal"
	locationNamePath = ".//custom/gebeurtenis/locatienaam"
)

type Handler struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: commonhttp.NewClient(config.Timeout),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	events, err := h.Fetch(ctx, input.API)
	if err != nil {
		return nil, err
	}
	return &Output{Events: events}, nil
}

// Fetch calls the legacy search API and returns one event per result node, in
// document order.
func (h *Handler) Fetch(ctx context.Context, apiURL string) ([]models.RawEvent, error) {
	start := time.Now()
	if strings.TrimSpace(apiURL) == "" {
		return nil, h.fail(ErrMissingAPIURL)
	}

	target := commonhttp.EnsureQueryParam(apiURL, "authorization", h.config.APIKey)
	body, err := h.client.GetOK(ctx, target, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, h.fail(fmt.Errorf("%w: %v", ErrLegacyUnavailable, err))
	}

	events, err := ParseEvents(body)
	if err != nil {
		return nil, h.fail(err)
	}

	h.logger.Info("legacy agenda fetched", map[string]interface{}{
		"events":   len(events),
		"duration": time.Since(start).String(),
	})
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return events, nil
}

// ParseEvents reads every //result node of a legacy XML document.
func ParseEvents(body []byte) ([]models.RawEvent, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrXMLParseFailed, err)
	}
	nodes, err := xmlquery.QueryAll(doc, resultPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrXMLParseFailed, err)
	}

	events := make([]models.RawEvent, 0, len(nodes))
	for _, node := range nodes {
		ev := models.RawEvent{
			Title:        textAt(node, titlePath),
			Cover:        textAt(node, coverPath),
			Link:         textAt(node, linkPath),
			Summary:      textAt(node, summaryPath),
			Building:     textAt(node, buildingPath),
			Room:         textAt(node, roomPath),
			LocationName: textAt(node, locationNamePath),
		}
		if datum := xmlquery.FindOne(node, datumPath); datum != nil {
			ev.Start = strings.TrimSpace(datum.SelectAttr("start"))
			ev.End = strings.TrimSpace(datum.SelectAttr("end"))
		}
		events = append(events, ev)
	}
	return events, nil
}

func textAt(node *xmlquery.Node, path string) string {
	found := xmlquery.FindOne(node, path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.InnerText())
}

func (h *Handler) fail(err error) error {
	metrics.StepsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
	return err
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIURL):
		return "MISSING_API_URL"
	case errors.Is(err, ErrXMLParseFailed):
		return "XML_PARSE_FAILED"
	default:
		return "LEGACY_API_UNAVAILABLE"
	}
}
