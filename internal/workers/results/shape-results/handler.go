// internal/workers/results/shape-results/handler.go
package shaperesults

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/goodsign/monday"

	"nexi-assistant/internal/common/logger"
	"nexi-assistant/internal/common/metrics"
	"nexi-assistant/internal/models"
)

const TaskType = "shape-results"

var (
	ErrUnknownKind = errors.New("UNKNOWN_RESULT_KIND")
)

type Handler struct {
	config *Config
	loc    *time.Location
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		loc:    config.location(),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	start := time.Now()
	out := &Output{}

	switch input.Kind {
	case KindBooks:
		out.Books = ShapeBooks(input.Documents)
		out.Count = len(out.Books)
	case KindFAQ:
		out.FAQ = ShapeFAQ(input.Documents)
		out.Count = len(out.FAQ)
	case KindAgenda:
		out.Agenda = make([]models.AgendaItem, 0, len(input.Events))
		for _, ev := range input.Events {
			out.Agenda = append(out.Agenda, h.ShapeAgendaItem(ev))
		}
		out.Count = len(out.Agenda)
	default:
		metrics.StepsFailed.WithLabelValues(TaskType, "UNKNOWN_RESULT_KIND").Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, input.Kind)
	}

	if dropped := len(input.Documents) - out.Count; input.Kind != KindAgenda && dropped > 0 {
		h.logger.Debug("hits dropped while shaping", map[string]interface{}{
			"kind":    input.Kind,
			"dropped": dropped,
		})
	}
	metrics.StepsCompleted.WithLabelValues(TaskType).Inc()
	metrics.StepDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return out, nil
}

// ShapeBooks passes every document field through and drops hits without a ppn.
func ShapeBooks(docs []models.Document) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		if textOf(doc["ppn"]) == "" {
			continue
		}
		item := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			item[k] = v
		}
		out = append(out, item)
	}
	return out
}

// ShapeFAQ keeps hits with a question or an answer. location is the first
// comma-separated token of locatie.
func ShapeFAQ(docs []models.Document) []models.FAQItem {
	out := make([]models.FAQItem, 0, len(docs))
	for _, doc := range docs {
		vraag := textOf(doc["vraag"])
		antwoord := textOf(doc["antwoord"])
		if vraag == "" && antwoord == "" {
			continue
		}
		item := models.FAQItem{Vraag: vraag, Antwoord: antwoord}
		if raw := strings.TrimSpace(textOf(doc["locatie"])); raw != "" {
			first := strings.TrimSpace(strings.SplitN(raw, ",", 2)[0])
			if first != "" {
				item.Location = &first
			}
		}
		out = append(out, item)
	}
	return out
}

// NativeIDs reads the legacy identifier of each event hit in order.
func NativeIDs(docs []models.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id := NativeID(doc); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// NativeID returns the first non-blank of nativeid, native_id and id.
func NativeID(doc models.Document) string {
	for _, key := range []string{"nativeid", "native_id", "id"} {
		if id := strings.TrimSpace(textOf(doc[key])); id != "" {
			return id
		}
	}
	return ""
}

// EventFromDocument maps an events collection hit to a RawEvent.
func EventFromDocument(doc models.Document) models.RawEvent {
	return models.RawEvent{
		Title:        textOf(doc["titel"]),
		Cover:        textOf(doc["afbeelding"]),
		Link:         textOf(doc["deeplink"]),
		Summary:      textOf(doc["samenvatting"]),
		Start:        textOf(doc["starttijd"]),
		End:          textOf(doc["eindtijd"]),
		Building:     textOf(doc["gebouw"]),
		Room:         textOf(doc["zaal"]),
		LocationName: textOf(doc["locatienaam"]),
	}
}

// ShapeAgendaItem builds the display item. Unparseable instants leave date
// and time empty; raw_date always keeps the input.
func (h *Handler) ShapeAgendaItem(ev models.RawEvent) models.AgendaItem {
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = h.config.DefaultTitle
	}
	date, clock := h.formatWhen(ev.Start, ev.End)
	return models.AgendaItem{
		Title:    title,
		Cover:    strings.TrimSpace(ev.Cover),
		Link:     strings.TrimSpace(ev.Link),
		Summary:  strings.TrimSpace(ev.Summary),
		Date:     date,
		Time:     clock,
		Location: eventLocation(ev),
		RawDate:  models.RawDate{Start: ev.Start, End: ev.End},
	}
}

func eventLocation(ev models.RawEvent) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{ev.Building, ev.Room} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(ev.LocationName)
}

var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (h *Handler) parseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, h.loc); err == nil {
			return t.In(h.loc), true
		}
	}
	return time.Time{}, false
}

func (h *Handler) formatWhen(rawStart, rawEnd string) (string, string) {
	start, ok := h.parseInstant(rawStart)
	if !ok {
		return "", ""
	}
	date := monday.Format(start, h.config.DateLayout, monday.LocaleNlNL)
	clock := start.Format(h.config.TimeLayout)
	if end, ok := h.parseInstant(rawEnd); ok {
		clock += " - " + end.Format(h.config.TimeLayout)
	}
	return date, clock
}

func textOf(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
