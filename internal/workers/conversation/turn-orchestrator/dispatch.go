// internal/workers/conversation/turn-orchestrator/dispatch.go
package turnorchestrator

import (
	"context"

	apperrors "nexi-assistant/internal/common/errors"
	"nexi-assistant/internal/models"
	enricheventdetails "nexi-assistant/internal/workers/agenda/enrich-event-details"
	extractintent "nexi-assistant/internal/workers/conversation/extract-intent"
	shaperesults "nexi-assistant/internal/workers/results/shape-results"
)

// dispatchSearch routes search parameters by collection.
func (h *Handler) dispatchSearch(ctx context.Context, convID string, params *models.SearchParams) models.Envelope {
	switch params.Collection {
	case h.config.Collections.Events:
		return h.eventsEnvelope(ctx, convID, params)
	case h.config.Collections.FAQ:
		return h.faqEnvelope(ctx, convID, params)
	default:
		return h.booksEnvelope(ctx, convID, params)
	}
}

func (h *Handler) booksEnvelope(ctx context.Context, convID string, params *models.SearchParams) models.Envelope {
	docs, err := h.search(ctx, params)
	if err != nil {
		return h.failure(ctx, convID, stepSearch, err, map[string]interface{}{"collection": params.Collection})
	}
	books := h.shape(ctx, &shaperesults.Input{Kind: shaperesults.KindBooks, Documents: docs}).Books
	if len(books) == 0 {
		return h.envelope(ctx, models.EnvelopeCollection, books, nil, models.NoResultsMessage, convID)
	}
	return h.envelope(ctx, models.EnvelopeCollection, books, nil, params.Message, convID)
}

func (h *Handler) faqEnvelope(ctx context.Context, convID string, params *models.SearchParams) models.Envelope {
	docs, err := h.search(ctx, params)
	if err != nil {
		return h.failure(ctx, convID, stepSearch, err, map[string]interface{}{"collection": params.Collection})
	}
	items := h.shape(ctx, &shaperesults.Input{Kind: shaperesults.KindFAQ, Documents: docs}).FAQ
	if len(items) == 0 {
		return h.envelope(ctx, models.EnvelopeFAQ, items, nil, models.NoResultsMessage, convID)
	}
	return h.envelope(ctx, models.EnvelopeFAQ, items, nil, params.Message, convID)
}

// eventsEnvelope searches the events collection and resolves every hit to its
// detail record.
func (h *Handler) eventsEnvelope(ctx context.Context, convID string, params *models.SearchParams) models.Envelope {
	docs, err := h.search(ctx, params)
	if err != nil {
		return h.failure(ctx, convID, stepSearch, err, map[string]interface{}{"collection": params.Collection})
	}
	events, failed := h.deps.Details.Enrich(ctx, enricheventdetails.Refs(docs))
	if failed > 0 {
		h.logger.Warn("some event details could not be loaded", map[string]interface{}{
			"conversationId": convID,
			"failed":         failed,
		})
	}
	items := h.shape(ctx, &shaperesults.Input{Kind: shaperesults.KindAgenda, Events: events}).Agenda
	return h.agendaEnvelope(ctx, convID, items, firstLink(items), params.Message)
}

// dispatchAgenda handles an agenda stage payload: a legacy facet query, an
// events collection search, or neither.
func (h *Handler) dispatchAgenda(ctx context.Context, convID string, reply *extractintent.AgendaReply, raw string) models.Envelope {
	switch {
	case reply.HasLegacyQuery():
		events, err := h.deps.Legacy.Fetch(ctx, reply.API)
		if err != nil {
			return h.failure(ctx, convID, stepLegacy, err, map[string]interface{}{"api": reply.API})
		}
		items := h.shape(ctx, &shaperesults.Input{Kind: shaperesults.KindAgenda, Events: events}).Agenda
		return h.agendaEnvelope(ctx, convID, items, reply.URL, reply.Message)
	case reply.Search != nil && reply.Search.Collection == h.config.Collections.Events:
		if reply.Search.Message == "" {
			reply.Search.Message = reply.Message
		}
		return h.eventsEnvelope(ctx, convID, reply.Search)
	}

	stdErr := apperrors.NewUnknownFormatError(string(models.ActiveAgenda), extractintent.Keys(raw))
	h.errs.Log("agenda reply not recognized", stdErr, map[string]interface{}{"conversationId": convID})
	return h.envelope(ctx, models.EnvelopeAgenda, nil, nil, models.UnknownFormatMessage, convID)
}

func (h *Handler) agendaEnvelope(ctx context.Context, convID string, items []models.AgendaItem, url, message string) models.Envelope {
	if items == nil {
		items = []models.AgendaItem{}
	}
	if len(items) == 0 {
		message = models.NoResultsMessage
	}
	return h.envelope(ctx, models.EnvelopeAgenda, items, models.StringPtr(url), message, convID)
}

func (h *Handler) search(ctx context.Context, params *models.SearchParams) ([]models.Document, error) {
	result, err := h.deps.Searcher.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return result.Documents, nil
}

// shape never fails for the kinds used here.
func (h *Handler) shape(ctx context.Context, input *shaperesults.Input) *shaperesults.Output {
	out, err := h.deps.Shaper.Execute(ctx, input)
	if err != nil {
		h.logger.Error("shaping failed", map[string]interface{}{"kind": input.Kind, "error": err.Error()})
		return &shaperesults.Output{}
	}
	return out
}

func firstLink(items []models.AgendaItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Link
}
