// internal/workers/conversation/execute-tool-call/tools.go
package executetoolcall

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"nexi-assistant/internal/models"
)

const (
	msgSearch        = "Ik heb voor je gezocht en deze boeken voor je gevonden"
	msgCompare       = "Ik zocht iets vergelijkbaars, is dit wat je zocht?"
	msgAgendaFacets  = "Ik heb deze activiteiten in de agenda gevonden"
	msgAgendaContext = "Ik zoek contextueel in de agenda"
	msgFAQ           = "Ik zoek in OBA Next veelgestelde vragen. Wil je verfijnen?"
)

const (
	queryByEmbedding = "embedding"
	queryByAuthor    = "main_author"
	queryByTitle     = "short_title"

	alphaMixed = 0.4
	alphaPure  = 0.8

	centralLibrary = "Centrale OBA"
	locationRoot   = "/root/OBA/"
)

var (
	authorPattern = regexp.MustCompile(`(?i)\b(auteur|schrijver|door|van)\b`)
	titlePattern  = regexp.MustCompile(`\btitel\b|".+"|'[^']+'`)
)

func (h *Handler) buildFAQParams(a faqArgs) *models.SearchParams {
	return &models.SearchParams{
		Query:       strings.TrimSpace(a.UserQuery),
		QueryBy:     queryByEmbedding,
		Collection:  h.config.Collections.FAQ,
		VectorQuery: VectorQuery(alphaPure),
		Message:     msgFAQ,
	}
}

func (h *Handler) buildSearchParams(a searchArgs) *models.SearchParams {
	text := strings.TrimSpace(a.UserQuery)

	queryBy := a.QueryByChoice
	if queryBy == "" {
		queryBy = ChooseQueryBy(text)
	}

	vector := ""
	if strings.HasPrefix(queryBy, queryByEmbedding) {
		alpha := alphaPure
		if strings.Contains(queryBy, ",") {
			alpha = alphaMixed
		}
		if a.VectorAlpha != nil {
			alpha = *a.VectorAlpha
		}
		vector = VectorQuery(alpha)
	}

	return &models.SearchParams{
		Query:       text,
		QueryBy:     queryBy,
		Collection:  h.booksCollection(a.LocationKraaiennest),
		VectorQuery: vector,
		FilterBy:    filtersFor(a.Filters),
		Message:     msgSearch,
	}
}

func (h *Handler) buildCompareParams(a compareArgs) *models.SearchParams {
	original := strings.TrimSpace(a.Original)
	mode := strings.ToLower(strings.TrimSpace(a.Mode))

	queryBy, alpha, excluded := queryByEmbedding, alphaPure, queryByTitle
	if mode == "author" {
		queryBy, alpha, excluded = queryByAuthor+", "+queryByEmbedding, alphaMixed, queryByAuthor
	}
	if a.VectorAlpha != nil {
		alpha = *a.VectorAlpha
	}

	var parts []string
	if base := filtersFor(a.Filters); base != "" {
		parts = append(parts, base)
	}
	if original != "" {
		parts = append(parts, excluded+":!="+quoteValue(original))
	}

	return &models.SearchParams{
		Query:       strings.TrimSpace(a.ComparisonQuery),
		QueryBy:     queryBy,
		Collection:  h.booksCollection(a.LocationKraaiennest),
		VectorQuery: VectorQuery(alpha),
		FilterBy:    strings.Join(parts, " && "),
		Message:     msgCompare,
	}
}

// buildAgendaQuery returns a facet query for scenario A and an events
// collection search otherwise.
func (h *Handler) buildAgendaQuery(a agendaArgs) (*models.AgendaQuery, *models.SearchParams) {
	if strings.ToUpper(strings.TrimSpace(a.Scenario)) != "A" {
		return nil, &models.SearchParams{
			Query:       a.AgendaText,
			QueryBy:     queryByEmbedding,
			Collection:  h.config.Collections.Events,
			VectorQuery: VectorQuery(alphaPure),
			Message:     msgAgendaContext,
		}
	}

	waar := canonicalLocation(a.Waar)
	var params, facets []string
	if waar != "" {
		path := url.QueryEscape(locationRoot + waar)
		params = append(params, "waar="+path)
		facets = append(facets, "facet=waar%28"+path+"%29")
	}
	if a.Leeftijd != "" {
		v := url.QueryEscape(a.Leeftijd)
		params = append(params, "leeftijd="+v)
		facets = append(facets, "facet=leeftijd%28"+v+"%29")
	}
	if a.Wanneer != "" {
		params = append(params, "Wanneer="+a.Wanneer)
		facets = append(facets, "facet=wanneer%28"+a.Wanneer+"%29")
	}
	if a.TypeActiviteit != "" {
		v := url.QueryEscape(a.TypeActiviteit)
		params = append(params, "type_activiteit="+v)
		facets = append(facets, "facet=type_activiteit%28"+v+"%29")
	}

	front := h.config.AgendaFrontURL
	if len(params) > 0 {
		front += "?" + strings.Join(params, "&")
	}
	api := h.config.AgendaAPIURL
	if len(facets) > 0 {
		api += "&" + strings.Join(facets, "&")
	}
	return &models.AgendaQuery{API: api, URL: front, Message: msgAgendaFacets}, nil
}

func (h *Handler) booksCollection(kraaiennest bool) string {
	if kraaiennest {
		return h.config.Collections.BooksKraaiennest
	}
	return h.config.Collections.Books
}

// ChooseQueryBy picks the field for a free-text book query: author-like text
// searches main_author, title-like text short_title, anything else or both
// the embedding.
func ChooseQueryBy(text string) string {
	author := authorPattern.MatchString(text)
	title := titlePattern.MatchString(text)
	switch {
	case author && !title:
		return queryByAuthor
	case title && !author:
		return queryByTitle
	default:
		return queryByEmbedding
	}
}

// FilterBy builds the filter expression for book searches, e.g.
// "(indeling:=a||indeling:=b) && language :=Engels".
func FilterBy(indeling []string, language string) string {
	opts := make([]string, 0, len(indeling))
	for _, opt := range indeling {
		if opt != "" {
			opts = append(opts, "indeling:="+opt)
		}
	}
	filter := ""
	if len(opts) > 0 {
		filter = "(" + strings.Join(opts, "||") + ")"
	}
	if language != "" {
		if filter != "" {
			filter += " && language :=" + language
		} else {
			filter = "language :=" + language
		}
	}
	return filter
}

func filtersFor(f *bookFilters) string {
	if f == nil {
		return ""
	}
	return FilterBy(f.Indeling, f.Language)
}

// VectorQuery renders the hybrid search clause. Whole alphas keep one
// decimal ("1.0").
func VectorQuery(alpha float64) string {
	s := strconv.FormatFloat(alpha, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return "embedding:([], alpha: " + s + ")"
}

func quoteValue(v string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(v), `"`, `\"`) + `"`
}

func canonicalLocation(waar string) string {
	switch strings.ToLower(strings.TrimSpace(waar)) {
	case "oosterdok", "oba oosterdok", "centrale oba":
		return centralLibrary
	}
	return waar
}

func searchResult(p *models.SearchParams) map[string]interface{} {
	return map[string]interface{}{
		"q":            p.Query,
		"collection":   p.Collection,
		"query_by":     p.QueryBy,
		"vector_query": p.VectorQuery,
		"filter_by":    p.FilterBy,
		"Message":      p.Message,
		"STATUS":       statusDone,
	}
}

func agendaResult(q *models.AgendaQuery) map[string]interface{} {
	return map[string]interface{}{
		"URL":     q.URL,
		"API":     q.API,
		"Message": q.Message,
		"STATUS":  statusDone,
	}
}
