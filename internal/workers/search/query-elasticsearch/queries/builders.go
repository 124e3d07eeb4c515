// internal/workers/search/query-elasticsearch/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"nexi-assistant/internal/models"
)

var (
	ErrMissingIndex = errors.New("index name is required")
)

const (
	defaultSize = 15
	maxSize     = 100
)

// BuildQuery translates search params into a search request. The collection
// names the index; embedding fields in query_by are ignored.
func BuildQuery(params *models.SearchParams, size int) (*esapi.SearchRequest, error) {
	if strings.TrimSpace(params.Collection) == "" {
		return nil, ErrMissingIndex
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	body, err := json.Marshal(map[string]interface{}{"query": BuildQueryBody(params)})
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{params.Collection},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}, nil
}

// BuildQueryBody returns the query clause only.
func BuildQueryBody(params *models.SearchParams) map[string]interface{} {
	must := matchClause(params)
	filters, mustNot := FilterClauses(params.FilterBy)

	if len(filters) == 0 && len(mustNot) == 0 {
		return must
	}
	boolQuery := map[string]interface{}{"must": []interface{}{must}}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(mustNot) > 0 {
		boolQuery["must_not"] = mustNot
	}
	return map[string]interface{}{"bool": boolQuery}
}

func matchClause(params *models.SearchParams) map[string]interface{} {
	q := strings.TrimSpace(params.Query)
	if q == "" || q == "*" {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	multi := map[string]interface{}{
		"query": q,
		"type":  "best_fields",
	}
	if fields := textFields(params.QueryBy); len(fields) > 0 {
		multi["fields"] = fields
	}
	return map[string]interface{}{"multi_match": multi}
}

func textFields(queryBy string) []string {
	var fields []string
	for _, f := range strings.Split(queryBy, ",") {
		f = strings.TrimSpace(f)
		if f == "" || strings.HasPrefix(f, "embedding") {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// FilterClauses translates a filter_by expression. Top-level clauses are
// joined by &&; a parenthesised group of || alternatives becomes a should
// clause that needs one match.
func FilterClauses(filterBy string) (filters, mustNot []interface{}) {
	for _, part := range strings.Split(filterBy, "&&") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "(") && strings.HasSuffix(part, ")") {
			var should []interface{}
			for _, alt := range strings.Split(part[1:len(part)-1], "||") {
				if clause, negated, ok := parseCondition(alt); ok && !negated {
					should = append(should, clause)
				}
			}
			if len(should) > 0 {
				filters = append(filters, map[string]interface{}{
					"bool": map[string]interface{}{
						"should":               should,
						"minimum_should_match": 1,
					},
				})
			}
			continue
		}
		clause, negated, ok := parseCondition(part)
		if !ok {
			continue
		}
		if negated {
			mustNot = append(mustNot, clause)
		} else {
			filters = append(filters, clause)
		}
	}
	return filters, mustNot
}

func parseCondition(cond string) (map[string]interface{}, bool, bool) {
	cond = strings.TrimSpace(cond)
	negated := false
	var field, value string

	if i := strings.Index(cond, ":!="); i > 0 {
		negated = true
		field, value = cond[:i], cond[i+3:]
	} else if i := strings.Index(cond, ":="); i > 0 {
		field, value = cond[:i], cond[i+2:]
	} else if i := strings.Index(cond, ":"); i > 0 {
		field, value = cond[:i], cond[i+1:]
	} else {
		return nil, false, false
	}

	field = strings.TrimSpace(field)
	value = unquote(strings.TrimSpace(value))
	if field == "" || value == "" {
		return nil, false, false
	}

	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		var values []string
		for _, v := range strings.Split(value[1:len(value)-1], ",") {
			if v = unquote(strings.TrimSpace(v)); v != "" {
				values = append(values, v)
			}
		}
		return map[string]interface{}{"terms": map[string]interface{}{field: values}}, negated, true
	}
	return map[string]interface{}{"term": map[string]interface{}{field: value}}, negated, true
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '`' && v[len(v)-1] == '`') {
		return strings.ReplaceAll(v[1:len(v)-1], `\"`, `"`)
	}
	return v
}
