// internal/workers/agenda/enrich-event-details/paths.go
package enricheventdetails

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmespath/go-jmespath"

	"nexi-assistant/internal/models"
)

// rootExpr unwraps the record from the known detail response envelopes.
const rootExpr = "record || results[0] || @"

// fieldExprs lists the lookups per field, first non-empty wins.
var fieldExprs = map[string][]string{
	"title": {
		"titles.title", "titles[0].title", "titles[0]", "title", "titel",
	},
	"cover": {
		"coverimages.coverimage", "coverimages[0].coverimage", "coverimages[0]", "coverimage", "afbeelding",
	},
	"link": {
		"custom.evenement.deeplink", "custom.evenement[0].deeplink", "detailLink", "deeplink",
	},
	"summary": {
		"summaries.summary", "summaries[0].summary", "summaries[0]", "summary", "samenvatting", "description",
	},
	"start": {
		"custom.gebeurtenis.datum.start", "custom.gebeurtenis.datum[0].start", "datum.start", "starttijd",
	},
	"end": {
		"custom.gebeurtenis.datum.end", "custom.gebeurtenis.datum[0].end", "datum.end", "eindtijd",
	},
	"building": {
		"custom.gebeurtenis.gebouw", "gebouw",
	},
	"room": {
		"custom.gebeurtenis.zaal", "zaal",
	},
	"locationName": {
		"custom.gebeurtenis.locatienaam", "locatienaam",
	},
}

type extractor struct {
	root   *jmespath.JMESPath
	fields map[string][]*jmespath.JMESPath
}

func newExtractor() (*extractor, error) {
	root, err := jmespath.Compile(rootExpr)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", rootExpr, err)
	}
	fields := make(map[string][]*jmespath.JMESPath, len(fieldExprs))
	for name, exprs := range fieldExprs {
		for _, expr := range exprs {
			compiled, err := jmespath.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile %q: %w", expr, err)
			}
			fields[name] = append(fields[name], compiled)
		}
	}
	return &extractor{root: root, fields: fields}, nil
}

// event overlays the detail fields found in data onto base.
func (e *extractor) event(data interface{}, base models.RawEvent) models.RawEvent {
	if record, err := e.root.Search(data); err == nil && record != nil {
		data = record
	}
	overlay := func(dst *string, field string) {
		if v := e.lookup(data, field); v != "" {
			*dst = v
		}
	}
	ev := base
	overlay(&ev.Title, "title")
	overlay(&ev.Cover, "cover")
	overlay(&ev.Link, "link")
	overlay(&ev.Summary, "summary")
	overlay(&ev.Start, "start")
	overlay(&ev.End, "end")
	overlay(&ev.Building, "building")
	overlay(&ev.Room, "room")
	overlay(&ev.LocationName, "locationName")
	return ev
}

func (e *extractor) lookup(data interface{}, field string) string {
	for _, expr := range e.fields[field] {
		v, err := expr.Search(data)
		if err != nil {
			continue
		}
		if s := scalar(v); s != "" {
			return s
		}
	}
	return ""
}

// scalar flattens a JMESPath result to text. Lists yield their first
// non-empty element.
func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []interface{}:
		for _, item := range t {
			if s := scalar(item); s != "" {
				return s
			}
		}
	}
	return ""
}
