// internal/api/proxy.go
package api

import (
	"net/http"
	"net/url"
	"strings"

	commonhttp "nexi-assistant/internal/common/http"
)

// catalogueItemPrefix is the id namespace of catalogue records in the details API.
const catalogueItemPrefix = "|oba-catalogus|"

func (s *Server) handleResolverProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ppn := strings.TrimSpace(r.URL.Query().Get("ppn"))
	if ppn == "" {
		badRequest(w, "ppn is required")
		return
	}
	s.proxy(w, r, ResolverURL(s.config.CatalogueURL, s.config.CatalogueKey, ppn))
}

func (s *Server) handleDetailsProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	itemID := strings.TrimSpace(r.URL.Query().Get("item_id"))
	if itemID == "" {
		badRequest(w, "item_id is required")
		return
	}
	s.proxy(w, r, CatalogueDetailsURL(s.config.CatalogueURL, s.config.CatalogueKey, itemID))
}

// proxy relays status, content type and body of a catalogue GET.
func (s *Server) proxy(w http.ResponseWriter, r *http.Request, target string) {
	resp, err := s.catalogue.Get(r.Context(), target, nil)
	if err != nil {
		s.logger.Warn("catalogue proxy failed", map[string]interface{}{
			"path":      r.URL.Path,
			"error":     err.Error(),
			"requestId": RequestID(r.Context()),
		})
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "catalogue unavailable",
		})
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// ResolverURL maps a PPN to the catalogue resolver call.
func ResolverURL(base, apiKey, ppn string) string {
	u := strings.TrimRight(base, "/") + "/resolver/ppn/?id=" + url.QueryEscape(ppn)
	return commonhttp.EnsureQueryParam(u, "authorization", apiKey)
}

// CatalogueDetailsURL maps a catalogue item id to its JSON detail record.
func CatalogueDetailsURL(base, apiKey, itemID string) string {
	u := strings.TrimRight(base, "/") + "/details/?id=" + url.QueryEscape(catalogueItemPrefix+itemID) + "&output=json"
	return commonhttp.EnsureQueryParam(u, "authorization", apiKey)
}
