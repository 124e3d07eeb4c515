package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"nexi-assistant/internal/common/config"
)

// ElasticsearchClient serves the alternative search backend. Indices are the
// collections it must hold for the service to be ready.
type ElasticsearchClient struct {
	Client  *elasticsearch.Client
	indices []string
}

// NewElasticsearch builds the client for cfg. Blank index names are skipped.
func NewElasticsearch(cfg config.ElasticsearchConfig, indices ...string) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	esCfg := elasticsearch.Config{Addresses: addresses}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	c := &ElasticsearchClient{Client: es}
	for _, idx := range indices {
		if strings.TrimSpace(idx) != "" {
			c.indices = append(c.indices, idx)
		}
	}
	return c, nil
}

// CollectionIndices lists the search collections backed by an index.
func CollectionIndices(c config.CollectionsConfig) []string {
	return []string{c.Books, c.BooksKraaiennest, c.FAQ, c.Events}
}

// Ping checks the cluster answers and every collection index exists.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	if len(c.indices) == 0 {
		return nil
	}
	res, err = c.Client.Indices.Exists(c.indices, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch indices missing (%s): %s", strings.Join(c.indices, ","), res.Status())
	}
	return nil
}
