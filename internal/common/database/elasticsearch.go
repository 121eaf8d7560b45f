// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"company-intel/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// reportMapping indexes company as a keyword for exact lookups and the prose
// fields as full text.
const reportMapping = `{
  "mappings": {
    "properties": {
      "run_id":      {"type": "keyword"},
      "company":     {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "status":      {"type": "keyword"},
      "raw_data":    {"type": "text"},
      "analysis":    {"type": "text"},
      "error":       {"type": "text"},
      "sources":     {"type": "keyword"},
      "started_at":  {"type": "date"},
      "finished_at": {"type": "date"}
    }
  }
}`

type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	esCfg := elasticsearch.Config{
		Addresses: addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, Index: cfg.Index}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates the report index with its mapping if it is missing.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context) error {
	exists, err := c.Client.Indices.Exists([]string{c.Index},
		c.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := c.Client.Indices.Create(c.Index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(reportMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index create failed: %w", err)
	}
	defer res.Body.Close()

	// 400 here is resource_already_exists from a concurrent creator.
	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("elasticsearch index create error: %s", res.Status())
	}
	return nil
}
