// internal/store/elasticsearch.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"company-intel/internal/common/database"
	commonerrors "company-intel/internal/common/errors"
	"company-intel/internal/models"
)

// ElasticsearchIndexer makes reports full text searchable.
type ElasticsearchIndexer struct {
	es *database.ElasticsearchClient
}

func NewElasticsearchIndexer(es *database.ElasticsearchClient) *ElasticsearchIndexer {
	return &ElasticsearchIndexer{es: es}
}

func (i *ElasticsearchIndexer) Name() string { return "elasticsearch" }

// Save indexes the report under its run ID. Memory is not indexed.
func (i *ElasticsearchIndexer) Save(ctx context.Context, r *models.Report) error {
	doc := *r
	doc.Memory = nil
	body, err := json.Marshal(doc)
	if err != nil {
		return commonerrors.NewReportPersistFailedError(i.Name(), err)
	}

	client := i.es.Client
	res, err := client.Index(i.es.Index, bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(r.RunID),
	)
	if err != nil {
		return commonerrors.NewReportPersistFailedError(i.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return commonerrors.NewReportPersistFailedError(i.Name(),
			fmt.Errorf("index %s: %s: %s", i.es.Index, res.Status(), bytes.TrimSpace(msg)))
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Report `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full text query over analysis, raw data and company.
func (i *ElasticsearchIndexer) Search(ctx context.Context, text string, size int) ([]*models.Report, error) {
	if size <= 0 {
		size = 10
	}
	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"company^3", "analysis", "raw_data"},
			},
		},
		"sort": []interface{}{"_score", map[string]string{"finished_at": "desc"}},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	client := i.es.Client
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(i.es.Index),
		client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search reports: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search reports: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	reports := make([]*models.Report, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		r := h.Source
		reports = append(reports, &r)
	}
	return reports, nil
}
