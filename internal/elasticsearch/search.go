package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mfenderov/docsync/pkg/models"
)

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.IndexedRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// getResponse represents ES get response structure.
type getResponse struct {
	Found  bool                 `json:"found"`
	Source models.IndexedRecord `json:"_source"`
}

var textFields = []string{"chunk", "title^2", "grant_scheme_name"}

// Search performs a BM25 search over chunk text and titles.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.IndexedRecord, error) {
	return c.search(ctx, map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": textFields,
			},
		},
		"size":    limit,
		"_source": map[string]any{"excludes": []string{"content_vector"}},
	})
}

// HybridSearch combines BM25 and kNN on content_vector with reciprocal
// rank fusion. If queryEmbedding is nil, falls back to BM25 only.
func (c *Client) HybridSearch(ctx context.Context, query string, queryEmbedding []float32, limit int) ([]models.IndexedRecord, error) {
	if queryEmbedding == nil {
		return c.Search(ctx, query, limit)
	}

	return c.search(ctx, map[string]any{
		"retriever": map[string]any{
			"rrf": map[string]any{
				"retrievers": []map[string]any{
					{
						"standard": map[string]any{
							"query": map[string]any{
								"multi_match": map[string]any{
									"query":  query,
									"fields": textFields,
								},
							},
						},
					},
					{
						"knn": map[string]any{
							"field":          "content_vector",
							"query_vector":   queryEmbedding,
							"k":              limit,
							"num_candidates": limit * 2,
						},
					},
				},
			},
		},
		"size":    limit,
		"_source": map[string]any{"excludes": []string{"content_vector"}},
	})
}

func (c *Client) search(ctx context.Context, query map[string]any) ([]models.IndexedRecord, error) {
	data, err := encodeJSON(query)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	records := make([]models.IndexedRecord, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		records[i] = hit.Source
	}
	return records, nil
}

// GetChunk retrieves a record by chunk id. It returns nil when absent.
func (c *Client) GetChunk(ctx context.Context, id string) (*models.IndexedRecord, error) {
	res, err := c.es.Get(c.index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !gr.Found {
		return nil, nil
	}
	return &gr.Source, nil
}
