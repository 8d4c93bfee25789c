package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mfenderov/docsync/pkg/models"
)

// bulkAction is the metadata line of one bulk operation.
type bulkAction struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// bulkResponse is the part of the bulk API response we read.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID    string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// itemResult is the outcome of one bulk operation.
type itemResult struct {
	ID     string
	Status int
	Reason string
}

// Upload indexes the records keyed by chunk id and returns the ids the
// index acknowledged. Records the index rejects are logged and left out
// of the result; only transport-level failures return an error.
func (c *Client) Upload(ctx context.Context, records ...models.IndexedRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	for _, rec := range records {
		meta, err := encodeJSON(map[string]bulkAction{"index": {Index: c.index, ID: rec.ID}})
		if err != nil {
			return nil, err
		}
		doc, err := encodeJSON(rec)
		if err != nil {
			return nil, err
		}
		body.Write(meta)
		body.WriteByte('\n')
		body.Write(doc)
		body.WriteByte('\n')
	}

	results, err := c.bulk(ctx, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload documents: %w", err)
	}

	var accepted, failed []string
	for _, r := range results {
		if r.Status >= 200 && r.Status < 300 {
			accepted = append(accepted, r.ID)
			continue
		}
		failed = append(failed, r.ID)
		slog.Debug("document rejected", "index", c.index, "id", r.ID, "status", r.Status, "reason", r.Reason)
	}

	if len(failed) > 0 {
		slog.Warn("failed keys", "index", c.index, "keys", failed)
	}

	return accepted, nil
}

// Delete removes the given keys. It returns true only if every key is
// gone afterwards; keys already absent count as deleted.
func (c *Client) Delete(ctx context.Context, keys []string) (bool, error) {
	if len(keys) == 0 {
		return true, nil
	}

	var body bytes.Buffer
	for _, key := range keys {
		meta, err := encodeJSON(map[string]bulkAction{"delete": {Index: c.index, ID: key}})
		if err != nil {
			return false, err
		}
		body.Write(meta)
		body.WriteByte('\n')
	}

	results, err := c.bulk(ctx, &body)
	if err != nil {
		return false, fmt.Errorf("failed to delete documents: %w", err)
	}

	ok := len(results) == len(keys)
	for _, r := range results {
		if r.Status >= 200 && r.Status < 300 || r.Status == http.StatusNotFound {
			continue
		}
		ok = false
		slog.Warn("failed to delete key", "index", c.index, "id", r.ID, "status", r.Status, "reason", r.Reason)
	}

	return ok, nil
}

func (c *Client) bulk(ctx context.Context, body *bytes.Buffer) ([]itemResult, error) {
	res, err := c.es.Bulk(
		bytes.NewReader(body.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(c.index),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("bulk error: %s", res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	results := make([]itemResult, 0, len(br.Items))
	for _, item := range br.Items {
		for _, op := range item {
			r := itemResult{ID: op.ID, Status: op.Status}
			if op.Error != nil {
				r.Reason = op.Error.Type + ": " + op.Error.Reason
			}
			results = append(results, r)
		}
	}
	return results, nil
}
