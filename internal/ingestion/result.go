package ingestion

import "github.com/mfenderov/docsync/pkg/models"

// DocumentOutcome is the result of processing one document. Entry is nil
// when the document was skipped.
type DocumentOutcome struct {
	URL        string
	Entry      *models.ManifestEntry
	ChunkCount int
	Reason     string
}

// Skipped reports whether the document produced no manifest entry.
func (o DocumentOutcome) Skipped() bool {
	return o.Entry == nil
}

// SchemeResult summarizes one scheme run.
type SchemeResult struct {
	Scheme         string `json:"scheme"`
	DocumentsAdded int    `json:"addedGrants"`
	ChunkCount     int    `json:"chunkCount"`
	Skipped        int    `json:"skipped"`
	Removed        int    `json:"removed"`
	Error          string `json:"error,omitempty"`
}

// Fold aggregates document outcomes into a scheme result.
func Fold(scheme string, removed int, outcomes []DocumentOutcome) SchemeResult {
	r := SchemeResult{Scheme: scheme, Removed: removed}
	for _, o := range outcomes {
		if o.Skipped() {
			r.Skipped++
			continue
		}
		r.DocumentsAdded++
		r.ChunkCount += o.ChunkCount
	}
	return r
}

// Results holds scheme results in run order.
type Results []SchemeResult

// ByScheme indexes results by scheme name.
func (rs Results) ByScheme() map[string]SchemeResult {
	m := make(map[string]SchemeResult, len(rs))
	for _, r := range rs {
		m[r.Scheme] = r
	}
	return m
}

// Totals sums documents added and chunks produced across all schemes.
func (rs Results) Totals() (documents, chunks int) {
	for _, r := range rs {
		documents += r.DocumentsAdded
		chunks += r.ChunkCount
	}
	return documents, chunks
}
