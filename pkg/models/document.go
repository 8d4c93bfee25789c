package models

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// SourceDocument is one live document supplied by a content source.
// URL is its identity across runs.
type SourceDocument struct {
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"last_modified"`
}

// Chunk is a bounded slice of a document's text.
type Chunk struct {
	ID       string `json:"chunk_id"`
	ParentID string `json:"parent_id"`
	Text     string `json:"chunk"`
	Sequence int    `json:"sequence"`
}

// IndexedRecord is what gets written to a search index, keyed by ID.
type IndexedRecord struct {
	ID         string    `json:"chunk_id"`
	ParentID   string    `json:"parent_id"`
	Text       string    `json:"chunk"`
	Sequence   int       `json:"sequence"`
	Title      string    `json:"title"`
	SchemeName string    `json:"grant_scheme_name"`
	SourceURL  string    `json:"source_url"`
	Vector     []float32 `json:"content_vector,omitempty"`
}

// NewRecord builds an index record from a chunk and its document context.
func NewRecord(chunk Chunk, title, schemeName, sourceURL string, vector []float32) IndexedRecord {
	return IndexedRecord{
		ID:         chunk.ID,
		ParentID:   chunk.ParentID,
		Text:       chunk.Text,
		Sequence:   chunk.Sequence,
		Title:      title,
		SchemeName: schemeName,
		SourceURL:  sourceURL,
		Vector:     vector,
	}
}

// ParentID correlates every chunk (full and summary) of one logical document.
// It is derived from the title only.
func ParentID(title string) string {
	return fingerprint(title)
}

// ChunkID is the index primary key of a chunk. Identical text always maps
// to the same id, so re-uploading a chunk overwrites instead of duplicating.
func ChunkID(text string) string {
	return fingerprint(text)
}

// NewChunk hashes text into a chunk belonging to the document with the given title.
func NewChunk(title, text string, sequence int) Chunk {
	return Chunk{
		ID:       ChunkID(text),
		ParentID: ParentID(title),
		Text:     text,
		Sequence: sequence,
	}
}

// fingerprint is a 128-bit MD5 hex digest, matching ids already stored in
// existing indices and manifests.
func fingerprint(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SourceURL turns a GOV.UK content API URL into the public page URL.
// Other URLs are returned unchanged.
func SourceURL(url string) string {
	return strings.Replace(url, "/api/content", "", 1)
}
