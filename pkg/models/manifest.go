package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ManifestEntry records one currently indexed document and the keys its
// chunks were accepted under in the full and summary indices.
type ManifestEntry struct {
	Link         string    `json:"link"`
	LastModified time.Time `json:"lastModified"`
	DocumentKeys []string  `json:"documentKeys"`
	SummaryKeys  []string  `json:"summariesKeys"`
}

// timestampLayouts are the lastModified forms found in stored manifests.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON accepts any of timestampLayouts for lastModified. An empty,
// null or unparseable value decodes as the zero time, which marks the entry
// out of date.
func (e *ManifestEntry) UnmarshalJSON(data []byte) error {
	type plain ManifestEntry
	aux := struct {
		*plain
		LastModified json.RawMessage `json:"lastModified"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.LastModified = time.Time{}
	raw := strings.TrimSpace(string(aux.LastModified))
	if raw == "" || raw == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.LastModified, &s); err != nil {
		return fmt.Errorf("lastModified: %w", err)
	}
	e.LastModified = parseTimestamp(s)
	return nil
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Manifest is the record of truth for what is indexed for one scheme.
// Entries are unique by Link.
type Manifest []ManifestEntry

// Index maps each link to its entry. Later duplicates win.
func (m Manifest) Index() map[string]ManifestEntry {
	idx := make(map[string]ManifestEntry, len(m))
	for _, e := range m {
		idx[e.Link] = e
	}
	return idx
}

// Links returns the entry links in manifest order.
func (m Manifest) Links() []string {
	links := make([]string, len(m))
	for i, e := range m {
		links[i] = e.Link
	}
	return links
}

// DocumentKeys returns every full-content key across the entries, in order.
func (m Manifest) DocumentKeys() []string {
	var keys []string
	for _, e := range m {
		keys = append(keys, e.DocumentKeys...)
	}
	return keys
}

// SummaryKeys returns every summary key across the entries, in order.
func (m Manifest) SummaryKeys() []string {
	var keys []string
	for _, e := range m {
		keys = append(keys, e.SummaryKeys...)
	}
	return keys
}
