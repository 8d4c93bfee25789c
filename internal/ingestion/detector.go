package ingestion

import "github.com/mfenderov/docsync/pkg/models"

// Plan is the reconciliation of live documents against a stored manifest.
type Plan struct {
	// ToRemove holds stored entries whose link matches no live document.
	ToRemove []models.ManifestEntry
	// ToProcess holds live documents that are new or strictly newer than
	// their stored entry, in source order.
	ToProcess []models.SourceDocument
	// CarryForward holds up-to-date entries, passed through unchanged.
	CarryForward []models.ManifestEntry
	// Superseded maps the link of each document in ToProcess to its stored
	// entry, if it had one.
	Superseded map[string]models.ManifestEntry
}

// Detect diffs docs against stored. A live url that appears more than once
// is considered on its first occurrence only. When stored holds more than
// one entry for a link, the last entry decides freshness and the others
// are dropped, except for removed links where every entry is removed so
// all of their keys are purged.
func Detect(docs []models.SourceDocument, stored models.Manifest) Plan {
	plan := Plan{Superseded: make(map[string]models.ManifestEntry)}

	live := make(map[string]bool, len(docs))
	latest := stored.Index()
	for _, doc := range docs {
		if live[doc.URL] {
			continue
		}
		live[doc.URL] = true

		entry, ok := latest[doc.URL]
		if !ok {
			plan.ToProcess = append(plan.ToProcess, doc)
			continue
		}
		if outOfDate(doc, entry) {
			plan.ToProcess = append(plan.ToProcess, doc)
			plan.Superseded[doc.URL] = entry
		}
	}

	seen := make(map[string]bool, len(stored))
	for _, entry := range stored {
		if !live[entry.Link] {
			plan.ToRemove = append(plan.ToRemove, entry)
			continue
		}
		if seen[entry.Link] {
			continue
		}
		seen[entry.Link] = true
		if _, superseded := plan.Superseded[entry.Link]; superseded {
			continue
		}
		plan.CarryForward = append(plan.CarryForward, latest[entry.Link])
	}

	return plan
}

// outOfDate reports whether doc needs (re)processing against its entry.
// An entry without a timestamp is always out of date.
func outOfDate(doc models.SourceDocument, entry models.ManifestEntry) bool {
	if entry.LastModified.IsZero() {
		return true
	}
	return doc.LastModified.After(entry.LastModified)
}
