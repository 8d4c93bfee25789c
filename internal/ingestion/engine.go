// Package ingestion reconciles live documents with the stored manifest and
// drives chunking, embedding and indexing for each scheme.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mfenderov/docsync/internal/chunker"
	"github.com/mfenderov/docsync/internal/manifest"
	"github.com/mfenderov/docsync/pkg/models"
)

// DefaultSummaryTokenLimit is the word budget passed to the summarizer.
const DefaultSummaryTokenLimit = 100

// Uploader writes records and returns the keys the index accepted.
type Uploader interface {
	Upload(ctx context.Context, records ...models.IndexedRecord) ([]string, error)
}

// Deleter removes keys and reports whether all of them are gone.
type Deleter interface {
	Delete(ctx context.Context, keys []string) (bool, error)
}

// Index is one search index target.
type Index interface {
	Uploader
	Deleter
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer shortens text. It never fails; it may return "".
type Summarizer interface {
	Summarize(ctx context.Context, text string, tokenLimit int) string
}

// Chunker splits text into ordered chunk texts.
type Chunker interface {
	Split(in chunker.Input) []string
}

// Config holds sync engine configuration.
type Config struct {
	SummaryTokenLimit int
	Concurrency       int // documents processed at once
	ChunkConcurrency  int // chunks of one document embedded and uploaded at once
}

func (c Config) withDefaults() Config {
	if c.SummaryTokenLimit <= 0 {
		c.SummaryTokenLimit = DefaultSummaryTokenLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.ChunkConcurrency <= 0 {
		c.ChunkConcurrency = 1
	}
	return c
}

// Deps are the collaborators of the engine.
type Deps struct {
	FullIndex    Index
	SummaryIndex Index
	Embedder     Embedder
	Summarizer   Summarizer
	Chunker      Chunker
	Manifests    manifest.Store
}

// Scheme identifies one document source and its manifest.
type Scheme struct {
	Name        string // identifier used in results, e.g. "vetVisits"
	SchemeName  string // display name written into records
	ManifestKey string
}

// Engine syncs one scheme at a time.
type Engine struct {
	deps Deps
	cfg  Config
}

// New creates a new sync engine.
func New(deps Deps, cfg Config) *Engine {
	return &Engine{deps: deps, cfg: cfg.withDefaults()}
}

// SyncScheme reconciles docs with the scheme's manifest, updates both
// indices and persists the new manifest once. An error means the manifest
// could not be loaded or saved; the result then reports zero progress.
func (e *Engine) SyncScheme(ctx context.Context, scheme Scheme, docs []models.SourceDocument) (SchemeResult, error) {
	log := loggerFrom(ctx).With("scheme", scheme.Name)

	stored, err := e.deps.Manifests.Get(ctx, scheme.ManifestKey)
	if err != nil {
		return SchemeResult{Scheme: scheme.Name}, err
	}

	plan := Detect(docs, stored)
	log.Info("change detection complete",
		"live", len(docs),
		"stored", len(stored),
		"remove", len(plan.ToRemove),
		"process", len(plan.ToProcess),
		"unchanged", len(plan.CarryForward))

	e.removeEntries(ctx, log, plan.ToRemove)

	outcomes := e.processAll(ctx, log, scheme, plan.ToProcess)

	next := make(models.Manifest, 0, len(plan.CarryForward)+len(outcomes))
	next = append(next, plan.CarryForward...)
	for _, o := range outcomes {
		if o.Entry != nil {
			next = append(next, *o.Entry)
		} else if old, ok := plan.Superseded[o.URL]; ok {
			next = append(next, old)
		}
	}

	if err := e.deps.Manifests.Put(ctx, scheme.ManifestKey, next); err != nil {
		return SchemeResult{Scheme: scheme.Name}, err
	}

	result := Fold(scheme.Name, len(plan.ToRemove), outcomes)
	log.Info("scheme synced",
		"added", result.DocumentsAdded,
		"chunks", result.ChunkCount,
		"skipped", result.Skipped,
		"removed", result.Removed)
	return result, nil
}

// removeEntries deletes the keys of removed entries from both indices.
// Failures are logged and not retried.
func (e *Engine) removeEntries(ctx context.Context, log *slog.Logger, removed []models.ManifestEntry) {
	if len(removed) == 0 {
		return
	}
	removedManifest := models.Manifest(removed)

	targets := []struct {
		name  string
		index Index
		keys  []string
	}{
		{"full", e.deps.FullIndex, removedManifest.DocumentKeys()},
		{"summary", e.deps.SummaryIndex, removedManifest.SummaryKeys()},
	}
	for _, t := range targets {
		ok, err := t.index.Delete(ctx, t.keys)
		switch {
		case err != nil:
			log.Error("failed to delete removed documents", "index", t.name, "keys", len(t.keys), "error", err)
		case !ok:
			log.Warn("some removed documents were not deleted", "index", t.name, "keys", len(t.keys))
		default:
			log.Debug("removed documents deleted", "index", t.name, "keys", len(t.keys))
		}
	}
}

// processAll runs documents through a bounded worker pool. Outcomes are
// returned in document order.
func (e *Engine) processAll(ctx context.Context, log *slog.Logger, scheme Scheme, docs []models.SourceDocument) []DocumentOutcome {
	outcomes := make([]DocumentOutcome, len(docs))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			log.Info(fmt.Sprintf("processing document %d/%d", i+1, len(docs)), "url", models.SourceURL(doc.URL))
			outcomes[i] = e.processDocument(ctx, log, scheme, doc)
			return nil
		})
	}
	// Workers report failures through their outcome, never as an error.
	g.Wait()

	return outcomes
}

// processDocument indexes the full content and the summary of one
// document. Any error skips the document.
func (e *Engine) processDocument(ctx context.Context, log *slog.Logger, scheme Scheme, doc models.SourceDocument) DocumentOutcome {
	sourceURL := models.SourceURL(doc.URL)
	skip := func(stage string, err error) DocumentOutcome {
		log.Error("error indexing document", "url", sourceURL, "stage", stage, "error", err)
		return DocumentOutcome{URL: doc.URL, Reason: fmt.Sprintf("%s: %v", stage, err)}
	}

	chunks := e.deps.Chunker.Split(chunker.Input{
		Text:       doc.Content,
		Title:      doc.Title,
		SchemeName: scheme.SchemeName,
		SourceURL:  sourceURL,
	})
	keys, err := e.indexChunks(ctx, log, e.deps.FullIndex, scheme, doc, sourceURL, chunks)
	if err != nil {
		return skip("full", err)
	}

	summary := e.deps.Summarizer.Summarize(ctx, doc.Content, e.cfg.SummaryTokenLimit)
	summaryChunks := e.deps.Chunker.Split(chunker.Input{
		Text:       summary,
		Title:      doc.Title,
		SchemeName: scheme.SchemeName,
		SourceURL:  sourceURL,
	})
	summaryKeys, err := e.indexChunks(ctx, log, e.deps.SummaryIndex, scheme, doc, sourceURL, summaryChunks)
	if err != nil {
		return skip("summary", err)
	}

	if len(keys) < len(chunks) || len(summaryKeys) < len(summaryChunks) {
		log.Warn("document partially indexed",
			"url", sourceURL,
			"chunks", len(chunks), "accepted", len(keys),
			"summary_chunks", len(summaryChunks), "summary_accepted", len(summaryKeys))
	}

	return DocumentOutcome{
		URL: doc.URL,
		Entry: &models.ManifestEntry{
			Link:         doc.URL,
			LastModified: doc.LastModified,
			DocumentKeys: keys,
			SummaryKeys:  summaryKeys,
		},
		ChunkCount: len(chunks),
	}
}

// indexChunks embeds and uploads chunk texts to index, up to
// ChunkConcurrency at a time. Accepted keys are returned in chunk order.
func (e *Engine) indexChunks(
	ctx context.Context,
	log *slog.Logger,
	index Index,
	scheme Scheme,
	doc models.SourceDocument,
	sourceURL string,
	texts []string,
) ([]string, error) {
	accepted := make([][]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ChunkConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			log.Debug(fmt.Sprintf("processing chunk %d/%d", i+1, len(texts)), "url", sourceURL)

			chunk := models.NewChunk(doc.Title, text, i)
			vector, err := e.deps.Embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			record := models.NewRecord(chunk, doc.Title, scheme.SchemeName, sourceURL, vector)
			ids, err := index.Upload(gctx, record)
			if err != nil {
				return fmt.Errorf("upload chunk %s: %w", chunk.ID, err)
			}
			accepted[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(texts))
	for _, ids := range accepted {
		keys = append(keys, ids...)
	}
	return keys, nil
}
