package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mfenderov/docsync/internal/events"
	"github.com/mfenderov/docsync/pkg/models"
)

// Source lists the live documents of one scheme.
type Source interface {
	List(ctx context.Context) ([]models.SourceDocument, error)
}

// Job pairs a scheme with the source of its documents.
type Job struct {
	Scheme Scheme
	Source Source
}

// Runner syncs configured schemes one after another. A failing scheme
// never stops the others.
type Runner struct {
	engine    *Engine
	jobs      []Job
	observers []events.Observer
}

// NewRunner creates a runner over jobs, in order.
func NewRunner(engine *Engine, jobs []Job, observers ...events.Observer) *Runner {
	return &Runner{engine: engine, jobs: jobs, observers: observers}
}

// Schemes returns the configured scheme names in run order.
func (r *Runner) Schemes() []string {
	names := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		names[i] = j.Scheme.Name
	}
	return names
}

// RunAll syncs every configured scheme.
func (r *Runner) RunAll(ctx context.Context) Results {
	return r.run(ctx, r.jobs)
}

// Run syncs the named schemes only. With no names it runs all of them.
func (r *Runner) Run(ctx context.Context, names ...string) (Results, error) {
	if len(names) == 0 {
		return r.RunAll(ctx), nil
	}

	byName := make(map[string]Job, len(r.jobs))
	for _, j := range r.jobs {
		byName[j.Scheme.Name] = j
	}
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		j, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scheme %q", name)
		}
		jobs = append(jobs, j)
	}
	return r.run(ctx, jobs), nil
}

func (r *Runner) run(ctx context.Context, jobs []Job) Results {
	runID := uuid.NewString()
	log := loggerFrom(ctx).With("run_id", runID)
	ctx = WithLogger(ctx, log)

	start := time.Now()
	log.Info("sync run started", "schemes", len(jobs))

	results := make(Results, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, r.runJob(ctx, runID, job))
	}

	docs, chunks := results.Totals()
	log.Info("sync run finished", "documents_added", docs, "chunks", chunks, "duration", time.Since(start))
	return results
}

func (r *Runner) runJob(ctx context.Context, runID string, job Job) SchemeResult {
	log := loggerFrom(ctx).With("scheme", job.Scheme.Name)
	start := time.Now()

	result, err := r.syncJob(ctx, job)
	if err != nil {
		log.Error("scheme sync failed", "error", err)
		result = SchemeResult{Scheme: job.Scheme.Name, Error: err.Error()}
	}

	event := events.SchemeCompleted{
		Scheme:         job.Scheme.Name,
		RunID:          runID,
		DocumentsAdded: result.DocumentsAdded,
		ChunkCount:     result.ChunkCount,
		Removed:        result.Removed,
		Skipped:        result.Skipped,
		Err:            err,
		Duration:       time.Since(start),
	}
	for _, o := range r.observers {
		o.OnSchemeCompleted(event)
	}
	return result
}

func (r *Runner) syncJob(ctx context.Context, job Job) (result SchemeResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if job.Source == nil {
		return SchemeResult{}, errors.New("no source configured")
	}
	docs, err := job.Source.List(ctx)
	if err != nil {
		return SchemeResult{}, fmt.Errorf("fetch documents: %w", err)
	}
	return r.engine.SyncScheme(ctx, job.Scheme, docs)
}
