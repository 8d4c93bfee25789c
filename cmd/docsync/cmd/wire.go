package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfenderov/docsync/internal/chunker"
	"github.com/mfenderov/docsync/internal/config"
	"github.com/mfenderov/docsync/internal/elasticsearch"
	"github.com/mfenderov/docsync/internal/embeddings"
	"github.com/mfenderov/docsync/internal/events"
	"github.com/mfenderov/docsync/internal/ingestion"
	"github.com/mfenderov/docsync/internal/llm"
	"github.com/mfenderov/docsync/internal/manifest"
	"github.com/mfenderov/docsync/internal/retry"
	"github.com/mfenderov/docsync/internal/sources"
	"github.com/mfenderov/docsync/internal/storage"
)

// indices holds the full text and summary index clients.
type indices struct {
	full    *elasticsearch.Client
	summary *elasticsearch.Client
}

func newIndices(cfg config.Config) (indices, error) {
	newClient := func(index string) (*elasticsearch.Client, error) {
		return elasticsearch.New(elasticsearch.Config{
			Addresses:  cfg.Elasticsearch.Addresses,
			Index:      index,
			Username:   cfg.Elasticsearch.Username,
			Password:   cfg.Elasticsearch.Password,
			APIKey:     cfg.Elasticsearch.APIKey,
			Dimensions: cfg.Elasticsearch.Dims,
			ProxyURL:   cfg.ProxyURL(),
		})
	}

	full, err := newClient(cfg.Elasticsearch.Index)
	if err != nil {
		return indices{}, fmt.Errorf("failed to create full index client: %w", err)
	}
	summary, err := newClient(cfg.Elasticsearch.SummaryIndex)
	if err != nil {
		return indices{}, fmt.Errorf("failed to create summary index client: %w", err)
	}
	return indices{full: full, summary: summary}, nil
}

// ensure creates both indices if they do not exist.
func (ix indices) ensure(ctx context.Context) error {
	if err := ix.full.CreateIndex(ctx); err != nil {
		return err
	}
	return ix.summary.CreateIndex(ctx)
}

func newEmbedder(cfg config.Config) (embeddings.Embedder, error) {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Embeddings.MaxRetries

	client, err := embeddings.New(embeddings.Config{
		SocketPath:        cfg.Embeddings.SocketPath,
		BaseURL:           cfg.Embeddings.BaseURL,
		APIKey:            cfg.Embeddings.APIKey,
		APIVersion:        cfg.Embeddings.APIVersion,
		Model:             cfg.Embeddings.Model,
		ProxyURL:          cfg.ProxyURL(),
		RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
		Burst:             cfg.Embeddings.Burst,
		Retry:             retryCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}
	if cfg.Embeddings.CacheSize <= 0 {
		return client, nil
	}
	return embeddings.NewCachedEmbedder(client, client.ModelName(), cfg.Embeddings.CacheSize), nil
}

func newSummarizer(cfg config.Config) (*llm.SummaryService, error) {
	if !cfg.LLM.Enabled() {
		slog.Info("no LLM configured, summaries use the local fallback")
		return llm.NewSummaryService(nil, llm.DefaultBreakerConfig()), nil
	}

	client, err := llm.New(llm.Config{
		SocketPath: cfg.LLM.SocketPath,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		APIVersion: cfg.LLM.APIVersion,
		Model:      cfg.LLM.Model,
		ProxyURL:   cfg.ProxyURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return llm.NewSummaryService(client, llm.DefaultBreakerConfig()), nil
}

func newManifestStore(ctx context.Context, cfg config.Config) (manifest.Store, error) {
	store, err := manifest.New(ctx, manifest.Config{
		Backend: cfg.Manifest.Backend,
		Dir:     cfg.Manifest.Dir,
		Prefix:  cfg.Manifest.Prefix,
		Storage: storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
			ProxyURL:        cfg.ProxyURL(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest store: %w", err)
	}
	return store, nil
}

func newJobs(cfg config.Config) ([]ingestion.Job, error) {
	httpClient, err := sources.NewHTTPClient(sources.HTTPConfig{
		ProxyURL:  cfg.ProxyURL(),
		Timeout:   cfg.Sync.FetchTimeout,
		UserAgent: cfg.Sync.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	govuk := sources.NewGovUKClient(httpClient, retry.DefaultConfig())
	crawl := sources.CrawlConfig{
		Delay:            cfg.Crawl.Delay,
		MaxDepth:         cfg.Crawl.MaxDepth,
		FollowLinks:      cfg.Crawl.FollowLinks,
		UserAgent:        cfg.Sync.UserAgent,
		Timeout:          cfg.Sync.FetchTimeout,
		TryMarkdownFirst: cfg.Crawl.TryMarkdownFirst,
		HTTPClient:       httpClient,
	}

	jobs := make([]ingestion.Job, 0, len(cfg.Schemes))
	for _, s := range cfg.Schemes {
		src, err := sources.New(sources.Config{
			Kind:         s.Kind,
			URL:          s.URL,
			SearchURL:    s.SearchURL,
			ContentURL:   s.ContentURL,
			SkipSections: s.SkipSections,
			MaxDepth:     s.MaxDepth,
		}, govuk, crawl)
		if err != nil {
			return nil, fmt.Errorf("scheme %s: %w", s.Name, err)
		}
		jobs = append(jobs, ingestion.Job{
			Scheme: ingestion.Scheme{
				Name:        s.Name,
				SchemeName:  s.SchemeName,
				ManifestKey: s.ManifestFile,
			},
			Source: src,
		})
	}
	return jobs, nil
}

// app is everything a sync run needs.
type app struct {
	indices   indices
	embedder  embeddings.Embedder
	manifests manifest.Store
	runner    *ingestion.Runner
}

func newApp(ctx context.Context, cfg config.Config, observers ...events.Observer) (*app, error) {
	ix, err := newIndices(cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	summarizer, err := newSummarizer(cfg)
	if err != nil {
		return nil, err
	}
	store, err := newManifestStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	jobs, err := newJobs(cfg)
	if err != nil {
		return nil, err
	}

	engine := ingestion.New(ingestion.Deps{
		FullIndex:    ix.full,
		SummaryIndex: ix.summary,
		Embedder:     embedder,
		Summarizer:   summarizer,
		Chunker:      chunker.New(chunker.WithChunkSize(cfg.Sync.ChunkSize)),
		Manifests:    store,
	}, ingestion.Config{
		SummaryTokenLimit: cfg.Sync.SummaryTokenLimit,
		Concurrency:       cfg.Sync.Concurrency,
		ChunkConcurrency:  cfg.Sync.ChunkConcurrency,
	})

	return &app{
		indices:   ix,
		embedder:  embedder,
		manifests: store,
		runner:    ingestion.NewRunner(engine, jobs, observers...),
	}, nil
}
