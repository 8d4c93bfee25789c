package sources

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/mfenderov/docsync/internal/processor"
	"github.com/mfenderov/docsync/pkg/models"
)

// CrawlConfig holds crawler configuration.
type CrawlConfig struct {
	Delay            time.Duration
	MaxDepth         int
	FollowLinks      bool
	UserAgent        string
	Timeout          time.Duration
	TryMarkdownFirst bool // Try to fetch markdown version of pages
	HTTPClient       *http.Client
}

// CrawlSource crawls a site from a start URL, staying on its host.
type CrawlSource struct {
	startURL string
	config   CrawlConfig
	proc     *processor.Processor
	now      func() time.Time
}

// NewCrawlSource creates a crawl source rooted at startURL.
func NewCrawlSource(startURL string, config CrawlConfig) *CrawlSource {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "docsync/1.0"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return &CrawlSource{
		startURL: startURL,
		config:   config,
		proc:     processor.New(),
		now:      time.Now,
	}
}

type page struct {
	URL          string
	Content      string
	ContentType  string
	LastModified string
}

// List crawls the site and converts every page to a document. A page's
// Last-Modified header is its timestamp; pages without one use the fetch
// time and are therefore reprocessed on every run.
func (s *CrawlSource) List(ctx context.Context) ([]models.SourceDocument, error) {
	pages, err := s.crawl(ctx)
	if err != nil && len(pages) == 0 {
		return nil, err
	}

	fetched := s.now()
	docs := make([]models.SourceDocument, 0, len(pages))
	for _, p := range pages {
		doc, err := s.toDocument(p, fetched)
		if err != nil {
			slog.Error("failed to convert page", "url", p.URL, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, err
}

func (s *CrawlSource) toDocument(p page, fetched time.Time) (models.SourceDocument, error) {
	var content, title string
	if processor.IsMarkdown(p.URL, p.ContentType, p.Content) {
		content = processor.StripLinks(p.Content)
		title = processor.MarkdownTitle(p.Content)
	} else {
		title = s.proc.ExtractTitle(p.Content)
		var err error
		content, err = s.proc.ConvertPlain(p.Content)
		if err != nil {
			return models.SourceDocument{}, err
		}
	}
	if title == "" {
		title = p.URL
	}

	modified := fetched
	if t, err := http.ParseTime(p.LastModified); err == nil {
		modified = t
	}

	return models.SourceDocument{
		URL:          p.URL,
		Title:        title,
		Content:      content,
		LastModified: modified.UTC(),
	}, nil
}

func (s *CrawlSource) crawl(ctx context.Context) ([]page, error) {
	var pages []page
	var mu sync.Mutex
	var cancelled bool

	slog.Debug("starting crawl", "url", s.startURL, "max_depth", s.config.MaxDepth)

	parsedURL, err := url.Parse(s.startURL)
	if err != nil {
		return nil, &FetchError{URL: s.startURL, Err: err}
	}

	c := colly.NewCollector(
		colly.MaxDepth(s.config.MaxDepth),
		colly.UserAgent(s.config.UserAgent),
	)
	if s.config.HTTPClient.Transport != nil {
		c.WithTransport(s.config.HTTPClient.Transport)
	}

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.config.Delay,
		Parallelism: 2,
	})
	c.SetRequestTimeout(s.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			mu.Lock()
			cancelled = true
			mu.Unlock()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 400 {
			return
		}

		p := page{
			URL:          r.Request.URL.String(),
			Content:      string(r.Body),
			ContentType:  r.Headers.Get("Content-Type"),
			LastModified: r.Headers.Get("Last-Modified"),
		}

		if s.config.TryMarkdownFirst {
			if md, ok := s.tryMarkdownVariants(ctx, p.URL); ok {
				slog.Debug("using markdown variant", "url", p.URL)
				p.Content, p.ContentType = md.Content, md.ContentType
				if md.LastModified != "" {
					p.LastModified = md.LastModified
				}
			}
		}

		mu.Lock()
		pages = append(pages, p)
		mu.Unlock()
	})

	if s.config.FollowLinks {
		c.OnHTML("a[href]", func(e *colly.HTMLElement) {
			absoluteURL := e.Request.AbsoluteURL(e.Attr("href"))
			linkURL, err := url.Parse(absoluteURL)
			if err != nil || linkURL.Host != parsedURL.Host {
				return
			}
			linkURL.Fragment = ""
			e.Request.Visit(linkURL.String())
		})
	}

	if err := c.Visit(s.startURL); err != nil {
		return nil, &FetchError{URL: s.startURL, Err: err}
	}
	c.Wait()

	if cancelled {
		slog.Info("crawl cancelled by context", "pages", len(pages))
		return pages, ctx.Err()
	}

	slog.Debug("crawl complete", "url", s.startURL, "pages", len(pages))
	return pages, nil
}

// tryMarkdownVariants attempts to fetch a markdown version of pageURL.
func (s *CrawlSource) tryMarkdownVariants(ctx context.Context, pageURL string) (page, bool) {
	for _, variant := range processor.MarkdownURLVariants(pageURL) {
		if ctx.Err() != nil {
			return page{}, false
		}
		if p, ok := s.tryFetchMarkdown(ctx, variant); ok {
			return p, true
		}
	}
	return page{}, false
}

func (s *CrawlSource) tryFetchMarkdown(ctx context.Context, variant string) (page, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, variant, nil)
	if err != nil {
		return page{}, false
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return page{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return page{}, false
	}

	p := page{
		URL:          variant,
		Content:      string(body),
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if !processor.IsMarkdown(p.URL, p.ContentType, p.Content) {
		return page{}, false
	}
	return p, true
}
