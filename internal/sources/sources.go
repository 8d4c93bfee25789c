// Package sources fetches the live documents of each scheme.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mfenderov/docsync/pkg/models"
)

// Kinds of source.
const (
	KindGovUKContent  = "govuk-content"
	KindGovUKFinder   = "govuk-finder"
	KindGovUKSections = "govuk-sections"
	KindCrawl         = "crawl"
)

// Source lists the live documents of one scheme.
type Source interface {
	List(ctx context.Context) ([]models.SourceDocument, error)
}

// FetchError reports content that could not be fetched or parsed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPConfig configures the shared HTTP client.
type HTTPConfig struct {
	ProxyURL  string
	Timeout   time.Duration
	UserAgent string
}

// NewHTTPClient builds a client that routes through ProxyURL when set.
func NewHTTPClient(cfg HTTPConfig) (*http.Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	var rt http.RoundTripper = transport
	if cfg.UserAgent != "" {
		rt = userAgentTransport{next: transport, agent: cfg.UserAgent}
	}

	return &http.Client{Timeout: cfg.Timeout, Transport: rt}, nil
}

type userAgentTransport struct {
	next  http.RoundTripper
	agent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}

// Config describes one scheme's source.
type Config struct {
	Kind         string
	URL          string // content page, sectioned page or crawl start
	SearchURL    string // finder search API
	ContentURL   string // content API base joined with finder result links
	SkipSections int
	MaxDepth     int
}

// New builds the source for cfg. The crawl kind uses crawl; the GOV.UK
// kinds use govuk.
func New(cfg Config, govuk *GovUKClient, crawl CrawlConfig) (Source, error) {
	switch cfg.Kind {
	case KindGovUKContent:
		return &ContentSource{client: govuk, url: cfg.URL}, nil
	case KindGovUKFinder:
		return &FinderSource{client: govuk, searchURL: cfg.SearchURL, contentURL: cfg.ContentURL}, nil
	case KindGovUKSections:
		return &SectionsSource{client: govuk, url: cfg.URL, skip: cfg.SkipSections}, nil
	case KindCrawl:
		if cfg.MaxDepth > 0 {
			crawl.MaxDepth = cfg.MaxDepth
		}
		return NewCrawlSource(cfg.URL, crawl), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
