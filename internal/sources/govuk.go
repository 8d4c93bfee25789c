package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mfenderov/docsync/internal/processor"
	"github.com/mfenderov/docsync/internal/retry"
	"github.com/mfenderov/docsync/pkg/models"
)

// GovUKClient reads pages from the GOV.UK content and search APIs.
type GovUKClient struct {
	http  *http.Client
	proc  *processor.Processor
	retry retry.Config
}

// NewGovUKClient creates a client over httpClient. Server errors are
// retried per retryCfg.
func NewGovUKClient(httpClient *http.Client, retryCfg retry.Config) *GovUKClient {
	return &GovUKClient{http: httpClient, proc: processor.New(), retry: retryCfg}
}

type contentItem struct {
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Details   struct {
		Body string `json:"body"`
	} `json:"details"`
}

// Content fetches one content API page as a document. url must include
// /api/content.
func (c *GovUKClient) Content(ctx context.Context, url string) (models.SourceDocument, error) {
	var item contentItem
	if err := c.getJSON(ctx, url, &item); err != nil {
		return models.SourceDocument{}, err
	}
	if item.Title == "" || item.Details.Body == "" {
		return models.SourceDocument{}, &FetchError{URL: url, Err: fmt.Errorf("unable to parse content")}
	}

	content, err := c.proc.ConvertPlain(item.Details.Body)
	if err != nil {
		return models.SourceDocument{}, &FetchError{URL: url, Err: err}
	}

	return models.SourceDocument{
		URL:          url,
		Title:        CleanTitle(item.Title),
		Content:      content,
		LastModified: item.UpdatedAt,
	}, nil
}

// CleanTitle drops the first backslash and turns the first slash into "or".
// Titles feed parent ids, so this must stay stable.
func CleanTitle(title string) string {
	title = strings.Replace(title, `\`, "", 1)
	return strings.Replace(title, "/", "or", 1)
}

func (c *GovUKClient) getJSON(ctx context.Context, url string, v any) error {
	body, err := retry.DoValue(ctx, c.retry, func() ([]byte, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &FetchError{URL: url, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

func (c *GovUKClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(&FetchError{URL: url, Err: err})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	slog.Debug("fetched", "url", url, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		fe := &FetchError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fe
		}
		return nil, retry.Permanent(fe)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}

// ContentSource is a scheme backed by a single content API page.
type ContentSource struct {
	client *GovUKClient
	url    string
}

func (s *ContentSource) List(ctx context.Context) ([]models.SourceDocument, error) {
	doc, err := s.client.Content(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return []models.SourceDocument{doc}, nil
}

// FinderSource lists every page of a GOV.UK finder via the search API.
type FinderSource struct {
	client     *GovUKClient
	searchURL  string
	contentURL string
}

type searchResults struct {
	Total   int `json:"total"`
	Results []struct {
		Link string `json:"link"`
	} `json:"results"`
}

// List asks the search API for the total, fetches that many results and
// then the content of each. Pages that fail to fetch are logged and
// skipped.
func (s *FinderSource) List(ctx context.Context) ([]models.SourceDocument, error) {
	var head searchResults
	if err := s.client.getJSON(ctx, s.searchURL, &head); err != nil {
		return nil, err
	}
	slog.Info("finder results", "url", s.searchURL, "total", head.Total)

	searchURL, err := withCount(s.searchURL, head.Total)
	if err != nil {
		return nil, err
	}
	var all searchResults
	if err := s.client.getJSON(ctx, searchURL, &all); err != nil {
		return nil, err
	}

	docs := make([]models.SourceDocument, 0, len(all.Results))
	for _, r := range all.Results {
		link := strings.TrimSuffix(s.contentURL, "/") + r.Link
		doc, err := s.client.Content(ctx, link)
		if err != nil {
			slog.Error("failed to fetch finder page", "url", link, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func withCount(rawURL string, count int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid search URL: %w", err)
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
