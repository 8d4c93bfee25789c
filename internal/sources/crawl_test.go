package sources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCrawlSource_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
		w.Write([]byte(`
			<html>
			<head><title>Test Page</title></head>
			<body>
				<h1>Hello World</h1>
				<p>This is a <a href="/x">test</a> page.</p>
			</body>
			</html>
		`))
	}))
	defer server.Close()

	s := NewCrawlSource(server.URL, CrawlConfig{
		Delay:     10 * time.Millisecond,
		MaxDepth:  1,
		UserAgent: "test-agent",
	})

	docs, err := s.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	doc := docs[0]
	if !strings.HasPrefix(doc.URL, server.URL) {
		t.Errorf("URL = %q, want prefix %q", doc.URL, server.URL)
	}
	if doc.Title != "Test Page" {
		t.Errorf("Title = %q, want %q", doc.Title, "Test Page")
	}
	if !strings.Contains(doc.Content, "# Hello World") {
		t.Errorf("Content should contain markdown heading, got %q", doc.Content)
	}
	if !strings.Contains(doc.Content, "This is a test page.") {
		t.Errorf("links should be stripped, got %q", doc.Content)
	}
	want := time.Date(2015, 10, 21, 7, 28, 0, 0, time.UTC)
	if !doc.LastModified.Equal(want) {
		t.Errorf("LastModified = %v, want %v", doc.LastModified, want)
	}
}

func TestCrawlSource_FallsBackToFetchTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		w.Write([]byte("# Notes\n\nPlain [markdown](http://x) page."))
	}))
	defer server.Close()

	fetched := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewCrawlSource(server.URL+"/notes.md", CrawlConfig{MaxDepth: 1})
	s.now = func() time.Time { return fetched }

	docs, err := s.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "Notes" {
		t.Errorf("Title = %q, want Notes", docs[0].Title)
	}
	if docs[0].Content != "# Notes\n\nPlain markdown page." {
		t.Errorf("Content = %q", docs[0].Content)
	}
	if !docs[0].LastModified.Equal(fetched) {
		t.Errorf("LastModified = %v, want fetch time %v", docs[0].LastModified, fetched)
	}
}

func TestCrawlSource_FollowsLinksWithinDomain(t *testing.T) {
	pages := map[string]string{
		"/": `<html><head><title>Home</title></head><body>
			<a href="/page1">Page 1</a>
			<a href="/page2#part">Page 2</a>
			<a href="https://elsewhere.invalid/">Away</a>
		</body></html>`,
		"/page1": `<html><head><title>Page 1</title></head><body><h1>Page 1 Content</h1></body></html>`,
		"/page2": `<html><head><title>Page 2</title></head><body><h1>Page 2 Content</h1></body></html>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if content, ok := pages[r.URL.Path]; ok {
			w.Write([]byte(content))
		} else {
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := NewCrawlSource(server.URL, CrawlConfig{
		Delay:       10 * time.Millisecond,
		MaxDepth:    2,
		FollowLinks: true,
		UserAgent:   "test-agent",
	})

	docs, err := s.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	urls := make(map[string]bool)
	for _, doc := range docs {
		urls[doc.URL] = true
	}
	if !urls[server.URL+"/page1"] {
		t.Error("should have crawled /page1")
	}
	if !urls[server.URL+"/page2"] {
		t.Error("should have crawled /page2 without its fragment")
	}
	if len(docs) != 3 {
		t.Errorf("expected 3 documents, got %d", len(docs))
	}
}

func TestCrawlSource_RespectsMaxDepth(t *testing.T) {
	pages := map[string]string{
		"/":       `<html><body><a href="/level1">Level 1</a></body></html>`,
		"/level1": `<html><body><a href="/level2">Level 2</a></body></html>`,
		"/level2": `<html><body><a href="/level3">Level 3</a></body></html>`,
		"/level3": `<html><body>Deep content</body></html>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if content, ok := pages[r.URL.Path]; ok {
			w.Write([]byte(content))
		}
	}))
	defer server.Close()

	s := NewCrawlSource(server.URL, CrawlConfig{
		Delay:       10 * time.Millisecond,
		MaxDepth:    2,
		FollowLinks: true,
	})

	docs, err := s.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	urls := make(map[string]bool)
	for _, doc := range docs {
		urls[doc.URL] = true
	}
	if !urls[server.URL+"/level1"] {
		t.Error("should have crawled /level1 (depth 2)")
	}
	if urls[server.URL+"/level3"] {
		t.Error("should NOT have crawled /level3 (beyond max depth)")
	}
}

func TestCrawlSource_HandlesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Error", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewCrawlSource(server.URL, CrawlConfig{MaxDepth: 1})

	docs, err := s.List(t.Context())
	if err != nil {
		t.Logf("List returned error (acceptable): %v", err)
	}
	if len(docs) > 0 {
		t.Errorf("expected 0 documents for error response, got %d", len(docs))
	}
}

func TestCrawlSource_TryMarkdownFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guide":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><head><title>HTML Guide</title></head><body><p>html</p></body></html>`))
		case "/guide.md":
			w.Header().Set("Content-Type", "text/markdown")
			w.Write([]byte("# Markdown Guide\n\nmd body"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := NewCrawlSource(server.URL+"/guide", CrawlConfig{MaxDepth: 1, TryMarkdownFirst: true})

	docs, err := s.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "Markdown Guide" {
		t.Errorf("Title = %q, want Markdown Guide", docs[0].Title)
	}
	if docs[0].URL != server.URL+"/guide" {
		t.Errorf("URL = %q, want the crawled page url", docs[0].URL)
	}
}
