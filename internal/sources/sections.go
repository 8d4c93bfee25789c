package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/mfenderov/docsync/pkg/models"
)

// SectionsSource splits one content API page into a document per h2
// section. The first skip sections are dropped.
type SectionsSource struct {
	client *GovUKClient
	url    string
	skip   int
}

// Section is one h2-delimited part of a page body.
type Section struct {
	Title string
	HTML  string
}

func (s *SectionsSource) List(ctx context.Context) ([]models.SourceDocument, error) {
	var item contentItem
	if err := s.client.getJSON(ctx, s.url, &item); err != nil {
		return nil, err
	}
	if item.Details.Body == "" {
		return nil, &FetchError{URL: s.url, Err: fmt.Errorf("unable to parse content")}
	}

	sections, err := SplitSections(item.Details.Body)
	if err != nil {
		return nil, &FetchError{URL: s.url, Err: err}
	}
	if s.skip >= len(sections) {
		slog.Warn("no sections left after skipping", "url", s.url, "sections", len(sections), "skip", s.skip)
		return nil, nil
	}
	sections = sections[s.skip:]

	slugs := make(map[string]int, len(sections))
	docs := make([]models.SourceDocument, 0, len(sections))
	for _, sec := range sections {
		content, err := s.client.proc.ConvertPlain(sec.HTML)
		if err != nil {
			slog.Error("failed to convert section", "url", s.url, "section", sec.Title, "error", err)
			continue
		}

		slug := slugify(sec.Title)
		slugs[slug]++
		if n := slugs[slug]; n > 1 {
			slug = fmt.Sprintf("%s-%d", slug, n)
		}

		docs = append(docs, models.SourceDocument{
			URL:          s.url + "#" + slug,
			Title:        sec.Title,
			Content:      content,
			LastModified: item.UpdatedAt,
		})
	}
	return docs, nil
}

// SplitSections groups the children of the body's container div by h2.
// Elements before the first h2 form an untitled section.
func SplitSections(body string) ([]Section, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}

	children := doc.Find("body > div").First().Children()
	if children.Length() == 0 {
		children = doc.Find("body").Children()
	}

	var sections []Section
	var current Section
	var html strings.Builder
	flush := func() {
		current.HTML = html.String()
		if current.Title != "" || current.HTML != "" {
			sections = append(sections, current)
		}
		current = Section{}
		html.Reset()
	}

	children.Each(func(_ int, el *goquery.Selection) {
		if goquery.NodeName(el) == "h2" {
			flush()
			current.Title = strings.TrimSpace(el.Text())
			return
		}
		outer, err := goquery.OuterHtml(el)
		if err == nil {
			html.WriteString(outer)
		}
	})
	flush()

	return sections, nil
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "section"
	}
	return slug
}
