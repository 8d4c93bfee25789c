package processor

import (
	"regexp"
	"strings"
)

var (
	headerPattern = regexp.MustCompile(`^#{1,6}\s+\S`)
	listPattern   = regexp.MustCompile(`(?m)^[\-\*]\s+\S`)
)

// IsMarkdown combines all detection methods to determine if content is markdown.
// Checks in order: Content-Type, URL, then content heuristics.
func IsMarkdown(url, contentType, content string) bool {
	if isMarkdownContentType(contentType) {
		return true
	}
	if isMarkdownURL(url) {
		return true
	}
	return isMarkdownContent(content)
}

func isMarkdownContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/markdown") ||
		strings.HasPrefix(ct, "text/x-markdown")
}

func isMarkdownURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasSuffix(lower, ".md") ||
		strings.HasSuffix(lower, ".markdown")
}

func isMarkdownContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || looksLikeHTML(trimmed) {
		return false
	}
	return headerPattern.MatchString(trimmed) ||
		listPattern.MatchString(trimmed) ||
		linkPattern.MatchString(trimmed)
}

func looksLikeHTML(content string) bool {
	lower := strings.ToLower(content)
	for _, prefix := range []string{"<!doctype", "<html", "<head", "<body"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// MarkdownTitle returns the first H1 heading of markdown content, or "".
func MarkdownTitle(content string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// MarkdownURLVariants returns potential markdown versions of a URL.
// GitHub blob URLs map to their raw form; URLs that already point at a
// markdown file have no variants.
func MarkdownURLVariants(url string) []string {
	if strings.Contains(url, "github.com") && strings.Contains(url, "/blob/") {
		raw := strings.Replace(url, "github.com", "raw.githubusercontent.com", 1)
		return []string{strings.Replace(raw, "/blob/", "/", 1)}
	}
	if isMarkdownURL(url) {
		return nil
	}
	return []string{strings.TrimSuffix(url, "/") + ".md"}
}
