package processor

import "testing"

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		content     string
		want        bool
	}{
		{"content-type", "https://example.com/page", "text/markdown; charset=utf-8", "random", true},
		{"x-markdown content-type", "https://example.com/page", "text/x-markdown", "random", true},
		{"url suffix", "https://example.com/README.md", "text/plain", "random", true},
		{"markdown suffix", "https://example.com/doc.markdown", "", "random", true},
		{"heading content", "https://example.com/page", "text/plain", "# Title\n\nSome content.", true},
		{"list content", "https://example.com/page", "", "intro\n- item one\n- item two", true},
		{"link content", "https://example.com/page", "", "[Link text](https://example.com)", true},
		{"html document", "https://example.com/page", "text/html", "<!DOCTYPE html><html><body># not</body></html>", false},
		{"html head", "https://example.com/page", "", "<head><title>x</title></head>", false},
		{"plain text", "https://example.com/page", "text/plain", "Just some plain text.", false},
		{"empty", "https://example.com/page", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMarkdown(tt.url, tt.contentType, tt.content); got != tt.want {
				t.Errorf("IsMarkdown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkdownTitle(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"# Hello\n\nBody", "Hello"},
		{"intro\n  # Indented  \n## Second", "Indented"},
		{"## Only h2\ntext", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MarkdownTitle(tt.content); got != tt.want {
			t.Errorf("MarkdownTitle(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}

func TestMarkdownURLVariants(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{"plain url", "https://example.com/docs/intro", []string{"https://example.com/docs/intro.md"}},
		{"trailing slash", "https://example.com/docs/intro/", []string{"https://example.com/docs/intro.md"}},
		{"github blob", "https://github.com/user/repo/blob/main/README.md", []string{"https://raw.githubusercontent.com/user/repo/main/README.md"}},
		{"already markdown", "https://example.com/README.md", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownURLVariants(tt.url)
			if len(got) != len(tt.want) {
				t.Fatalf("MarkdownURLVariants(%q) = %v, want %v", tt.url, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MarkdownURLVariants(%q)[%d] = %q, want %q", tt.url, i, got[i], tt.want[i])
				}
			}
		})
	}
}
