// Package chunker splits document text into bounded, ordered chunks.
package chunker

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default maximum number of runes per chunk.
const DefaultChunkSize = 2000

// defaultSeparators are tried in order, coarsest boundary first.
// Heading separators open the next piece; all others close the current one.
var defaultSeparators = []string{
	"\n# ",
	"\n## ",
	"\n### ",
	"\n\n",
	"\n",
	". ",
	"! ",
	"? ",
	" ",
}

// Input is the text to split plus the document it belongs to.
type Input struct {
	Text       string
	Title      string
	SchemeName string
	SourceURL  string
}

// Chunker splits text on semantic boundaries into chunks of at most
// a fixed number of runes.
type Chunker struct {
	size       int
	separators []string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:       DefaultChunkSize,
		separators: defaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split returns the chunk texts of in.Text in document order.
// Chunks are trimmed of surrounding whitespace and never empty; joined
// together they cover every non-whitespace character of the input.
func (c *Chunker) Split(in Input) []string {
	if strings.TrimSpace(in.Text) == "" {
		return nil
	}

	pieces := c.split(in.Text, 0)
	chunks := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p != "" {
			chunks = append(chunks, p)
		}
	}

	slog.Debug("split document",
		"title", in.Title,
		"scheme", in.SchemeName,
		"source_url", in.SourceURL,
		"runes", utf8.RuneCountInString(in.Text),
		"chunks", len(chunks))

	return chunks
}

// split returns consecutive substrings of text whose concatenation is
// exactly text, each at most c.size runes.
func (c *Chunker) split(text string, level int) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	if level >= len(c.separators) {
		return sliceRunes(text, c.size)
	}

	parts := splitKeep(text, c.separators[level])
	if len(parts) == 1 {
		return c.split(text, level+1)
	}

	var out []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, p := range parts {
		n := utf8.RuneCountInString(p)
		if n > c.size {
			flush()
			out = append(out, c.split(p, level+1)...)
			continue
		}
		if curLen+n > c.size {
			flush()
		}
		cur.WriteString(p)
		curLen += n
	}
	flush()

	return out
}

// splitKeep splits text on sep without dropping it. Heading separators
// stay at the start of the following part, others at the end of the
// preceding part.
func splitKeep(text, sep string) []string {
	leading := strings.HasPrefix(sep, "\n#")

	var parts []string
	start := 0
	for {
		from := start
		if leading {
			from = start + 1
		}
		i := strings.Index(text[from:], sep)
		if i < 0 {
			break
		}
		i += from

		cut := i + len(sep)
		if leading {
			cut = i
		}
		parts = append(parts, text[start:cut])
		start = cut
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// sliceRunes cuts text into pieces of n runes; the last may be shorter.
func sliceRunes(text string, n int) []string {
	var out []string
	for len(text) > 0 {
		end, count := 0, 0
		for end < len(text) && count < n {
			_, w := utf8.DecodeRuneInString(text[end:])
			end += w
			count++
		}
		out = append(out, text[:end])
		text = text[end:]
	}
	return out
}
