package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sony/gobreaker"
)

// DefaultSummaryTokenLimit is used when a caller passes a non-positive limit.
const DefaultSummaryTokenLimit = 100

// MaxContentForSummary limits content sent to the LLM for summarization.
const MaxContentForSummary = 20000

// Completer sends a prompt with a response token limit.
type Completer interface {
	CompleteWithMaxTokens(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Summarizer turns full text into a short text. It never fails; callers
// get an empty string when nothing usable can be produced.
type Summarizer interface {
	Summarize(ctx context.Context, text string, tokenLimit int) string
}

// BreakerConfig configures the circuit breaker in front of the LLM.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after most of a handful of calls fail, so a
// provider outage stops costing a request timeout per document.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      3,
	}
}

// SummaryService summarizes with an LLM and falls back to a local
// heuristic on any provider failure.
type SummaryService struct {
	llm     Completer
	breaker *gobreaker.CircuitBreaker
}

// NewSummaryService creates a summarizer in front of the given completer.
// A nil completer always uses the fallback.
func NewSummaryService(llm Completer, cfg BreakerConfig) *SummaryService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "summary",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &SummaryService{llm: llm, breaker: breaker}
}

// summaryPrompt asks for a summary in the tone of the source text.
func summaryPrompt(text string, tokenLimit int) string {
	return fmt.Sprintf(`Generate a summary of the following text without explaining that this is a summary. The result should be in the same tone and style as the original text. Limit the summary to %d tokens:
%s`, tokenLimit, text)
}

// Summarize returns a short text of roughly tokenLimit tokens.
func (s *SummaryService) Summarize(ctx context.Context, text string, tokenLimit int) string {
	if tokenLimit <= 0 {
		tokenLimit = DefaultSummaryTokenLimit
	}

	summary, err := s.generate(ctx, text, tokenLimit)
	if err == nil {
		return summary
	}

	slog.Warn("error generating summary, using fallback", "error", err)
	return FallbackSummary(text, tokenLimit)
}

func (s *SummaryService) generate(ctx context.Context, text string, tokenLimit int) (string, error) {
	if s.llm == nil {
		return "", errors.New("no LLM configured")
	}

	content := text
	if len(content) > MaxContentForSummary {
		content = content[:MaxContentForSummary]
		for len(content) > 0 && !utf8.ValidString(content) {
			content = content[:len(content)-1]
		}
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		resp, err := s.llm.CompleteWithMaxTokens(ctx, summaryPrompt(content, tokenLimit), tokenLimit)
		if err != nil {
			return nil, err
		}
		resp = strings.TrimSpace(strings.ReplaceAll(resp, "\n", " "))
		if resp == "" {
			return nil, errors.New("empty summary returned")
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// FallbackSummary takes the first tokenLimit whitespace-delimited words of
// text and cuts after the last sentence end or line break among them. With
// no such boundary the word-truncated text is returned as is. Empty,
// whitespace-only or invalid UTF-8 input yields "".
func FallbackSummary(text string, tokenLimit int) string {
	if !utf8.ValidString(text) || strings.TrimSpace(text) == "" {
		return ""
	}
	if tokenLimit <= 0 {
		tokenLimit = DefaultSummaryTokenLimit
	}

	window := strings.TrimSpace(firstWords(text, tokenLimit))

	if end := strings.LastIndexAny(window, ".!?\n"); end >= 0 {
		if cut := strings.TrimSpace(window[:end+1]); cut != "" {
			return cut
		}
	}
	return window
}

// firstWords returns the prefix of text ending with its n-th word,
// keeping the original whitespace between words.
func firstWords(text string, n int) string {
	words := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words++
				if words == n {
					return text[:i]
				}
			}
			inWord = false
			continue
		}
		inWord = true
	}
	return text
}
