package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	LLM           LLM           `mapstructure:"llm"`
	Proxy         Proxy         `mapstructure:"proxy"`
	Manifest      Manifest      `mapstructure:"manifest"`
	Storage       Storage       `mapstructure:"storage"`
	Sync          Sync          `mapstructure:"sync"`
	Crawl         Crawl         `mapstructure:"crawl"`
	HTTP          HTTP          `mapstructure:"http"`
	MCP           MCP           `mapstructure:"mcp"`
	Schemes       []Scheme      `mapstructure:"schemes" validate:"required,min=1,unique=Name,dive"`
}

// Elasticsearch holds ES connection configuration for both indices.
type Elasticsearch struct {
	Addresses    []string `mapstructure:"addresses" validate:"required,min=1,dive,url"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	APIKey       string   `mapstructure:"api_key"`
	Index        string   `mapstructure:"index" validate:"required"`
	SummaryIndex string   `mapstructure:"summary_index" validate:"required,nefield=Index"`
	Dims         int      `mapstructure:"dims" validate:"gt=0"`
}

// Embeddings holds embeddings generation configuration.
type Embeddings struct {
	SocketPath        string  `mapstructure:"socket_path"`
	BaseURL           string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string  `mapstructure:"api_key"`
	APIVersion        string  `mapstructure:"api_version"`
	Model             string  `mapstructure:"model" validate:"required"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	CacheSize         int     `mapstructure:"cache_size" validate:"gte=0"`
}

// LLM holds summary generation configuration. With neither a socket nor a
// base URL, summaries use the local fallback.
type LLM struct {
	SocketPath string `mapstructure:"socket_path"`
	BaseURL    string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
	Model      string `mapstructure:"model"`
}

// Enabled reports whether an LLM endpoint is configured.
func (l LLM) Enabled() bool {
	return l.SocketPath != "" || l.BaseURL != ""
}

// Proxy holds outbound proxy configuration.
type Proxy struct {
	HTTP  string `mapstructure:"http" validate:"omitempty,url"`
	HTTPS string `mapstructure:"https" validate:"omitempty,url"`
}

// Manifest selects where manifests are stored.
type Manifest struct {
	Backend string `mapstructure:"backend" validate:"oneof=s3 file"`
	Dir     string `mapstructure:"dir" validate:"required_if=Backend file"`
	Prefix  string `mapstructure:"prefix"`
}

// Storage holds S3/MinIO storage configuration.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Sync holds sync engine configuration.
type Sync struct {
	SummaryTokenLimit int           `mapstructure:"summary_token_limit" validate:"gt=0"`
	ChunkSize         int           `mapstructure:"chunk_size" validate:"gt=0"`
	Concurrency       int           `mapstructure:"concurrency" validate:"gt=0"`
	ChunkConcurrency  int           `mapstructure:"chunk_concurrency" validate:"gt=0"`
	LockFile          string        `mapstructure:"lock_file" validate:"required"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// Crawl holds defaults for crawl sources.
type Crawl struct {
	Delay            time.Duration `mapstructure:"delay"`
	MaxDepth         int           `mapstructure:"max_depth" validate:"gte=0"`
	FollowLinks      bool          `mapstructure:"follow_links"`
	TryMarkdownFirst bool          `mapstructure:"try_markdown_first"`
}

// HTTP holds the trigger server configuration.
type HTTP struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Scheme defines one grant scheme and where its documents come from.
type Scheme struct {
	Name         string `mapstructure:"name" validate:"required"`
	SchemeName   string `mapstructure:"scheme_name" validate:"required"`
	ManifestFile string `mapstructure:"manifest_file" validate:"required,endswith=.json"`
	Kind         string `mapstructure:"kind" validate:"oneof=govuk-content govuk-finder govuk-sections crawl"`
	URL          string `mapstructure:"url" validate:"required_unless=Kind govuk-finder"`
	SearchURL    string `mapstructure:"search_url" validate:"required_if=Kind govuk-finder"`
	ContentURL   string `mapstructure:"content_url" validate:"required_if=Kind govuk-finder"`
	SkipSections int    `mapstructure:"skip_sections" validate:"gte=0"`
	MaxDepth     int    `mapstructure:"max_depth" validate:"gte=0"`
}

// ProxyURL returns the https proxy if set, else the http proxy.
func (c Config) ProxyURL() string {
	if c.Proxy.HTTPS != "" {
		return c.Proxy.HTTPS
	}
	return c.Proxy.HTTP
}

// SchemeNames returns the configured scheme names in order.
func (c Config) SchemeNames() []string {
	names := make([]string, len(c.Schemes))
	for i, s := range c.Schemes {
		names[i] = s.Name
	}
	return names
}

// Scheme looks up a scheme by name.
func (c Config) Scheme(name string) (Scheme, bool) {
	for _, s := range c.Schemes {
		if s.Name == name {
			return s, true
		}
	}
	return Scheme{}, false
}

// Validate checks the configuration and reports every invalid field.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), tagWithParam(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func tagWithParam(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// Defaults returns a Config with sensible default values and the four
// GOV.UK grant schemes.
func Defaults() Config {
	return Config{
		Elasticsearch: Elasticsearch{
			Addresses:    []string{"http://localhost:9200"},
			Index:        "docsync-chunks",
			SummaryIndex: "docsync-summaries",
			Dims:         1536,
		},
		Embeddings: Embeddings{
			Model:      "text-embedding-3-small",
			Burst:      1,
			MaxRetries: 3,
			CacheSize:  4096,
		},
		LLM: LLM{
			Model: "ai/gemma3",
		},
		Manifest: Manifest{
			Backend: "s3",
			Dir:     "./data/manifests",
		},
		Storage: Storage{
			Endpoint:        "localhost:9002",
			Bucket:          "docsync",
			Region:          "eu-west-2",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Sync: Sync{
			SummaryTokenLimit: 100,
			ChunkSize:         2000,
			Concurrency:       1,
			ChunkConcurrency:  4,
			LockFile:          "./data/docsync.lock",
			FetchTimeout:      30 * time.Second,
			UserAgent:         "docsync/1.0",
		},
		Crawl: Crawl{
			Delay:            1 * time.Second,
			MaxDepth:         3,
			FollowLinks:      true,
			TryMarkdownFirst: true,
		},
		HTTP: HTTP{
			Addr:            ":3001",
			ShutdownTimeout: 30 * time.Second,
		},
		MCP: MCP{
			Name:    "docsync",
			Version: "1.0.0",
		},
		Schemes: []Scheme{
			{
				Name:         "farmingFinder",
				SchemeName:   "Sustainable Farming Incentive (SFI)",
				ManifestFile: "manifest-farming-finder.json",
				Kind:         "govuk-finder",
				SearchURL:    "https://www.gov.uk/api/search.json?filter_format=farming_grant",
				ContentURL:   "https://www.gov.uk/api/content",
			},
			{
				Name:         "woodlandCreationPartnership",
				SchemeName:   "England Woodland Creation Partnerships grants",
				ManifestFile: "manifest-woodland-creation.json",
				Kind:         "govuk-sections",
				URL:          "https://www.gov.uk/api/content/government/publications/england-woodland-creation-partnerships-grants-and-advice-table/england-woodland-creation-partnerships-grants-and-advice-table",
				SkipSections: 5,
			},
			{
				Name:         "vetVisits",
				SchemeName:   "Vet Visits",
				ManifestFile: "manifest-vet-visits.json",
				Kind:         "govuk-content",
				URL:          "https://www.gov.uk/api/content/government/collections/funding-to-improve-animal-health-and-welfare-guidance-for-farmers-and-vets",
			},
			{
				Name:         "woodlandOffer",
				SchemeName:   "England Woodland Creation Offer",
				ManifestFile: "manifest-woodland-offer.json",
				Kind:         "govuk-content",
				URL:          "https://www.gov.uk/api/content/guidance/england-woodland-creation-offer",
			},
		},
	}
}
