package cmd

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfenderov/docsync/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	cfg       config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "docsync: keep grant scheme search indices in sync with GOV.UK",
	Long: `docsync fetches grant scheme documents from their sources, detects what
changed since the last run, and keeps a full text index and a summary index
in Elasticsearch consistent with a per scheme manifest.

Commands:
  sync      Run a sync of all (or selected) schemes once
  serve     Start the HTTP trigger server
  mcp       Start the MCP server over stdio
  search    Search the indices
  manifest  Print stored manifests`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogger, initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/docsync")
		viper.AddConfigPath(".")
	}

	// DOCSYNC_ELASTICSEARCH_INDEX -> elasticsearch.index
	viper.SetEnvPrefix("DOCSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees env vars for keys viper knows about.
	for _, key := range []string{
		"elasticsearch.addresses",
		"elasticsearch.username",
		"elasticsearch.password",
		"elasticsearch.api_key",
		"elasticsearch.index",
		"elasticsearch.summary_index",
		"elasticsearch.dims",
		"embeddings.socket_path",
		"embeddings.base_url",
		"embeddings.api_key",
		"embeddings.api_version",
		"embeddings.model",
		"embeddings.requests_per_second",
		"llm.socket_path",
		"llm.base_url",
		"llm.api_key",
		"llm.api_version",
		"llm.model",
		"proxy.http",
		"proxy.https",
		"manifest.backend",
		"manifest.dir",
		"storage.endpoint",
		"storage.bucket",
		"storage.region",
		"storage.access_key_id",
		"storage.secret_access_key",
		"storage.use_ssl",
		"sync.concurrency",
		"sync.chunk_concurrency",
		"sync.lock_file",
		"http.addr",
	} {
		viper.BindEnv(key)
	}
	// Standard proxy variables apply when no DOCSYNC_PROXY_* is set.
	viper.BindEnv("proxy.http", "DOCSYNC_PROXY_HTTP", "HTTP_PROXY")
	viper.BindEnv("proxy.https", "DOCSYNC_PROXY_HTTPS", "HTTPS_PROXY")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Addresses may arrive as a comma separated env var.
	if addrs := os.Getenv("DOCSYNC_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}

// loadConfig returns the configuration after validating it.
func loadConfig() (config.Config, error) {
	c := GetConfig()
	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}
