package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once at
// startup and passed by value into every component constructor; nothing
// reads ambient state after Load returns.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Tracker   TrackerConfig   `yaml:"tracker" mapstructure:"tracker"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the key-value store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// JinaConfig holds Jina AI Search/Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// OpenAIConfig holds OpenAI API settings for the alternate model family.
type OpenAIConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds Notion export settings.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	ParentPage string `yaml:"parent_page" mapstructure:"parent_page"`
}

// EnrichConfig holds entity-lookup settings. Enrichment is disabled
// when Endpoint is empty.
type EnrichConfig struct {
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	Key         string `yaml:"key" mapstructure:"key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig configures the rate-limited search client.
type SearchConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	InterCallDelayMS  int     `yaml:"inter_call_delay_ms" mapstructure:"inter_call_delay_ms"`
	MaxResults        int     `yaml:"max_results" mapstructure:"max_results"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// InterCallDelay returns the enforced delay between sequential queries.
func (c SearchConfig) InterCallDelay() time.Duration {
	return time.Duration(c.InterCallDelayMS) * time.Millisecond
}

// FetchConfig configures batch content fetching.
type FetchConfig struct {
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxContentKB   int    `yaml:"max_content_kb" mapstructure:"max_content_kb"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheConfig configures the intelligence cache.
type CacheConfig struct {
	TTLHours          int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	CompressThreshold int `yaml:"compress_threshold" mapstructure:"compress_threshold"`
}

// TrackerConfig configures async request persistence.
type TrackerConfig struct {
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// PipelineConfig configures pipeline thresholds and caps.
type PipelineConfig struct {
	SnippetRelevancyThreshold float64 `yaml:"snippet_relevancy_threshold" mapstructure:"snippet_relevancy_threshold"`
	ContentRelevancyThreshold float64 `yaml:"content_relevancy_threshold" mapstructure:"content_relevancy_threshold"`
	MaxSelectiveFetches       int     `yaml:"max_selective_fetches" mapstructure:"max_selective_fetches"`
	MaxSources                int     `yaml:"max_sources" mapstructure:"max_sources"`
	MaxSnippets               int     `yaml:"max_snippets" mapstructure:"max_snippets"`
}

// WorkflowConfig configures the external workflow engine client.
type WorkflowConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "intel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("enrich.timeout_secs", 10)
	v.SetDefault("search.requests_per_second", 1.0)
	v.SetDefault("search.inter_call_delay_ms", 1100)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_content_kb", 256)
	v.SetDefault("fetch.max_concurrency", 10)
	v.SetDefault("fetch.user_agent", "intel-cli/1.0")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.compress_threshold", 4096)
	v.SetDefault("tracker.ttl_hours", 48)
	v.SetDefault("pipeline.snippet_relevancy_threshold", 0.05)
	v.SetDefault("pipeline.content_relevancy_threshold", 0.2)
	v.SetDefault("pipeline.max_selective_fetches", 3)
	v.SetDefault("pipeline.max_sources", 30)
	v.SetDefault("pipeline.max_snippets", 15)
	v.SetDefault("workflow.host_port", "localhost:7233")
	v.SetDefault("workflow.namespace", "default")
	v.SetDefault("workflow.task_queue", "intel-research")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
