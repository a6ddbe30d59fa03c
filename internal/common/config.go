package common

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	OpenAI      VendorConfig      `toml:"openai"`
	Anthropic   VendorConfig      `toml:"anthropic"`
	Gemini      VendorConfig      `toml:"gemini"`
	Groq        VendorConfig      `toml:"groq"`
	OpenRouter  VendorConfig      `toml:"openrouter"`
	HuggingFace VendorConfig      `toml:"huggingface"`
	Sources     SourcesConfig     `toml:"sources"`
	Search      SearchConfig      `toml:"search"`
	Images      ImagesConfig      `toml:"images"`
	Publisher   PublisherConfig   `toml:"publisher"`
	Writer      WriterConfig      `toml:"writer"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	KB          KnowledgeBaseConf `toml:"kb"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	Dir        string   `toml:"dir"`         // Log directory (default: "./logs")
	TimeFormat string   `toml:"time_format"` // Time format for log lines
}

// PipelineConfig controls which stages run and the politeness delays between them
type PipelineConfig struct {
	Mode               string `toml:"mode" validate:"oneof=both kb_only triggers_only"`
	DeepResearch       bool   `toml:"deep_research"`        // Run two rounds of search-driven research before writing
	Interlink          bool   `toml:"interlink"`            // Append related posts to the article
	SourceDelay        string `toml:"source_delay"`         // Pause after each source fetch (default: "2s")
	WriteDelay         string `toml:"write_delay"`          // Pause before the article call (default: "3s")
	TopicHistory       int    `toml:"topic_history" validate:"min=1,max=50"`
	SourceExcerptChars int    `toml:"source_excerpt_chars"` // Characters of each source passed to the writer
	MaxSourceExcerpts  int    `toml:"max_source_excerpts"`  // Supplementary sources passed to the writer
	AngleMaxTokens     int    `toml:"angle_max_tokens"`
	TopicMaxTokens     int    `toml:"topic_max_tokens"`
}

// RetrievalConfig holds the vector store tuning values
type RetrievalConfig struct {
	ChunkSize      int     `toml:"chunk_size" validate:"gt=0"`             // Target chunk length in characters (default: 800)
	RelevanceFloor float64 `toml:"relevance_floor" validate:"gte=-1,lt=1"` // Results at or below this score are discarded (default: 0.4)
	ContextLimit   int     `toml:"context_limit" validate:"gt=0"`          // KB chunks retrieved for a trigger item (default: 3)
	KBTopicLimit   int     `toml:"kb_topic_limit" validate:"gt=0"`         // KB chunks retrieved for a kb_only topic (default: 5)
	SummarySamples int     `toml:"summary_samples"`                        // Random snippets in the brief summary (default: 5)
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider         string `toml:"provider" validate:"oneof=openai gemini huggingface"`
	OpenAIModel      string `toml:"openai_model"`
	GeminiModel      string `toml:"gemini_model"`
	GeminiDimensions int    `toml:"gemini_dimensions"`
	HuggingFaceModel string `toml:"huggingface_model"`
	HuggingFaceURL   string `toml:"huggingface_url"` // Inference endpoint serving feature-extraction pipelines
}

// LLMConfig contains provider-agnostic completion settings
type LLMConfig struct {
	Model         string  `toml:"model"`          // Default model; the provider is inferred from its prefix
	Provider      string  `toml:"provider"`       // Explicit provider, overrides inference when set
	Temperature   float32 `toml:"temperature"`    // Default temperature (default: 0.7)
	MaxTokens     int     `toml:"max_tokens"`     // Default max tokens (default: 4096)
	SmartFallback bool    `toml:"smart_fallback"` // Reroute to another vendor when a call fails
	MaxAttempts   int     `toml:"max_attempts" validate:"min=1"`
	MaxRetries    int     `toml:"max_retries"` // Rate-limit retries per call
	Timeout       string  `toml:"timeout"`     // Per-call timeout (default: "5m")
}

// VendorConfig contains credentials and model choices for one AI vendor
type VendorConfig struct {
	APIKey        string `toml:"api_key"`
	Model         string `toml:"model"`          // Model used when this vendor is the primary
	FallbackModel string `toml:"fallback_model"` // Model used when this vendor is a fallback route
	BaseURL       string `toml:"base_url"`
}

// SourcesConfig controls the content source adapters
type SourcesConfig struct {
	MaxItems       int    `toml:"max_items"`       // Items taken from each feed or page
	UserAgent      string `toml:"user_agent"`
	RequestTimeout string `toml:"request_timeout"` // HTTP timeout (default: "30s")
}

// SearchConfig selects the web search engine used by web_search sources and deep research
type SearchConfig struct {
	Provider      string `toml:"provider" validate:"oneof=serpapi brave duckduckgo"`
	Mode          string `toml:"mode" validate:"oneof=google_ai_mode bing_copilot google_ai_overview google_standard"`
	SerpAPIKey    string `toml:"serpapi_key"`
	BraveAPIKey   string `toml:"brave_api_key"`
	MaxResults    int    `toml:"max_results"`
	RateLimit     int    `toml:"rate_limit"` // Requests per second
	SerpAPIURL    string `toml:"serpapi_url"`
	BraveURL      string `toml:"brave_url"`
	DuckDuckGoURL string `toml:"duckduckgo_url"`
}

// ImagesConfig selects how thumbnails are produced
type ImagesConfig struct {
	Mode         string `toml:"mode" validate:"oneof=ai stock openverse fallback none"`
	PexelsAPIKey string `toml:"pexels_api_key"`
	PexelsURL    string `toml:"pexels_url"`
	OpenverseURL string `toml:"openverse_url"`
	Model        string `toml:"model"`      // Image generation model for "ai" mode
	OutputDir    string `toml:"output_dir"` // Where generated images are written
}

// PublisherConfig selects the publishing collaborator
type PublisherConfig struct {
	Type      string          `toml:"type" validate:"oneof=local wordpress"`
	OutputDir string          `toml:"output_dir"` // Where the local publisher writes rendered posts; empty disables files
	WordPress WordPressConfig `toml:"wordpress"`
}

// WordPressConfig contains WordPress REST API access
type WordPressConfig struct {
	BaseURL     string `toml:"base_url"`
	Username    string `toml:"username"`
	AppPassword string `toml:"app_password"`
	Status      string `toml:"status"` // "draft" or "publish"
}

// WriterConfig shapes the article prompt
type WriterConfig struct {
	StyleGuide string   `toml:"style_guide"`
	Language   string   `toml:"language"`
	Categories []string `toml:"categories"` // Site categories the model may choose from
	MinWords   int      `toml:"min_words"`
}

// SchedulerConfig controls the cron trigger
type SchedulerConfig struct {
	Schedule string `toml:"schedule"` // Cron schedule format
}

// KnowledgeBaseConf controls KB file loading limits
type KnowledgeBaseConf struct {
	Dir                string `toml:"dir"` // Where added KB files are copied
	MaxSpreadsheetRows int    `toml:"max_spreadsheet_rows"`
	MaxDocumentChars   int    `toml:"max_document_chars"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			Dir:        "./logs",
			TimeFormat: "15:04:05",
		},
		Pipeline: PipelineConfig{
			Mode:               "both",
			DeepResearch:       false,
			Interlink:          true,
			SourceDelay:        "2s",
			WriteDelay:         "3s",
			TopicHistory:       20,
			SourceExcerptChars: 1200,
			MaxSourceExcerpts:  5,
			AngleMaxTokens:     300,
			TopicMaxTokens:     60,
		},
		Retrieval: RetrievalConfig{
			ChunkSize:      800,
			RelevanceFloor: 0.4,
			ContextLimit:   3,
			KBTopicLimit:   5,
			SummarySamples: 5,
		},
		Embedding: EmbeddingConfig{
			Provider:         "openai",
			OpenAIModel:      "text-embedding-3-small",
			GeminiModel:      "gemini-embedding-001",
			GeminiDimensions: 768,
			HuggingFaceModel: "sentence-transformers/all-MiniLM-L6-v2",
			HuggingFaceURL:   "https://router.huggingface.co/hf-inference",
		},
		LLM: LLMConfig{
			Model:         "gpt-4o-mini",
			Temperature:   0.7,
			MaxTokens:     4096,
			SmartFallback: false, // Fail closed unless explicitly enabled
			MaxAttempts:   3,
			MaxRetries:    2,
			Timeout:       "5m",
		},
		OpenAI: VendorConfig{
			Model:         "gpt-4o-mini",
			FallbackModel: "gpt-4o-mini",
			BaseURL:       "https://api.openai.com/v1",
		},
		Anthropic: VendorConfig{
			Model:         "claude-3-5-haiku-latest",
			FallbackModel: "claude-3-5-haiku-latest",
		},
		Gemini: VendorConfig{
			Model:         "gemini-2.0-flash",
			FallbackModel: "gemini-2.0-flash",
		},
		Groq: VendorConfig{
			Model:         "llama-3.3-70b-versatile",
			FallbackModel: "llama-3.3-70b-versatile",
			BaseURL:       "https://api.groq.com/openai/v1",
		},
		OpenRouter: VendorConfig{
			Model:         "openrouter/auto",
			FallbackModel: "openrouter/auto",
			BaseURL:       "https://openrouter.ai/api/v1",
		},
		HuggingFace: VendorConfig{
			Model:         "meta-llama/Llama-3.1-8B-Instruct",
			FallbackModel: "meta-llama/Llama-3.1-8B-Instruct",
			BaseURL:       "https://router.huggingface.co/v1",
		},
		Sources: SourcesConfig{
			MaxItems:       10,
			UserAgent:      "Mozilla/5.0 (compatible; Scribe/1.0; +https://github.com/ternarybob/scribe)",
			RequestTimeout: "30s",
		},
		Search: SearchConfig{
			Provider:      "duckduckgo",
			Mode:          "google_standard",
			MaxResults:    5,
			RateLimit:     1,
			SerpAPIURL:    "https://serpapi.com/search.json",
			BraveURL:      "https://api.search.brave.com/res/v1/web/search",
			DuckDuckGoURL: "https://html.duckduckgo.com/html/",
		},
		Images: ImagesConfig{
			Mode:         "fallback",
			PexelsURL:    "https://api.pexels.com/v1",
			OpenverseURL: "https://api.openverse.org/v1",
			Model:        "imagen-3.0-generate-002",
			OutputDir:    "./data/images",
		},
		Publisher: PublisherConfig{
			Type:      "local",
			OutputDir: "./data/posts",
			WordPress: WordPressConfig{
				Status: "draft",
			},
		},
		Writer: WriterConfig{
			Language:   "English",
			Categories: []string{"News", "Opinion", "Guides"},
			MinWords:   800,
		},
		Scheduler: SchedulerConfig{
			Schedule: "0 */6 * * *", // Every 6 hours
		},
		KB: KnowledgeBaseConf{
			Dir:                "./data/kb",
			MaxSpreadsheetRows: 2500,
			MaxDocumentChars:   200000,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks enumerations and ranges
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &interfaces.ConfigurationError{Key: "config", Message: err.Error()}
	}
	for _, d := range []struct{ key, value string }{
		{"pipeline.source_delay", c.Pipeline.SourceDelay},
		{"pipeline.write_delay", c.Pipeline.WriteDelay},
		{"llm.timeout", c.LLM.Timeout},
		{"sources.request_timeout", c.Sources.RequestTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return &interfaces.ConfigurationError{Key: d.key, Message: err.Error()}
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRIBE_ENV"); env != "" {
		config.Environment = env
	}

	// Storage
	if path := os.Getenv("SCRIBE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	// Logging
	if level := os.Getenv("SCRIBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCRIBE_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}

	// Pipeline
	if mode := os.Getenv("SCRIBE_PIPELINE_MODE"); mode != "" {
		config.Pipeline.Mode = mode
	}
	if v := os.Getenv("SCRIBE_PIPELINE_DEEP_RESEARCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Pipeline.DeepResearch = b
		}
	}
	if v := os.Getenv("SCRIBE_PIPELINE_SOURCE_DELAY"); v != "" {
		config.Pipeline.SourceDelay = v
	}
	if v := os.Getenv("SCRIBE_PIPELINE_WRITE_DELAY"); v != "" {
		config.Pipeline.WriteDelay = v
	}

	// Retrieval
	if v := os.Getenv("SCRIBE_RETRIEVAL_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Retrieval.ChunkSize = n
		}
	}
	if v := os.Getenv("SCRIBE_RETRIEVAL_RELEVANCE_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Retrieval.RelevanceFloor = f
		}
	}

	// Embedding
	if v := os.Getenv("SCRIBE_EMBEDDING_PROVIDER"); v != "" {
		config.Embedding.Provider = v
	}

	// LLM
	if model := os.Getenv("SCRIBE_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if provider := os.Getenv("SCRIBE_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if v := os.Getenv("SCRIBE_LLM_SMART_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.LLM.SmartFallback = b
		}
	}
	if v := os.Getenv("SCRIBE_LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil {
			config.LLM.Temperature = float32(t)
		}
	}

	// Vendor credentials. Standard vendor variables first, SCRIBE_ prefix takes priority.
	vendors := []struct {
		cfg  *VendorConfig
		envs []string
	}{
		{&config.OpenAI, []string{"OPENAI_API_KEY", "SCRIBE_OPENAI_API_KEY"}},
		{&config.Anthropic, []string{"ANTHROPIC_API_KEY", "SCRIBE_ANTHROPIC_API_KEY"}},
		{&config.Gemini, []string{"GOOGLE_API_KEY", "GEMINI_API_KEY", "SCRIBE_GEMINI_API_KEY"}},
		{&config.Groq, []string{"GROQ_API_KEY", "SCRIBE_GROQ_API_KEY"}},
		{&config.OpenRouter, []string{"OPENROUTER_API_KEY", "SCRIBE_OPENROUTER_API_KEY"}},
		{&config.HuggingFace, []string{"HF_TOKEN", "HUGGINGFACE_API_KEY", "SCRIBE_HUGGINGFACE_API_KEY"}},
	}
	for _, v := range vendors {
		for _, name := range v.envs {
			if key := os.Getenv(name); key != "" {
				v.cfg.APIKey = key
			}
		}
	}

	// Search and images
	if key := os.Getenv("SERPAPI_API_KEY"); key != "" {
		config.Search.SerpAPIKey = key
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		config.Search.BraveAPIKey = key
	}
	if provider := os.Getenv("SCRIBE_SEARCH_PROVIDER"); provider != "" {
		config.Search.Provider = provider
	}
	if key := os.Getenv("PEXELS_API_KEY"); key != "" {
		config.Images.PexelsAPIKey = key
	}
	if mode := os.Getenv("SCRIBE_IMAGES_MODE"); mode != "" {
		config.Images.Mode = mode
	}

	// Publisher
	if t := os.Getenv("SCRIBE_PUBLISHER_TYPE"); t != "" {
		config.Publisher.Type = t
	}
	if u := os.Getenv("SCRIBE_WORDPRESS_URL"); u != "" {
		config.Publisher.WordPress.BaseURL = u
	}
	if u := os.Getenv("SCRIBE_WORDPRESS_USERNAME"); u != "" {
		config.Publisher.WordPress.Username = u
	}
	if p := os.Getenv("SCRIBE_WORDPRESS_APP_PASSWORD"); p != "" {
		config.Publisher.WordPress.AppPassword = p
	}

	// Scheduler
	if schedule := os.Getenv("SCRIBE_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}

// apiKeyEnvVars maps KV store key names to environment variables, highest priority last
var apiKeyEnvVars = map[string][]string{
	"openai_api_key":         {"OPENAI_API_KEY", "SCRIBE_OPENAI_API_KEY"},
	"anthropic_api_key":      {"ANTHROPIC_API_KEY", "SCRIBE_ANTHROPIC_API_KEY"},
	"gemini_api_key":         {"GOOGLE_API_KEY", "GEMINI_API_KEY", "SCRIBE_GEMINI_API_KEY"},
	"groq_api_key":           {"GROQ_API_KEY", "SCRIBE_GROQ_API_KEY"},
	"openrouter_api_key":     {"OPENROUTER_API_KEY", "SCRIBE_OPENROUTER_API_KEY"},
	"huggingface_api_key":    {"HF_TOKEN", "HUGGINGFACE_API_KEY", "SCRIBE_HUGGINGFACE_API_KEY"},
	"serpapi_api_key":        {"SERPAPI_API_KEY"},
	"brave_api_key":          {"BRAVE_API_KEY"},
	"pexels_api_key":         {"PEXELS_API_KEY"},
	"wordpress_app_password": {"SCRIBE_WORDPRESS_APP_PASSWORD"},
}

// APIKeyEnvVars lists the environment variables consulted for a named key
func APIKeyEnvVars(name string) []string {
	return append([]string(nil), apiKeyEnvVars[name]...)
}

// APIKeyNames returns the known credential names in sorted order
func APIKeyNames() []string {
	names := make([]string, 0, len(apiKeyEnvVars))
	for name := range apiKeyEnvVars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables → KV store → config fallback → ConfigurationError
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	envs := apiKeyEnvVars[name]
	for i := len(envs) - 1; i >= 0; i-- {
		if value := os.Getenv(envs[i]); value != "" {
			return value, nil
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", interfaces.NewConfigurationError(name)
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
