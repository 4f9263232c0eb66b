package config

import "time"

// Config holds chaptermark configuration.
// Stored at: ~/.chaptermark/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" validate:"dive"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Segmenter    SegmenterCfg              `mapstructure:"segmenter" yaml:"segmenter"`
	Labeler      LabelerCfg                `mapstructure:"labeler" yaml:"labeler"`
	Jobs         JobsCfg                   `mapstructure:"jobs" yaml:"jobs"`
}

// LLMProviderCfg configures a labeling oracle.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type" validate:"required,oneof=openai mock"`
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                                 // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`      // Any OpenAI-compatible endpoint
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`          // Requests per second
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"` // SDK transport retries
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider" validate:"required"`
	Language    string `mapstructure:"language" yaml:"language" validate:"required"`
}

// SegmenterCfg tunes topic grouping.
type SegmenterCfg struct {
	GapSeconds float64           `mapstructure:"gap_seconds" yaml:"gap_seconds" validate:"gt=0"`
	Cues       map[string]CueCfg `mapstructure:"cues" yaml:"cues,omitempty" validate:"dive"`
}

// CueCfg replaces or adds the transition phrases for one language.
type CueCfg struct {
	Phrases      []string `mapstructure:"phrases" yaml:"phrases" validate:"min=1,dive,required"`
	WordBoundary bool     `mapstructure:"word_boundary" yaml:"word_boundary"`
}

// LabelerCfg controls oracle requests and answer validation.
type LabelerCfg struct {
	MaxAttempts uint    `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=1,lte=10"`
	Strict      bool    `mapstructure:"strict" yaml:"strict"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
}

// JobsCfg selects the job store and retention.
type JobsCfg struct {
	Store         string `mapstructure:"store" yaml:"store" validate:"oneof=memory badger redis"`
	Retention     string `mapstructure:"retention" yaml:"retention" validate:"duration"`
	EvictInterval string `mapstructure:"evict_interval" yaml:"evict_interval" validate:"duration"`
	BadgerPath    string `mapstructure:"badger_path" yaml:"badger_path,omitempty"` // Defaults to ~/.chaptermark/jobs
	RedisURL      string `mapstructure:"redis_url" yaml:"redis_url,omitempty" validate:"required_if=Store redis"`
	RedisPrefix   string `mapstructure:"redis_prefix" yaml:"redis_prefix,omitempty"`
}

// RetentionDuration returns how long finished jobs are kept.
func (j JobsCfg) RetentionDuration() time.Duration {
	d, _ := time.ParseDuration(j.Retention)
	return d
}

// EvictIntervalDuration returns how often expired jobs are swept.
func (j JobsCfg) EvictIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(j.EvictInterval)
	return d
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      2.0,
				MaxRetries:     2,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openai",
			Language:    "en",
		},
		Segmenter: SegmenterCfg{
			GapSeconds: 5.0,
		},
		Labeler: LabelerCfg{
			MaxAttempts: 3,
			Strict:      true,
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Jobs: JobsCfg{
			Store:         "memory",
			Retention:     "24h",
			EvictInterval: "10m",
			RedisPrefix:   "chaptermark:job:",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
