package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/chaptermark/internal/chapters"
	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/providers"
	"github.com/jackzampolin/chaptermark/internal/segment"
)

// EnvPrefix prefixes environment overrides, e.g. CHAPTERMARK_JOBS_STORE.
const EnvPrefix = "CHAPTERMARK"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// homeDir, when set, is searched for config.yaml after the working directory.
func NewManager(cfgFile, homeDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    logger,
	}

	if err := cm.initViper(cfgFile, homeDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, homeDir string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("llm_providers", defaults.LLMProviders)
	v.SetDefault("defaults.llm_provider", defaults.Defaults.LLMProvider)
	v.SetDefault("defaults.language", defaults.Defaults.Language)
	v.SetDefault("segmenter.gap_seconds", defaults.Segmenter.GapSeconds)
	v.SetDefault("labeler.max_attempts", defaults.Labeler.MaxAttempts)
	v.SetDefault("labeler.strict", defaults.Labeler.Strict)
	v.SetDefault("labeler.temperature", defaults.Labeler.Temperature)
	v.SetDefault("labeler.max_tokens", defaults.Labeler.MaxTokens)
	v.SetDefault("jobs.store", defaults.Jobs.Store)
	v.SetDefault("jobs.retention", defaults.Jobs.Retention)
	v.SetDefault("jobs.evict_interval", defaults.Jobs.EvictInterval)
	v.SetDefault("jobs.badger_path", defaults.Jobs.BadgerPath)
	v.SetDefault("jobs.redis_url", defaults.Jobs.RedisURL)
	v.SetDefault("jobs.redis_prefix", defaults.Jobs.RedisPrefix)

	// Environment variables with CHAPTERMARK_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if homeDir != "" {
			v.AddConfigPath(homeDir)
		}
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a validated Config.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Invalid edits are
// logged and the previous configuration stays in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		cm.logger.Info("config reloaded", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report yaml key names in errors.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d > 0
		})
	})
	return validate
}

// Validate checks field constraints and that the default provider exists.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if _, ok := c.LLMProviders[c.Defaults.LLMProvider]; !ok {
		return fmt.Errorf("invalid config: defaults.llm_provider %q is not defined in llm_providers", c.Defaults.LLMProvider)
	}
	return nil
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			APIKey:     ResolveEnvVars(llm.APIKey),
			BaseURL:    ResolveEnvVars(llm.BaseURL),
			RateLimit:  llm.RateLimit,
			MaxRetries: llm.MaxRetries,
			Timeout:    time.Duration(llm.TimeoutSeconds) * time.Second,
			Enabled:    llm.Enabled,
		}
	}

	return cfg
}

// CueSets compiles the configured cue overrides, sorted by language.
func (c *Config) CueSets() ([]*segment.CueSet, error) {
	langs := make([]string, 0, len(c.Segmenter.Cues))
	for lang := range c.Segmenter.Cues {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	sets := make([]*segment.CueSet, 0, len(langs))
	for _, lang := range langs {
		cue := c.Segmenter.Cues[lang]
		cs, err := segment.NewCueSet(strings.ToLower(lang), cue.Phrases, cue.WordBoundary)
		if err != nil {
			return nil, err
		}
		sets = append(sets, cs)
	}
	return sets, nil
}

// NewLabeler returns a labeler for client using the labeler section.
func (c *Config) NewLabeler(client providers.LLMClient) *chapters.Labeler {
	labeler := chapters.NewLabeler(client)
	labeler.Strict = c.Labeler.Strict
	labeler.Temperature = c.Labeler.Temperature
	if c.Labeler.MaxTokens > 0 {
		labeler.MaxTokens = c.Labeler.MaxTokens
	}
	if c.Labeler.MaxAttempts > 0 {
		labeler.MaxAttempts = c.Labeler.MaxAttempts
	}
	return labeler
}

// StoreConfig maps the jobs section onto a job store configuration.
// homeDir supplies the default badger location.
func (c *Config) StoreConfig(homeDir string) jobs.StoreConfig {
	path := c.Jobs.BadgerPath
	if path == "" && homeDir != "" {
		path = homeDir + string(os.PathSeparator) + "jobs"
	}
	return jobs.StoreConfig{
		Backend:     c.Jobs.Store,
		BadgerPath:  path,
		RedisURL:    ResolveEnvVars(c.Jobs.RedisURL),
		RedisPrefix: c.Jobs.RedisPrefix,
	}
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# chaptermark configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
