package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "GENEGPT"

	configDir  = ".genegpt"
	configName = "config.toml"
)

const (
	KeyMaxTurns         = "agent.max_turns"
	KeyMaxRetries       = "agent.max_retries"
	KeyRetryDelay       = "agent.retry_delay"
	KeyToolUse          = "agent.tool_use"
	KeyWorkers          = "scheduler.workers"
	KeyRateCapacity     = "ratelimit.capacity"
	KeyRatePacing       = "ratelimit.pacing"
	KeyNCBIBaseURL      = "ncbi.base_url"
	KeyBlastBaseURL     = "blast.base_url"
	KeyBlastInitialWait = "blast.initial_wait"
	KeyBlastRetryWait   = "blast.retry_wait"
	KeyBlastMaxRetries  = "blast.max_retries"
	KeyWebSearchEnabled = "websearch.enabled"
	KeyWebSearchURL     = "websearch.endpoint"
	KeyWebSearchQPS     = "websearch.qps"
	KeyCacheRedisURL    = "cache.redis_url"
	KeyCacheTTL         = "cache.ttl"
	KeyCachePrefix      = "cache.prefix"
	KeyModelProvider    = "model.provider"
	KeyModelName        = "model.name"
	KeyModelBaseURL     = "model.base_url"
	KeyRunsPath         = "runs.path"
)

type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	NCBI      NCBIConfig      `mapstructure:"ncbi"`
	Blast     BlastConfig     `mapstructure:"blast"`
	WebSearch WebSearchConfig `mapstructure:"websearch"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Model     ModelConfig     `mapstructure:"model"`
	Runs      RunsConfig      `mapstructure:"runs"`
}

type AgentConfig struct {
	MaxTurns   int           `mapstructure:"max_turns"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	ToolUse    bool          `mapstructure:"tool_use"`
}

type SchedulerConfig struct {
	Workers int `mapstructure:"workers"`
}

type RateLimitConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Pacing   time.Duration `mapstructure:"pacing"`
}

type NCBIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type BlastConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	RetryWait   time.Duration `mapstructure:"retry_wait"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type WebSearchConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Endpoint string  `mapstructure:"endpoint"`
	QPS      float64 `mapstructure:"qps"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
	Name     string `mapstructure:"name"`
	// BaseURL overrides the endpoint resolved from credentials.
	BaseURL string `mapstructure:"base_url"`
}

type RunsConfig struct {
	Path string `mapstructure:"path"`
}

// New returns a viper instance with defaults and GENEGPT_ environment
// overrides applied, e.g. GENEGPT_AGENT_MAX_TURNS.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMaxTurns, 10)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeyRetryDelay, 5*time.Second)
	v.SetDefault(KeyToolUse, false)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyRateCapacity, 3)
	v.SetDefault(KeyRatePacing, 500*time.Millisecond)
	v.SetDefault(KeyNCBIBaseURL, "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/")
	v.SetDefault(KeyBlastBaseURL, "https://blast.ncbi.nlm.nih.gov/blast/Blast.cgi")
	v.SetDefault(KeyBlastInitialWait, 30*time.Second)
	v.SetDefault(KeyBlastRetryWait, 15*time.Second)
	v.SetDefault(KeyBlastMaxRetries, 2)
	v.SetDefault(KeyWebSearchEnabled, true)
	v.SetDefault(KeyWebSearchURL, "https://lite.duckduckgo.com/lite/")
	v.SetDefault(KeyWebSearchQPS, 1.0)
	v.SetDefault(KeyCacheRedisURL, "")
	v.SetDefault(KeyCacheTTL, 24*time.Hour)
	v.SetDefault(KeyCachePrefix, "")
	v.SetDefault(KeyModelProvider, "azure")
	v.SetDefault(KeyModelName, "gpt-4.1")
	v.SetDefault(KeyModelBaseURL, "")
	v.SetDefault(KeyRunsPath, "")
}

func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configName), nil
}

// Load reads path, or ~/.genegpt/config.toml when path is empty and the
// file exists. An explicit path must exist. The returned viper instance
// carries the merged settings for adapters that read their own keys.
func Load(path string) (Config, *viper.Viper, error) {
	v := New()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, nil, err
		}
		path = defaultPath
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return Config{}, nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	applyLegacyKeys(v)

	cfg, err := Decode(v)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, v, nil
}

func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyLegacyKeys maps the flat MAX_TURNS, MAX_RETRIES and RETRY_DELAY
// (seconds) keys of older config.yaml files onto the agent section. They
// rank below the environment.
func applyLegacyKeys(v *viper.Viper) {
	if v.InConfig("max_turns") && !v.InConfig(KeyMaxTurns) {
		v.SetDefault(KeyMaxTurns, v.GetInt("max_turns"))
	}
	if v.InConfig("max_retries") && !v.InConfig(KeyMaxRetries) {
		v.SetDefault(KeyMaxRetries, v.GetInt("max_retries"))
	}
	if v.InConfig("retry_delay") && !v.InConfig(KeyRetryDelay) {
		v.SetDefault(KeyRetryDelay, time.Duration(v.GetFloat64("retry_delay")*float64(time.Second)))
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Agent.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxTurns, c.Agent.MaxTurns))
	}
	if c.Agent.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxRetries, c.Agent.MaxRetries))
	}
	if c.Agent.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyRetryDelay, c.Agent.RetryDelay))
	}
	if c.Scheduler.Workers < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyWorkers, c.Scheduler.Workers))
	}
	if c.RateLimit.Capacity < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyRateCapacity, c.RateLimit.Capacity))
	}
	if c.RateLimit.Pacing < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyRatePacing, c.RateLimit.Pacing))
	}
	if c.Blast.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyBlastMaxRetries, c.Blast.MaxRetries))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyCacheTTL, c.Cache.TTL))
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyModelName))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
