package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	rediscache "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/cache/redis"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/dataset/jsonfile"
	llmopenai "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/llm/openai"
	reportadapter "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/render/report"
	tomlrepo "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/repo/toml"
	chainstore "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/secrets/chain"
	envstore "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/secrets/env"
	filestore "github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/secrets/file"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/tools/blast"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/tools/ncbi"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/adapters/tools/websearch"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/config"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/prompts"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/scoring"
)

type app struct {
	opts *rootOptions

	cfg            config.Config
	logger         *slog.Logger
	clock          ports.Clock
	credentials    *chainstore.Store
	datasets       *jsonfile.Store
	runs           *tomlrepo.Repository
	reportRenderer func(scoring.Report, reportadapter.RenderOptions) (string, error)
	runsRenderer   func([]domain.RunRecord) (string, error)
	wired          bool
}

func (a *app) wire(stderr io.Writer) error {
	if a.wired {
		return nil
	}

	cfg, v, err := config.Load(a.opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	credentials, err := newCredentialStore(filepath.Join(homeDir, ".genegpt", "secrets"))
	if err != nil {
		return fmt.Errorf("wire credential store chain: %w", err)
	}

	runs, err := tomlrepo.NewRepository(v)
	if err != nil {
		return fmt.Errorf("wire run repository: %w", err)
	}

	a.cfg = cfg
	a.logger = newLogger(stderr, a.opts.verbose, a.opts.logJSON)
	a.clock = ports.SystemClock{}
	a.credentials = credentials
	a.datasets = jsonfile.NewStore()
	a.runs = runs
	a.reportRenderer = reportadapter.Render
	a.runsRenderer = reportadapter.RenderRuns
	a.wired = true
	return nil
}

// newCredentialStore resolves env, pass, then files. GENEGPT_SECRETS_BACKEND=file
// skips pass for hosts without a password store.
func newCredentialStore(fileRoot string) (*chainstore.Store, error) {
	if envOrDefault("GENEGPT_SECRETS_BACKEND", "chain") == "file" {
		return chainstore.NewStoreChecked(envstore.NewStore(), filestore.NewStore(fileRoot))
	}
	return chainstore.NewDefault(fileRoot)
}

type engineOptions struct {
	Provider   string
	Model      string
	ToolUse    bool
	MaxTurns   int
	MaxRetries int
	RetryDelay time.Duration
}

type engine struct {
	agent  *application.Agent
	cache  *rediscache.Cache
	logger *slog.Logger
}

// Close reports tool cache hits and misses before releasing the client.
func (e *engine) Close() error {
	if e.cache == nil {
		return nil
	}
	stats := e.cache.Stats()
	e.logger.Info("tool cache stats", slog.Int64("hits", stats.Hits), slog.Int64("misses", stats.Misses))
	return e.cache.Close()
}

func (a *app) newEngine(ctx context.Context, opts engineOptions) (*engine, error) {
	backend, err := a.modelBackend(ctx, opts.Provider, opts.Model)
	if err != nil {
		return nil, err
	}

	limiter, err := application.NewRateLimiter(a.cfg.RateLimit.Capacity, a.cfg.RateLimit.Pacing, a.clock)
	if err != nil {
		return nil, fmt.Errorf("wire rate limiter: %w", err)
	}

	eng := &engine{logger: a.logger}
	dispatcherOpts := []application.DispatcherOption{application.WithDispatcherLogger(a.logger)}
	if a.cfg.Cache.RedisURL != "" {
		cache, err := rediscache.Open(ctx, a.cfg.Cache.RedisURL, rediscache.WithPrefix(a.cfg.Cache.Prefix))
		if err != nil {
			return nil, fmt.Errorf("wire tool cache: %w", err)
		}
		eng.cache = cache
		dispatcherOpts = append(dispatcherOpts, application.WithToolCache(cache, a.cfg.Cache.TTL))
	}

	dispatcher := application.NewDispatcher(limiter, dispatcherOpts...)
	tools, err := a.tools(ctx, limiter)
	if err != nil {
		return nil, errors.Join(err, eng.Close())
	}
	if err := dispatcher.Register(tools...); err != nil {
		return nil, errors.Join(err, eng.Close())
	}

	retrier := application.NewRetrier(application.RetryPolicy{
		MaxAttempts: opts.MaxRetries,
		Delay:       opts.RetryDelay,
	}, a.clock, a.logger)

	eng.agent = application.NewAgent(application.SessionDeps{
		Backend:    backend,
		Dispatcher: dispatcher,
		Retrier:    retrier,
		Validator:  application.NewResponseValidator(a.logger),
		Logger:     a.logger,
	}, application.AgentConfig{
		MaxTurns:       opts.MaxTurns,
		ToolUse:        opts.ToolUse,
		SystemPrompt:   prompts.System(opts.ToolUse),
		ExemplarPrompt: prompts.Examples(),
	})
	return eng, nil
}

// tools builds the catalog. The NCBI key is optional and only raises NCBI's
// own request allowance.
func (a *app) tools(ctx context.Context, limiter *application.RateLimiter) ([]ports.Tool, error) {
	ncbiKey, err := a.optionalCredential(ctx, domain.CredentialNCBIAPIKey)
	if err != nil {
		return nil, err
	}
	entrez := ncbi.NewClient(a.cfg.NCBI.BaseURL, ncbiKey, a.logger)

	blastClient, err := blast.NewClient(a.cfg.Blast.BaseURL, blast.PollPolicy{
		InitialWait: a.cfg.Blast.InitialWait,
		RetryWait:   a.cfg.Blast.RetryWait,
		MaxRetries:  a.cfg.Blast.MaxRetries,
	}, limiter, a.clock, a.logger)
	if err != nil {
		return nil, fmt.Errorf("wire blast client: %w", err)
	}

	tools := append(entrez.Tools(), blastClient.Tools()...)
	if a.cfg.WebSearch.Enabled {
		search := websearch.NewDuckDuckGo(a.cfg.WebSearch.Endpoint, a.cfg.WebSearch.QPS, a.logger)
		tools = append(tools, search.Tool())
	}
	return tools, nil
}

func (a *app) modelBackend(ctx context.Context, rawProvider, model string) (ports.ModelBackend, error) {
	provider, err := llmopenai.ParseProvider(rawProvider)
	if err != nil {
		return nil, err
	}

	cfg := llmopenai.Config{Provider: provider, Model: model}
	switch provider {
	case llmopenai.ProviderAzure:
		if cfg.APIKey, err = a.credential(ctx, domain.CredentialAzureAPIKey); err != nil {
			return nil, err
		}
		if cfg.BaseURL, err = a.credential(ctx, domain.CredentialAzureEndpoint); err != nil {
			return nil, err
		}
		if cfg.APIVersion, err = a.optionalCredential(ctx, domain.CredentialAzureAPIVersion); err != nil {
			return nil, err
		}
	case llmopenai.ProviderOllama:
		if cfg.BaseURL, err = a.optionalCredential(ctx, domain.CredentialOllamaEndpoint); err != nil {
			return nil, err
		}
		if cfg.APIKey, err = a.optionalCredential(ctx, domain.CredentialOllamaAPIKey); err != nil {
			return nil, err
		}
	case llmopenai.ProviderOpenAI:
		if cfg.APIKey, err = a.credential(ctx, domain.CredentialOpenAIAPIKey); err != nil {
			return nil, err
		}
	}
	if a.cfg.Model.BaseURL != "" {
		cfg.BaseURL = a.cfg.Model.BaseURL
	}

	backend, err := llmopenai.NewBackend(cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("wire model backend: %w", err)
	}
	return backend, nil
}

func (a *app) credential(ctx context.Context, name domain.CredentialName) (string, error) {
	value, source, err := a.credentials.Resolve(ctx, name)
	if err != nil {
		return "", fmt.Errorf("resolve %s (set %s or run `genegpt credentials set %s`): %w", name, name.EnvVar(), name, err)
	}
	a.logger.Debug("credential resolved", slog.String("name", string(name)), slog.String("source", source))
	return value, nil
}

func (a *app) optionalCredential(ctx context.Context, name domain.CredentialName) (string, error) {
	value, err := a.credential(ctx, name)
	if errors.Is(err, domain.ErrCredentialMissing) {
		return "", nil
	}
	return value, err
}

// engineOptions returns the configured defaults, before flag overrides.
func (a *app) engineOptions() engineOptions {
	return engineOptions{
		Provider:   a.cfg.Model.Provider,
		Model:      a.cfg.Model.Name,
		ToolUse:    a.cfg.Agent.ToolUse,
		MaxTurns:   a.cfg.Agent.MaxTurns,
		MaxRetries: a.cfg.Agent.MaxRetries,
		RetryDelay: a.cfg.Agent.RetryDelay,
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
