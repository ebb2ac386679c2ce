package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

const defaultCacheTTL = 24 * time.Hour

// Dispatcher executes tool invocations against a closed registry. Every
// outcome, including panics, is returned as a domain.ToolResult.
type Dispatcher struct {
	tools    map[domain.ToolName]ports.Tool
	order    []domain.ToolName
	limiter  *RateLimiter
	cache    ports.ToolCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

type DispatcherOption func(*Dispatcher)

func WithToolCache(cache ports.ToolCache, ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.cache = cache
		if ttl > 0 {
			d.cacheTTL = ttl
		}
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = loggerOrDiscard(logger)
	}
}

func NewDispatcher(limiter *RateLimiter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		tools:    make(map[domain.ToolName]ports.Tool),
		limiter:  limiter,
		cacheTTL: defaultCacheTTL,
		logger:   loggerOrDiscard(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a tool after checking its schema. Names must be members of
// domain.KnownTools and may be registered once.
func (d *Dispatcher) Register(tools ...ports.Tool) error {
	for _, tool := range tools {
		spec := tool.Spec()
		if err := validateSpec(spec); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
		if _, exists := d.tools[spec.Name]; exists {
			return fmt.Errorf("register tool: %s already registered", spec.Name)
		}
		d.tools[spec.Name] = tool
		d.order = append(d.order, spec.Name)
	}
	return nil
}

// Specs returns the catalog in registration order.
func (d *Dispatcher) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(d.order))
	for _, name := range d.order {
		specs = append(specs, d.tools[name].Spec())
	}
	return specs
}

func (d *Dispatcher) Execute(ctx context.Context, req domain.ToolInvocationRequest) domain.ToolResult {
	result := domain.ToolResult{InvocationID: req.ID, Name: req.Name}

	raw := strings.TrimSpace(req.Arguments)
	if raw == "" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		d.logger.Warn("tool arguments are not a JSON object", slog.String("tool", req.Name), slog.String("arguments", req.Arguments))
		return failedResult(result, domain.ToolOutcomeInvalidArguments, fmt.Sprintf("Invalid arguments format: %s", req.Arguments))
	}

	name, known := domain.ParseToolName(req.Name)
	tool, registered := d.tools[name]
	if !known || !registered {
		d.logger.Warn("unknown tool requested", slog.String("tool", req.Name))
		return failedResult(result, domain.ToolOutcomeUnknownTool, fmt.Sprintf("Function '%s' not found", req.Name))
	}
	spec := tool.Spec()

	if err := validateArguments(spec.Parameters, args); err != nil {
		d.logger.Warn("tool arguments rejected", slog.String("tool", req.Name), slog.Any("error", err))
		return failedResult(result, domain.ToolOutcomeInvalidArguments, fmt.Sprintf("Invalid arguments for %s: %v", req.Name, err))
	}

	canonical, err := json.Marshal(args)
	if err != nil {
		return failedResult(result, domain.ToolOutcomeInvalidArguments, fmt.Sprintf("Invalid arguments format: %s", req.Arguments))
	}
	d.logger.Debug("executing tool", slog.String("tool", req.Name), slog.String("arguments", string(canonical)))

	cacheKey := ""
	if spec.Cacheable && d.cache != nil {
		cacheKey = toolCacheKey(name, canonical)
		if content, found, err := d.cache.Get(ctx, cacheKey); err != nil {
			d.logger.Warn("tool cache lookup failed", slog.String("tool", req.Name), slog.Any("error", err))
		} else if found {
			result.Outcome = domain.ToolOutcomeOK
			result.Content = content
			result.Cached = true
			return result
		}
	}

	content, err := d.invoke(ctx, tool, spec.Gate, canonical)
	if err != nil {
		d.logger.Warn("tool execution failed", slog.String("tool", req.Name), slog.Any("error", err))
		return failedResult(result, domain.ToolOutcomeExecutionError, fmt.Sprintf("Error in %s: %v", req.Name, err))
	}

	if cacheKey != "" {
		if err := d.cache.Set(ctx, cacheKey, content, d.cacheTTL); err != nil {
			d.logger.Warn("tool cache store failed", slog.String("tool", req.Name), slog.Any("error", err))
		}
	}

	result.Outcome = domain.ToolOutcomeOK
	result.Content = content
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, tool ports.Tool, gate domain.Gate, args json.RawMessage) (content string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()

	if gate != domain.GateCall || d.limiter == nil {
		return tool.Execute(ctx, args)
	}
	return Limited(ctx, d.limiter, func(ctx context.Context) (string, error) {
		return tool.Execute(ctx, args)
	})
}

func failedResult(result domain.ToolResult, outcome domain.ToolOutcome, message string) domain.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		payload = []byte(`{"error":"unencodable tool error"}`)
	}
	result.Outcome = outcome
	result.Content = string(payload)
	return result
}

func toolCacheKey(name domain.ToolName, canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return "genegpt:tool:" + string(name) + ":" + hex.EncodeToString(sum[:])
}
