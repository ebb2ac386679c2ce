package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/mock"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	onSleep := c.onSleep
	c.mu.Unlock()

	if onSleep != nil {
		onSleep()
	}
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	return value, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.sets++
	return nil
}

type termArgs struct {
	Database string `json:"database"`
	Term     string `json:"term"`
	RetMax   int    `json:"retmax"`
}

func searchSpec(gate domain.Gate) domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolESearch,
		Description: "search",
		Gate:        gate,
		Cacheable:   true,
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"database": {Type: jsonschema.String, Enum: []string{"gene", "snp", "omim"}},
				"term":     {Type: jsonschema.String},
				"retmax":   {Type: jsonschema.Integer},
			},
			Required:             []string{"database", "term"},
			AdditionalProperties: false,
		},
	}
}

func summarySpec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        domain.ToolESummary,
		Description: "summary",
		Gate:        domain.GateCall,
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"database": {Type: jsonschema.String},
				"ids":      {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
			},
			Required: []string{"database", "ids"},
		},
	}
}

func searchTool(gate domain.Gate, run func(ctx context.Context, args termArgs) (string, error)) ports.Tool {
	return ports.NewTool(searchSpec(gate), nil, run)
}

type idsArgs struct {
	Database string   `json:"database"`
	IDs      []string `json:"ids"`
}

func summaryTool(run func(ctx context.Context, args idsArgs) (string, error)) ports.Tool {
	return ports.NewTool(summarySpec(), nil, run)
}

func toolCall(id string, name domain.ToolName, args any) domain.ToolInvocationRequest {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return domain.ToolInvocationRequest{ID: id, Name: string(name), Arguments: string(raw)}
}

func withChoice(choice ports.ToolChoice) interface{} {
	return mock.MatchedBy(func(req ports.CompletionRequest) bool {
		return req.Choice == choice
	})
}

var errBackend = errors.New("backend unavailable")
