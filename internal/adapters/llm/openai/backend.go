package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports"
)

type Provider string

const (
	ProviderAzure  Provider = "azure"
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

func ParseProvider(raw string) (Provider, error) {
	switch provider := Provider(strings.ToLower(strings.TrimSpace(raw))); provider {
	case ProviderAzure, ProviderOllama, ProviderOpenAI:
		return provider, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want azure, ollama or openai)", raw)
	}
}

const (
	defaultRequestTimeout = 2 * time.Minute
	answerSchemaName      = "response_schema"
)

type Config struct {
	Provider Provider
	Model    string
	APIKey   string
	// BaseURL is the Azure resource endpoint, the Ollama OpenAI-compatible
	// endpoint, or an optional override for OpenAI.
	BaseURL     string
	APIVersion  string
	Temperature *float32
	HTTPClient  *http.Client
}

// Backend talks to any OpenAI-compatible chat completions API.
type Backend struct {
	client      *goopenai.Client
	model       string
	temperature *float32
	logger      *slog.Logger
}

var _ ports.ModelBackend = (*Backend)(nil)

func NewBackend(cfg Config, logger *slog.Logger) (*Backend, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model name is required")
	}

	var clientConfig goopenai.ClientConfig
	switch cfg.Provider {
	case ProviderAzure:
		if cfg.APIKey == "" || cfg.BaseURL == "" {
			return nil, fmt.Errorf("azure provider requires an api key and endpoint: %w", domain.ErrCredentialMissing)
		}
		clientConfig = goopenai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
		clientConfig.AzureModelMapperFunc = func(model string) string { return model }
	case ProviderOllama:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("ollama provider requires an endpoint: %w", domain.ErrCredentialMissing)
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		clientConfig = goopenai.DefaultConfig(apiKey)
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key: %w", domain.ErrCredentialMissing)
		}
		clientConfig = goopenai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	clientConfig.HTTPClient = httpClient

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("initializing model backend", slog.String("provider", string(cfg.Provider)), slog.String("model", cfg.Model))

	return &Backend{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (b *Backend) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	messages, err := toMessages(req.History)
	if err != nil {
		return ports.Completion{}, err
	}

	request := b.newRequest(messages)
	if len(req.Tools) > 0 {
		request.Tools = toTools(req.Tools)
		choice := req.Choice
		if choice == "" {
			choice = ports.ToolChoiceAuto
		}
		request.ToolChoice = string(choice)
	}

	resp, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return ports.Completion{}, fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{}, errors.New("create chat completion: no choices returned")
	}

	message := resp.Choices[0].Message
	b.logger.Debug("model response",
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Int("tool_calls", len(message.ToolCalls)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	)

	completion := ports.Completion{Content: message.Content}
	for _, call := range message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, domain.ToolInvocationRequest{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return completion, nil
}

// CompleteStructured requests a JSON-schema constrained answer record.
// Content that does not decode is an error so the caller can retry.
func (b *Backend) CompleteStructured(ctx context.Context, history []domain.Message) (domain.AnswerRecord, error) {
	messages, err := toMessages(history)
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	schema := AnswerSchema()
	request := b.newRequest(messages)
	request.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
		Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
			Name:   answerSchemaName,
			Schema: &schema,
			Strict: true,
		},
	}

	resp, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("create structured completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.AnswerRecord{}, errors.New("create structured completion: no choices returned")
	}

	var payload struct {
		Thoughts *string `json:"thoughts"`
		Answer   *string `json:"answer"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("decode structured completion: %w", err)
	}
	if payload.Thoughts == nil || payload.Answer == nil {
		return domain.AnswerRecord{}, errors.New("decode structured completion: thoughts and answer are required")
	}

	return domain.NewAnswer(*payload.Thoughts, *payload.Answer), nil
}

func (b *Backend) newRequest(messages []goopenai.ChatCompletionMessage) goopenai.ChatCompletionRequest {
	request := goopenai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	}
	if b.temperature != nil {
		request.Temperature = *b.temperature
	}
	return request
}

// AnswerSchema is the JSON schema of the answer record.
func AnswerSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"thoughts": {Type: jsonschema.String, Description: "Step-by-step reasoning that led to the answer."},
			"answer":   {Type: jsonschema.String, Description: "The final answer only."},
		},
		Required:             []string{"thoughts", "answer"},
		AdditionalProperties: false,
	}
}

func toMessages(history []domain.Message) ([]goopenai.ChatCompletionMessage, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for i, message := range history {
		switch m := message.(type) {
		case domain.SystemMessage:
			messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: m.Content})
		case domain.UserMessage:
			messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: m.Content})
		case domain.AssistantMessage:
			converted := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: m.Content}
			for _, call := range m.ToolCalls {
				converted.ToolCalls = append(converted.ToolCalls, goopenai.ToolCall{
					ID:   call.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			messages = append(messages, converted)
		case domain.ToolMessage:
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.InvocationID,
			})
		default:
			return nil, fmt.Errorf("history entry %d: unsupported message type %T", i, message)
		}
	}
	return messages, nil
}

func toTools(specs []domain.ToolSpec) []goopenai.Tool {
	tools := make([]goopenai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        string(spec.Name),
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return tools
}
