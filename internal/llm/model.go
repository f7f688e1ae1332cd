// Package llm wraps langchaingo chat models behind a small invoke API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/scrt-agent/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrFatalAPI marks provider errors that retrying will not fix, such as bad
// credentials or exhausted quota.
var ErrFatalAPI = errors.New("fatal LLM API error")

// Role is the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is one entry of the ordered conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Reply is the model's answer. Structured is set when the model answered with
// tool calls instead of text; Text then holds their JSON form.
type Reply struct {
	Text       string
	Structured bool
}

// Model wraps langchaingo LLM for chat generation.
type Model struct {
	llm         llms.Model
	modelName   string
	temperature float64
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.LLMBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewModelFromLLM(model, cfg.LLMModel, cfg.LLMTemperature), nil
}

// NewModelFromLLM wraps an existing langchaingo model.
func NewModelFromLLM(model llms.Model, name string, temperature float64) *Model {
	return &Model{llm: model, modelName: name, temperature: temperature}
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Invoke sends the ordered messages and returns the first choice.
func (m *Model) Invoke(ctx context.Context, messages []Message) (Reply, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(messageType(msg.Role), msg.Content))
	}

	response, err := m.llm.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		return Reply{}, wrapFatalError(fmt.Errorf("generate: %w", err))
	}
	if len(response.Choices) == 0 {
		return Reply{}, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	if choice.Content == "" && (len(choice.ToolCalls) > 0 || choice.FuncCall != nil) {
		var structured any = choice.ToolCalls
		if len(choice.ToolCalls) == 0 {
			structured = choice.FuncCall
		}
		b, err := json.Marshal(structured)
		if err != nil {
			return Reply{}, fmt.Errorf("encode structured reply: %w", err)
		}
		return Reply{Text: string(b), Structured: true}, nil
	}
	return Reply{Text: choice.Content}, nil
}

// ErrUnreachable marks a model endpoint that did not answer the startup check.
var ErrUnreachable = errors.New("model endpoint unreachable")

// Ping sends a one-token request to confirm the endpoint resolves and serves
// the configured model.
func (m *Model) Ping(ctx context.Context) error {
	content := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "ping")}
	if _, err := m.llm.GenerateContent(ctx, content, llms.WithMaxTokens(1)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, m.modelName, wrapFatalError(err))
	}
	return nil
}

func messageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAI:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

var fatalMarkers = []string{
	"credit balance",
	"rate limit",
	"quota exceeded",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether err looks like an account-level failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// wrapFatalError tags account-level failures with ErrFatalAPI.
func wrapFatalError(err error) error {
	if !isFatalAPIError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatalAPI, err)
}
