package systemapi

import (
	"context"
	"fmt"

	"github.com/flowrig/flowrig/logger"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type Config struct {
	OpenAIKey string
	ChatModel string
	Speaker   Speaker
}

// DefaultAPI is the host-process implementation of the facade. Chat goes to
// OpenAI when a key is configured, speech to the injected Speaker; both fail
// with a clear error when their provider is absent.
type DefaultAPI struct {
	client    *openai.Client
	chatModel string
	speaker   Speaker
}

var _ API = new(DefaultAPI)

func NewDefaultAPI(conf Config) *DefaultAPI {
	api := &DefaultAPI{
		chatModel: conf.ChatModel,
		speaker:   conf.Speaker,
	}
	if api.chatModel == "" {
		api.chatModel = openai.GPT4oMini
	}
	if conf.OpenAIKey != "" {
		api.client = openai.NewClient(conf.OpenAIKey)
	}
	return api
}

func (api *DefaultAPI) Log(level string, msg string) {
	switch level {
	case "debug":
		logger.Debug(msg)
	case "warn":
		logger.Warn(msg)
	case "error":
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
}

func (api *DefaultAPI) Notify(ctx context.Context, message string, severity string) error {
	logger.Info("notification", zap.String("severity", severity), zap.String("message", message))
	return nil
}

func (api *DefaultAPI) Chat(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if api.client == nil {
		return "", fmt.Errorf("ai provider not configured")
	}
	req := openai.ChatCompletionRequest{
		Model: api.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if m, ok := options["model"].(string); ok && m != "" {
		req.Model = m
	}
	if sys, ok := options["systemPrompt"].(string); ok && sys != "" {
		req.Messages = append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sys},
		}, req.Messages...)
	}
	switch t := options["temperature"].(type) {
	case float64:
		req.Temperature = float32(t)
	case int64:
		req.Temperature = float32(t)
	}
	resp, err := api.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (api *DefaultAPI) Say(ctx context.Context, text string, options map[string]any) error {
	if api.speaker == nil {
		return fmt.Errorf("speech provider not configured")
	}
	return api.speaker.Say(ctx, text)
}
