package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &OpenAIClient{client: client, model: model}
}

func (c *OpenAIClient) Generate(ctx context.Context, gen Request) (string, error) {
	prompt := gen.Prompt
	if gen.Schema != nil {
		schemaJSON, err := json.Marshal(gen.Schema)
		if err != nil {
			return "", fmt.Errorf("marshaling schema: %w", err)
		}
		prompt += "\n\nRespond with a single JSON object matching this schema:\n" + string(schemaJSON)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(gen.System),
			openai.UserMessage(prompt),
		},
	}
	if gen.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(gen.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 429 || apiErr.StatusCode == 402) {
			return "", &QuotaError{Provider: "openai", Detail: apiErr.Error()}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{Provider: "openai", Err: err}
		}
		return "", fmt.Errorf("openai generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
