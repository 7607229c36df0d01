package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

type AnthropicClient struct {
	apiKey    string
	authToken string
	model     string
	http      *http.Client
}

func NewAnthropicClient(apiKey, authToken, model string) *AnthropicClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicClient{
		apiKey:    apiKey,
		authToken: authToken,
		model:     model,
		http:      &http.Client{},
	}
}

// Raw API request/response types

type anthRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    []anthText    `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
}

type anthText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Generate(ctx context.Context, gen Request) (string, error) {
	maxTokens := gen.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	prompt := gen.Prompt
	if gen.Schema != nil {
		schemaJSON, err := json.Marshal(gen.Schema)
		if err != nil {
			return "", fmt.Errorf("marshaling schema: %w", err)
		}
		prompt += "\n\nRespond with a single JSON object matching this schema:\n" + string(schemaJSON)
	}

	reqBody := anthRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    []anthText{{Type: "text", Text: gen.System}},
		Messages:  []anthMessage{{Role: "user", Content: prompt}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicAPI, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("User-Agent", "planbot/1.0")

	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
		req.Header.Set("anthropic-beta", "oauth-2025-04-20")
	} else if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Provider: "anthropic", Err: err}
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return "", &QuotaError{Provider: "anthropic", Detail: string(respBody)}
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return "", &TimeoutError{Provider: "anthropic", Err: fmt.Errorf("%s", resp.Status)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("anthropic generate: %s %s", resp.Status, string(respBody))
	}

	var anthResp anthResponse
	if err := json.Unmarshal(respBody, &anthResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	var out string
	for _, block := range anthResp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}
