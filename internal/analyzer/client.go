package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gunksd/Perps-news/internal/config"
)

// client is the shared OpenAI-compatible chat-completions transport used by
// both the per-item analyzer and the index summarizer. The explicit request
// timeout keeps a hung upstream from stalling a whole batch.
type client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float32
	httpClient  *http.Client
}

func newClient(cfg config.AIConfig) *client {
	return &client{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete posts one chat request and returns the assistant message body.
// Any structural violation of the response produces a descriptive error;
// callers convert it into a per-item failure.
func (c *client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(buildChatRequest(c.model, c.temperature, system, user))
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("API request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode API response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("invalid API response: missing choices array")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("API returned empty content")
	}
	return content, nil
}

func buildChatRequest(model string, temperature float32, system, user string) chatRequest {
	req := chatRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	req.ResponseFormat.Type = "json_object"
	return req
}
