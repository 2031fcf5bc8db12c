// Package digestprovider содержит HTTP клиент AI-шлюза, который генерирует
// тексты ежедневных сводок в формате chat completions.
package digestprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Ошибки лимитов шлюза. Различаются, чтобы вызывающий мог показать
// пользователю осмысленное сообщение вместо общего сбоя.
var (
	ErrRateLimited      = errors.New("gateway rate limit exceeded")
	ErrCreditsExhausted = errors.New("gateway credits exhausted")
)

// Client — клиент OpenAI-совместимого шлюза.
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewClient создаёт новый клиент шлюза.
func NewClient(apiURL, apiKey, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, path string, body interface{}) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Complete отправляет системный и пользовательский промпты и возвращает
// сгенерированный текст.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqParams := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	req, err := c.newRequest(ctx, "/chat/completions", reqParams)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	case http.StatusPaymentRequired:
		return "", ErrCreditsExhausted
	default:
		return "", errors.New("unexpected status: " + resp.Status)
	}

	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("gateway returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
