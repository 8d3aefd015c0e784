package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"corvex/models"
)

// HTTPChatBackend talks to the conversation backend over HTTP. It covers
// both the AI endpoint and the chat-log endpoints, which live under the
// same base URL.
type HTTPChatBackend struct {
	BaseURL   string
	ClientKey string
	Client    *http.Client
}

func NewHTTPChatBackend(baseURL, clientKey string) *HTTPChatBackend {
	return &HTTPChatBackend{
		BaseURL:   baseURL,
		ClientKey: clientKey,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Chat sends one user query to the AI endpoint and returns the reply text.
func (b *HTTPChatBackend) Chat(ctx context.Context, reqBody models.AIChatRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal ai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/ai-chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create ai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai service returned status %d", resp.StatusCode)
	}

	var out models.AIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if !out.Success || out.Response == "" {
		if out.Error != "" {
			return "", fmt.Errorf("ai service error: %s", out.Error)
		}
		return "", fmt.Errorf("ai service returned no response")
	}
	return out.Response, nil
}

// Log persists one message to the chat-log service.
func (b *HTTPChatBackend) Log(ctx context.Context, entry models.ChatLogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal chat log entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/chat-logs", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create chat log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("chat log request failed: %w", err)
	}
	defer resp.Body.Close()

	var out models.APIResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode chat log response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("chat log service error: %s", out.Error)
	}
	return nil
}

// History fetches up to limit stored messages for a session. It doubles as
// the session-existence probe: a session with zero stored messages is
// treated as unknown by the caller.
func (b *HTTPChatBackend) History(ctx context.Context, sessionID string, limit int) ([]models.StoredMessage, error) {
	q := url.Values{}
	q.Set("client", b.ClientKey)
	q.Set("sessionId", sessionID)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/chat-logs?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create history request: %w", err)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat log service returned status %d", resp.StatusCode)
	}

	var out models.ChatLogListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("chat log service error: %s", out.Error)
	}
	return out.Data, nil
}
