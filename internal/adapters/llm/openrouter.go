// Package llm provides the OpenRouter chat-completion adapter.
// Clean Architecture: Adapter implementing ports.ChatModel.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
)

// OpenRouterAdapter implements ports.ChatModel against the
// OpenAI-compatible chat completions API served by OpenRouter.
type OpenRouterAdapter struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOpenRouterAdapter creates a new OpenRouter adapter.
func NewOpenRouterAdapter(baseURL, apiKey, model string, maxTokens int) *OpenRouterAdapter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &OpenRouterAdapter{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client: &http.Client{
			Timeout: 300 * time.Second, // Longer timeout for streaming
		},
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string                  `json:"model"`
	Messages  []chatCompletionMessage `json:"messages"`
	MaxTokens int                     `json:"max_tokens,omitempty"`
	Stream    bool                    `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (a *OpenRouterAdapter) messages(system string, history []entities.ChatMessage, message string) []chatCompletionMessage {
	msgs := make([]chatCompletionMessage, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, chatCompletionMessage{Role: "system", Content: system})
	}
	for _, h := range history {
		msgs = append(msgs, chatCompletionMessage{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, chatCompletionMessage{Role: "user", Content: message})
	return msgs
}

func (a *OpenRouterAdapter) newRequest(ctx context.Context, body chatCompletionRequest) (*http.Request, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	return req, nil
}

// Complete produces a full response for one chat turn.
func (a *OpenRouterAdapter) Complete(ctx context.Context, system string, history []entities.ChatMessage, message string) (string, error) {
	req, err := a.newRequest(ctx, chatCompletionRequest{
		Model:     a.model,
		Messages:  a.messages(system, history, message),
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenRouter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter returned status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("OpenRouter error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("OpenRouter returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// CompleteStream produces the same response as server-sent events.
// Returns a channel of StreamTokens for real-time UI updates.
func (a *OpenRouterAdapter) CompleteStream(ctx context.Context, system string, history []entities.ChatMessage, message string) (<-chan ports.StreamToken, error) {
	req, err := a.newRequest(ctx, chatCompletionRequest{
		Model:     a.model,
		Messages:  a.messages(system, history, message),
		MaxTokens: a.maxTokens,
		Stream:    true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling OpenRouter: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("OpenRouter returned status %d", resp.StatusCode)
	}

	ch := make(chan ports.StreamToken, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				ch <- ports.StreamToken{Done: true, Error: ctx.Err()}
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				ch <- ports.StreamToken{Done: true}
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // Skip malformed lines
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			done := choice.FinishReason != nil && *choice.FinishReason != ""
			ch <- ports.StreamToken{
				Content: choice.Delta.Content,
				Done:    done,
			}
			if done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- ports.StreamToken{Done: true, Error: err}
		}
	}()

	return ch, nil
}
