// Package llm provides the Ollama LLM adapter.
// Clean Architecture: Adapter implementing ports.LLMService.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nutriswap/internal/domain/ports"
)

// The narrative voice is fixed at the adapter: usecases supply the facts,
// the system prompt supplies the register.
const defaultSystemPrompt = "You are a friendly nutritionist. Ground every claim in the nutrition data you are given and keep suggestions practical."

// OllamaAdapter implements ports.LLMService using the Ollama generate API.
type OllamaAdapter struct {
	baseURL string
	model   string
	system  string
	client  *http.Client
}

// NewOllamaAdapter creates a new Ollama LLM adapter.
func NewOllamaAdapter(baseURL, model string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		system:  defaultSystemPrompt,
		client: &http.Client{
			Timeout: 300 * time.Second, // Longer timeout for streaming
		},
	}
}

// generateRequest is the Ollama generate API request.
type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama generate API response.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a complete response for the given prompt.
func (a *OllamaAdapter) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	resp, err := a.send(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return genResp.Response, nil
}

// GenerateStream produces a token-by-token response via Ollama's NDJSON
// streaming API.
func (a *OllamaAdapter) GenerateStream(ctx context.Context, prompt string, context []string) (<-chan ports.StreamToken, error) {
	resp, err := a.send(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan ports.StreamToken, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				ch <- ports.StreamToken{Done: true, Error: ctx.Err()}
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk generateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue // Skip malformed lines
			}

			ch <- ports.StreamToken{
				Content: chunk.Response,
				Done:    chunk.Done,
			}
			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- ports.StreamToken{Done: true, Error: err}
		}
	}()

	return ch, nil
}

// send posts a generate request and returns the raw response, which the
// caller owns.
func (a *OllamaAdapter) send(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	reqBody := generateRequest{
		Model:  a.model,
		System: a.system,
		Prompt: prompt,
		Stream: stream,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return resp, nil
}
