package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"placetale/internal/domain"
)

const keepAliveSeconds = 600

// narrationFormat is the JSON schema sent as the structured-output request
// so the backend constrains generation to the narration record.
var narrationFormat = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"intro_paragraph":  map[string]interface{}{"type": "string"},
		"detail_paragraph": map[string]interface{}{"type": "string"},
		"places_to_visit": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":        map[string]interface{}{"type": "string"},
					"distance_km": map[string]interface{}{"type": "number"},
				},
				"required": []string{"name", "distance_km"},
			},
		},
		"activities": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"walk":       map[string]interface{}{"type": "string"},
				"culture":    map[string]interface{}{"type": "string"},
				"food_drink": map[string]interface{}{"type": "string"},
			},
			"required": []string{"walk", "culture", "food_drink"},
		},
	},
	"required": []string{"intro_paragraph", "detail_paragraph", "places_to_visit", "activities"},
}

type generateRequest struct {
	Model     string                 `json:"model"`
	Prompt    string                 `json:"prompt"`
	Stream    bool                   `json:"stream"`
	KeepAlive int                    `json:"keep_alive"`
	Format    map[string]interface{} `json:"format"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// SamplingOptions carries the externally configurable generation parameters.
type SamplingOptions struct {
	Temperature   float64
	TopP          float64
	NumCtx        int
	RepeatPenalty float64
}

// OllamaGenerator sends prompts to an Ollama-compatible generate endpoint and
// reassembles the newline-delimited streamed fragments into the full text
// before returning; validation cannot run on partial JSON.
type OllamaGenerator struct {
	BaseURL  string
	Token    string
	Model    string
	Sampling SamplingOptions
	Client   *http.Client
}

// NewOllamaGenerator constructs a generator. An empty token omits the
// Authorization header.
func NewOllamaGenerator(baseURL, token, model string, sampling SamplingOptions, client *http.Client) *OllamaGenerator {
	return &OllamaGenerator{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		Model:    model,
		Sampling: sampling,
		Client:   client,
	}
}

// Generate sends the prompt and returns the reassembled response text.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	options := map[string]interface{}{
		"temperature":    g.Sampling.Temperature,
		"top_p":          g.Sampling.TopP,
		"repeat_penalty": g.Sampling.RepeatPenalty,
	}
	if g.Sampling.NumCtx > 0 {
		options["num_ctx"] = g.Sampling.NumCtx
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}

	reqBody := generateRequest{
		Model:     g.Model,
		Prompt:    prompt,
		Stream:    true,
		KeepAlive: keepAliveSeconds,
		Format:    narrationFormat,
		Options:   options,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var builder strings.Builder
	done := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode stream fragment: %w", err)
		}
		builder.WriteString(chunk.Response)
		if chunk.Done {
			done = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("generation stream failed: %w", err)
	}

	return &domain.LLMResponse{
		Text: strings.TrimSpace(builder.String()),
		Done: done,
	}, nil
}

// Version returns the wrapped model name.
func (g *OllamaGenerator) Version() string {
	return g.Model
}

var _ domain.LLMClient = (*OllamaGenerator)(nil)
