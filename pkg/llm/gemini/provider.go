package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/upstream"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash-8b"
)

type GeminiProvider struct {
	ApiKey    string
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure GeminiProvider implements LLMProvider
var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiProvider{
		ApiKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		ModelName: modelName,
		// No client timeout: the stream lives as long as the request context.
		Client: &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	options := llm.ApplyOptions(llm.Options{Model: p.ModelName, Temperature: 0.7}, opts...)

	reqPayload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     options.Temperature,
			TopP:            options.TopP,
			TopK:            options.TopK,
			MaxOutputTokens: options.MaxTokens,
		},
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.BaseURL, options.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.ApiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, upstream.NewStatusError("gemini", resp.StatusCode, body)
	}

	return llm.NewLineStream(resp.Body, parseEvent), nil
}

// parseEvent handles one SSE line. Only "data:" lines carry payloads.
func parseEvent(line []byte) (string, bool, error) {
	data, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return "", false, nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", false, nil
	}

	var chunk generateResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		return "", false, fmt.Errorf("decode gemini chunk: %w", err)
	}
	if chunk.Error != nil {
		return "", false, errors.New("gemini stream error: " + chunk.Error.Message)
	}
	if len(chunk.Candidates) == 0 {
		return "", false, nil
	}

	var sb strings.Builder
	for _, p := range chunk.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), false, nil
}
