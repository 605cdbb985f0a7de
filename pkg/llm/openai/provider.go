// Package openai streams completions from the OpenAI Chat Completions API or
// any compatible endpoint (Hugging Face router, vLLM, LM Studio).
package openai

import (
	"context"
	"errors"
	"fmt"

	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/upstream"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultModel = openai.ChatModelGPT4oMini

type OpenAIProvider struct {
	client    *openai.Client
	modelName string
}

var _ llm.LLMProvider = &OpenAIProvider{}

// NewOpenAIProvider builds a client with SDK retries disabled; callers
// apply their own retry policy.
func NewOpenAIProvider(apiKey, baseURL, modelName string) *OpenAIProvider {
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client := openai.NewClient(clientOpts...)
	return &OpenAIProvider{client: &client, modelName: modelName}
}

type chunkStream interface {
	Next() bool
	Current() openai.ChatCompletionChunk
	Err() error
	Close() error
}

func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	options := llm.ApplyOptions(llm.Options{Model: p.modelName, Temperature: 0.7}, opts...)

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       options.Model,
		Temperature: openai.Float(options.Temperature),
	}
	if options.TopP > 0 {
		params.TopP = openai.Float(options.TopP)
	}
	if options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	// The request is issued eagerly; a failed handshake shows up here.
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, mapError(err)
	}
	return &completionStream{src: stream}, nil
}

type completionStream struct {
	src  chunkStream
	text string
}

func (s *completionStream) Next() bool {
	for s.src.Next() {
		chunk := s.src.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		s.text = chunk.Choices[0].Delta.Content
		return true
	}
	return false
}

func (s *completionStream) Text() string { return s.text }

func (s *completionStream) Err() error {
	if err := s.src.Err(); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *completionStream) Close() error { return s.src.Close() }

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return upstream.NewStatusError("openai", apiErr.StatusCode, []byte(apiErr.Error()))
	}
	return fmt.Errorf("openai streaming error: %w", err)
}
