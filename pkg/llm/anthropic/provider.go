package anthropic

import (
	"context"
	"errors"
	"fmt"

	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/upstream"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-3-5-haiku-latest"

type AnthropicProvider struct {
	client    *anthropic.Client
	modelName string
}

var _ llm.LLMProvider = &AnthropicProvider{}

// NewAnthropicProvider disables SDK retries; extra options are applied last.
func NewAnthropicProvider(apiKey, modelName string, extra ...option.RequestOption) *AnthropicProvider {
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	clientOpts = append(clientOpts, extra...)
	if modelName == "" {
		modelName = DefaultModel
	}

	client := anthropic.NewClient(clientOpts...)
	return &AnthropicProvider{client: &client, modelName: modelName}
}

type eventStream interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}

func (p *AnthropicProvider) GenerateStream(ctx context.Context, prompt string, opts ...llm.Option) (llm.Stream, error) {
	// Messages API requires max_tokens.
	options := llm.ApplyOptions(llm.Options{Model: p.modelName, Temperature: 0.7, MaxTokens: 1024}, opts...)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(options.Temperature),
	}
	if options.TopP > 0 {
		params.TopP = anthropic.Float(options.TopP)
	}
	if options.TopK > 0 {
		params.TopK = anthropic.Int(int64(options.TopK))
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, mapError(err)
	}
	return &messageStream{src: stream}, nil
}

type messageStream struct {
	src  eventStream
	text string
}

func (s *messageStream) Next() bool {
	for s.src.Next() {
		event := s.src.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				s.text = delta.Text
				return true
			}
		case anthropic.MessageStopEvent:
			return false
		}
	}
	return false
}

func (s *messageStream) Text() string { return s.text }

func (s *messageStream) Err() error {
	if err := s.src.Err(); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *messageStream) Close() error { return s.src.Close() }

func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return upstream.NewStatusError("anthropic", apiErr.StatusCode, []byte(apiErr.Error()))
	}
	return fmt.Errorf("anthropic streaming error: %w", err)
}
