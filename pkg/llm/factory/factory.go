package factory

import (
	"fmt"

	"rag-chat-be/pkg/llm"
	"rag-chat-be/pkg/llm/anthropic"
	"rag-chat-be/pkg/llm/gemini"
	"rag-chat-be/pkg/llm/ollama"
	"rag-chat-be/pkg/llm/openai"
)

type Config struct {
	Provider     string
	Model        string
	OllamaURL    string
	OpenAIURL    string
	GeminiKey    string
	OpenAIKey    string
	AnthropicKey string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(cfg.GeminiKey, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		return ollama.NewOllamaProvider(baseURL, model), nil
	case "openai", "huggingface":
		return openai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIURL, cfg.Model), nil
	case "anthropic":
		return anthropic.NewAnthropicProvider(cfg.AnthropicKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
