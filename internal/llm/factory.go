package llm

import "fmt"

// Config selects and configures a provider.
type Config struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider  string
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

// NewProvider creates a Provider from configuration. There is no retry
// wrapping here: a single oracle failure is surfaced to the caller,
// which reports it as retryable and leaves retry timing to the user.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
