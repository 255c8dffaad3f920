package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// Options selects and configures a provider.
type Options struct {
	Provider        string
	Model           string
	MaxTokens       int
	AnthropicAPIKey string
	AnthropicURL    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ReplayDir       string
}

// New builds the client for opts.Provider.
func New(opts Options, logger *slog.Logger) (Client, error) {
	var (
		c   Client
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderAnthropic:
		c, err = asClient(NewAnthropicClient(AnthropicConfig{
			APIKey:    opts.AnthropicAPIKey,
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
			BaseURL:   opts.AnthropicURL,
		}, logger))
	case ProviderOpenAI:
		c, err = asClient(NewOpenAIClient(OpenAIConfig{
			APIKey:    opts.OpenAIAPIKey,
			BaseURL:   opts.OpenAIBaseURL,
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
		}, logger))
	case ProviderReplay:
		c, err = asClient(NewReplayClient(opts.ReplayDir, opts.Model, logger))
	default:
		err = fmt.Errorf("unknown provider %q (supported: %s, %s, %s)",
			opts.Provider, ProviderAnthropic, ProviderOpenAI, ProviderReplay)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// asClient drops typed nil pointers so a failed constructor never yields a
// non-nil interface.
func asClient[T Client](c T, err error) (Client, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
