package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
)

// Supported provider identifiers for LLMConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGrok      = "grok"
	ProviderGroq      = "groq"
)

// New maps the configured provider selection to exactly one Client. It is
// called once at startup; the returned instance is shared read-only for the
// process lifetime.
//
// A recognized provider with a missing API key is a configuration error and
// fails startup. An unrecognized provider name is degraded instead of fatal:
// the stub client is returned so the server can boot and report unhealthy
// rather than crash-loop on a typo.
func New(cfg config.LLMConfig, news NewsFetcher, logger *zap.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("provider %q selected but llm.anthropic.api_key is missing", provider)
		}
		return NewAnthropicClient(cfg.Anthropic, logger), nil
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("provider %q selected but llm.openai.api_key is missing", provider)
		}
		return NewOpenAICompatClient(provider, cfg.OpenAI, news, logger), nil
	case ProviderGrok:
		if cfg.Grok.APIKey == "" {
			return nil, fmt.Errorf("provider %q selected but llm.grok.api_key is missing", provider)
		}
		return NewOpenAICompatClient(provider, cfg.Grok, news, logger), nil
	case ProviderGroq:
		if cfg.Groq.APIKey == "" {
			return nil, fmt.Errorf("provider %q selected but llm.groq.api_key is missing", provider)
		}
		return NewOpenAICompatClient(provider, cfg.Groq, news, logger), nil
	default:
		logger.Error("unrecognized AI provider, starting with stub backend",
			zap.String("provider", cfg.Provider))
		return NewStub(cfg.Provider), nil
	}
}
