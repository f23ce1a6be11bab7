package llm

import (
	"context"

	"github.com/tradescribe/ai-service/internal/model"
)

// notConfiguredMessage is returned by every stub chat call so a
// misconfigured deployment is obvious from the first response.
const notConfiguredMessage = "AI provider is not configured. Set AI_LLM_PROVIDER to one of: anthropic, openai, grok, groq."

// stubClient stands in when the configured provider name is unrecognized.
// The server still boots and serves health checks; every operation returns
// its documented "not configured" result instead of panicking or erroring.
type stubClient struct {
	provider string
}

// NewStub returns the not-configured adapter for an unrecognized provider
// selection value.
func NewStub(provider string) Client {
	return &stubClient{provider: provider}
}

// IsConfigured reports whether c is a real backend rather than the
// not-configured stub. The health endpoint uses this to report degraded
// status.
func IsConfigured(c Client) bool {
	_, stub := c.(*stubClient)
	return !stub
}

func (s *stubClient) ProviderName() string { return s.provider }
func (s *stubClient) ModelName() string    { return "none" }

func (s *stubClient) ClassifyIntent(context.Context, string) (model.Intent, error) {
	return model.IntentOther, nil
}

func (s *stubClient) ExtractTrade(context.Context, string) (*model.TradeRecord, error) {
	return nil, nil
}

func (s *stubClient) GenerateChatReply(context.Context, string, []model.ChatMessage, []map[string]any) (model.ChatResult, error) {
	return model.ChatResult{Message: notConfiguredMessage}, nil
}

func (s *stubClient) AnalyzeTrades(context.Context, []map[string]any) (model.AnalysisResult, error) {
	return model.AnalysisResult{Summary: "Service not configured.", Insights: []string{}}, nil
}

func (s *stubClient) GenerateTitle(context.Context, []model.ChatMessage) (string, error) {
	return FallbackTitle, nil
}
