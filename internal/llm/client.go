// Package llm provides a provider-agnostic interface over LLM backends for
// the trading-journal pipeline: intent classification, intent-gated trade
// extraction, tool/search-augmented chat replies, trade analysis, and session
// titles. Each backend implements the same small capability set; which one
// runs is fixed once at startup by the factory in this package.
package llm

import (
	"context"

	"github.com/tradescribe/ai-service/internal/model"
)

// Fallback strings the adapters degrade to. Callers of the HTTP surface only
// ever see these or a substantive answer — never a raw upstream error.
const (
	FallbackChatMessage = "I apologize, but my market intelligence service is overloaded right now. Please try again in a moment."
	FallbackTitle       = "New Chat"
	FallbackAnalysis    = "Analysis failed."

	emptyReplyMessage = "I processed your request but could not generate a text response. Please try rephrasing."
)

// NewsFetcher supplies the live stock-news lookup that tool-calling backends
// offer to the model. Implementations never fail: lookup errors come back as
// JSON error payloads so the conversation can continue.
type NewsFetcher interface {
	FetchStockNews(ctx context.Context, query string) string
}

// Client is the capability set every LLM backend must satisfy.
//
// Every method returns a usable value even when the upstream call fails: a
// safe default intent, a nil record, a fallback message. The error return
// reports the terminal upstream failure for logging and telemetry only —
// callers must not turn it into a user-facing error. This uniform
// degrade-don't-raise policy is deliberate; see DESIGN.md.
type Client interface {
	// ClassifyIntent runs a single-turn, temperature-zero completion
	// constrained to the five intent tokens. Any failure yields IntentOther.
	ClassifyIntent(ctx context.Context, text string) (model.Intent, error)

	// ExtractTrade first classifies the text and returns nil immediately
	// unless the intent is LOG_TRADE — the expensive structured completion is
	// skipped for news, planning and commentary text. A nil record is a
	// normal outcome, not an error.
	ExtractTrade(ctx context.Context, text string) (*model.TradeRecord, error)

	// GenerateChatReply produces the assistant's next message given the user
	// message, recent conversation history, and a bounded window of trade
	// history injected as read-only context. The result's IsGrounded flag is
	// true iff a live lookup (search grounding or an executed tool call)
	// occurred during generation. The returned message is never empty.
	GenerateChatReply(ctx context.Context, userMessage string, history []model.ChatMessage, tradeHistory []map[string]any) (model.ChatResult, error)

	// AnalyzeTrades summarizes at most the 50 most recent trades.
	AnalyzeTrades(ctx context.Context, trades []map[string]any) (model.AnalysisResult, error)

	// GenerateTitle produces a 3-5 word session title from the last 5 messages.
	GenerateTitle(ctx context.Context, messages []model.ChatMessage) (string, error)

	// ProviderName returns the backend identifier, e.g. "anthropic" or "groq".
	ProviderName() string

	// ModelName returns the primary model identifier.
	ModelName() string
}
