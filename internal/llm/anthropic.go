package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
	"github.com/tradescribe/ai-service/internal/model"
)

// AnthropicClient implements Client using Claude. This is the
// integrated-search branch of the capability set: instead of a discrete news
// tool, chat replies use the built-in web_search server tool, and grounding
// is detected from the server-tool-use blocks in the response. Structured
// trade extraction uses a custom tool so the completion is constrained to the
// record schema instead of free-form text.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
	sleep  sleepFunc
	now    func() time.Time
}

// NewAnthropicClient creates the Claude-backed adapter.
func NewAnthropicClient(cfg config.ProviderConfig, logger *zap.Logger) *AnthropicClient {
	// The retry policy lives in withRetry; the SDK's own retries would stack
	// on top of it and stretch the backoff schedule.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client: &client,
		model:  cfg.Model,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func anthropicTransient(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.StatusCode)
	}
	return false
}

// ClassifyIntent runs the single-turn classification at temperature zero.
func (a *AnthropicClient) ClassifyIntent(ctx context.Context, text string) (model.Intent, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   50,
		Temperature: param.NewOpt(0.0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(classificationPrompt(text))),
		},
	})
	if err != nil {
		a.logger.Warn("intent classification failed, defaulting to OTHER", zap.Error(err))
		return model.IntentOther, fmt.Errorf("anthropic classify intent: %w", err)
	}
	return parseIntent(joinTextBlocks(message)), nil
}

// tradeToolSchema constrains extraction output to the TradeRecord shape.
var tradeToolSchema = map[string]interface{}{
	"ticker": map[string]interface{}{
		"type":        "string",
		"description": "Stock ticker symbol, uppercase (e.g. TSLA).",
	},
	"entry_date": map[string]interface{}{
		"type":        "string",
		"description": "Entry date in YYYY-MM-DD format.",
	},
	"entry_price": map[string]interface{}{
		"type":        "number",
		"description": "Price per share at entry.",
	},
	"quantity": map[string]interface{}{
		"type":        "number",
		"description": "Number of shares. Default to 1 if the user did not mention one.",
	},
	"exit_date": map[string]interface{}{
		"type":        "string",
		"description": "Exit date in YYYY-MM-DD format, if the position was closed.",
	},
	"exit_price": map[string]interface{}{
		"type":        "number",
		"description": "Price per share at exit, if the position was closed.",
	},
	"notes": map[string]interface{}{
		"type":        "string",
		"description": "Any remaining context from the user's message.",
	},
}

// ExtractTrade gates on classification, then asks Claude to call the
// record_trade tool. No tool call means no trade was found.
func (a *AnthropicClient) ExtractTrade(ctx context.Context, text string) (*model.TradeRecord, error) {
	intent, _ := a.ClassifyIntent(ctx, text)
	if intent != model.IntentLogTrade {
		return nil, nil
	}

	recordTool := anthropic.ToolParam{
		Name:        "record_trade",
		Description: param.NewOpt("Record the details of the completed trade described in the input. Call this only when the input describes a real completed trade."),
		InputSchema: anthropic.ToolInputSchemaParam{Properties: tradeToolSchema},
	}
	system := fmt.Sprintf(`You are a strict Data Extraction Agent. Context Date: %s.
If the input describes a COMPLETED trade, call the record_trade tool with its details. Default quantity to 1 if missing.
If no valid trade is found, do not call any tool — reply with the single word: null`, a.now().Format("2006-01-02"))

	record, err := withRetry(ctx, a.logger, "extract_trade", anthropicTransient, a.sleep, func() (*model.TradeRecord, error) {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(a.model),
			MaxTokens:   1024,
			Temperature: param.NewOpt(0.0),
			System:      []anthropic.TextBlockParam{{Text: system}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
			},
			Tools: []anthropic.ToolUnionParam{{OfTool: &recordTool}},
		})
		if err != nil {
			return nil, err
		}
		for _, block := range message.Content {
			toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok || toolUse.Name != "record_trade" {
				continue
			}
			raw, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, nil
			}
			return parseTrade(string(raw)), nil
		}
		// No tool call: Claude answered "null" (or similar) — no trade found.
		return nil, nil
	})
	if err != nil {
		a.logger.Error("trade extraction failed", zap.Error(err))
		return nil, fmt.Errorf("anthropic extract trade: %w", err)
	}
	return record, nil
}

// GenerateChatReply answers with the built-in web_search tool available.
// Search execution happens server-side, so a single call covers both the
// grounded and ungrounded paths.
func (a *AnthropicClient) GenerateChatReply(ctx context.Context, userMessage string, history []model.ChatMessage, tradeHistory []map[string]any) (model.ChatResult, error) {
	system := chatSystemInstruction(tradeHistory, tradeContextWindow,
		"Web Search Tool: search the web for real-time news and prices.")

	messages := make([]anthropic.MessageParam, 0, historyWindow+1)
	for _, m := range model.LastMessages(history, historyWindow) {
		if m.Role == model.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	result, err := withRetry(ctx, a.logger, "generate_chat_reply", anthropicTransient, a.sleep, func() (model.ChatResult, error) {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(a.model),
			MaxTokens:   1024,
			Temperature: param.NewOpt(0.7),
			System:      []anthropic.TextBlockParam{{Text: system}},
			Messages:    messages,
			Tools: []anthropic.ToolUnionParam{
				{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{}},
			},
		})
		if err != nil {
			return model.ChatResult{}, err
		}

		grounded := false
		var parts []string
		for _, block := range message.Content {
			switch b := block.AsAny().(type) {
			case anthropic.TextBlock:
				parts = append(parts, b.Text)
			case anthropic.ServerToolUseBlock:
				grounded = true
			case anthropic.WebSearchToolResultBlock:
				grounded = true
			}
		}

		blockReason := ""
		if message.StopReason == anthropic.StopReasonRefusal {
			blockReason = string(message.StopReason)
		}
		return model.ChatResult{
			Message:    resolveText("", parts, blockReason),
			IsGrounded: grounded,
		}, nil
	})
	if err != nil {
		a.logger.Error("chat reply generation failed, returning fallback", zap.Error(err))
		return model.ChatResult{Message: FallbackChatMessage}, fmt.Errorf("anthropic chat reply: %w", err)
	}
	return result, nil
}

// AnalyzeTrades is best-effort: any failure degrades to the fixed message.
func (a *AnthropicClient) AnalyzeTrades(ctx context.Context, trades []map[string]any) (model.AnalysisResult, error) {
	if len(trades) == 0 {
		return model.AnalysisResult{Summary: "No trades to analyze.", Insights: []string{}}, nil
	}
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.1),
		System:      []anthropic.TextBlockParam{{Text: analysisSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(analysisPrompt(trades))),
		},
	})
	if err == nil {
		if result, ok := parseAnalysis(joinTextBlocks(message)); ok {
			return result, nil
		}
		err = errors.New("unparseable analysis completion")
	}
	a.logger.Warn("trade analysis failed", zap.Error(err))
	return model.AnalysisResult{Summary: FallbackAnalysis, Insights: []string{}}, fmt.Errorf("anthropic analyze trades: %w", err)
}

// GenerateTitle is best-effort: any failure degrades to "New Chat".
func (a *AnthropicClient) GenerateTitle(ctx context.Context, messages []model.ChatMessage) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   100,
		Temperature: param.NewOpt(0.3),
		System:      []anthropic.TextBlockParam{{Text: titleSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript(messages, titleWindow))),
		},
	})
	if err == nil {
		if title, ok := parseTitle(joinTextBlocks(message)); ok {
			return title, nil
		}
		err = errors.New("unparseable title completion")
	}
	a.logger.Warn("title generation failed", zap.Error(err))
	return FallbackTitle, fmt.Errorf("anthropic generate title: %w", err)
}

// joinTextBlocks concatenates the text content blocks of a message.
func joinTextBlocks(message *anthropic.Message) string {
	var out string
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += text.Text
		}
	}
	return out
}
