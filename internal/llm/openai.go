package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
	"github.com/tradescribe/ai-service/internal/model"
)

// newsToolName is the single tool offered to tool-calling backends.
const newsToolName = "fetch_stock_news"

// OpenAICompatClient implements Client against any OpenAI-compatible chat
// completions API. One parameterized implementation serves openai, grok
// (api.x.ai) and groq (api.groq.com) — they differ only in base URL,
// credential and model names, so separate per-vendor adapters would just
// drift apart in their retry and fallback logic.
//
// This is the discrete tool-calling branch of the capability set: the model
// is offered fetch_stock_news, tool-call responses are executed against the
// news lookup, and the model is re-invoked once with the tool result.
type OpenAICompatClient struct {
	client    *openai.Client
	provider  string
	model     string
	fastModel string
	news      NewsFetcher
	logger    *zap.Logger
	sleep     sleepFunc
	now       func() time.Time
}

// NewOpenAICompatClient builds an adapter for one OpenAI-compatible vendor.
// An empty BaseURL targets api.openai.com; an empty FastModel falls back to
// the primary model for cheap calls.
func NewOpenAICompatClient(provider string, cfg config.ProviderConfig, news NewsFetcher, logger *zap.Logger) *OpenAICompatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	fast := cfg.FastModel
	if fast == "" {
		fast = cfg.Model
	}
	return &OpenAICompatClient{
		client:    openai.NewClientWithConfig(clientCfg),
		provider:  provider,
		model:     cfg.Model,
		fastModel: fast,
		news:      news,
		logger:    logger,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

func (c *OpenAICompatClient) ProviderName() string { return c.provider }
func (c *OpenAICompatClient) ModelName() string    { return c.model }

// openAITransient reports whether an error is a retryable upstream
// unavailability (rate limit or overload) rather than a permanent failure.
func openAITransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func transientStatus(code int) bool {
	switch code {
	case 429, 503, 529:
		return true
	}
	return false
}

// nearZeroTemp stands in for a literal 0: the SDK's omitempty drops a zero
// temperature from the request, which would fall back to the server default.
const nearZeroTemp = 1e-8

// ClassifyIntent runs the cheap single-turn classification on the fast model.
func (c *OpenAICompatClient) ClassifyIntent(ctx context.Context, text string) (model.Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.fastModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: classificationPrompt(text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    nearZeroTemp,
		MaxTokens:      50,
	})
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to OTHER",
			zap.String("provider", c.provider), zap.Error(err))
		return model.IntentOther, fmt.Errorf("%s classify intent: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return model.IntentOther, fmt.Errorf("%s classify intent: empty completion", c.provider)
	}
	return parseIntent(resp.Choices[0].Message.Content), nil
}

// ExtractTrade gates on classification, then runs the structured extraction
// completion with retry on transient upstream errors.
func (c *OpenAICompatClient) ExtractTrade(ctx context.Context, text string) (*model.TradeRecord, error) {
	intent, _ := c.ClassifyIntent(ctx, text)
	if intent != model.IntentLogTrade {
		return nil, nil
	}

	today := c.now().Format("2006-01-02")
	raw, err := withRetry(ctx, c.logger, "extract_trade", openAITransient, c.sleep, func() (string, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt(today)},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
			Temperature:    nearZeroTemp,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty completion")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		c.logger.Error("trade extraction failed",
			zap.String("provider", c.provider), zap.Error(err))
		return nil, fmt.Errorf("%s extract trade: %w", c.provider, err)
	}
	return parseTrade(raw), nil
}

// GenerateChatReply builds the protocol prompt, lets the model decide whether
// to call the news tool, and resolves the final text through the fallback
// chain. The whole attempt (including a tool round-trip) is the retry unit.
func (c *OpenAICompatClient) GenerateChatReply(ctx context.Context, userMessage string, history []model.ChatMessage, tradeHistory []map[string]any) (model.ChatResult, error) {
	base := make([]openai.ChatCompletionMessage, 0, historyWindow+2)
	base = append(base, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chatSystemInstruction(tradeHistory, toolContextWindow, "News Tool: call `fetch_stock_news` for live market news and prices."),
	})
	for _, m := range model.LastMessages(history, historyWindow) {
		base = append(base, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	base = append(base, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage})

	result, err := withRetry(ctx, c.logger, "generate_chat_reply", openAITransient, c.sleep, func() (model.ChatResult, error) {
		return c.replyOnce(ctx, base)
	})
	if err != nil {
		c.logger.Error("chat reply generation failed, returning fallback",
			zap.String("provider", c.provider), zap.Error(err))
		return model.ChatResult{Message: FallbackChatMessage}, fmt.Errorf("%s chat reply: %w", c.provider, err)
	}
	return result, nil
}

func (c *OpenAICompatClient) replyOnce(ctx context.Context, base []openai.ChatCompletionMessage) (model.ChatResult, error) {
	// Copy so a retried attempt starts from the untouched conversation.
	messages := append([]openai.ChatCompletionMessage(nil), base...)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       newsToolDefinition(),
		Temperature: 0.6,
	})
	if err != nil {
		return model.ChatResult{}, err
	}
	if len(resp.Choices) == 0 {
		return model.ChatResult{}, errors.New("empty completion")
	}
	choice := resp.Choices[0]

	if len(choice.Message.ToolCalls) == 0 {
		return model.ChatResult{
			Message:    resolveText(choice.Message.Content, nil, blockReason(choice.FinishReason)),
			IsGrounded: false,
		}, nil
	}

	// The model asked for live data. The reply is grounded from here on,
	// whether or not the lookup itself succeeds.
	messages = append(messages, choice.Message)
	for _, call := range choice.Message.ToolCalls {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    c.runNewsTool(ctx, call),
			ToolCallID: call.ID,
		})
	}

	final, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.6,
	})
	if err != nil {
		return model.ChatResult{}, err
	}
	if len(final.Choices) == 0 {
		return model.ChatResult{}, errors.New("empty completion after tool call")
	}
	return model.ChatResult{
		Message:    resolveText(final.Choices[0].Message.Content, nil, blockReason(final.Choices[0].FinishReason)),
		IsGrounded: true,
	}, nil
}

// runNewsTool executes one tool call. Failures become structured tool output
// so the conversation continues instead of aborting.
func (c *OpenAICompatClient) runNewsTool(ctx context.Context, call openai.ToolCall) string {
	if call.Function.Name != newsToolName {
		return `{"error": "unknown tool"}`
	}
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args.Query == "" {
		return `{"error": "invalid tool arguments"}`
	}
	if c.news == nil {
		return `{"error": "news lookup is not configured"}`
	}
	return c.news.FetchStockNews(ctx, args.Query)
}

func blockReason(reason openai.FinishReason) string {
	if reason == openai.FinishReasonContentFilter {
		return "content_filter"
	}
	return ""
}

// AnalyzeTrades is best-effort: any failure degrades to the fixed message.
func (c *OpenAICompatClient) AnalyzeTrades(ctx context.Context, trades []map[string]any) (model.AnalysisResult, error) {
	if len(trades) == 0 {
		return model.AnalysisResult{Summary: "No trades to analyze.", Insights: []string{}}, nil
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(trades)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.1,
	})
	if err == nil && len(resp.Choices) > 0 {
		if result, ok := parseAnalysis(resp.Choices[0].Message.Content); ok {
			return result, nil
		}
		err = errors.New("unparseable analysis completion")
	} else if err == nil {
		err = errors.New("empty completion")
	}
	c.logger.Warn("trade analysis failed", zap.String("provider", c.provider), zap.Error(err))
	return model.AnalysisResult{Summary: FallbackAnalysis, Insights: []string{}}, fmt.Errorf("%s analyze trades: %w", c.provider, err)
}

// GenerateTitle is best-effort: any failure degrades to "New Chat".
func (c *OpenAICompatClient) GenerateTitle(ctx context.Context, messages []model.ChatMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.fastModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript(messages, titleWindow)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.3,
	})
	if err == nil && len(resp.Choices) > 0 {
		if title, ok := parseTitle(resp.Choices[0].Message.Content); ok {
			return title, nil
		}
		err = errors.New("unparseable title completion")
	} else if err == nil {
		err = errors.New("empty completion")
	}
	c.logger.Warn("title generation failed", zap.String("provider", c.provider), zap.Error(err))
	return FallbackTitle, fmt.Errorf("%s generate title: %w", c.provider, err)
}

func newsToolDefinition() []openai.Tool {
	return []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        newsToolName,
			Description: "Get live news headlines for a stock ticker or market query.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Ticker symbol or market topic (e.g. AAPL)",
					},
				},
				"required": []string{"query"},
			},
		},
	}}
}
