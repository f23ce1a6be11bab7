// Package service contains the orchestration layer between the HTTP handlers
// and the selected LLM backend. It owns the one piece of cross-cutting
// behavior the adapters don't: recording a telemetry row per operation, and
// fanning out the two independent halves of process-chat.
package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/llm"
	"github.com/tradescribe/ai-service/internal/model"
	"github.com/tradescribe/ai-service/internal/storage"
)

// AIService fronts the process-wide LLM client. It holds no per-request
// state; every method is safe for concurrent use.
type AIService struct {
	llm    llm.Client
	calls  storage.CallRepository
	logger *zap.Logger
}

// NewAIService wires the selected backend with call telemetry.
// calls may be nil (the CLI runs without a database); telemetry is skipped.
func NewAIService(client llm.Client, calls storage.CallRepository, logger *zap.Logger) *AIService {
	return &AIService{
		llm:    client,
		calls:  calls,
		logger: logger,
	}
}

// Provider reports the active backend for the health endpoint.
func (s *AIService) Provider() string { return s.llm.ProviderName() }

// Configured reports whether a real backend is active (vs. the stub).
func (s *AIService) Configured() bool { return llm.IsConfigured(s.llm) }

// ProcessChat generates the reply and extracts a trade from the same
// message. The two halves are independent — each runs its own classification
// and completion calls — so they run concurrently and join before returning.
func (s *AIService) ProcessChat(ctx context.Context, req model.ChatProcessRequest) model.ChatProcessResponse {
	start := time.Now()

	var (
		reply    model.ChatResult
		replyErr error
		trade    *model.TradeRecord
		tradeErr error
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		reply, replyErr = s.llm.GenerateChatReply(ctx, req.UserMessage, req.ChatHistory, req.TradeHistory)
	}()
	go func() {
		defer wg.Done()
		trade, tradeErr = s.llm.ExtractTrade(ctx, req.UserMessage)
	}()
	wg.Wait()

	s.record(ctx, model.OpProcessChat, replyErr == nil && tradeErr == nil, start)

	return model.ChatProcessResponse{
		Message:        reply.Message,
		TradeExtracted: trade,
		IsGrounded:     reply.IsGrounded,
	}
}

// ExtractTrade runs standalone extraction. A nil record is a normal outcome.
func (s *AIService) ExtractTrade(ctx context.Context, text string) *model.TradeRecord {
	start := time.Now()
	trade, err := s.llm.ExtractTrade(ctx, text)
	s.record(ctx, model.OpExtractTrade, err == nil, start)
	return trade
}

// AnalyzeTrades summarizes a trade list, degrading to the fixed failure
// message inside the adapter.
func (s *AIService) AnalyzeTrades(ctx context.Context, trades []map[string]any) model.AnalysisResult {
	start := time.Now()
	result, err := s.llm.AnalyzeTrades(ctx, trades)
	s.record(ctx, model.OpAnalyzeTrades, err == nil, start)
	return result
}

// GenerateTitle produces a short session title, degrading to "New Chat"
// inside the adapter.
func (s *AIService) GenerateTitle(ctx context.Context, messages []model.ChatMessage) string {
	start := time.Now()
	title, err := s.llm.GenerateTitle(ctx, messages)
	s.record(ctx, model.OpGenerateTitle, err == nil, start)
	return title
}

// record writes one telemetry row. Telemetry failures are logged and
// swallowed — they must never affect the response.
func (s *AIService) record(ctx context.Context, operation string, success bool, start time.Time) {
	if s.calls == nil {
		return
	}
	durationMs := time.Since(start).Milliseconds()
	call := &model.ProviderCall{
		Operation:  operation,
		Provider:   s.llm.ProviderName(),
		Model:      s.llm.ModelName(),
		Success:    success,
		DurationMs: &durationMs,
	}
	if err := s.calls.Record(ctx, call); err != nil {
		s.logger.Error("recording provider call", zap.Error(err))
	}
}
