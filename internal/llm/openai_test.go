package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
	"github.com/tradescribe/ai-service/internal/model"
)

// scriptedBackend serves one canned chat-completions response per request, in
// order, and keeps the decoded request bodies for assertions.
type scriptedBackend struct {
	t     *testing.T
	mu    sync.Mutex
	steps []func(w http.ResponseWriter)
	reqs  []map[string]any
}

func newScriptedBackend(t *testing.T, steps ...func(w http.ResponseWriter)) (*scriptedBackend, *httptest.Server) {
	t.Helper()
	b := &scriptedBackend{t: t, steps: steps}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(body, &decoded)

		b.mu.Lock()
		b.reqs = append(b.reqs, decoded)
		i := len(b.reqs) - 1
		b.mu.Unlock()

		if i >= len(b.steps) {
			b.t.Errorf("unexpected request %d to fake backend", i+1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b.steps[i](w)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *scriptedBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reqs)
}

func (b *scriptedBackend) request(i int) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reqs[i]
}

func requestMessages(req map[string]any) []map[string]any {
	raw, _ := req["messages"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, m := range raw {
		if mm, ok := m.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

func textCompletion(content string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		fmt.Fprintf(w, `{"choices": [{"message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}]}`, content)
	}
}

func filteredCompletion() func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		io.WriteString(w, `{"choices": [{"message": {"role": "assistant", "content": ""}, "finish_reason": "content_filter"}]}`)
	}
}

func toolCallCompletion(id, name, arguments string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		fmt.Fprintf(w, `{"choices": [{"message": {"role": "assistant", "tool_calls": [{"id": %q, "type": "function", "function": {"name": %q, "arguments": %q}}]}, "finish_reason": "tool_calls"}]}`,
			id, name, arguments)
	}
}

func errorStatus(code int) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"error": {"message": "upstream unavailable", "type": "server_error", "code": %d}}`, code)
	}
}

func toolCall(name, arguments string) openai.ToolCall {
	return openai.ToolCall{
		ID:       "call_1",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: arguments},
	}
}

type fakeNews struct {
	mu      sync.Mutex
	queries []string
	payload string
}

func (f *fakeNews) FetchStockNews(_ context.Context, query string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.payload
}

// newTestClient points the adapter at the fake backend with backoff delays
// recorded instead of slept.
func newTestClient(t *testing.T, baseURL string, news NewsFetcher, delays *[]time.Duration) *OpenAICompatClient {
	t.Helper()
	c := NewOpenAICompatClient("openai", config.ProviderConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL + "/v1",
		Model:     "gpt-4o",
		FastModel: "gpt-4o-mini",
	}, news, zap.NewNop())
	c.sleep = countingSleep(delays)
	c.now = func() time.Time { return time.Date(2026, time.August, 23, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestExtractTradeSkipsNonTradeMessages(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		textCompletion(`{"intent": "NEWS_MARKET"}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	trade, err := c.ExtractTrade(context.Background(), "What's the latest on TSLA?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade != nil {
		t.Errorf("expected nil trade, got %+v", trade)
	}
	if backend.requestCount() != 1 {
		t.Errorf("expected only the classification call, got %d requests", backend.requestCount())
	}
}

func TestExtractTradeRunsExtractionForLogTrade(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		textCompletion(`{"intent": "LOG_TRADE"}`),
		textCompletion(`{"ticker": "aapl", "entry_date": "2026-08-20", "entry_price": 185.5}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	trade, err := c.ExtractTrade(context.Background(), "Bought AAPL at 185.50 on Thursday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade == nil {
		t.Fatal("expected a trade record")
	}
	if trade.Ticker != "AAPL" || trade.Quantity != 1 {
		t.Errorf("unexpected record: %+v", trade)
	}
	if backend.requestCount() != 2 {
		t.Fatalf("expected 2 requests, got %d", backend.requestCount())
	}

	// Classification rides the fast model; extraction uses the primary one.
	if got := backend.request(0)["model"]; got != "gpt-4o-mini" {
		t.Errorf("expected classification on gpt-4o-mini, got %v", got)
	}
	if got := backend.request(1)["model"]; got != "gpt-4o" {
		t.Errorf("expected extraction on gpt-4o, got %v", got)
	}
}

func TestExtractTradeNoTradeFound(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		textCompletion(`{"intent": "LOG_TRADE"}`),
		textCompletion(`{"error": "null"}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	trade, err := c.ExtractTrade(context.Background(), "Thinking about maybe buying AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade != nil {
		t.Errorf("expected nil trade, got %+v", trade)
	}
}

func TestExtractTradeRetriesTransientErrors(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		textCompletion(`{"intent": "LOG_TRADE"}`),
		errorStatus(503),
		errorStatus(429),
		textCompletion(`{"ticker": "TSLA", "entry_date": "2026-08-23", "entry_price": 250, "quantity": 10}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	trade, err := c.ExtractTrade(context.Background(), "Bought 10 TSLA at 250 today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trade == nil || trade.Quantity != 10 {
		t.Fatalf("unexpected record: %+v", trade)
	}
	if backend.requestCount() != 4 {
		t.Errorf("expected 4 requests, got %d", backend.requestCount())
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("expected 1s then 2s backoff, got %v", delays)
	}
}

func TestGenerateChatReplyDirectAnswer(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		textCompletion("Markets digest rate news slowly."),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.GenerateChatReply(context.Background(), "Any thoughts on the Fed?", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "Markets digest rate news slowly." {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.IsGrounded {
		t.Error("expected ungrounded reply without tool calls")
	}

	msgs := requestMessages(backend.request(0))
	if len(msgs) != 2 {
		t.Fatalf("expected system + user message, got %d", len(msgs))
	}
	if msgs[0]["role"] != "system" {
		t.Errorf("expected leading system message, got %v", msgs[0]["role"])
	}
}

func TestGenerateChatReplyTruncatesHistory(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		textCompletion("ok"),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	history := make([]model.ChatMessage, 10)
	for i := range history {
		history[i] = model.ChatMessage{Role: model.RoleUser, Content: fmt.Sprintf("msg %d", i)}
	}

	if _, err := c.GenerateChatReply(context.Background(), "latest", history, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := requestMessages(backend.request(0))
	// system + 6 most recent history turns + current user message
	if len(msgs) != historyWindow+2 {
		t.Fatalf("expected %d messages, got %d", historyWindow+2, len(msgs))
	}
	if msgs[1]["content"] != "msg 4" {
		t.Errorf("expected history truncated to most recent turns, first was %v", msgs[1]["content"])
	}
}

func TestGenerateChatReplyExecutesNewsTool(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		toolCallCompletion("call_1", "fetch_stock_news", `{"query": "TSLA"}`),
		textCompletion("TSLA is up 3% on delivery numbers."),
	)
	news := &fakeNews{payload: `{"articles": [{"title": "TSLA deliveries beat"}]}`}
	c := newTestClient(t, srv.URL, news, &delays)

	result, err := c.GenerateChatReply(context.Background(), "What's moving TSLA today?", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsGrounded {
		t.Error("expected grounded reply after an executed tool call")
	}
	if result.Message != "TSLA is up 3% on delivery numbers." {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if len(news.queries) != 1 || news.queries[0] != "TSLA" {
		t.Errorf("expected one lookup for TSLA, got %v", news.queries)
	}

	// Second completion carries the tool result back to the model.
	msgs := requestMessages(backend.request(1))
	last := msgs[len(msgs)-1]
	if last["role"] != "tool" || last["tool_call_id"] != "call_1" {
		t.Errorf("expected trailing tool message for call_1, got %v", last)
	}
	if last["content"] != news.payload {
		t.Errorf("expected tool payload forwarded verbatim, got %v", last["content"])
	}
}

func TestGenerateChatReplyToolFailureStillGrounded(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		toolCallCompletion("call_1", "fetch_stock_news", `{"query": "NVDA"}`),
		textCompletion("I couldn't reach the news service, but here's what I know."),
	)
	c := newTestClient(t, srv.URL, nil, &delays) // no news fetcher configured

	result, err := c.GenerateChatReply(context.Background(), "NVDA news?", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsGrounded {
		t.Error("expected grounded: the model attempted a live lookup")
	}

	msgs := requestMessages(backend.request(1))
	last := msgs[len(msgs)-1]
	if last["content"] != `{"error": "news lookup is not configured"}` {
		t.Errorf("expected structured tool error, got %v", last["content"])
	}
}

func TestGenerateChatReplyUnknownToolAndBadArguments(t *testing.T) {
	c := newTestClient(t, "http://unused", nil, &[]time.Duration{})

	out := c.runNewsTool(context.Background(), toolCall("other_tool", `{"query": "x"}`))
	if out != `{"error": "unknown tool"}` {
		t.Errorf("unexpected unknown-tool output: %q", out)
	}
	out = c.runNewsTool(context.Background(), toolCall("fetch_stock_news", `not json`))
	if out != `{"error": "invalid tool arguments"}` {
		t.Errorf("unexpected bad-args output: %q", out)
	}
	out = c.runNewsTool(context.Background(), toolCall("fetch_stock_news", `{"query": ""}`))
	if out != `{"error": "invalid tool arguments"}` {
		t.Errorf("unexpected empty-query output: %q", out)
	}
}

func TestGenerateChatReplyRetriesThenRecovers(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		errorStatus(503),
		errorStatus(529),
		textCompletion("Recovered."),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.GenerateChatReply(context.Background(), "hello", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "Recovered." {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if backend.requestCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", backend.requestCount())
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("expected 1s then 2s backoff, got %v", delays)
	}
}

func TestGenerateChatReplyFallsBackAfterExhaustion(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		errorStatus(503),
		errorStatus(503),
		errorStatus(503),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.GenerateChatReply(context.Background(), "hello", nil, nil)
	if err == nil {
		t.Error("expected an informational error after exhaustion")
	}
	if result.Message != FallbackChatMessage {
		t.Errorf("expected fallback message, got %q", result.Message)
	}
	if backend.requestCount() != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, backend.requestCount())
	}
}

func TestGenerateChatReplyPermanentErrorNoRetry(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		errorStatus(400),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.GenerateChatReply(context.Background(), "hello", nil, nil)
	if err == nil {
		t.Error("expected an informational error")
	}
	if result.Message != FallbackChatMessage {
		t.Errorf("expected fallback message, got %q", result.Message)
	}
	if backend.requestCount() != 1 || len(delays) != 0 {
		t.Errorf("expected single attempt with no backoff, got %d requests, %v", backend.requestCount(), delays)
	}
}

func TestGenerateChatReplyContentFilter(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		filteredCompletion(),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.GenerateChatReply(context.Background(), "something filtered", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "I cannot answer that request. (Safety Block: content_filter)"
	if result.Message != want {
		t.Errorf("expected %q, got %q", want, result.Message)
	}
}

func TestClassifyIntentErrorDefaultsToOther(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		errorStatus(500),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	intent, err := c.ClassifyIntent(context.Background(), "hello")
	if err == nil {
		t.Error("expected an informational error")
	}
	if intent != model.IntentOther {
		t.Errorf("expected OTHER, got %s", intent)
	}
}

func TestGenerateTitle(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		textCompletion(`{"title": "AAPL Swing Review"}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	title, err := c.GenerateTitle(context.Background(), []model.ChatMessage{
		{Role: model.RoleUser, Content: "Logged my AAPL swing trade"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "AAPL Swing Review" {
		t.Errorf("unexpected title: %q", title)
	}
}

func TestGenerateTitleSameInputSameTitle(t *testing.T) {
	var delays []time.Duration
	backend, srv := newScriptedBackend(t,
		textCompletion(`{"title": "AAPL Swing Review"}`),
		textCompletion(`{"title": "AAPL Swing Review"}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	messages := []model.ChatMessage{
		{Role: model.RoleUser, Content: "Logged my AAPL swing trade"},
		{Role: model.RoleAssistant, Content: "Got it."},
	}

	first, err := c.GenerateTitle(context.Background(), messages)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := c.GenerateTitle(context.Background(), messages)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Errorf("expected identical titles for identical input, got %q then %q", first, second)
	}

	// Determinism rests on the request being a pure function of the input:
	// both calls must send the model the exact same prompt.
	req0, _ := json.Marshal(backend.request(0))
	req1, _ := json.Marshal(backend.request(1))
	if string(req0) != string(req1) {
		t.Errorf("expected identical title requests, got:\n%s\n%s", req0, req1)
	}
}

func TestGenerateTitleFallsBack(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		textCompletion(`not json`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	title, err := c.GenerateTitle(context.Background(), nil)
	if err == nil {
		t.Error("expected an informational error")
	}
	if title != FallbackTitle {
		t.Errorf("expected %q, got %q", FallbackTitle, title)
	}
}

func TestAnalyzeTradesEmptyInput(t *testing.T) {
	c := newTestClient(t, "http://unused", nil, &[]time.Duration{})

	result, err := c.AnalyzeTrades(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "No trades to analyze." {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
	if result.Insights == nil {
		t.Error("expected non-nil insights")
	}
}

func TestAnalyzeTradesParsesCompletion(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		textCompletion(`{"summary": "Two winners, one loser.", "insights": ["Size up on conviction"]}`),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.AnalyzeTrades(context.Background(), []map[string]any{
		{"ticker": "AAPL", "pnl": 120.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary != "Two winners, one loser." || len(result.Insights) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestAnalyzeTradesFallsBack(t *testing.T) {
	var delays []time.Duration
	_, srv := newScriptedBackend(t,
		errorStatus(500),
	)
	c := newTestClient(t, srv.URL, nil, &delays)

	result, err := c.AnalyzeTrades(context.Background(), []map[string]any{{"ticker": "AAPL"}})
	if err == nil {
		t.Error("expected an informational error")
	}
	if result.Summary != FallbackAnalysis {
		t.Errorf("expected %q, got %q", FallbackAnalysis, result.Summary)
	}
}
