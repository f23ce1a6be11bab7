package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tradescribe/ai-service/internal/model"
)

// Context windows. History and trade context are truncated before prompting
// to bound token spend; analysis is capped at the 50 most recent trades.
const (
	historyWindow      = 6
	tradeContextWindow = 15 // integrated-search backends
	toolContextWindow  = 20 // tool-calling backends
	analysisWindow     = 50
	titleWindow        = 5
)

// classificationPrompt asks for exactly one of the five intent tokens as a
// JSON object. Shared verbatim across backends so the categories never drift.
func classificationPrompt(text string) string {
	return fmt.Sprintf(`You are a classifier. Determine the PRIMARY intent of the input.
Categories:
- LOG_TRADE (user is explicitly reporting a completed trade)
- REVIEW_ANALYSIS (user wants to analyze past performance)
- NEWS_MARKET (user is asking about current prices or news)
- PLAN_STRATEGY (user is asking for advice or planning)
- OTHER (general chat)
Return ONLY a JSON object: {"intent": "CATEGORY"}

Input: %q`, text)
}

// extractionSystemPrompt instructs a strict structured extraction. The
// context date lets the model resolve relative dates ("yesterday", "today").
func extractionSystemPrompt(today string) string {
	return fmt.Sprintf(`You are a strict Data Extraction Agent. Context Date: %s.
Extract the details of the COMPLETED trade into JSON.
Schema: {"ticker": string, "entry_date": "YYYY-MM-DD", "entry_price": number, "quantity": number, "exit_date": "YYYY-MM-DD" or null, "exit_price": number or null, "notes": string or null}
Rules:
- Return VALID JSON only.
- Default quantity to 1 if missing.
- If no valid trade is found, return JSON: {"error": "null"}`, today)
}

// chatSystemInstruction builds the decision-protocol system prompt. The live
// data source line differs per backend: tool-calling backends name the
// fetch_stock_news tool, integrated-search backends name their search
// capability. The LOGGING rule keeps numeric details out of the reply — the
// journal backend synthesizes the confirmation from the extractor's output,
// and a second set of figures here could contradict it.
func chatSystemInstruction(tradeHistory []map[string]any, window int, liveDataSource string) string {
	return fmt.Sprintf(`You are an expert Trading Journal AI Assistant.

[DATA SOURCES]
1. Internal Trade History: %s
2. %s

[PROTOCOL]
- NEWS/MARKET: You MUST use the live data source for current prices and news.
- ANALYSIS: Answer from the Internal Trade History only.
- LOGGING A TRADE: If the user reports a trade ("I bought...", "Log this..."), reply with a neutral, short acknowledgment (e.g. "Understood," or "Got it."). DO NOT restate the trade details (ticker, price, quantity) — the system generates the confirmation message itself.
- GENERAL/OTHER: Respond naturally, helpfully, and conversationally.`,
		tradeContextJSON(tradeHistory, window), liveDataSource)
}

// analysisPrompt caps the input at the most recent trades and asks for the
// fixed summary/insights shape.
func analysisPrompt(trades []map[string]any) string {
	if len(trades) > analysisWindow {
		trades = trades[len(trades)-analysisWindow:]
	}
	raw, err := json.Marshal(trades)
	if err != nil {
		raw = []byte("[]")
	}
	return fmt.Sprintf(`Analyze this trade data and return a JSON object with a 'summary' string and a list of 'insights'.
Trades: %s`, raw)
}

const analysisSystemPrompt = `Return ONLY valid JSON: {"summary": string, "insights": [string]}`

const titleSystemPrompt = `Generate a very short (3-5 words) title for this conversation. Return ONLY valid JSON: {"title": "..."}`

// transcript renders the last n messages as a plain role-prefixed transcript.
func transcript(messages []model.ChatMessage, n int) string {
	var sb strings.Builder
	for _, m := range model.LastMessages(messages, n) {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// tradeContextJSON renders the most recent trade rows as indented JSON for
// prompt injection, or a placeholder when the journal is empty.
func tradeContextJSON(trades []map[string]any, limit int) string {
	if len(trades) == 0 {
		return "No previous trades available."
	}
	if len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	raw, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return "No previous trades available."
	}
	return string(raw)
}
