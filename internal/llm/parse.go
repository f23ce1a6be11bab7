package llm

import (
	"encoding/json"
	"strings"

	"github.com/tradescribe/ai-service/internal/model"
)

// Parsing of model completions. Malformed output is always converted to the
// "no result" case here — a bad completion must never escape an adapter as a
// raw JSON error.

// stripCodeFence removes a ```json ... ``` wrapper some models insist on
// adding around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// parseIntent reads {"intent": "..."} and collapses anything unparseable or
// unrecognized to IntentOther.
func parseIntent(raw string) model.Intent {
	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return model.IntentOther
	}
	return model.ParseIntent(out.Intent)
}

// parseTrade turns an extraction completion into a validated record, or nil.
// A literal "null"/"none" reply and the {"error": "null"} convention both
// mean "no trade found" — a normal outcome, not a failure.
func parseTrade(raw string) *model.TradeRecord {
	raw = stripCodeFence(raw)
	if raw == "" {
		return nil
	}
	switch strings.ToLower(strings.Trim(raw, `"`)) {
	case "null", "none":
		return nil
	}
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err == nil && strings.EqualFold(probe.Error, "null") {
		return nil
	}

	var rec model.TradeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil
	}
	rec.ApplyDefaults()
	if err := rec.Validate(); err != nil {
		return nil
	}
	return &rec
}

// parseAnalysis reads {"summary": ..., "insights": [...]}; ok is false when
// the completion doesn't carry a usable summary.
func parseAnalysis(raw string) (model.AnalysisResult, bool) {
	var out model.AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil || out.Summary == "" {
		return model.AnalysisResult{}, false
	}
	if out.Insights == nil {
		out.Insights = []string{}
	}
	return out, true
}

// parseTitle reads {"title": "..."}.
func parseTitle(raw string) (string, bool) {
	var out struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return "", false
	}
	title := strings.TrimSpace(out.Title)
	return title, title != ""
}
