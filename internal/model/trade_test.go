package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", s, err)
	}
	return d
}

func TestTradeRecordUnmarshalAppliesDefaults(t *testing.T) {
	raw := `{"ticker": "aapl", "entry_date": "2026-08-20", "entry_price": 185.5}`

	var rec TradeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec.ApplyDefaults()

	if rec.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %q", rec.Ticker)
	}
	if rec.Quantity != 1 {
		t.Errorf("expected quantity defaulted to 1, got %v", rec.Quantity)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("expected valid record, got %v", err)
	}
}

func TestTradeRecordMarshalBareNumbers(t *testing.T) {
	rec := TradeRecord{
		Ticker:     "TSLA",
		EntryDate:  NewDate(2026, time.August, 20),
		EntryPrice: mustDecimal(t, "250.75"),
		Quantity:   10,
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"entry_price":250.75`) {
		t.Errorf("expected bare-number price, got %s", out)
	}
	if !strings.Contains(string(out), `"entry_date":"2026-08-20"`) {
		t.Errorf("expected plain date, got %s", out)
	}
	if strings.Contains(string(out), "exit_date") {
		t.Errorf("expected omitted exit fields, got %s", out)
	}
}

func TestTradeRecordValidate(t *testing.T) {
	base := func() TradeRecord {
		return TradeRecord{
			Ticker:     "NVDA",
			EntryDate:  NewDate(2026, time.August, 19),
			EntryPrice: mustDecimal(t, "120"),
			Quantity:   5,
		}
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid base record, got %v", err)
	}

	rec := base()
	rec.Ticker = ""
	if rec.Validate() == nil {
		t.Error("expected error for missing ticker")
	}

	rec = base()
	rec.EntryDate = Date{}
	if rec.Validate() == nil {
		t.Error("expected error for missing entry date")
	}

	rec = base()
	rec.EntryPrice = mustDecimal(t, "0")
	if rec.Validate() == nil {
		t.Error("expected error for non-positive entry price")
	}

	rec = base()
	bad := mustDecimal(t, "-1")
	rec.ExitPrice = &bad
	if rec.Validate() == nil {
		t.Error("expected error for negative exit price")
	}
}

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain date", `"2026-08-20"`, "2026-08-20"},
		{"rfc3339 timestamp", `"2026-08-20T00:00:00Z"`, "2026-08-20"},
		{"null", `null`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var d Date
			if err := json.Unmarshal([]byte(tc.raw), &d); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if d.String() != tc.want {
				t.Errorf("expected %q, got %q", tc.want, d.String())
			}
		})
	}

	var d Date
	if err := json.Unmarshal([]byte(`"not-a-date"`), &d); err == nil {
		t.Error("expected error for garbage date")
	}
}

func TestDateMarshal(t *testing.T) {
	out, err := json.Marshal(NewDate(2026, time.January, 5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2026-01-05"` {
		t.Errorf("expected quoted date, got %s", out)
	}

	out, err = json.Marshal(Date{})
	if err != nil {
		t.Fatalf("marshal zero: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("expected null for zero date, got %s", out)
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in   string
		want Intent
	}{
		{"LOG_TRADE", IntentLogTrade},
		{" log_trade ", IntentLogTrade},
		{"REVIEW_ANALYSIS", IntentReviewAnalysis},
		{"NEWS_MARKET", IntentNewsMarket},
		{"PLAN_STRATEGY", IntentPlanStrategy},
		{"OTHER", IntentOther},
		{"SOMETHING_ELSE", IntentOther},
		{"", IntentOther},
	}
	for _, tc := range tests {
		if got := ParseIntent(tc.in); got != tc.want {
			t.Errorf("ParseIntent(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestLastMessages(t *testing.T) {
	msgs := []ChatMessage{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}

	got := LastMessages(msgs, 2)
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "c" {
		t.Errorf("expected last two messages, got %v", got)
	}
	if got := LastMessages(msgs, 10); len(got) != 3 {
		t.Errorf("expected all messages when under limit, got %d", len(got))
	}
}
