package model

import "time"

// ProviderCall tracks one upstream model invocation for cost and reliability
// monitoring. This is the only thing the service persists — never trades,
// never conversation content.
type ProviderCall struct {
	ID         int64     `db:"id" json:"id"`
	Operation  string    `db:"operation" json:"operation"`
	Provider   string    `db:"provider" json:"provider"`
	Model      string    `db:"model" json:"model"`
	Success    bool      `db:"success" json:"success"`
	DurationMs *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Operation names recorded in the call log.
const (
	OpProcessChat   = "process_chat"
	OpExtractTrade  = "extract_trade"
	OpAnalyzeTrades = "analyze_trades"
	OpGenerateTitle = "generate_title"
)
