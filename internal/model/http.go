package model

// Request and response bodies for the HTTP surface. Trade history and
// analysis input arrive as loose maps on purpose: the journal backend owns
// those rows and their schema drifts independently of this service, so we
// inject them into prompts verbatim instead of binding them to a struct.

// ChatProcessRequest asks for a reply to a user message with full context.
type ChatProcessRequest struct {
	UserMessage  string           `json:"user_message" binding:"required"`
	ChatHistory  []ChatMessage    `json:"chat_history"`
	TradeHistory []map[string]any `json:"trade_history"`
}

// ChatProcessResponse carries the reply plus the concurrently-extracted
// trade, if the message turned out to be a loggable trade report.
type ChatProcessResponse struct {
	Message        string       `json:"message"`
	TradeExtracted *TradeRecord `json:"trade_extracted,omitempty"`
	IsGrounded     bool         `json:"is_grounded"`
}

// TradeExtractionRequest asks for structured extraction from raw text.
type TradeExtractionRequest struct {
	Text string `json:"text" binding:"required"`
}

// TradeExtractionResponse holds the extracted record; null means the text
// contained no loggable trade, which is a normal non-error outcome.
type TradeExtractionResponse struct {
	Trade *TradeRecord `json:"trade"`
}

// TradeAnalysisRequest asks for insights over a list of trade rows.
type TradeAnalysisRequest struct {
	Trades []map[string]any `json:"trades"`
}

// TitleGenerationRequest asks for a short session title.
type TitleGenerationRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// TitleResponse carries the generated title.
type TitleResponse struct {
	Title string `json:"title"`
}
