package model

// Message roles. The journal backend only ever forwards these two; system
// turns are built inside the adapters.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of conversation history, supplied by the caller.
// The service truncates history to the most recent turns before forwarding it
// to a model; the slice itself is never mutated.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the outcome of one reply generation. IsGrounded is true iff
// the backend's response shows a live external lookup happened during
// generation: search-grounding blocks for integrated-search providers, or an
// executed tool call for tool-calling providers.
type ChatResult struct {
	Message    string `json:"message"`
	IsGrounded bool   `json:"is_grounded"`
}

// AnalysisResult is a best-effort structured summary over a trade list.
type AnalysisResult struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}

// LastMessages returns the most recent n messages without copying.
func LastMessages(msgs []ChatMessage, n int) []ChatMessage {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
