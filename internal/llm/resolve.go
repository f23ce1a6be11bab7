package llm

import (
	"fmt"
	"strings"
)

// resolveText is the ordered fallback chain for turning a completion into
// user-visible text. Every chat path across every backend goes through it, so
// the caller of process-chat can never receive an empty string:
//
//  1. the response's direct text, if any
//  2. text reassembled from the response's content parts
//  3. an explicit safety-block explanation, if the response was filtered
//  4. a generic "could not generate a response" message
func resolveText(direct string, parts []string, blockReason string) string {
	if s := strings.TrimSpace(direct); s != "" {
		return s
	}
	if s := strings.TrimSpace(strings.Join(parts, "")); s != "" {
		return s
	}
	if blockReason != "" {
		return fmt.Sprintf("I cannot answer that request. (Safety Block: %s)", blockReason)
	}
	return emptyReplyMessage
}
