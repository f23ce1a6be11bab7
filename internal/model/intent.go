// Package model defines the core data types for the AI service.
// Everything here is transient: values are built from a request or a model
// completion, handed back to the caller, and never persisted (the only
// database table in this service is provider-call telemetry, see ProviderCall).
package model

import "strings"

// Intent is the classifier's verdict on what a user utterance is trying to do.
// The classifier output is the sole source of Intent values — nothing else in
// the system produces or caches them.
type Intent string

const (
	IntentLogTrade       Intent = "LOG_TRADE"       // user is reporting a completed trade
	IntentReviewAnalysis Intent = "REVIEW_ANALYSIS" // user wants past performance analyzed
	IntentNewsMarket     Intent = "NEWS_MARKET"     // user is asking about current prices or news
	IntentPlanStrategy   Intent = "PLAN_STRATEGY"   // user is asking for advice or planning
	IntentOther          Intent = "OTHER"           // general chat
)

// ParseIntent maps a raw model token to an Intent. Anything unrecognized
// collapses to IntentOther — classification must never fail upward.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentLogTrade:
		return IntentLogTrade
	case IntentReviewAnalysis:
		return IntentReviewAnalysis
	case IntentNewsMarket:
		return IntentNewsMarket
	case IntentPlanStrategy:
		return IntentPlanStrategy
	default:
		return IntentOther
	}
}
