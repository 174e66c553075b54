package model

import "time"

// Tier is the discrete intent category derived from a continuous score.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// TierForValue maps a score value onto a tier given the configured thresholds.
// Callers must guarantee high > medium or tiering is ill-defined.
func TierForValue(v, high, medium float64) Tier {
	switch {
	case v >= high:
		return TierHigh
	case v >= medium:
		return TierMedium
	default:
		return TierLow
	}
}

// MatchedKeywords records which vocabulary entries matched, per tier.
type MatchedKeywords struct {
	High   []string `json:"high"`
	Medium []string `json:"medium"`
	Low    []string `json:"low"`
}

// ScoreSignals explains how a score was produced. Reasoning strings are
// ordered and only present for findings that actually fired.
type ScoreSignals struct {
	MatchedKeywords MatchedKeywords `json:"matched_keywords"`
	RecencyBoost    bool            `json:"recency_boost"`
	SourceBoost     bool            `json:"source_boost"`
	Reasoning       []string        `json:"reasoning"`
}

// IntentScore is one scoring outcome for a contact. A contact may accumulate
// historical scores but recalculation deletes priors first.
type IntentScore struct {
	ID           int64        `json:"id"`
	ContactID    int64        `json:"contact_id"`
	Score        Tier         `json:"score"`
	ScoreValue   float64      `json:"score_value"`
	Signals      ScoreSignals `json:"signals"`
	CalculatedAt time.Time    `json:"calculated_at"`
}
