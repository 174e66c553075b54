// Package scorer implements the rule-based intent scoring engine.
package scorer

// Keyword weights. Each matched keyword adds its tier's weight once,
// regardless of how many times it occurs.
const (
	highKeywordWeight   = 0.30
	mediumKeywordWeight = 0.15
	lowKeywordWeight    = 0.05

	recencyBoostWeight = 0.20
	sourceBoostWeight  = 0.10
)

// highIntentKeywords signal a concrete, immediate buying need.
var highIntentKeywords = []string{
	"looking for",
	"need",
	"urgent",
	"quote",
	"estimate",
	"pricing",
	"buy",
	"purchase",
	"hire",
	"service",
	"help",
	"repair",
	"install",
	"replace",
}

// mediumIntentKeywords signal active evaluation.
var mediumIntentKeywords = []string{
	"compare",
	"review",
	"best",
	"top",
	"near me",
	"local",
	"contact",
	"call",
	"schedule",
}

// lowIntentKeywords signal research without purchase intent.
var lowIntentKeywords = []string{
	"what is",
	"how to",
	"diy",
	"tutorial",
	"free",
	"information",
}
