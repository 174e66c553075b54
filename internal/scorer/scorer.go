package scorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/config"
	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

// ValidateConfig rejects threshold configurations that make tiering
// ill-defined.
func ValidateConfig(cfg config.IntentConfig) error {
	if cfg.HighThreshold <= cfg.MediumThreshold {
		return eris.Wrapf(model.ErrValidation,
			"scorer: high threshold %.2f must exceed medium threshold %.2f",
			cfg.HighThreshold, cfg.MediumThreshold)
	}
	if cfg.MediumThreshold < 0 || cfg.HighThreshold > 1 {
		return eris.Wrap(model.ErrValidation, "scorer: thresholds must lie in [0,1]")
	}
	if cfg.RecencyDays <= 0 {
		return eris.Wrap(model.ErrValidation, "scorer: recency window must be positive")
	}
	return nil
}

// searchableText concatenates the contact fields the keyword rules run over:
// company, industry, and the textual raw_data fields captured at ingestion.
func searchableText(c *model.Contact) string {
	parts := make([]string, 0, 6)
	if c.Company != "" {
		parts = append(parts, c.Company)
	}
	if c.Industry != "" {
		parts = append(parts, c.Industry)
	}
	for _, key := range []string{"title", "snippet", "description", "search_query"} {
		if v, ok := c.RawData[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

func matchKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Calculate scores one contact. It is a pure function of the contact, the
// configuration and the supplied clock; persistence is the caller's concern.
func Calculate(c *model.Contact, cfg config.IntentConfig, now time.Time) model.IntentScore {
	text := strings.ToLower(searchableText(c))

	signals := model.ScoreSignals{Reasoning: []string{}}
	signals.MatchedKeywords.High = matchKeywords(text, highIntentKeywords)
	signals.MatchedKeywords.Medium = matchKeywords(text, mediumIntentKeywords)
	signals.MatchedKeywords.Low = matchKeywords(text, lowIntentKeywords)

	value := float64(len(signals.MatchedKeywords.High))*highKeywordWeight +
		float64(len(signals.MatchedKeywords.Medium))*mediumKeywordWeight +
		float64(len(signals.MatchedKeywords.Low))*lowKeywordWeight

	if n := len(signals.MatchedKeywords.High); n > 0 {
		signals.Reasoning = append(signals.Reasoning, fmt.Sprintf("Matched %d high-intent keywords", n))
	}
	if n := len(signals.MatchedKeywords.Medium); n > 0 {
		signals.Reasoning = append(signals.Reasoning, fmt.Sprintf("Matched %d medium-intent keywords", n))
	}

	recencyThreshold := now.Add(-time.Duration(cfg.RecencyDays) * 24 * time.Hour)
	if !c.CreatedAt.Before(recencyThreshold) {
		value += recencyBoostWeight
		signals.RecencyBoost = true
		signals.Reasoning = append(signals.Reasoning,
			fmt.Sprintf("Recent activity (within %d days)", cfg.RecencyDays))
	}

	if c.Source == model.SourceSerpAPI {
		value += sourceBoostWeight
		signals.SourceBoost = true
		signals.Reasoning = append(signals.Reasoning, "Contact from active search (SerpAPI)")
	}

	if value > 1.0 {
		value = 1.0
	}

	return model.IntentScore{
		ContactID:    c.ID,
		Score:        model.TierForValue(value, cfg.HighThreshold, cfg.MediumThreshold),
		ScoreValue:   value,
		Signals:      signals,
		CalculatedAt: now,
	}
}

// Service runs scoring against the store.
type Service struct {
	store store.Store
	cfg   config.IntentConfig
}

// NewService creates a scoring service. The config must already be validated.
func NewService(st store.Store, cfg config.IntentConfig) *Service {
	return &Service{store: st, cfg: cfg}
}

// ScoreAllUnscored scores every contact that has no intent score yet and
// persists the whole batch in one transaction. Returns the number scored.
func (s *Service) ScoreAllUnscored(ctx context.Context) (int, error) {
	contacts, err := s.store.UnscoredContacts(ctx)
	if err != nil {
		return 0, err
	}
	if len(contacts) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	scores := make([]model.IntentScore, 0, len(contacts))
	for i := range contacts {
		scores = append(scores, Calculate(&contacts[i], s.cfg, now))
	}
	if err := s.store.InsertScores(ctx, scores); err != nil {
		return 0, err
	}

	zap.L().Info("bulk scoring complete", zap.Int("contacts_scored", len(scores)))
	return len(scores), nil
}

// Recalculate replaces a contact's score history with a fresh score.
func (s *Service) Recalculate(ctx context.Context, contactID int64) (*model.IntentScore, error) {
	contact, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}

	score := Calculate(contact, s.cfg, time.Now().UTC())
	fresh, err := s.store.ReplaceScore(ctx, contactID, score)
	if err != nil {
		return nil, err
	}

	zap.L().Info("score recalculated",
		zap.Int64("contact_id", contactID),
		zap.String("score", string(fresh.Score)),
		zap.Float64("score_value", fresh.ScoreValue))
	return fresh, nil
}
