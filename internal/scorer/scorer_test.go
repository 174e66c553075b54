package scorer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intent-engine/internal/config"
	"github.com/sells-group/intent-engine/internal/model"
	"github.com/sells-group/intent-engine/internal/store"
)

func testConfig() config.IntentConfig {
	return config.IntentConfig{HighThreshold: 0.7, MediumThreshold: 0.4, RecencyDays: 90}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(testConfig()))

	err := ValidateConfig(config.IntentConfig{HighThreshold: 0.4, MediumThreshold: 0.4, RecencyDays: 90})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))

	err = ValidateConfig(config.IntentConfig{HighThreshold: 0.7, MediumThreshold: 0.4})
	require.Error(t, err)

	err = ValidateConfig(config.IntentConfig{HighThreshold: 1.2, MediumThreshold: 0.4, RecencyDays: 90})
	require.Error(t, err)
}

func TestCalculate_HighIntentWithAllBoosts(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Contact{
		ID:        1,
		Company:   "Need a plumber urgently",
		Source:    model.SourceSerpAPI,
		CreatedAt: now,
	}

	score := Calculate(c, testConfig(), now)

	// "need" and "urgent" match (0.3 each), plus recency (0.2) and
	// source (0.1) boosts: 0.9.
	assert.InDelta(t, 0.9, score.ScoreValue, 0.0001)
	assert.Equal(t, model.TierHigh, score.Score)
	assert.ElementsMatch(t, []string{"need", "urgent"}, score.Signals.MatchedKeywords.High)
	assert.True(t, score.Signals.RecencyBoost)
	assert.True(t, score.Signals.SourceBoost)
	assert.Equal(t, []string{
		"Matched 2 high-intent keywords",
		"Recent activity (within 90 days)",
		"Contact from active search (SerpAPI)",
	}, score.Signals.Reasoning)
}

func TestCalculate_ClampsToOne(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Contact{
		Company:   "Urgent quote needed, hire plumbing repair service help",
		Source:    model.SourceSerpAPI,
		CreatedAt: now,
	}

	score := Calculate(c, testConfig(), now)
	assert.Equal(t, 1.0, score.ScoreValue)
	assert.Equal(t, model.TierHigh, score.Score)
}

func TestCalculate_LowWithoutSignals(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Contact{
		Company:   "Acme Widgets",
		Source:    model.SourceManual,
		CreatedAt: now.AddDate(0, 0, -120), // outside the recency window
	}

	score := Calculate(c, testConfig(), now)
	assert.Equal(t, 0.0, score.ScoreValue)
	assert.Equal(t, model.TierLow, score.Score)
	assert.False(t, score.Signals.RecencyBoost)
	assert.False(t, score.Signals.SourceBoost)
	assert.Empty(t, score.Signals.Reasoning)
}

func TestCalculate_LowKeywordsScoreButNoReasoning(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Contact{
		Company:   "How to DIY tutorial hub",
		CreatedAt: now.AddDate(0, 0, -120),
	}

	score := Calculate(c, testConfig(), now)

	// "how to", "diy" and "tutorial" each add 0.05 but produce no
	// reasoning line.
	assert.InDelta(t, 0.15, score.ScoreValue, 0.0001)
	assert.ElementsMatch(t, []string{"how to", "diy", "tutorial"}, score.Signals.MatchedKeywords.Low)
	assert.Empty(t, score.Signals.Reasoning)
}

func TestCalculate_SearchableTextIncludesRawData(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Contact{
		Company:   "Quiet Co",
		CreatedAt: now.AddDate(0, 0, -120),
		RawData: map[string]any{
			"snippet":      "Compare the best local providers",
			"search_query": "plumbers near me",
			"link":         "https://example.com", // not searchable
		},
	}

	score := Calculate(c, testConfig(), now)
	assert.ElementsMatch(t, []string{"compare", "best", "local", "near me"},
		score.Signals.MatchedKeywords.Medium)
	assert.InDelta(t, 0.6, score.ScoreValue, 0.0001)
	assert.Equal(t, model.TierMedium, score.Score)
}

func TestCalculate_MediumTierBoundary(t *testing.T) {
	now := time.Now().UTC()
	c := &model.Contact{
		Company:   "Best reviews", // "best" + "review": 0.3
		CreatedAt: now,            // +0.2 recency = 0.5
	}

	score := Calculate(c, testConfig(), now)
	assert.InDelta(t, 0.5, score.ScoreValue, 0.0001)
	assert.Equal(t, model.TierMedium, score.Score)
}

// --- Service ---

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewService(st, testConfig()), st
}

func TestService_ScoreAllUnscored(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	urgent := model.Contact{Email: "u@x.com", Company: "Urgent repair needed"}
	quiet := model.Contact{Email: "q@x.com", Company: "Quiet Co"}
	require.NoError(t, st.CreateContact(ctx, &urgent))
	require.NoError(t, st.CreateContact(ctx, &quiet))

	n, err := svc.ScoreAllUnscored(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.GetContact(ctx, urgent.ID)
	require.NoError(t, err)
	require.Len(t, got.Scores, 1)
	assert.Equal(t, model.TierHigh, got.Scores[0].Score)

	// Already-scored contacts are not rescored on the next run.
	n, err = svc.ScoreAllUnscored(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Recalculate(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	c := model.Contact{Email: "r@x.com", Company: "Need a quote"}
	require.NoError(t, st.CreateContact(ctx, &c))

	_, err := svc.ScoreAllUnscored(ctx)
	require.NoError(t, err)

	fresh, err := svc.Recalculate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, fresh.ContactID)

	got, err := st.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Scores, 1) // history replaced, not appended
}

func TestService_Recalculate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Recalculate(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}
