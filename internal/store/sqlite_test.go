package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intent-engine/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedContact(t *testing.T, st *SQLiteStore, c model.Contact) model.Contact {
	t.Helper()
	require.NoError(t, st.CreateContact(context.Background(), &c))
	return c
}

// --- Contacts ---

func TestSQLite_ContactCRUD(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, model.Contact{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@acme.com",
		Company:   "Acme Plumbing",
		Industry:  "Plumbing",
		City:      "Austin",
		State:     "TX",
		Source:    model.SourceManual,
		RawData:   map[string]any{"origin": "unit-test"},
	})
	require.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := st.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "jane@acme.com", got.Email)
	assert.Equal(t, model.SourceManual, got.Source)
	assert.Equal(t, "unit-test", got.RawData["origin"])
	assert.Empty(t, got.Scores)

	phone := "512-555-0100"
	updated, err := st.UpdateContact(ctx, c.ID, model.ContactPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "Jane", updated.FirstName) // untouched fields survive

	require.NoError(t, st.DeleteContact(ctx, c.ID))
	_, err = st.GetContact(ctx, c.ID)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestSQLite_GetContact_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetContact(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestSQLite_DuplicateEmail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedContact(t, st, model.Contact{Email: "dup@acme.com", Company: "Acme"})

	second := model.Contact{Email: "dup@acme.com", Company: "Other"}
	err := st.CreateContact(ctx, &second)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrDuplicateEmail))
}

func TestSQLite_EmptyEmailsDoNotCollide(t *testing.T) {
	// Empty email is stored as NULL, so the unique constraint must allow
	// many contacts without one.
	st := newTestSQLiteStore(t)

	seedContact(t, st, model.Contact{Phone: "111", Company: "A"})
	seedContact(t, st, model.Contact{Phone: "222", Company: "B"})

	total, contacts, err := st.ListContacts(context.Background(), model.AudienceFilters{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, contacts, 2)
}

func TestSQLite_GetContactByEmail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedContact(t, st, model.Contact{Email: "findme@acme.com", Company: "Acme"})

	got, err := st.GetContactByEmail(ctx, "findme@acme.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "findme@acme.com", got.Email)

	missing, err := st.GetContactByEmail(ctx, "nobody@acme.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_ListContacts_Pagination(t *testing.T) {
	st := newTestSQLiteStore(t)

	for i := 0; i < 5; i++ {
		seedContact(t, st, model.Contact{Company: "Paged Co", Phone: "555"})
	}

	total, page1, err := st.ListContacts(context.Background(), model.AudienceFilters{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)

	_, page3, err := st.ListContacts(context.Background(), model.AudienceFilters{}, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Greater(t, page3[0].ID, page1[1].ID)
}

func TestSQLite_ContactsByIDs(t *testing.T) {
	st := newTestSQLiteStore(t)

	a := seedContact(t, st, model.Contact{Company: "A", Phone: "1"})
	seedContact(t, st, model.Contact{Company: "B", Phone: "2"})
	c := seedContact(t, st, model.Contact{Company: "C", Phone: "3"})

	contacts, err := st.ContactsByIDs(context.Background(), []int64{c.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, a.ID, contacts[0].ID) // stable id order
	assert.Equal(t, c.ID, contacts[1].ID)

	none, err := st.ContactsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Filters ---

func TestSQLite_FilterContacts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	plumber := seedContact(t, st, model.Contact{
		FirstName: "Pat", Email: "pat@pipes.com", Company: "Pipes R Us",
		Industry: "Plumbing", City: "Austin", State: "TX", Country: "USA",
	})
	lawyer := seedContact(t, st, model.Contact{
		FirstName: "Lee", Email: "lee@law.com", Company: "Law LLC",
		Industry: "Legal Services", City: "Dallas", State: "TX",
	})

	t.Run("industry substring, case-insensitive", func(t *testing.T) {
		got, err := st.FilterContacts(ctx, model.AudienceFilters{Industry: "plumb"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, plumber.ID, got[0].ID)
	})

	t.Run("multiple predicates AND together", func(t *testing.T) {
		got, err := st.FilterContacts(ctx, model.AudienceFilters{State: "TX", City: "dallas"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, lawyer.ID, got[0].ID)
	})

	t.Run("search query spans name, email, company", func(t *testing.T) {
		got, err := st.FilterContacts(ctx, model.AudienceFilters{SearchQuery: "pipes"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, plumber.ID, got[0].ID)
	})

	t.Run("date range", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour)
		future := time.Now().UTC().Add(time.Hour)
		got, err := st.FilterContacts(ctx, model.AudienceFilters{DateFrom: &past, DateTo: &future})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = st.FilterContacts(ctx, model.AudienceFilters{DateFrom: &future})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := st.FilterContacts(ctx, model.AudienceFilters{Country: "France"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLite_FilterContacts_IntentLevelUsesLatestScore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, model.Contact{Email: "scored@acme.com", Company: "Acme"})

	earlier := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.InsertScores(ctx, []model.IntentScore{{
		ContactID: c.ID, Score: model.TierHigh, ScoreValue: 0.9, CalculatedAt: earlier,
	}}))
	require.NoError(t, st.InsertScores(ctx, []model.IntentScore{{
		ContactID: c.ID, Score: model.TierLow, ScoreValue: 0.1, CalculatedAt: time.Now().UTC(),
	}}))

	// Latest score is LOW, so a HIGH filter must not match even though a
	// HIGH score exists in the history.
	got, err := st.FilterContacts(ctx, model.AudienceFilters{IntentLevel: "high"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = st.FilterContacts(ctx, model.AudienceFilters{IntentLevel: "low"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)
}

// --- Scores ---

func TestSQLite_ScoresAttachLatestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, model.Contact{Email: "hist@acme.com", Company: "Acme"})

	t0 := time.Now().UTC().Add(-2 * time.Hour)
	t1 := time.Now().UTC().Add(-1 * time.Hour)
	require.NoError(t, st.InsertScores(ctx, []model.IntentScore{
		{ContactID: c.ID, Score: model.TierLow, ScoreValue: 0.2, CalculatedAt: t0},
		{ContactID: c.ID, Score: model.TierMedium, ScoreValue: 0.5, CalculatedAt: t1},
	}))

	got, err := st.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Scores, 2)
	assert.Equal(t, model.TierMedium, got.Scores[0].Score)
	assert.Equal(t, model.TierLow, got.Scores[1].Score)
	assert.Equal(t, "MEDIUM", got.LatestTier())
}

func TestSQLite_UnscoredContacts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	scored := seedContact(t, st, model.Contact{Email: "s@acme.com", Company: "Acme"})
	unscored := seedContact(t, st, model.Contact{Email: "u@acme.com", Company: "Acme"})

	require.NoError(t, st.InsertScores(ctx, []model.IntentScore{{
		ContactID: scored.ID, Score: model.TierLow, ScoreValue: 0.1, CalculatedAt: time.Now().UTC(),
	}}))

	got, err := st.UnscoredContacts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, unscored.ID, got[0].ID)
}

func TestSQLite_ReplaceScore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, model.Contact{Email: "re@acme.com", Company: "Acme"})

	require.NoError(t, st.InsertScores(ctx, []model.IntentScore{
		{ContactID: c.ID, Score: model.TierLow, ScoreValue: 0.1, CalculatedAt: time.Now().UTC().Add(-time.Hour)},
		{ContactID: c.ID, Score: model.TierLow, ScoreValue: 0.15, CalculatedAt: time.Now().UTC().Add(-time.Minute)},
	}))

	fresh, err := st.ReplaceScore(ctx, c.ID, model.IntentScore{
		Score:      model.TierHigh,
		ScoreValue: 0.85,
		Signals: model.ScoreSignals{
			MatchedKeywords: model.MatchedKeywords{High: []string{"urgent"}},
			Reasoning:       []string{"1 high-intent keywords found"},
		},
		CalculatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, c.ID, fresh.ContactID)
	assert.NotZero(t, fresh.ID)

	got, err := st.GetContact(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Scores, 1) // priors deleted
	assert.Equal(t, model.TierHigh, got.Scores[0].Score)
	assert.Equal(t, []string{"urgent"}, got.Scores[0].Signals.MatchedKeywords.High)
}

// --- Enrichment ---

func TestSQLite_SetEnrichment_BackfillOnlyEmptyFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, model.Contact{Email: "e@acme.com", Phone: "existing-phone", Company: "Acme"})

	phone := "new-phone"
	city := "Austin"
	at := time.Now().UTC()
	err := st.SetEnrichment(ctx, c.ID, map[string]any{"provider": "skiptrace"},
		model.ContactPatch{Phone: &phone, City: &city}, at)
	require.NoError(t, err)

	got, err := st.GetContact(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "existing-phone", got.Phone) // already set, not overwritten
	assert.Equal(t, "Austin", got.City)          // was empty, back-filled
	assert.Equal(t, "skiptrace", got.EnrichedData["provider"])
	require.NotNil(t, got.EnrichedAt)
}

func TestSQLite_SetEnrichment_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SetEnrichment(context.Background(), 424242, map[string]any{}, model.ContactPatch{}, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

// --- Audiences ---

func TestSQLite_AudienceCRUD(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := model.Audience{
		Name:        "Texas plumbers",
		Description: "High intent plumbing leads in TX",
		Filters:     model.AudienceFilters{Industry: "Plumbing", State: "TX"},
	}
	require.NoError(t, st.CreateAudience(ctx, &a))
	require.NotZero(t, a.ID)

	got, err := st.GetAudience(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Texas plumbers", got.Name)
	assert.Equal(t, "Plumbing", got.Filters.Industry)

	name := "Renamed"
	updated, err := st.UpdateAudience(ctx, a.ID, model.AudiencePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "TX", updated.Filters.State) // filters untouched

	all, err := st.ListAudiences(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, st.DeleteAudience(ctx, a.ID))
	_, err = st.GetAudience(ctx, a.ID)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestSQLite_ReplaceMemberships(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c1 := seedContact(t, st, model.Contact{Email: "m1@acme.com", Company: "Acme"})
	c2 := seedContact(t, st, model.Contact{Email: "m2@acme.com", Company: "Acme"})
	c3 := seedContact(t, st, model.Contact{Email: "m3@acme.com", Company: "Acme"})

	a := model.Audience{Name: "Members"}
	require.NoError(t, st.CreateAudience(ctx, &a))

	require.NoError(t, st.ReplaceMemberships(ctx, a.ID, []int64{c1.ID, c2.ID}))

	ids, err := st.AudienceContactIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c1.ID, c2.ID}, ids)

	got, err := st.GetAudience(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ContactCount)

	// Rebuild fully replaces the prior set.
	require.NoError(t, st.ReplaceMemberships(ctx, a.ID, []int64{c3.ID}))
	ids, err = st.AudienceContactIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c3.ID}, ids)

	got, err = st.GetAudience(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ContactCount)

	// Emptying is valid and leaves count at zero.
	require.NoError(t, st.ReplaceMemberships(ctx, a.ID, nil))
	ids, err = st.AudienceContactIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLite_ReplaceMemberships_MissingAudience(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.ReplaceMemberships(context.Background(), 777, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestSQLite_DeleteContact_CascadesMemberships(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, model.Contact{Email: "gone@acme.com", Company: "Acme"})
	a := model.Audience{Name: "Shrinking"}
	require.NoError(t, st.CreateAudience(ctx, &a))
	require.NoError(t, st.ReplaceMemberships(ctx, a.ID, []int64{c.ID}))

	require.NoError(t, st.DeleteContact(ctx, c.ID))

	ids, err := st.AudienceContactIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// --- Search records ---

func TestSQLite_InsertSearchRecord(t *testing.T) {
	st := newTestSQLiteStore(t)

	rec := model.SearchRecord{
		Query:        "plumbers in Austin TX",
		ResultsCount: 12,
		RawResponse:  map[string]any{"search_metadata": map[string]any{"status": "Success"}},
	}
	require.NoError(t, st.InsertSearchRecord(context.Background(), &rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.SearchedAt.IsZero())
}
