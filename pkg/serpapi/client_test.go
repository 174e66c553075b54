package serpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intent-engine/internal/resilience"
)

func TestSearch_ParsesOrganicAndLocalResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "plumbers in Austin", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "Austin, Texas", r.URL.Query().Get("location"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"organic_results": [
				{"title": "Joe's Plumbing - Austin, TX", "snippet": "Serving Austin, TX since 1990", "link": "https://joes.example.com"},
				"not-an-object"
			],
			"local_results": [
				{"title": "Austin Pipe Pros", "address": "100 Main St, Austin, TX 78701", "phone": "512-555-0100", "type": "Plumber, Contractor", "rating": 4.8, "reviews": 120}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "plumbers in Austin", "Austin, Texas", 10)
	require.NoError(t, err)

	require.Len(t, resp.OrganicResults, 1) // non-object entry dropped
	assert.Equal(t, "Joe's Plumbing - Austin, TX", resp.OrganicResults[0].Title)

	require.Len(t, resp.LocalResults, 1)
	assert.Equal(t, "Austin Pipe Pros", resp.LocalResults[0].Title)
	assert.Equal(t, "512-555-0100", resp.LocalResults[0].Phone)
	require.NotNil(t, resp.LocalResults[0].Rating)
	assert.InDelta(t, 4.8, *resp.LocalResults[0].Rating, 0.001)

	assert.Contains(t, resp.Raw, "organic_results") // raw payload retained
}

func TestSearch_APIErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "gibberish", "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hasn't returned any results")
}

func TestSearch_RetriesRateLimitedStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"organic_results": []}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRetryPolicy(resilience.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	}))
	_, err := c.Search(context.Background(), "anything", "", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits)
}

func TestSearch_PermanentStatusNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "anything", "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.EqualValues(t, 1, hits)
}

func TestSearch_MissingAPIKey(t *testing.T) {
	c := NewClient("")
	_, err := c.Search(context.Background(), "anything", "", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}
