// Package serpapi is a minimal client for the SerpAPI Google Search engine.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/intent-engine/internal/resilience"
)

const defaultBaseURL = "https://serpapi.com"

// Client executes Google searches through SerpAPI.
type Client interface {
	Search(ctx context.Context, query, location string, numResults int) (*SearchResponse, error)
}

// OrganicResult is one entry from the organic results list.
type OrganicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// LocalResult is one entry from the local (maps) results list.
type LocalResult struct {
	Title   string   `json:"title"`
	Address string   `json:"address"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email"`
	Website string   `json:"website"`
	Type    string   `json:"type"`
	Rating  *float64 `json:"rating,omitempty"`
	Reviews *int     `json:"reviews,omitempty"`
}

// SearchResponse holds the parsed result lists plus the raw payload, which is
// retained verbatim for the search provenance log.
type SearchResponse struct {
	OrganicResults []OrganicResult
	LocalResults   []LocalResult
	Raw            map[string]any
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing searches at n requests per second.
func WithRateLimit(n float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(n), 1)
	}
}

// WithRetryPolicy overrides the default transient-failure retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query, location string, numResults int) (*SearchResponse, error) {
	if c.apiKey == "" {
		return nil, eris.New("serpapi: api key not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "serpapi: rate limit wait")
		}
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(numResults))
	if location != "" {
		params.Set("location", location)
	}

	respBody, err := resilience.Do(ctx, c.retry, "serpapi search", func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, c.baseURL+"/search?"+params.Encode())
	})
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, eris.Wrap(err, "serpapi: unmarshal response")
	}

	// The API reports failures with a 200 and an "error" field.
	if msg, ok := raw["error"].(string); ok && msg != "" {
		return nil, eris.Errorf("serpapi: %s", msg)
	}

	out := &SearchResponse{Raw: raw}
	if err := decodeList(raw["organic_results"], &out.OrganicResults); err != nil {
		return nil, eris.Wrap(err, "serpapi: parse organic_results")
	}
	if err := decodeList(raw["local_results"], &out.LocalResults); err != nil {
		return nil, eris.Wrap(err, "serpapi: parse local_results")
	}
	return out, nil
}

// fetch performs one GET. Rate-limit and server-side statuses come back as
// transient errors so the retry layer re-attempts them.
func (c *httpClient) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("serpapi: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.TransientStatus(resp.StatusCode) {
			return nil, &resilience.Transient{Err: statusErr, StatusCode: resp.StatusCode}
		}
		return nil, statusErr
	}
	return respBody, nil
}

// decodeList re-marshals a raw JSON fragment into a typed slice. Entries that
// are not objects are dropped rather than failing the whole response.
func decodeList[T any](fragment any, dst *[]T) error {
	list, ok := fragment.([]any)
	if !ok {
		return nil
	}
	kept := make([]any, 0, len(list))
	for _, item := range list {
		if _, ok := item.(map[string]any); ok {
			kept = append(kept, item)
		}
	}
	b, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
