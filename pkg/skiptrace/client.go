// Package skiptrace calls an external skip-trace API to enrich contacts
// with phone, email and address data.
package skiptrace

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotConfigured is returned when the API key or URL is missing.
var ErrNotConfigured = eris.New("skiptrace: api not configured")

// Request carries the known identity fields for a lookup. Empty fields are
// omitted from the outgoing payload.
type Request struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Client performs skip-trace lookups.
type Client interface {
	Lookup(ctx context.Context, req Request) (map[string]any, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey string
	apiURL string
	http   *http.Client
}

// NewClient creates a skip-trace client. Both apiKey and apiURL must be set
// for lookups to run.
func NewClient(apiKey, apiURL string, opts ...Option) Client {
	c := &httpClient{
		apiKey: apiKey,
		apiURL: apiURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Lookup posts the identity fields and returns the provider's payload as an
// opaque document. A non-200 response means no data was found and returns
// (nil, nil) rather than an error.
func (c *httpClient) Lookup(ctx context.Context, lookup Request) (map[string]any, error) {
	if c.apiKey == "" || c.apiURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(lookup)
	if err != nil {
		return nil, eris.Wrap(err, "skiptrace: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "skiptrace: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "skiptrace: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "skiptrace: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, eris.Wrap(err, "skiptrace: unmarshal response")
	}
	return data, nil
}
