package skiptrace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jane@acme.com", req.Email)

		_, _ = w.Write([]byte(`{"phone": "512-555-0100", "city": "Austin", "state": "TX"}`))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL)
	data, err := c.Lookup(context.Background(), Request{Email: "jane@acme.com", FirstName: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "512-555-0100", data["phone"])
	assert.Equal(t, "Austin", data["city"])
}

func TestLookup_NoDataFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL)
	data, err := c.Lookup(context.Background(), Request{Phone: "000"})
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestLookup_NotConfigured(t *testing.T) {
	c := NewClient("", "")
	_, err := c.Lookup(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotConfigured))
}
