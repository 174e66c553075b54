package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &Transient{Err: eris.New("upstream 503"), StatusCode: 503}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := eris.New("bad request")
	_, err := Do(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, &Transient{Err: eris.New("still down")}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsTransient(err))
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &Transient{Err: eris.New("down")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("validation failed")))
	assert.True(t, IsTransient(&Transient{Err: eris.New("x")}))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
	assert.True(t, IsTransient(eris.Wrap(&Transient{Err: eris.New("x")}, "serpapi: send request")))
}

func TestTransientStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, TransientStatus(code), code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404} {
		assert.False(t, TransientStatus(code), code)
	}
}

func TestBackoffCapped(t *testing.T) {
	p := Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     2 * time.Second,
		Multiplier:     10,
		JitterFraction: 0,
	}.withDefaults()
	assert.Equal(t, 2*time.Second, p.backoff(4))
}
