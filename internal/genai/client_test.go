package genai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{"promptTokenCount": 3, "candidatesTokenCount": 1, "totalTokenCount": 4},
	}
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(url), WithBackoff(time.Millisecond), WithLogger(discardLogger())}, opts...)
	return NewClient("test-key", "test-model", opts...)
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		json.NewEncoder(w).Encode(textResponse("world"))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "world", got)
}

func TestGenerate_JoinsParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "a"}, {"text": "b"}}}},
			},
		})
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestGenerate_NoAPIKey(t *testing.T) {
	_, err := NewClient("", "").Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_NonRetriableError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), "hi")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Status)
	assert.Equal(t, "API key not valid", apiErr.Message)
	assert.False(t, apiErr.Retriable())
	assert.EqualValues(t, 1, calls.Load())
}

func TestGenerate_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("overloaded"))
			return
		}
		json.NewEncoder(w).Encode(textResponse("finally"))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "finally", got)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGenerate_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithMaxRetries(2)).Generate(context.Background(), "hi")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.EqualValues(t, 3, calls.Load(), "first attempt plus two retries")
}

func TestGenerate_ZeroRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithMaxRetries(0)).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	calls.Store(0)
	_, err = newTestClient(server.URL).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.EqualValues(t, 4, calls.Load(), "default is three retries")
}

func TestGenerate_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(server.URL, WithBackoff(time.Hour))
	_, err := c.Generate(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_DefaultModel(t *testing.T) {
	assert.Equal(t, DefaultModel, NewClient("k", "").Model())
}
