package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmbedServer returns an httptest server that answers /embeddings with
// one deterministic vector per input text.
func newEmbedServer(t *testing.T, dimension int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "float", req.EncodingFormat)
		require.NotEmpty(t, req.Model)

		type item struct {
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(len(text))
			data[i] = item{Embedding: vec}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func testConfig(baseURL string) *Config {
	return NewConfig(
		WithBaseURL(baseURL),
		WithModel("test-embed"),
		WithDimension(4),
		WithRetryDelay(time.Millisecond),
	)
}

func TestEmbedSingleBatch(t *testing.T) {
	server := newEmbedServer(t, 4)
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
}

func TestEmbedPreservesOrderAcrossBatches(t *testing.T) {
	server := newEmbedServer(t, 4)
	defer server.Close()

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // lengths 1..7
	}

	// Batch size 1: result must be identical to a single large batch.
	small, err := NewClient(NewConfig(
		WithBaseURL(server.URL),
		WithModel("test-embed"),
		WithDimension(4),
		WithBatchSize(1),
		WithRetryDelay(time.Millisecond),
	))
	require.NoError(t, err)

	large, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	fromSmall, err := small.Embed(context.Background(), texts)
	require.NoError(t, err)
	fromLarge, err := large.Embed(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, fromLarge, fromSmall)
	for i := range texts {
		assert.Equal(t, float32(i+1), fromSmall[i][0])
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:1"))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTexts)
}

func TestEmbedRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "backend overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"text"})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusInternalServerError, provErr.StatusCode)
	assert.Contains(t, provErr.Body, "backend overloaded")
	assert.Equal(t, 3, provErr.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbedRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2, 3, 4}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"text"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float32{1, 2, 3, 4}, vectors[0])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedMalformedResponseNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"result": "ok"}`)) // no data array
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"text"})
	require.Error(t, err)

	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
	assert.Equal(t, int32(1), calls.Load(), "format errors must not be retried")
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"one", "two"})
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Reason, "expected 2 embeddings")
}

func TestEmbedSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}}},
		})
	}))
	defer server.Close()

	client, err := NewClient(NewConfig(
		WithBaseURL(server.URL),
		WithModel("test-embed"),
		WithAPIKey("secret-token"),
		WithRetryDelay(time.Millisecond),
	))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestEmbedContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "always failing", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(NewConfig(
		WithBaseURL(server.URL),
		WithModel("test-embed"),
		WithRetryDelay(time.Minute),
	))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Embed(ctx, []string{"text"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
