// Copyright 2025 Inferaflow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxErrorBodyBytes caps how much of a failed response body is retained
// for error reporting.
const maxErrorBodyBytes = 4096

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// Embed generates vector embeddings for the given texts. The returned
	// slice contains one vector per input text, in the same order as the
	// input. On error no partial results are returned.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Client implements Embedder against OpenAI-compatible embedding APIs
// (Ollama, LocalAI, vLLM, DashScope). Inputs larger than the configured
// batch size are partitioned into consecutive sub-batches and submitted
// sequentially; each batch gets its own retry budget.
type Client struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client from the given configuration.
// The configuration is validated and normalized before use.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		http:   &http.Client{},
		logger: slog.Default().With("component", "embedding-client"),
	}, nil
}

type embedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimension      int      `json:"dimension"`
	EncodingFormat string   `json:"encoding_format"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates embeddings for the given texts, preserving input order
// across batch boundaries.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	c.logger.Debug("generating embeddings", "count", len(texts), "batchSize", c.config.BatchSize)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.config.BatchSize {
		end := start + c.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			c.logger.Error("embedding batch failed", "start", start, "size", end-start, "err", err)
			return nil, err
		}
		result = append(result, vectors...)
	}

	return result, nil
}

// embedBatch submits one batch, retrying transient failures with a fixed
// delay. Format errors are permanent and returned after the first attempt.
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var (
		vectors  [][]float32
		lastCode int
		lastBody string
	)

	attempts := 0
	err := RetryFixedDelay(ctx, func() error {
		attempts++
		v, code, body, err := c.doRequest(ctx, texts)
		if err != nil {
			lastCode, lastBody = code, body
			return err
		}
		vectors = v
		return nil
	}, c.config.MaxAttempts, c.config.RetryDelay)

	if err != nil {
		var formatErr *FormatError
		if ctx.Err() != nil || errors.As(err, &formatErr) {
			return nil, err
		}
		return nil, &ProviderError{
			StatusCode: lastCode,
			Body:       lastBody,
			Attempts:   attempts,
			Err:        err,
		}
	}
	return vectors, nil
}

// doRequest performs one HTTP exchange. It returns the decoded vectors on
// success; on failure it returns the HTTP status and body (when a response
// was received) alongside the error.
func (c *Client) doRequest(ctx context.Context, texts []string) ([][]float32, int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	payload, err := json.Marshal(embedRequest{
		Model:          c.config.Model,
		Input:          texts,
		Dimension:      c.config.Dimension,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, 0, "", Permanent(err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.config.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, "", Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, resp.StatusCode, string(body), fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, resp.StatusCode, "", &FormatError{Reason: "invalid JSON payload: " + err.Error()}
	}
	if decoded.Data == nil {
		return nil, resp.StatusCode, "", &FormatError{Reason: "response missing data array"}
	}
	if len(decoded.Data) != len(texts) {
		return nil, resp.StatusCode, "", &FormatError{
			Reason: fmt.Sprintf("expected %d embeddings, provider returned %d", len(texts), len(decoded.Data)),
		}
	}

	vectors := make([][]float32, len(decoded.Data))
	for i, item := range decoded.Data {
		if item.Embedding == nil {
			return nil, resp.StatusCode, "", &FormatError{Reason: fmt.Sprintf("embedding %d is missing", i)}
		}
		vectors[i] = item.Embedding
	}
	return vectors, resp.StatusCode, "", nil
}
