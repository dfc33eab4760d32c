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
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding provider client.
type Config struct {
	// BaseURL is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	BaseURL string

	// APIKey is the bearer token sent with each request. Leave empty for
	// local services that do not require authentication.
	APIKey string

	// Model is the model identifier to use for text embeddings.
	// Example: "text-embedding-v3", "embeddinggemma"
	Model string

	// Dimension is the vector dimensionality requested from the provider.
	// Default: 2048
	Dimension int

	// BatchSize is the maximum number of texts submitted in one request.
	// Default: 100
	BatchSize int

	// MaxAttempts is the number of attempts per batch, including the first.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the fixed delay between attempts.
	// Default: 1 second
	RetryDelay time.Duration

	// RequestTimeout bounds each attempt so a hung provider cannot stall a
	// worker indefinitely. A timed-out attempt counts as a transient failure.
	// Default: 30 seconds
	RequestTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the embedding service base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithDimension sets the requested vector dimensionality.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithBatchSize sets the maximum batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithMaxAttempts sets the per-batch attempt budget.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
	}
}

// WithRetryDelay sets the fixed inter-attempt delay.
func WithRetryDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithRequestTimeout sets the per-attempt timeout.
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:11434/v1",
		Model:          "embeddinggemma",
		Dimension:      2048,
		BatchSize:      100,
		MaxAttempts:    3,
		RetryDelay:     1 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form. It adds the
// /v1 suffix to the base URL if missing, which is what most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM) expect.
func (c *Config) Normalize() {
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
		c.BaseURL = c.BaseURL + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BaseURL == "" {
		return errors.New("embedding config: BaseURL is required")
	}
	if c.Model == "" {
		return errors.New("embedding config: Model is required")
	}
	if c.Dimension <= 0 {
		return errors.New("embedding config: Dimension must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("embedding config: BatchSize must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("embedding config: MaxAttempts must be positive")
	}
	if c.RetryDelay < 0 {
		return errors.New("embedding config: RetryDelay cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("embedding config: RequestTimeout must be positive")
	}
	return nil
}
