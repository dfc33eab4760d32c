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


package extract

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"
)

// DefaultMaxTextBytes caps how much text a single document contributes.
// Oversized documents are truncated, not rejected.
const DefaultMaxTextBytes = 4 * 1024 * 1024

// TextExtractor extracts plain-text formats. Binary formats such as PDF
// or DOCX are rejected with ErrUnsupportedFormat; converting them happens
// upstream of ingestion.
type TextExtractor struct {
	maxBytes int
	logger   *slog.Logger
}

// NewTextExtractor creates a TextExtractor with the given size cap.
// A non-positive maxBytes falls back to DefaultMaxTextBytes.
func NewTextExtractor(maxBytes int) *TextExtractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxTextBytes
	}
	return &TextExtractor{
		maxBytes: maxBytes,
		logger:   slog.Default().With("component", "text-extractor"),
	}
}

// Extract decodes the document as plain text.
func (e *TextExtractor) Extract(ctx context.Context, data []byte, formatHint string) (*Result, error) {
	if !FormatSupported(formatHint) {
		return nil, ErrUnsupportedFormat
	}

	loader := documentloaders.NewText(bytes.NewReader(data))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.PageContent)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	truncated := false
	if len(text) > e.maxBytes {
		e.logger.Warn("document text truncated", "format", formatHint, "size", len(text), "cap", e.maxBytes)
		text = truncateAtRune(text, e.maxBytes)
		truncated = true
	}

	return &Result{Text: text, Truncated: truncated}, nil
}

// truncateAtRune cuts text to at most max bytes without splitting a
// multibyte rune at the boundary.
func truncateAtRune(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
