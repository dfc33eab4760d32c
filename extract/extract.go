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


// Package extract turns stored document blobs into plain text for
// chunking and embedding.
package extract

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat indicates the document format cannot be extracted
// by this extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrEmptyDocument indicates the document produced no text at all.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Result is the outcome of a text extraction.
type Result struct {
	// Text is the extracted plain text.
	Text string

	// Truncated is true when the extractor hit its size cap and dropped
	// trailing content. Truncation is not an error; downstream stages see
	// a shorter document.
	Truncated bool
}

// Extractor converts a raw document into plain text.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// Extract produces plain text from the document bytes. formatHint is
	// the original file name or extension, used to select a decoding
	// strategy. Returns ErrUnsupportedFormat when the format is not
	// handled.
	Extract(ctx context.Context, data []byte, formatHint string) (*Result, error)
}

// plainTextExtensions are formats stored as readable text, extracted
// verbatim.
var plainTextExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true,
	".json": true, ".xml": true, ".html": true, ".htm": true,
	".log": true, ".yaml": true, ".yml": true,
}

// FormatSupported reports whether the given file name or extension maps
// to a format the shipped extractor handles.
func FormatSupported(formatHint string) bool {
	return plainTextExtensions[normalizeExtension(formatHint)]
}

func normalizeExtension(formatHint string) string {
	ext := formatHint
	if strings.ContainsAny(formatHint, "./\\") {
		ext = filepath.Ext(formatHint)
	} else if formatHint != "" {
		ext = "." + formatHint
	}
	return strings.ToLower(ext)
}
