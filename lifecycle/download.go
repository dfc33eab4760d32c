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


package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/extract"
)

// DefaultPreviewChars caps the excerpt length returned by Preview.
const DefaultPreviewChars = 10240

// Preview is a lightweight look at a stored document.
type Preview struct {
	Name      string
	Status    core.ProcessingStatus
	Size      int64
	SizeLabel string
	Excerpt   string
	Truncated bool
}

// Downloads resolves stored payloads into presigned URLs and previews.
// Callers are expected to have checked visibility already.
type Downloads struct {
	store     blob.Store
	extractor extract.Extractor
	logger    *slog.Logger
}

// NewDownloads creates a Downloads helper.
func NewDownloads(store blob.Store, extractor extract.Extractor) *Downloads {
	return &Downloads{
		store:     store,
		extractor: extractor,
		logger:    slog.Default().With("component", "downloads"),
	}
}

// resolveKey finds the object key the payload actually lives under,
// probing the primary location before the legacy one.
func (d *Downloads) resolveKey(ctx context.Context, record *core.FileRecord) (string, error) {
	for _, key := range blob.CandidateKeys(record.Fingerprint, record.Name) {
		if _, err := d.store.Stat(ctx, key); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				continue
			}
			return "", err
		}
		return key, nil
	}
	return "", fmt.Errorf("payload of %s: %w", record.Fingerprint, blob.ErrNotFound)
}

// URL mints a presigned download URL for the document, valid for expiry.
func (d *Downloads) URL(ctx context.Context, record *core.FileRecord, expiry time.Duration) (string, error) {
	key, err := d.resolveKey(ctx, record)
	if err != nil {
		return "", err
	}
	return d.store.PresignedGetURL(ctx, key, expiry)
}

// ForPreview produces a text excerpt of the document plus basic file
// info. maxChars bounds the excerpt; non-positive values use
// DefaultPreviewChars.
func (d *Downloads) ForPreview(ctx context.Context, record *core.FileRecord, maxChars int) (*Preview, error) {
	if maxChars <= 0 {
		maxChars = DefaultPreviewChars
	}

	key, err := d.resolveKey(ctx, record)
	if err != nil {
		return nil, err
	}

	reader, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	result, err := d.extractor.Extract(ctx, data, record.Name)
	if err != nil {
		return nil, err
	}

	excerpt := result.Text
	truncated := result.Truncated
	if len(excerpt) > maxChars {
		// Back off to a rune boundary so the cut never leaves a broken
		// multibyte character at the end.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
		truncated = true
	}

	return &Preview{
		Name:      record.Name,
		Status:    record.Status,
		Size:      record.TotalSize,
		SizeLabel: formatFileSize(record.TotalSize),
		Excerpt:   excerpt,
		Truncated: truncated,
	}, nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
