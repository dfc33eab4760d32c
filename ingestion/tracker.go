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


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// failureFallbackMessage is recorded when a document fails without a
// usable error message.
const failureFallbackMessage = "unknown error"

// Tracker advances the processing status of file records. Transitions are
// checked against the status machine unless forced; updating a record
// that no longer exists is a logged no-op, since deletion legitimately
// races with in-flight processing.
type Tracker struct {
	files  storage.FileRepository
	logger *slog.Logger
}

// NewTracker creates a Tracker over the given repository.
func NewTracker(files storage.FileRepository) *Tracker {
	return &Tracker{
		files:  files,
		logger: slog.Default().With("component", "status-tracker"),
	}
}

// Lookup finds a record by (fingerprint, owner), falling back to a
// fingerprint-only lookup when the tenant-scoped one misses. Returns
// (nil, nil) when the record does not exist under either lookup.
func (t *Tracker) Lookup(ctx context.Context, fingerprint core.Fingerprint, ownerID string) (*core.FileRecord, error) {
	if ownerID != "" {
		record, err := t.files.GetForOwner(ctx, fingerprint, ownerID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	record, err := t.files.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// GetForUser returns one of the user's records by fingerprint.
func (t *Tracker) GetForUser(ctx context.Context, fingerprint core.Fingerprint, ownerID string) (*core.FileRecord, error) {
	record, err := t.files.GetForOwner(ctx, fingerprint, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListForUser returns the user's records, newest first.
func (t *Tracker) ListForUser(ctx context.Context, ownerID string) ([]*core.FileRecord, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}
	return t.files.ListByOwner(ctx, ownerID)
}

// SetStatus moves a record to the given status. errMsg is recorded only
// when the target status is failed; on any other target the stored error
// message is cleared. When force is false the transition must be legal
// under the status machine.
func (t *Tracker) SetStatus(ctx context.Context, fingerprint core.Fingerprint, ownerID string, status core.ProcessingStatus, errMsg string, force bool) error {
	record, err := t.Lookup(ctx, fingerprint, ownerID)
	if err != nil {
		return err
	}
	if record == nil {
		t.logger.Warn("status update for missing record skipped",
			"fingerprint", fingerprint, "owner", ownerID, "status", status)
		return nil
	}

	if !force {
		if err := core.CheckTransition(record.Status, status); err != nil {
			t.logger.Error("illegal status transition rejected",
				"fingerprint", fingerprint, "from", record.Status, "to", status)
			return err
		}
	} else if !status.IsValid() {
		return core.ErrInvalidStatus
	}

	record.Status = status
	if status == core.StatusFailed {
		if errMsg == "" {
			errMsg = failureFallbackMessage
		}
		record.ProcessingError = errMsg
	} else {
		record.ProcessingError = ""
	}
	record.StatusUpdatedAt = time.Now().UTC()

	if err := t.files.Update(ctx, record); err != nil {
		return err
	}

	t.logger.Debug("status updated", "fingerprint", fingerprint, "status", status)
	return nil
}

// MarkPending queues a record for (re)processing.
func (t *Tracker) MarkPending(ctx context.Context, fingerprint core.Fingerprint, ownerID string) error {
	return t.SetStatus(ctx, fingerprint, ownerID, core.StatusPending, "", false)
}

// MarkParsing records that text extraction has started.
func (t *Tracker) MarkParsing(ctx context.Context, fingerprint core.Fingerprint, ownerID string) error {
	return t.SetStatus(ctx, fingerprint, ownerID, core.StatusParsing, "", false)
}

// MarkVectorizing records that embedding generation has started.
func (t *Tracker) MarkVectorizing(ctx context.Context, fingerprint core.Fingerprint, ownerID string) error {
	return t.SetStatus(ctx, fingerprint, ownerID, core.StatusVectorizing, "", false)
}

// MarkCompleted records successful processing.
func (t *Tracker) MarkCompleted(ctx context.Context, fingerprint core.Fingerprint, ownerID string) error {
	return t.SetStatus(ctx, fingerprint, ownerID, core.StatusCompleted, "", false)
}

// MarkFailed records a processing failure with its error message.
func (t *Tracker) MarkFailed(ctx context.Context, fingerprint core.Fingerprint, ownerID string, errMsg string) error {
	return t.SetStatus(ctx, fingerprint, ownerID, core.StatusFailed, errMsg, false)
}

// Reconcile forces a record to the given status, bypassing the transition
// check. Meant for operator intervention on records stuck by a crashed
// worker.
func (t *Tracker) Reconcile(ctx context.Context, fingerprint core.Fingerprint, status core.ProcessingStatus) error {
	return t.SetStatus(ctx, fingerprint, "", status, "", true)
}
