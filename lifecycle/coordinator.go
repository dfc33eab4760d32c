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


// Package lifecycle covers what happens to a document outside the
// processing pipeline: coordinated deletion across all stores, download
// URLs and previews, and the migration of legacy object keys.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// Deletion step names as they appear in a DeleteReport.
const (
	StepVectorIndex = "vector-index"
	StepBlob        = "blob"
	StepChunks      = "chunks"
	StepRecord      = "record"
)

// StepOutcome records one deletion step. Err is nil when the step
// succeeded or had nothing to do.
type StepOutcome struct {
	Name string
	Err  error
}

// DeleteReport summarizes a coordinated deletion. Every step runs even
// when an earlier one fails; only a failure of the final record step
// aborts the deletion.
type DeleteReport struct {
	Fingerprint core.Fingerprint
	Steps       []StepOutcome
}

// Failed returns the steps that reported an error.
func (r *DeleteReport) Failed() []StepOutcome {
	var failed []StepOutcome
	for _, step := range r.Steps {
		if step.Err != nil {
			failed = append(failed, step)
		}
	}
	return failed
}

// Coordinator removes a document from every store it touches: the vector
// index, the object store, the chunk store and finally the file record.
// The stores ahead of the record are cleaned best-effort so a flaky
// object store cannot strand an undeletable document; the record removal
// itself must succeed.
type Coordinator struct {
	files  storage.FileRepository
	chunks storage.ChunkRepository
	index  storage.VectorIndex
	store  blob.Store
	logger *slog.Logger
}

// NewCoordinator creates a deletion coordinator over the given stores.
func NewCoordinator(files storage.FileRepository, chunks storage.ChunkRepository, index storage.VectorIndex, store blob.Store) *Coordinator {
	return &Coordinator{
		files:  files,
		chunks: chunks,
		index:  index,
		store:  store,
		logger: slog.Default().With("component", "delete-coordinator"),
	}
}

// Delete removes the document identified by fingerprint. requesterID must
// be the record's owner; an empty requesterID is treated as an
// administrative request and skips the ownership check.
// Returns core.ErrNotFound when no such record exists and
// core.ErrPermissionDenied when the requester does not own it.
func (c *Coordinator) Delete(ctx context.Context, fingerprint core.Fingerprint, requesterID string) (*DeleteReport, error) {
	record, err := c.files.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", fingerprint, core.ErrNotFound)
		}
		return nil, err
	}
	if requesterID != "" && record.OwnerID != requesterID {
		return nil, fmt.Errorf("document %s: %w", fingerprint, core.ErrPermissionDenied)
	}

	report := &DeleteReport{Fingerprint: fingerprint}
	addStep := func(name string, stepErr error) {
		if stepErr != nil {
			c.logger.Warn("deletion step failed, continuing",
				"fingerprint", fingerprint, "step", name, "err", stepErr)
		}
		report.Steps = append(report.Steps, StepOutcome{Name: name, Err: stepErr})
	}

	addStep(StepVectorIndex, c.index.DeleteByFileID(ctx, fingerprint))
	addStep(StepBlob, c.removeBlob(ctx, record))
	addStep(StepChunks, c.chunks.DeleteByFingerprint(ctx, fingerprint))

	if err := c.files.Delete(ctx, fingerprint); err != nil {
		addStep(StepRecord, err)
		return report, fmt.Errorf("deleting record %s: %w", fingerprint, err)
	}
	addStep(StepRecord, nil)

	c.logger.Info("document deleted", "fingerprint", fingerprint, "failedSteps", len(report.Failed()))
	return report, nil
}

// removeBlob removes the payload from whichever key it lives under,
// primary location first. A payload missing from both locations is not
// an error.
func (c *Coordinator) removeBlob(ctx context.Context, record *core.FileRecord) error {
	for _, key := range blob.CandidateKeys(record.Fingerprint, record.Name) {
		if _, err := c.store.Stat(ctx, key); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				continue
			}
			return err
		}
		return c.store.Remove(ctx, key)
	}
	return nil
}
