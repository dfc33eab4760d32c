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
	"log/slog"

	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// MigrationReport summarizes one migration pass.
type MigrationReport struct {
	// Migrated counts payloads moved from the legacy key to the primary key.
	Migrated int

	// AlreadyCurrent counts records whose payload was already under the
	// primary key.
	AlreadyCurrent int

	// Missing counts records with no payload under either key.
	Missing int

	// Failed counts records whose migration hit a store error.
	Failed int
}

// Migrator moves payloads from legacy file-name keys to fingerprint keys.
// The pass is idempotent: already-migrated and missing payloads are
// counted and skipped, and one bad record does not stop the rest.
type Migrator struct {
	files  storage.FileRepository
	store  blob.Store
	logger *slog.Logger
}

// NewMigrator creates a Migrator over the given stores.
func NewMigrator(files storage.FileRepository, store blob.Store) *Migrator {
	return &Migrator{
		files:  files,
		store:  store,
		logger: slog.Default().With("component", "blob-migrator"),
	}
}

// MigrateBlobs walks every file record, copying legacy payloads to their
// primary key and removing the legacy object afterwards.
func (m *Migrator) MigrateBlobs(ctx context.Context) (*MigrationReport, error) {
	records, err := m.files.All(ctx)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		switch err := m.migrateRecord(ctx, record); {
		case err == nil:
			report.Migrated++
			m.logger.Info("payload migrated", "fingerprint", record.Fingerprint, "name", record.Name)
		case errors.Is(err, errAlreadyCurrent):
			report.AlreadyCurrent++
		case errors.Is(err, errPayloadMissing):
			report.Missing++
			m.logger.Warn("record has no payload to migrate", "fingerprint", record.Fingerprint)
		default:
			report.Failed++
			m.logger.Error("payload migration failed", "fingerprint", record.Fingerprint, "err", err)
		}
	}

	m.logger.Info("blob migration finished",
		"migrated", report.Migrated, "current", report.AlreadyCurrent,
		"missing", report.Missing, "failed", report.Failed)
	return report, nil
}

var (
	errAlreadyCurrent = errors.New("payload already under primary key")
	errPayloadMissing = errors.New("payload missing")
)

func (m *Migrator) migrateRecord(ctx context.Context, record *core.FileRecord) error {
	primary := blob.PrimaryKey(record.Fingerprint)

	if _, err := m.store.Stat(ctx, primary); err == nil {
		return errAlreadyCurrent
	} else if !errors.Is(err, blob.ErrNotFound) {
		return err
	}

	if record.Name == "" {
		return errPayloadMissing
	}
	legacy := blob.LegacyKey(record.Name)

	if _, err := m.store.Stat(ctx, legacy); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return errPayloadMissing
		}
		return err
	}

	if err := m.store.Copy(ctx, legacy, primary); err != nil {
		return err
	}
	return m.store.Remove(ctx, legacy)
}
