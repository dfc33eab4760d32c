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


package storage

import (
	"context"

	"github.com/inferaflow/docustore/core"
)

// FileRepository provides operations for managing file records.
type FileRepository interface {
	// Create adds a file record. The surrogate Id is generated from the
	// storage sequence and CreatedAt is set if zero. Returns ErrDuplicateKey
	// if a record with the same fingerprint already exists.
	Create(ctx context.Context, record *core.FileRecord) (*core.FileRecord, error)

	// Update replaces an existing record, matched by fingerprint.
	// Returns ErrNotFound if the record does not exist.
	Update(ctx context.Context, record *core.FileRecord) error

	// Get retrieves a record by fingerprint alone.
	// Returns ErrNotFound if the record does not exist.
	Get(ctx context.Context, fingerprint core.Fingerprint) (*core.FileRecord, error)

	// GetForOwner retrieves a record by (fingerprint, owner), the
	// tenant-scoped lookup. Returns ErrNotFound on no match.
	GetForOwner(ctx context.Context, fingerprint core.Fingerprint, ownerID string) (*core.FileRecord, error)

	// ListByOwner returns the owner's records ordered by creation time
	// descending.
	ListByOwner(ctx context.Context, ownerID string) ([]*core.FileRecord, error)

	// ListOwnerOrPublic returns records owned by ownerID plus all public
	// records, ordered by creation time descending.
	ListOwnerOrPublic(ctx context.Context, ownerID string) ([]*core.FileRecord, error)

	// ListAccessible returns records owned by ownerID, public records, and
	// records whose org tag is in tags, ordered by creation time descending.
	ListAccessible(ctx context.Context, ownerID string, tags []string) ([]*core.FileRecord, error)

	// All returns every file record. Used by maintenance passes such as the
	// legacy blob migration.
	All(ctx context.Context) ([]*core.FileRecord, error)

	// Delete removes a record by fingerprint.
	// Returns ErrNotFound if the record does not exist.
	Delete(ctx context.Context, fingerprint core.Fingerprint) error

	// Close releases resources held by the repository.
	Close() error
}

// ChunkRepository provides operations for managing chunk records.
type ChunkRepository interface {
	// PutChunks stores the chunks of a file, replacing any previous set.
	// Chunk indices must be contiguous starting at 0.
	PutChunks(ctx context.Context, chunks ...*core.ChunkRecord) error

	// GetByFingerprint returns a file's chunks ordered by ascending index.
	// Returns an empty slice when the file has no chunks.
	GetByFingerprint(ctx context.Context, fingerprint core.Fingerprint) ([]*core.ChunkRecord, error)

	// DeleteByFingerprint removes all chunks of a file. Removing chunks of
	// an unknown file is not an error.
	DeleteByFingerprint(ctx context.Context, fingerprint core.Fingerprint) error

	// Close releases resources held by the repository.
	Close() error
}

// TagRepository provides operations for managing organization tags.
// The tag forest is read-heavy; mutation happens only through
// administrative tag management.
type TagRepository interface {
	// Put creates or replaces a tag.
	Put(ctx context.Context, tag *core.OrganizationTag) error

	// Get retrieves a tag by its identifier.
	// Returns ErrNotFound if the tag does not exist.
	Get(ctx context.Context, tagID string) (*core.OrganizationTag, error)

	// Children returns the tags whose parent is tagID.
	Children(ctx context.Context, tagID string) ([]*core.OrganizationTag, error)

	// Delete removes a tag by its identifier.
	// Returns ErrNotFound if the tag does not exist.
	Delete(ctx context.Context, tagID string) error

	// Close releases resources held by the repository.
	Close() error
}

// VectorIndex is the index-store boundary: vectorized chunks keyed by
// (fingerprint, chunk index).
type VectorIndex interface {
	// UpsertVectors writes index entries, replacing existing ones for the
	// same (fingerprint, chunk index).
	UpsertVectors(ctx context.Context, entries ...*core.IndexEntry) error

	// DeleteByFileID removes every entry belonging to the given file.
	// Removing entries of an unknown file is not an error.
	DeleteByFileID(ctx context.Context, fingerprint core.Fingerprint) error

	// Search returns up to limit entries whose similarity to vector is at
	// least minSimilarity, ranked by descending score.
	Search(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.IndexMatch, error)

	// Close releases resources held by the index.
	Close() error
}
