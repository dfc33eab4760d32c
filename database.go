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


// Package docustore is a document ingestion and retrieval store.
//
// Uploaded documents are fingerprinted, parked in an object store and
// processed asynchronously into embedded chunks that back semantic
// search. Visibility combines ownership, public sharing and a
// hierarchical organization-tag model.
package docustore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/inferaflow/docustore/access"
	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/embedding"
	"github.com/inferaflow/docustore/extract"
	"github.com/inferaflow/docustore/ingestion"
	"github.com/inferaflow/docustore/lifecycle"
	"github.com/inferaflow/docustore/storage"
	"github.com/inferaflow/docustore/storage/badger"
)

const (
	defaultTagCacheSize = 1024
	defaultTagCacheTTL  = 5 * time.Minute
)

// Database wires the stores and services of a document store instance.
type Database struct {
	backend   *badger.Backend
	fileRepo  storage.FileRepository
	chunkRepo storage.ChunkRepository
	tagRepo   storage.TagRepository
	index     storage.VectorIndex
	store     blob.Store
	embedder  embedding.Embedder
	resolver  *access.Resolver
	filter    *access.Filter
	pipeline  *ingestion.Pipeline
	downloads *lifecycle.Downloads
	deleter   *lifecycle.Coordinator
	migrator  *lifecycle.Migrator
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	embeddingConfig *embedding.Config
	blobStore       blob.Store
	extractor       extract.Extractor
	pipelineOpts    []ingestion.Option
	tagCacheSize    int
	tagCacheTTL     time.Duration
	inMemory        bool
}

// WithEmbeddingConfig sets the embedding provider configuration.
func WithEmbeddingConfig(config *embedding.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.embeddingConfig = config
		}
	}
}

// WithBlobStore sets the object store holding document payloads.
// Default is an in-process memory store, suitable only for tests and
// experiments.
func WithBlobStore(store blob.Store) DatabaseOption {
	return func(o *databaseOptions) {
		if store != nil {
			o.blobStore = store
		}
	}
}

// WithExtractor replaces the default plain-text extractor.
func WithExtractor(extractor extract.Extractor) DatabaseOption {
	return func(o *databaseOptions) {
		if extractor != nil {
			o.extractor = extractor
		}
	}
}

// WithPipelineOptions forwards options to the processing pipeline.
func WithPipelineOptions(opts ...ingestion.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithTagCache sizes the per-user effective tag cache.
func WithTagCache(size int, ttl time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		if size > 0 {
			o.tagCacheSize = size
		}
		if ttl >= 0 {
			o.tagCacheTTL = ttl
		}
	}
}

// WithInMemory keeps all record storage in memory. Used by tests.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens a document store rooted at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		embeddingConfig: embedding.DefaultConfig(),
		blobStore:       blob.NewMemoryStore(),
		extractor:       extract.NewTextExtractor(0),
		tagCacheSize:    defaultTagCacheSize,
		tagCacheTTL:     defaultTagCacheTTL,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	fileRepo, err := badger.NewFileRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo := badger.NewChunkRepository(backend)
	tagRepo := badger.NewTagRepository(backend)
	index := badger.NewVectorIndex(backend)

	embedder, err := embedding.NewClient(options.embeddingConfig)
	if err != nil {
		fileRepo.Close()
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(fileRepo, chunkRepo, index,
		options.blobStore, options.extractor, embedder, options.pipelineOpts...)
	if err != nil {
		fileRepo.Close()
		backend.Close()
		return nil, err
	}

	resolver := access.NewResolver(access.NewTagGraph(tagRepo),
		options.tagCacheSize, options.tagCacheTTL)

	return &Database{
		backend:   backend,
		fileRepo:  fileRepo,
		chunkRepo: chunkRepo,
		tagRepo:   tagRepo,
		index:     index,
		store:     options.blobStore,
		embedder:  embedder,
		resolver:  resolver,
		filter:    access.NewFilter(fileRepo, resolver),
		pipeline:  pipeline,
		downloads: lifecycle.NewDownloads(options.blobStore, options.extractor),
		deleter:   lifecycle.NewCoordinator(fileRepo, chunkRepo, index, options.blobStore),
		migrator:  lifecycle.NewMigrator(fileRepo, options.blobStore),
		logger:    slog.Default(),
	}, nil
}

// Ingest stores a document and queues it for processing. The content is
// fingerprinted, the payload written to the object store, and a pending
// record created before the pipeline picks it up asynchronously.
// Returns storage.ErrDuplicateKey when the same content was already
// ingested.
func (db *Database) Ingest(ctx context.Context, name string, data []byte, ownerID, orgTag string, public bool) (*core.FileRecord, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}

	fingerprint := core.FingerprintBytes(data)

	if err := db.store.Put(ctx, blob.PrimaryKey(fingerprint), bytes.NewReader(data)); err != nil {
		return nil, err
	}

	record, err := db.fileRepo.Create(ctx, &core.FileRecord{
		Fingerprint: fingerprint,
		Name:        name,
		TotalSize:   int64(len(data)),
		OwnerID:     ownerID,
		OrgTag:      orgTag,
		IsPublic:    public,
		Status:      core.StatusPending,
		MergedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := db.pipeline.Submit(record.Fingerprint, ownerID); err != nil {
		db.logger.Error("unable to queue document for processing",
			"fingerprint", record.Fingerprint, "err", err)
	}
	return record, nil
}

// Reprocess re-queues a completed or failed document from the start.
func (db *Database) Reprocess(ctx context.Context, fingerprint core.Fingerprint, ownerID string) error {
	if err := db.pipeline.Tracker().MarkPending(ctx, fingerprint, ownerID); err != nil {
		return err
	}
	return db.pipeline.Submit(fingerprint, ownerID)
}

// Search embeds the query and returns the best-matching chunks the user
// is allowed to see.
func (db *Database) Search(ctx context.Context, query string, userID string, assignedTags []string, minSimilarity float32, limit int) ([]*core.IndexMatch, error) {
	vectors, err := db.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	matches, err := db.index.Search(ctx, vectors[0], minSimilarity, 0)
	if err != nil {
		return nil, err
	}

	visible := make([]*core.IndexMatch, 0, len(matches))
	for _, match := range matches {
		record, err := db.fileRepo.Get(ctx, match.Entry.Fingerprint)
		if err != nil {
			// An index entry may outlive its record when a delete loses
			// the race; anything else is a real storage failure.
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		ok, err := db.filter.CanRead(ctx, record, userID, assignedTags)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, match)
			if limit > 0 && len(visible) >= limit {
				break
			}
		}
	}
	return visible, nil
}

// ListVisible returns the records the user may see, newest first.
func (db *Database) ListVisible(ctx context.Context, userID string, assignedTags []string) ([]*core.FileRecord, error) {
	return db.filter.ListVisible(ctx, userID, assignedTags)
}

// Delete removes a document from every store.
func (db *Database) Delete(ctx context.Context, fingerprint core.Fingerprint, requesterID string) (*lifecycle.DeleteReport, error) {
	return db.deleter.Delete(ctx, fingerprint, requesterID)
}

// FileRepository exposes the file record store.
func (db *Database) FileRepository() storage.FileRepository {
	return db.fileRepo
}

// ChunkRepository exposes the chunk store.
func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

// TagRepository exposes the organization tag store. Tag mutations should
// be followed by InvalidateTagCache.
func (db *Database) TagRepository() storage.TagRepository {
	return db.tagRepo
}

// VectorIndex exposes the vector index.
func (db *Database) VectorIndex() storage.VectorIndex {
	return db.index
}

// BlobStore exposes the object store holding payloads.
func (db *Database) BlobStore() blob.Store {
	return db.store
}

// Tracker exposes processing status updates and reconciliation.
func (db *Database) Tracker() *ingestion.Tracker {
	return db.pipeline.Tracker()
}

// Downloads exposes presigned URLs and previews.
func (db *Database) Downloads() *lifecycle.Downloads {
	return db.downloads
}

// Migrator exposes the legacy blob key migration.
func (db *Database) Migrator() *lifecycle.Migrator {
	return db.migrator
}

// InvalidateTagCache drops all cached effective tag sets.
func (db *Database) InvalidateTagCache() {
	db.resolver.InvalidateAll()
}

// Close releases the pipeline and storage. The database should not be
// used afterwards.
func (db *Database) Close() error {
	db.pipeline.Release()

	if err := db.fileRepo.Close(); err != nil {
		db.logger.Error("error closing file repository", "err", err)
		return err
	}
	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.tagRepo.Close(); err != nil {
		db.logger.Error("error closing tag repository", "err", err)
		return err
	}
	if err := db.index.Close(); err != nil {
		db.logger.Error("error closing vector index", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
