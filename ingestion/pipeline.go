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
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"

	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/embedding"
	"github.com/inferaflow/docustore/extract"
	"github.com/inferaflow/docustore/storage"
)

// Pipeline drives a document from pending to completed: fetch the payload,
// extract text, chunk, embed, index. Work runs on a bounded worker pool;
// any stage failure marks the record failed with the stage's error message
// and writes no vectors.
type Pipeline struct {
	tracker   *Tracker
	chunks    storage.ChunkRepository
	index     storage.VectorIndex
	store     blob.Store
	extractor extract.Extractor
	chunker   *Chunker
	embedder  embedding.Embedder
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(chunker *Chunker) Option {
	return func(p *Pipeline) error {
		if chunker != nil {
			p.chunker = chunker
		}
		return nil
	}
}

// NewPipeline creates a processing pipeline over the given collaborators.
func NewPipeline(
	files storage.FileRepository,
	chunks storage.ChunkRepository,
	index storage.VectorIndex,
	store blob.Store,
	extractor extract.Extractor,
	embedder embedding.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if files == nil {
		return nil, ErrFileRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if store == nil {
		return nil, ErrBlobStoreRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		tracker:   NewTracker(files),
		chunks:    chunks,
		index:     index,
		store:     store,
		extractor: extractor,
		chunker:   NewChunker(DefaultChunkSize, DefaultChunkOverlap),
		embedder:  embedder,
		pool:      pool,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Tracker exposes the pipeline's status tracker for status queries and
// operator reconciliation.
func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

// Submit queues a document for asynchronous processing. Processing errors
// are reflected in the record's status and logged, not returned.
func (p *Pipeline) Submit(fingerprint core.Fingerprint, ownerID string) error {
	return p.pool.Submit(func() {
		if err := p.Process(context.Background(), fingerprint, ownerID); err != nil {
			p.logger.Error("document processing failed",
				"fingerprint", fingerprint, "owner", ownerID, "err", err)
		}
	})
}

// Process runs the full pipeline for one document synchronously. A record
// that disappeared is a no-op. Any stage failure marks the record failed
// and is returned; vectors are written only after every chunk embedded.
func (p *Pipeline) Process(ctx context.Context, fingerprint core.Fingerprint, ownerID string) error {
	record, err := p.tracker.Lookup(ctx, fingerprint, ownerID)
	if err != nil {
		return err
	}
	if record == nil {
		p.logger.Warn("processing skipped, record missing", "fingerprint", fingerprint, "owner", ownerID)
		return nil
	}

	if err := p.tracker.MarkParsing(ctx, fingerprint, ownerID); err != nil {
		return err
	}

	chunkRecords, err := p.parse(ctx, record)
	if err != nil {
		return p.fail(ctx, fingerprint, ownerID, err)
	}

	if err := p.tracker.MarkVectorizing(ctx, fingerprint, ownerID); err != nil {
		return err
	}

	if err := p.vectorize(ctx, fingerprint, chunkRecords); err != nil {
		return p.fail(ctx, fingerprint, ownerID, err)
	}

	if err := p.tracker.MarkCompleted(ctx, fingerprint, ownerID); err != nil {
		return err
	}

	p.logger.Info("document processed", "fingerprint", fingerprint, "chunks", len(chunkRecords))
	return nil
}

// parse fetches the payload, extracts text and stores the chunk set.
func (p *Pipeline) parse(ctx context.Context, record *core.FileRecord) ([]*core.ChunkRecord, error) {
	data, err := p.fetchPayload(ctx, record)
	if err != nil {
		return nil, err
	}

	result, err := p.extractor.Extract(ctx, data, record.Name)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", record.Name, err)
	}
	if result.Truncated {
		p.logger.Warn("document text truncated during extraction",
			"fingerprint", record.Fingerprint, "name", record.Name)
	}

	chunkRecords, err := p.chunker.Split(record.Fingerprint, result.Text)
	if err != nil {
		return nil, err
	}

	if err := p.chunks.PutChunks(ctx, chunkRecords...); err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}
	return chunkRecords, nil
}

// fetchPayload reads the document blob, trying the primary key and then
// the legacy file-name key.
func (p *Pipeline) fetchPayload(ctx context.Context, record *core.FileRecord) ([]byte, error) {
	for _, key := range blob.CandidateKeys(record.Fingerprint, record.Name) {
		reader, err := p.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("fetching %s: %w", key, err)
		}

		data, readErr := io.ReadAll(reader)
		reader.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading %s: %w", key, readErr)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", record.Fingerprint, ErrBlobMissing)
}

// vectorize embeds every chunk and writes the index entries in one shot.
func (p *Pipeline) vectorize(ctx context.Context, fingerprint core.Fingerprint, chunkRecords []*core.ChunkRecord) error {
	texts := make([]string, len(chunkRecords))
	for i, chunk := range chunkRecords {
		texts[i] = chunk.Content
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}

	entries := make([]*core.IndexEntry, len(chunkRecords))
	for i, chunk := range chunkRecords {
		chunk.Vector = vectors[i]
		entries[i] = &core.IndexEntry{
			Fingerprint: fingerprint,
			ChunkIndex:  chunk.Index,
			Vector:      vectors[i],
			Content:     chunk.Content,
		}
	}

	if err := p.index.UpsertVectors(ctx, entries...); err != nil {
		return fmt.Errorf("indexing vectors: %w", err)
	}
	return nil
}

// fail transitions the record to failed with the stage error, keeping the
// stage error as the returned one.
func (p *Pipeline) fail(ctx context.Context, fingerprint core.Fingerprint, ownerID string, cause error) error {
	if err := p.tracker.MarkFailed(ctx, fingerprint, ownerID, cause.Error()); err != nil {
		p.logger.Error("unable to mark record failed", "fingerprint", fingerprint, "err", err)
	}
	return cause
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
