package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close implements storage.ChunkRepository. The repository holds no
// resources of its own.
func (r *ChunkRepository) Close() error {
	return nil
}

// PutChunks stores the chunks of a file, replacing any previous set.
// All chunks must belong to one file and carry contiguous indices from 0.
func (r *ChunkRepository) PutChunks(ctx context.Context, chunks ...*core.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	fingerprint := chunks[0].Fingerprint
	for i, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Fingerprint != fingerprint {
			return fmt.Errorf("%w: chunk %d belongs to %s, not %s",
				core.ErrInvalidChunk, i, chunk.Fingerprint, fingerprint)
		}
		if chunk.Index != i {
			return fmt.Errorf("%w: expected index %d, got %d",
				core.ErrInvalidChunk, i, chunk.Index)
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteByPrefix(tx, makeChunkScan(fingerprint)); err != nil {
			return err
		}
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Fingerprint, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetByFingerprint returns a file's chunks ordered by ascending index.
// Key order guarantees the ordering; no sort is needed.
func (r *ChunkRepository) GetByFingerprint(ctx context.Context, fingerprint core.Fingerprint) ([]*core.ChunkRecord, error) {
	var chunks []*core.ChunkRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScan(fingerprint)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return err
				}
				chunks = append(chunks, chunk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return chunks, err
}

// DeleteByFingerprint removes all chunks of a file.
func (r *ChunkRepository) DeleteByFingerprint(ctx context.Context, fingerprint core.Fingerprint) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteByPrefix(tx, makeChunkScan(fingerprint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// deleteByPrefix removes every key under a prefix within the transaction.
func deleteByPrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
