package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// VectorIndex implements storage.VectorIndex for BadgerDB. Entries are
// scanned linearly and ranked with a dot product, which assumes vectors
// are normalized upstream when cosine ranking is wanted.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend) *VectorIndex {
	return &VectorIndex{backend: backend}
}

// Close implements storage.VectorIndex.
func (v *VectorIndex) Close() error {
	return nil
}

// UpsertVectors writes index entries, replacing existing ones for the same
// (fingerprint, chunk index).
func (v *VectorIndex) UpsertVectors(ctx context.Context, entries ...*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			key := makeVectorKey(entry.Fingerprint, entry.ChunkIndex)
			if err := tx.Set(key, storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteByFileID removes every entry belonging to the given file.
func (v *VectorIndex) DeleteByFileID(ctx context.Context, fingerprint core.Fingerprint) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteByPrefix(tx, makeVectorScan(fingerprint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search scans all index entries and returns up to limit matches with
// similarity of at least minSimilarity, ranked by descending score.
// A non-positive limit returns every match.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.IndexMatch, error) {
	var results []*core.IndexMatch

	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorIndexPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.IndexEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalIndexEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || len(entry.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, entry.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.IndexMatch{
					Entry: entry,
					Score: similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.IndexMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
