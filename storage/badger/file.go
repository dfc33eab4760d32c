package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// FileRepository implements storage.FileRepository for BadgerDB.
type FileRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.FileRepository = (*FileRepository)(nil)

// NewFileRepository creates a new FileRepository.
func NewFileRepository(backend *Backend) (*FileRepository, error) {
	idSeq, err := backend.GetSequence(fileRecordIDSeq)
	if err != nil {
		return nil, err
	}

	return &FileRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *FileRepository) Close() error {
	return r.idSeq.Release()
}

// Create adds a file record with a sequence-generated surrogate ID.
func (r *FileRepository) Create(ctx context.Context, record *core.FileRecord) (*core.FileRecord, error) {
	if err := core.ValidateFileRecord(record); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileRecordKey(record.Fingerprint)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		record.Id = nextID

		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}

		if err := tx.Set(key, storage.MarshalFileRecord(record)); err != nil {
			return err
		}
		if err := r.writeIndexes(tx, record); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return record, err
}

// Update replaces an existing record, matched by fingerprint, and keeps the
// visibility indexes in sync.
func (r *FileRepository) Update(ctx context.Context, record *core.FileRecord) error {
	if err := core.ValidateFileRecord(record); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileRecordKey(record.Fingerprint)
		old, err := r.readRecord(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// The surrogate ID and creation time are immutable.
		record.Id = old.Id
		record.CreatedAt = old.CreatedAt

		if err := tx.Set(key, storage.MarshalFileRecord(record)); err != nil {
			return err
		}
		if old.OwnerID != record.OwnerID || old.IsPublic != record.IsPublic || old.OrgTag != record.OrgTag {
			if err := r.deleteIndexes(tx, old); err != nil {
				return err
			}
			if err := r.writeIndexes(tx, record); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a record by fingerprint alone.
func (r *FileRepository) Get(ctx context.Context, fingerprint core.Fingerprint) (*core.FileRecord, error) {
	var result *core.FileRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readRecord(tx, makeFileRecordKey(fingerprint))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetForOwner retrieves a record by (fingerprint, owner).
func (r *FileRepository) GetForOwner(ctx context.Context, fingerprint core.Fingerprint, ownerID string) (*core.FileRecord, error) {
	record, err := r.Get(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

// ListByOwner returns the owner's records ordered by creation time descending.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]*core.FileRecord, error) {
	var results []*core.FileRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		fingerprints, err := r.scanIndex(tx, makeFileOwnerScan(ownerID))
		if err != nil {
			return err
		}
		results, err = r.loadRecords(tx, fingerprints)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(results)
	return results, nil
}

// ListOwnerOrPublic returns records owned by ownerID plus all public records.
func (r *FileRepository) ListOwnerOrPublic(ctx context.Context, ownerID string) ([]*core.FileRecord, error) {
	return r.ListAccessible(ctx, ownerID, nil)
}

// ListAccessible returns the owner's records, public records and records
// tagged with any of the given org tags, deduplicated and ordered by
// creation time descending.
func (r *FileRepository) ListAccessible(ctx context.Context, ownerID string, tags []string) ([]*core.FileRecord, error) {
	var results []*core.FileRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		seen := make(map[core.Fingerprint]bool)
		var fingerprints []core.Fingerprint

		collect := func(fps []core.Fingerprint) {
			for _, fp := range fps {
				if !seen[fp] {
					seen[fp] = true
					fingerprints = append(fingerprints, fp)
				}
			}
		}

		owned, err := r.scanIndex(tx, makeFileOwnerScan(ownerID))
		if err != nil {
			return err
		}
		collect(owned)

		public, err := r.scanIndex(tx, []byte(filePublicPrefix+":"))
		if err != nil {
			return err
		}
		collect(public)

		for _, tag := range tags {
			tagged, err := r.scanIndex(tx, makeFileTagScan(tag))
			if err != nil {
				return err
			}
			collect(tagged)
		}

		results, err = r.loadRecords(tx, fingerprints)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(results)
	return results, nil
}

// All returns every file record, ordered by creation time descending.
func (r *FileRepository) All(ctx context.Context) ([]*core.FileRecord, error) {
	var results []*core.FileRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fileRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalFileRecord(val)
				if err != nil {
					return err
				}
				results = append(results, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(results)
	return results, nil
}

// Delete removes a record and its index entries by fingerprint.
func (r *FileRepository) Delete(ctx context.Context, fingerprint core.Fingerprint) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileRecordKey(fingerprint)
		record, err := r.readRecord(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}

		if err := r.deleteIndexes(tx, record); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readRecord reads a file record by key, returning nil when absent.
func (r *FileRepository) readRecord(tx *badger.Txn, key []byte) (*core.FileRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.FileRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalFileRecord(val)
		return err
	})
	return record, err
}

// scanIndex collects the fingerprints stored under an index prefix.
func (r *FileRepository) scanIndex(tx *badger.Txn, prefix []byte) ([]core.Fingerprint, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var fingerprints []core.Fingerprint
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			fingerprints = append(fingerprints, core.Fingerprint(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return fingerprints, nil
}

func (r *FileRepository) loadRecords(tx *badger.Txn, fingerprints []core.Fingerprint) ([]*core.FileRecord, error) {
	records := make([]*core.FileRecord, 0, len(fingerprints))
	for _, fp := range fingerprints {
		record, err := r.readRecord(tx, makeFileRecordKey(fp))
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

func (r *FileRepository) writeIndexes(tx *badger.Txn, record *core.FileRecord) error {
	value := []byte(record.Fingerprint)
	if err := tx.Set(makeFileOwnerKey(record.OwnerID, record.Fingerprint), value); err != nil {
		return err
	}
	if record.IsPublic {
		if err := tx.Set(makeFilePublicKey(record.Fingerprint), value); err != nil {
			return err
		}
	}
	if record.OrgTag != "" {
		if err := tx.Set(makeFileTagKey(record.OrgTag, record.Fingerprint), value); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileRepository) deleteIndexes(tx *badger.Txn, record *core.FileRecord) error {
	if err := tx.Delete(makeFileOwnerKey(record.OwnerID, record.Fingerprint)); err != nil {
		return err
	}
	if record.IsPublic {
		if err := tx.Delete(makeFilePublicKey(record.Fingerprint)); err != nil {
			return err
		}
	}
	if record.OrgTag != "" {
		if err := tx.Delete(makeFileTagKey(record.OrgTag, record.Fingerprint)); err != nil {
			return err
		}
	}
	return nil
}

// sortByCreatedDesc orders records newest first, breaking ties by
// fingerprint so listings are stable.
func sortByCreatedDesc(records []*core.FileRecord) {
	slices.SortFunc(records, func(a, b *core.FileRecord) int {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return 1
		}
		if a.Fingerprint < b.Fingerprint {
			return -1
		}
		if a.Fingerprint > b.Fingerprint {
			return 1
		}
		return 0
	})
}
