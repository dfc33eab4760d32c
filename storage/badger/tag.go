package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage"
)

// TagRepository implements storage.TagRepository for BadgerDB.
type TagRepository struct {
	backend *Backend
}

var _ storage.TagRepository = (*TagRepository)(nil)

// NewTagRepository creates a new TagRepository.
func NewTagRepository(backend *Backend) *TagRepository {
	return &TagRepository{backend: backend}
}

// Close implements storage.TagRepository.
func (r *TagRepository) Close() error {
	return nil
}

// Put creates or replaces a tag and keeps the parent->child index in sync.
func (r *TagRepository) Put(ctx context.Context, tag *core.OrganizationTag) error {
	if err := core.ValidateTag(tag); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOrgTagKey(tag.TagID)

		old, err := r.readTag(tx, key)
		if err != nil {
			return err
		}
		if old != nil && old.ParentTag != tag.ParentTag && old.ParentTag != "" {
			if err := tx.Delete(makeTagChildKey(old.ParentTag, old.TagID)); err != nil {
				return err
			}
		}

		if err := tx.Set(key, storage.MarshalTag(tag)); err != nil {
			return err
		}
		if tag.ParentTag != "" {
			if err := tx.Set(makeTagChildKey(tag.ParentTag, tag.TagID), []byte(tag.TagID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a tag by its identifier.
func (r *TagRepository) Get(ctx context.Context, tagID string) (*core.OrganizationTag, error) {
	var result *core.OrganizationTag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readTag(tx, makeOrgTagKey(tagID))
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

// Children returns the tags whose parent is tagID, ordered by identifier.
func (r *TagRepository) Children(ctx context.Context, tagID string) ([]*core.OrganizationTag, error) {
	var children []*core.OrganizationTag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeTagChildScan(tagID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var childIDs []string
		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				childIDs = append(childIDs, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}

		for _, id := range childIDs {
			child, err := r.readTag(tx, makeOrgTagKey(id))
			if err != nil {
				return err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(children, func(a, b *core.OrganizationTag) int {
		if a.TagID < b.TagID {
			return -1
		}
		if a.TagID > b.TagID {
			return 1
		}
		return 0
	})
	return children, nil
}

// Delete removes a tag by its identifier.
func (r *TagRepository) Delete(ctx context.Context, tagID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOrgTagKey(tagID)
		tag, err := r.readTag(tx, key)
		if err != nil {
			return err
		}
		if tag == nil {
			return storage.ErrNotFound
		}

		if tag.ParentTag != "" {
			if err := tx.Delete(makeTagChildKey(tag.ParentTag, tag.TagID)); err != nil {
				return err
			}
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *TagRepository) readTag(tx *badger.Txn, key []byte) (*core.OrganizationTag, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var tag *core.OrganizationTag
	err = item.Value(func(val []byte) error {
		var err error
		tag, err = storage.UnmarshalTag(val)
		return err
	})
	return tag, err
}
