package badger

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxCommitPersists(t *testing.T) {
	backend := newTestBackend(t)

	err := backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte("key"), []byte("value")); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	err = backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte("key"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	}, false)
	require.NoError(t, err)
}

func TestWithTxDiscardsWithoutCommit(t *testing.T) {
	backend := newTestBackend(t)

	err := backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set([]byte("key"), []byte("value"))
	}, true)
	require.NoError(t, err)

	err = backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte("key"))
		return err
	}, false)
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	assert.False(t, backend.IsClosed())

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}
