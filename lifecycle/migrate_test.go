package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
)

func migrationFingerprint(n int) core.Fingerprint {
	return core.Fingerprint(fmt.Sprintf("%032x", n))
}

func (f *lifecycleFixture) seedRecord(t *testing.T, n int, name string) {
	t.Helper()
	_, err := f.files.Create(context.Background(), &core.FileRecord{
		Fingerprint: migrationFingerprint(n),
		Name:        name,
		OwnerID:     "alice",
		Status:      core.StatusCompleted,
	})
	require.NoError(t, err)
}

func TestMigrateBlobsMovesLegacyPayloads(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seedRecord(t, 1, "legacy.txt")
	require.NoError(t, f.store.Put(ctx, blob.LegacyKey("legacy.txt"),
		bytes.NewReader([]byte("legacy payload"))))

	migrator := NewMigrator(f.files, f.store)
	report, err := migrator.MigrateBlobs(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 0, report.Failed)

	// Payload now lives under the fingerprint key only.
	reader, err := f.store.Get(ctx, blob.PrimaryKey(migrationFingerprint(1)))
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "legacy payload", string(data))

	_, err = f.store.Get(ctx, blob.LegacyKey("legacy.txt"))
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestMigrateBlobsIdempotent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.seedRecord(t, 1, "legacy.txt")
	require.NoError(t, f.store.Put(ctx, blob.LegacyKey("legacy.txt"),
		bytes.NewReader([]byte("payload"))))

	migrator := NewMigrator(f.files, f.store)
	_, err := migrator.MigrateBlobs(ctx)
	require.NoError(t, err)

	report, err := migrator.MigrateBlobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Migrated)
	assert.Equal(t, 1, report.AlreadyCurrent)
}

func TestMigrateBlobsMixedStates(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	// Already under the primary key.
	f.seedRecord(t, 1, "current.txt")
	require.NoError(t, f.store.Put(ctx, blob.PrimaryKey(migrationFingerprint(1)),
		bytes.NewReader([]byte("current"))))

	// Still under the legacy key.
	f.seedRecord(t, 2, "legacy.txt")
	require.NoError(t, f.store.Put(ctx, blob.LegacyKey("legacy.txt"),
		bytes.NewReader([]byte("legacy"))))

	// No payload anywhere.
	f.seedRecord(t, 3, "ghost.txt")

	migrator := NewMigrator(f.files, f.store)
	report, err := migrator.MigrateBlobs(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 1, report.AlreadyCurrent)
	assert.Equal(t, 1, report.Missing)
	assert.Equal(t, 0, report.Failed)
}
