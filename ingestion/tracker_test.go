package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/storage/badger"
)

const testFingerprint = core.Fingerprint("0123456789abcdef0123456789abcdef")

func newTestFiles(t *testing.T) *badger.FileRepository {
	t.Helper()
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	files, err := badger.NewFileRepository(backend)
	require.NoError(t, err)
	return files
}

func createRecord(t *testing.T, files *badger.FileRepository, status core.ProcessingStatus) {
	t.Helper()
	record := &core.FileRecord{
		Fingerprint: testFingerprint,
		Name:        "report.txt",
		OwnerID:     "alice",
		Status:      status,
	}
	if status == core.StatusFailed {
		record.ProcessingError = "boom"
	}
	_, err := files.Create(context.Background(), record)
	require.NoError(t, err)
}

func TestSetStatusAdvances(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusPending)
	tracker := NewTracker(files)
	ctx := context.Background()

	require.NoError(t, tracker.MarkParsing(ctx, testFingerprint, "alice"))
	require.NoError(t, tracker.MarkVectorizing(ctx, testFingerprint, "alice"))
	require.NoError(t, tracker.MarkCompleted(ctx, testFingerprint, "alice"))

	record, err := files.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.Empty(t, record.ProcessingError)
	assert.False(t, record.StatusUpdatedAt.IsZero())
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusPending)
	tracker := NewTracker(files)
	ctx := context.Background()

	err := tracker.MarkCompleted(ctx, testFingerprint, "alice")
	assert.ErrorIs(t, err, core.ErrIllegalTransition)

	record, getErr := files.Get(ctx, testFingerprint)
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusPending, record.Status, "rejected transition must not change the record")
}

func TestSetStatusSameStatusIdempotent(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusParsing)
	tracker := NewTracker(files)

	assert.NoError(t, tracker.MarkParsing(context.Background(), testFingerprint, "alice"))
}

func TestSetStatusFailureMessage(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusParsing)
	tracker := NewTracker(files)
	ctx := context.Background()

	require.NoError(t, tracker.MarkFailed(ctx, testFingerprint, "alice", "extractor exploded"))

	record, err := files.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, record.Status)
	assert.Equal(t, "extractor exploded", record.ProcessingError)

	// Re-queueing clears the stored error.
	require.NoError(t, tracker.MarkPending(ctx, testFingerprint, "alice"))
	record, err = files.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Empty(t, record.ProcessingError)
}

func TestSetStatusFailureFallbackMessage(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusParsing)
	tracker := NewTracker(files)
	ctx := context.Background()

	require.NoError(t, tracker.MarkFailed(ctx, testFingerprint, "alice", ""))

	record, err := files.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, failureFallbackMessage, record.ProcessingError)
}

func TestSetStatusOwnerFallback(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusPending)
	tracker := NewTracker(files)
	ctx := context.Background()

	// Wrong owner falls back to the fingerprint-only lookup.
	require.NoError(t, tracker.MarkParsing(ctx, testFingerprint, "mallory"))

	record, err := files.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, core.StatusParsing, record.Status)
}

func TestSetStatusMissingRecordNoOp(t *testing.T) {
	tracker := NewTracker(newTestFiles(t))

	assert.NoError(t, tracker.MarkParsing(context.Background(), testFingerprint, "alice"))
}

func TestReconcileForcesTransition(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusVectorizing)
	tracker := NewTracker(files)
	ctx := context.Background()

	// VECTORIZING -> PENDING is not a legal move, Reconcile forces it.
	require.NoError(t, tracker.Reconcile(ctx, testFingerprint, core.StatusPending))

	record, err := files.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, record.Status)
}

func TestReconcileRejectsUnknownStatus(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusPending)
	tracker := NewTracker(files)

	err := tracker.Reconcile(context.Background(), testFingerprint, core.ProcessingStatus("LIMBO"))
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestGetForUser(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusPending)
	tracker := NewTracker(files)
	ctx := context.Background()

	record, err := tracker.GetForUser(ctx, testFingerprint, "alice")
	require.NoError(t, err)
	assert.Equal(t, "report.txt", record.Name)

	_, err = tracker.GetForUser(ctx, testFingerprint, "bob")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListForUser(t *testing.T) {
	files := newTestFiles(t)
	createRecord(t, files, core.StatusPending)
	tracker := NewTracker(files)
	ctx := context.Background()

	records, err := tracker.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testFingerprint, records[0].Fingerprint)

	empty, err := tracker.ListForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = tracker.ListForUser(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyOwner)
}
