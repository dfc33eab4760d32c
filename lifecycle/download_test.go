package lifecycle

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferaflow/docustore/blob"
	"github.com/inferaflow/docustore/core"
	"github.com/inferaflow/docustore/extract"
)

// urlStore grants presigned URLs over a MemoryStore.
type urlStore struct {
	*blob.MemoryStore
}

func (s *urlStore) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		return "", err
	}
	return "https://store.example.com/" + key + "?expires=" + expiry.String(), nil
}

func TestDownloadURLResolvesPrimaryKey(t *testing.T) {
	store := &urlStore{MemoryStore: blob.NewMemoryStore()}
	ctx := context.Background()

	record := &core.FileRecord{Fingerprint: testFingerprint, Name: "report.txt"}
	require.NoError(t, store.Put(ctx, blob.PrimaryKey(testFingerprint),
		bytes.NewReader([]byte("payload"))))

	downloads := NewDownloads(store, extract.NewTextExtractor(0))
	url, err := downloads.URL(ctx, record, 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, blob.PrimaryKey(testFingerprint))
}

func TestDownloadURLLegacyFallback(t *testing.T) {
	store := &urlStore{MemoryStore: blob.NewMemoryStore()}
	ctx := context.Background()

	record := &core.FileRecord{Fingerprint: testFingerprint, Name: "old.txt"}
	require.NoError(t, store.Put(ctx, blob.LegacyKey("old.txt"),
		bytes.NewReader([]byte("payload"))))

	downloads := NewDownloads(store, extract.NewTextExtractor(0))
	url, err := downloads.URL(ctx, record, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, blob.LegacyKey("old.txt"))
}

func TestDownloadURLMissingPayload(t *testing.T) {
	downloads := NewDownloads(blob.NewMemoryStore(), extract.NewTextExtractor(0))

	_, err := downloads.URL(context.Background(),
		&core.FileRecord{Fingerprint: testFingerprint, Name: "gone.txt"}, time.Minute)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestPreviewExcerpt(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()

	content := strings.Repeat("preview text. ", 300)
	record := &core.FileRecord{
		Fingerprint: testFingerprint,
		Name:        "report.txt",
		TotalSize:   int64(len(content)),
		Status:      core.StatusCompleted,
	}
	require.NoError(t, store.Put(ctx, blob.PrimaryKey(testFingerprint),
		bytes.NewReader([]byte(content))))

	downloads := NewDownloads(store, extract.NewTextExtractor(0))
	preview, err := downloads.ForPreview(ctx, record, 100)
	require.NoError(t, err)

	assert.Equal(t, "report.txt", preview.Name)
	assert.Equal(t, core.StatusCompleted, preview.Status)
	assert.Len(t, preview.Excerpt, 100)
	assert.True(t, preview.Truncated)
	assert.Equal(t, "4.1 KB", preview.SizeLabel)
}

func TestPreviewExcerptKeepsRunesWhole(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()

	content := strings.Repeat("é", 50)
	record := &core.FileRecord{
		Fingerprint: testFingerprint,
		Name:        "accents.txt",
		TotalSize:   int64(len(content)),
		Status:      core.StatusCompleted,
	}
	require.NoError(t, store.Put(ctx, blob.PrimaryKey(testFingerprint),
		bytes.NewReader([]byte(content))))

	downloads := NewDownloads(store, extract.NewTextExtractor(0))
	// An odd byte cap lands mid-rune for two-byte characters.
	preview, err := downloads.ForPreview(ctx, record, 7)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("é", 3), preview.Excerpt)
	assert.True(t, preview.Truncated)
	assert.True(t, utf8.ValidString(preview.Excerpt))
}

func TestPreviewSmallDocumentNotTruncated(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()

	record := &core.FileRecord{
		Fingerprint: testFingerprint,
		Name:        "note.md",
		TotalSize:   5,
		Status:      core.StatusCompleted,
	}
	require.NoError(t, store.Put(ctx, blob.PrimaryKey(testFingerprint),
		bytes.NewReader([]byte("hello"))))

	downloads := NewDownloads(store, extract.NewTextExtractor(0))
	preview, err := downloads.ForPreview(ctx, record, 0)
	require.NoError(t, err)

	assert.Equal(t, "hello", preview.Excerpt)
	assert.False(t, preview.Truncated)
	assert.Equal(t, "5 B", preview.SizeLabel)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 B", formatFileSize(0))
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.0 KB", formatFileSize(1024))
	assert.Equal(t, "1.5 MB", formatFileSize(1536*1024))
	assert.Equal(t, "2.0 GB", formatFileSize(2*1024*1024*1024))
}
