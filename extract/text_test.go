package extract

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	extractor := NewTextExtractor(0)

	result, err := extractor.Extract(context.Background(), []byte("hello world\nsecond line"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", result.Text)
	assert.False(t, result.Truncated)
}

func TestExtractFormatHintVariants(t *testing.T) {
	extractor := NewTextExtractor(0)
	data := []byte("content")

	for _, hint := range []string{"report.md", "md", ".md", "dir/notes.TXT", "LOG"} {
		_, err := extractor.Extract(context.Background(), data, hint)
		assert.NoError(t, err, "hint %q", hint)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	extractor := NewTextExtractor(0)

	for _, hint := range []string{"scan.pdf", "deck.pptx", "binary.exe", ""} {
		_, err := extractor.Extract(context.Background(), []byte("data"), hint)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, "hint %q", hint)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	extractor := NewTextExtractor(0)

	_, err := extractor.Extract(context.Background(), []byte("   \n\t "), "empty.txt")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractTruncatesOversized(t *testing.T) {
	extractor := NewTextExtractor(10)

	result, err := extractor.Extract(context.Background(), []byte(strings.Repeat("a", 50)), "big.txt")
	require.NoError(t, err)
	assert.Len(t, result.Text, 10)
	assert.True(t, result.Truncated)
}

func TestExtractTruncatesAtRuneBoundary(t *testing.T) {
	// The cap lands in the middle of the two-byte 'é'; the cut must back
	// off instead of leaving half a rune.
	extractor := NewTextExtractor(2)

	result, err := extractor.Extract(context.Background(), []byte("héllo"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "h", result.Text)
	assert.True(t, result.Truncated)
	assert.True(t, utf8.ValidString(result.Text))
}

func TestFormatSupported(t *testing.T) {
	assert.True(t, FormatSupported("a.json"))
	assert.True(t, FormatSupported("yaml"))
	assert.False(t, FormatSupported("a.docx"))
	assert.False(t, FormatSupported(""))
}
