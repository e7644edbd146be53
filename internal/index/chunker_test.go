package index_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/port"
)

func TestNewChunker_InvalidConfig(t *testing.T) {
	t.Run("overlap equal to window", func(t *testing.T) {
		_, err := index.NewChunker(50, 50)
		require.Error(t, err)
		assert.True(t, errors.Is(err, port.ErrInvalidConfig))
	})

	t.Run("overlap above window", func(t *testing.T) {
		_, err := index.NewChunker(50, 80)
		require.Error(t, err)
		assert.True(t, errors.Is(err, port.ErrInvalidConfig))
	})

	t.Run("negative overlap", func(t *testing.T) {
		_, err := index.NewChunker(50, -1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, port.ErrInvalidConfig))
	})

	t.Run("non-positive window", func(t *testing.T) {
		_, err := index.NewChunker(0, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, port.ErrInvalidConfig))
	})
}

func TestChunker_ShortDocumentSingleChunk(t *testing.T) {
	c, err := index.NewChunker(350, 50)
	require.NoError(t, err)

	text := "Use only the SFO card for purchases."
	chunks, err := c.Chunk("EXPENSES SOP", text)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, "expenses_sop_0", chunks[0].ID)
	assert.Equal(t, "EXPENSES SOP", chunks[0].SourceName)
}

func TestChunker_EmptyDocument(t *testing.T) {
	c, err := index.NewChunker(350, 50)
	require.NoError(t, err)

	_, err = c.Chunk("EXPENSES SOP", "   \n\t ")
	require.Error(t, err)
}

func TestChunker_Deterministic(t *testing.T) {
	text := longPolicyText(40)

	a, err := index.NewChunker(50, 10)
	require.NoError(t, err)
	b, err := index.NewChunker(50, 10)
	require.NoError(t, err)

	first, err := a.Chunk("EXPENSES SOP", text)
	require.NoError(t, err)
	second, err := b.Chunk("EXPENSES SOP", text)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestChunker_SequenceIndexesMonotonic(t *testing.T) {
	c, err := index.NewChunker(40, 10)
	require.NoError(t, err)

	chunks, err := c.Chunk("EXPENSES SOP", longPolicyText(60))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.SequenceIndex)
		assert.Equal(t, fmt.Sprintf("expenses_sop_%d", i), ch.ID)
	}
}

func TestChunker_MoreOverlapNeverFewerChunks(t *testing.T) {
	text := longPolicyText(80)

	prev := 0
	for _, overlap := range []int{0, 10, 20, 30, 40} {
		c, err := index.NewChunker(50, overlap)
		require.NoError(t, err)
		chunks, err := c.Chunk("EXPENSES SOP", text)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(chunks), prev, "overlap %d reduced chunk count", overlap)
		prev = len(chunks)
	}
}

// longPolicyText builds a document with n short policy sentences.
func longPolicyText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Rule %d: every purchase requires a valid tax invoice uploaded to the shared drive. ", i)
	}
	return b.String()
}
