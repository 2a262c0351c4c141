package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateCoversEveryItemOnce(t *testing.T) {
	for _, total := range []int{1, 4, 5, 6, 7, 12, 13, 25} {
		chunks := paginate(total, 280, 42, 80)
		require.NotEmpty(t, chunks, "total=%d", total)

		next := 0
		for _, c := range chunks {
			assert.Equal(t, next, c.Start, "total=%d", total)
			assert.Greater(t, c.End, c.Start, "total=%d", total)
			next = c.End
		}
		assert.Equal(t, total, next, "total=%d", total)
	}
}

func TestPaginateSummaryPlacement(t *testing.T) {
	// avail 280, row 42: 6 rows on a full page, 4 when sharing with the
	// 80-high summary.
	chunks := paginate(4, 280, 42, 80)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].SummaryOnPage)

	// Five remaining rows exceed the shared capacity, so they take a full
	// page and the summary gets no host chunk.
	chunks = paginate(5, 280, 42, 80)
	require.Len(t, chunks, 1)
	assert.False(t, chunks[0].SummaryOnPage)

	chunks = paginate(10, 280, 42, 80)
	require.Len(t, chunks, 2)
	assert.Equal(t, 6, chunks[0].End)
	assert.False(t, chunks[0].SummaryOnPage)
	assert.True(t, chunks[1].SummaryOnPage)
}

func TestPaginateRowCapPerPage(t *testing.T) {
	// A tall page would fit 20 rows by height alone; the cap still wins.
	chunks := paginate(20, 900, 42, 80)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.End-c.Start, maxRowsPerPage)
	}
}

func TestPaginateEmpty(t *testing.T) {
	assert.Nil(t, paginate(0, 280, 42, 80))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Acme Corp_quotation.pdf", FileName("Acme Corp"))
	assert.Equal(t, "quotation_quotation.pdf", FileName("  "))
}
