package render

import "math"

// maxRowsPerPage caps the estimate-based layout for safety; the per-row
// height is an estimate, not a measurement.
const maxRowsPerPage = 8

// chunk is one page worth of consecutive line items. SummaryOnPage marks the
// chunk that keeps enough free space below it for the summary table.
type chunk struct {
	Start         int
	End           int
	SummaryOnPage bool
}

// paginate assigns items to pages greedily. The page expected to hold the
// final chunk reserves summaryHeight so the totals table can sit under the
// last rows; when even a single row cannot share a page with the summary,
// the summary moves to its own page instead.
func paginate(total int, availHeight, rowHeight, summaryHeight float64) []chunk {
	if total <= 0 || rowHeight <= 0 {
		return nil
	}

	full := rowsFor(availHeight, rowHeight)
	withSummary := rowsFor(availHeight-summaryHeight, rowHeight)

	var chunks []chunk
	start := 0
	for start < total {
		remaining := total - start

		// Would the remaining items fit on a page that also hosts the summary?
		if withSummary >= 1 && remaining <= withSummary {
			chunks = append(chunks, chunk{Start: start, End: start + remaining, SummaryOnPage: true})
			return chunks
		}
		if remaining <= full {
			// Last chunk, but the summary does not fit underneath.
			chunks = append(chunks, chunk{Start: start, End: start + remaining})
			return chunks
		}
		chunks = append(chunks, chunk{Start: start, End: start + full})
		start += full
	}
	return chunks
}

func rowsFor(height, rowHeight float64) int {
	if height <= 0 {
		return 0
	}
	n := int(math.Floor(height / rowHeight))
	if n > maxRowsPerPage {
		n = maxRowsPerPage
	}
	return n
}
