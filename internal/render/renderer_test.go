package render

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaketech/quotebuilder/internal/quotation"
)

func renderSnapshot(t *testing.T, lineCount int) quotation.Snapshot {
	t.Helper()
	doc := quotation.NewDocument(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	doc.Details.CompanyName = "Acme Corp"
	doc.Details.ContactPerson = "Jane Doe"
	doc.Details.ContactPhone = "+201001234567"
	doc.ShippingFee = 50
	for i := 0; i < lineCount; i++ {
		doc.Lines = append(doc.Lines, quotation.LineItem{
			Item:        "Desk",
			Description: "Solid oak office desk",
			SKU:         "DSK-1",
			Quantity:    2,
			UnitPrice:   100,
		})
	}
	return doc.Snapshot()
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(slog.Default(), Assets{}, time.Second)

	for _, lineCount := range []int{0, 1, 10} {
		pdf, err := r.Render(context.Background(), renderSnapshot(t, lineCount))
		require.NoError(t, err, "lines=%d", lineCount)
		require.NotEmpty(t, pdf, "lines=%d", lineCount)
		assert.Equal(t, "%PDF", string(pdf[:4]), "lines=%d", lineCount)
	}
}

func TestRenderSkipsMissingAssets(t *testing.T) {
	r := NewRenderer(slog.Default(), Assets{
		Header:  "does/not/exist.png",
		Cover:   "does/not/exist.png",
		Closure: "does/not/exist.png",
	}, time.Second)

	pdf, err := r.Render(context.Background(), renderSnapshot(t, 2))
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
}
