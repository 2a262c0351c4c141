package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/platform/sheets"
	"github.com/flaketech/quotebuilder/internal/pricing"
	"github.com/flaketech/quotebuilder/internal/quotation"
)

func testSnapshot(t *testing.T) quotation.Snapshot {
	t.Helper()
	doc := quotation.NewDocument(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	doc.Details.CompanyName = "Acme Corp"
	doc.Details.ContactPerson = "Jane Doe"
	doc.Details.ContactPhone = "+201001234567"
	doc.Lines = []quotation.LineItem{
		{Item: "Desk", SKU: "DSK-1", Quantity: 2, UnitPrice: 100},
	}
	return doc.Snapshot()
}

func newRepo(t *testing.T) *SheetRepository {
	t.Helper()
	return NewSheetRepository(filepath.Join(t.TempDir(), "history.xlsx"))
}

func TestRecordRoundTrip(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	snap := testSnapshot(t)
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, NewEntry("Buyer@FlakeTech.com", snap, "Acme Corp_quotation.pdf", now)))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	require.NoError(t, got.ItemsErr)
	assert.Equal(t, "Buyer@FlakeTech.com", got.UserEmail)
	assert.Equal(t, "2026-03-01 12:30:00", got.Timestamp)
	assert.Equal(t, "Acme Corp", got.CompanyName)
	assert.Equal(t, snap.Totals.FinalTotal, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Desk", got.Items[0].Item)
	assert.Equal(t, snap.Hash, got.Hash)
	assert.True(t, got.DetailsPresent)
	assert.Equal(t, "Jane Doe", got.Details.ContactPerson)
}

func TestDeleteByStoredHash(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	snap := testSnapshot(t)
	now := time.Now()

	require.NoError(t, repo.Append(ctx, NewEntry("a@x.com", snap, "a.pdf", now)))

	require.NoError(t, repo.DeleteByHash(ctx, snap.Hash))
	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, repo.DeleteByHash(ctx, snap.Hash), httpx.ErrNotFound)
}

func TestDeleteByFallbackHashWhenStoredHashBlank(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	// Rows written before hashes were recorded have a blank hash cell.
	legacy := Entry{
		UserEmail:   "a@x.com",
		Timestamp:   "2025-01-15 09:00:00",
		CompanyName: "Old Client",
		Total:       512.50,
		PDFFilename: "Old Client_quotation.pdf",
	}
	require.NoError(t, repo.Append(ctx, legacy))

	fallback := quotation.FallbackHash("Old Client", "2025-01-15 09:00:00", 512.50)
	require.NoError(t, repo.DeleteByHash(ctx, fallback))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListForUserFiltersAndSkipsCorruptRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	repo := NewSheetRepository(path)
	ctx := context.Background()
	snap := testSnapshot(t)
	now := time.Now()

	require.NoError(t, repo.Append(ctx, NewEntry("buyer@flaketech.com", snap, "a.pdf", now)))
	require.NoError(t, repo.Append(ctx, NewEntry("other@flaketech.com", snap, "b.pdf", now)))

	// Corrupt the items column of a third row directly.
	table := sheets.NewTable(path, "History", HistoryColumns)
	require.NoError(t, table.Append(ctx, map[string]string{
		"User Email":  "buyer@flaketech.com",
		"Timestamp":   "2026-01-01 00:00:00",
		"Items JSON":  "{not json",
		"Total":       "10",
		"Company Name": "Broken Row",
	}))

	svc := NewService(slog.Default(), repo)
	entries, err := svc.ListForUser(ctx, "BUYER@flaketech.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Acme Corp", entries[0].CompanyName)
}

func TestServiceDeleteChecksOwnership(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	snap := testSnapshot(t)

	require.NoError(t, repo.Append(ctx, NewEntry("owner@flaketech.com", snap, "a.pdf", time.Now())))

	svc := NewService(slog.Default(), repo)
	err := svc.Delete(ctx, "intruder@flaketech.com", snap.Hash)
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "owner@flaketech.com", snap.Hash))
}

func TestEntrySnapshotRecomputesTotals(t *testing.T) {
	snap := testSnapshot(t)
	entry := NewEntry("a@x.com", snap, "a.pdf", time.Now())

	rebuilt := entry.Snapshot()
	assert.Equal(t, pricing.Round2(200), rebuilt.Totals.Subtotal)
	assert.Equal(t, snap.Details.CompanyName, rebuilt.Details.CompanyName)
	require.Len(t, rebuilt.Lines, 1)
}
