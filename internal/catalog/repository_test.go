package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
)

func newTestRepo(t *testing.T) *SheetRepository {
	t.Helper()
	return NewSheetRepository(filepath.Join(t.TempDir(), "catalog.xlsx"))
}

func TestSheetRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := Product{
		Name:         "Office Chair",
		SellingPrice: 1250.5,
		Description:  "Mesh back, adjustable arms",
		Color:        "Black",
		Dimensions:   "60x60x110",
		Warranty:     "2 years",
		SKU:          "CH-001",
		ImageURL:     "https://drive.google.com/file/d/abc123/view",
	}
	require.NoError(t, repo.Upsert(ctx, p))

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	got := products[0]
	assert.Equal(t, "Office Chair", got.Name)
	assert.Equal(t, 1250.5, got.SellingPrice)
	assert.Equal(t, "CH-001", got.SKU)
	// Stored in direct-download form.
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc123", got.ImageURL)
}

func TestSheetRepositoryUpsertUpdatesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, Product{Name: "Desk", SellingPrice: 100}))
	require.NoError(t, repo.Upsert(ctx, Product{Name: "Desk", SellingPrice: 150}))

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 150.0, products[0].SellingPrice)
}

func TestSheetRepositoryRenameCollision(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, Product{Name: "Desk"}))
	require.NoError(t, repo.Upsert(ctx, Product{Name: "Chair"}))

	err := repo.Rename(ctx, "Chair", Product{Name: "Desk"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestSheetRepositoryDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, Product{Name: "Desk"}))
	require.NoError(t, repo.Upsert(ctx, Product{Name: "Chair"}))

	require.NoError(t, repo.Delete(ctx, "Desk"))

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Chair", products[0].Name)

	err = repo.Delete(ctx, "Desk")
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}
