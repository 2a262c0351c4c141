package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
)

// failingRepo simulates a catalog store that cannot be reached.
type failingRepo struct{}

func (failingRepo) List(ctx context.Context) ([]Product, error) {
	return nil, fmt.Errorf("%w: catalog: store offline", httpx.ErrUnavailable)
}

func (failingRepo) Upsert(ctx context.Context, p Product) error {
	return fmt.Errorf("%w: catalog: store offline", httpx.ErrUnavailable)
}

func (failingRepo) Delete(ctx context.Context, name string) error {
	return fmt.Errorf("%w: catalog: store offline", httpx.ErrUnavailable)
}

func passthrough(next http.Handler) http.Handler { return next }

func newFailingRouter() chi.Router {
	svc := NewService(slog.Default(), failingRepo{}, nil, 0)
	h := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	h.MountRoutes(r, passthrough)
	return r
}

func TestHandlerListStoreUnavailable(t *testing.T) {
	r := newFailingRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestHandlerDeleteStoreUnavailable(t *testing.T) {
	r := newFailingRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/catalog/Desk", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSheetRepositoryListCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	repo := NewSheetRepository(path)
	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrUnavailable))
}
