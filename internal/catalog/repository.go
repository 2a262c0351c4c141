package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/platform/sheets"
)

// Sheet column names. The catalog workbook is a plain table with a header
// row; only Item Name and Selling Price are required to be present.
const (
	colName        = "Item Name"
	colPrice       = "Selling Price"
	colDescription = "Sales Description"
	colColor       = "CF.Colors"
	colDimensions  = "CF.Dimensions"
	colWarranty    = "CF.Warranty"
	colSKU         = "SKU"
	colImageURL    = "CF.image url"
)

// CatalogColumns is the header row for a freshly created catalog workbook.
var CatalogColumns = []string{
	colName, colPrice, colDescription, colColor,
	colDimensions, colWarranty, colSKU, colImageURL,
}

// Repository provides product persistence. The service layer must treat any
// error as "cannot proceed", not attempt partial reads.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
	Delete(ctx context.Context, name string) error
}

// SheetRepository implements Repository against a spreadsheet table.
type SheetRepository struct {
	table *sheets.Table
}

// NewSheetRepository binds the catalog worksheet.
func NewSheetRepository(path string) *SheetRepository {
	return &SheetRepository{table: sheets.NewTable(path, "Catalog", CatalogColumns)}
}

// List returns every product with prices normalized to numbers and image
// references normalized to storage form.
func (r *SheetRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", httpx.ErrUnavailable, err)
	}
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row[colName])
		if name == "" {
			continue
		}
		products = append(products, Product{
			Name:         name,
			SellingPrice: ParsePrice(row[colPrice]),
			Description:  row[colDescription],
			Color:        row[colColor],
			Dimensions:   row[colDimensions],
			Warranty:     row[colWarranty],
			SKU:          row[colSKU],
			ImageURL:     DriveStorageURL(row[colImageURL]),
		})
	}
	return products, nil
}

// Upsert inserts a product or updates the row matching its name. Renaming
// onto another existing product is rejected.
func (r *SheetRepository) Upsert(ctx context.Context, p Product) error {
	return r.upsert(ctx, p, p.Name)
}

// Rename updates the row previously stored under oldName. It enforces the
// same uniqueness rule as Upsert.
func (r *SheetRepository) Rename(ctx context.Context, oldName string, p Product) error {
	return r.upsert(ctx, p, oldName)
}

func (r *SheetRepository) upsert(ctx context.Context, p Product, matchName string) error {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return fmt.Errorf("%w: catalog: %v", httpx.ErrUnavailable, err)
	}

	matchIdx := -1
	for i, row := range rows {
		existing := strings.TrimSpace(row[colName])
		if strings.EqualFold(existing, matchName) {
			matchIdx = i
			continue
		}
		if strings.EqualFold(existing, p.Name) {
			return fmt.Errorf("%w: product %q already exists", httpx.ErrDuplicate, p.Name)
		}
	}

	row := r.toRow(p)
	if matchIdx < 0 {
		if err := r.table.Append(ctx, row); err != nil {
			return fmt.Errorf("%w: catalog: %v", httpx.ErrUnavailable, err)
		}
		return nil
	}
	if err := r.table.Update(ctx, matchIdx, row); err != nil {
		return fmt.Errorf("%w: catalog: %v", httpx.ErrUnavailable, err)
	}
	return nil
}

// Delete removes the row matching the product name. The positional index is
// resolved immediately before the delete so earlier removals cannot shift it.
func (r *SheetRepository) Delete(ctx context.Context, name string) error {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return fmt.Errorf("%w: catalog: %v", httpx.ErrUnavailable, err)
	}
	for i, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row[colName]), name) {
			if err := r.table.Delete(ctx, i); err != nil {
				return fmt.Errorf("%w: catalog: %v", httpx.ErrUnavailable, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: product %q", httpx.ErrNotFound, name)
}

func (r *SheetRepository) toRow(p Product) map[string]string {
	return map[string]string{
		colName:        strings.TrimSpace(p.Name),
		colPrice:       strconv.FormatFloat(p.SellingPrice, 'f', 2, 64),
		colDescription: p.Description,
		colColor:       p.Color,
		colDimensions:  p.Dimensions,
		colWarranty:    p.Warranty,
		colSKU:         p.SKU,
		colImageURL:    DriveStorageURL(p.ImageURL),
	}
}

// ParsePrice normalizes stored price strings: currency suffix and thousands
// separators are stripped, unparseable values become 0.
func ParsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "EGP", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

var _ Repository = (*SheetRepository)(nil)
