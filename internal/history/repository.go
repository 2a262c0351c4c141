package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/platform/sheets"
	"github.com/flaketech/quotebuilder/internal/quotation"
)

const (
	colUserEmail     = "User Email"
	colTimestamp     = "Timestamp"
	colCompanyName   = "Company Name"
	colContactPerson = "Contact Person"
	colTotal         = "Total"
	colItems         = "Items JSON"
	colPDFFilename   = "PDF Filename"
	colHash          = "Quotation Hash"
	colDetails       = "Company Details JSON"
)

// HistoryColumns is the header row of the log worksheet.
var HistoryColumns = []string{
	colUserEmail,
	colTimestamp,
	colCompanyName,
	colContactPerson,
	colTotal,
	colItems,
	colPDFFilename,
	colHash,
	colDetails,
}

// Record is one worksheet row after decoding. ItemsErr carries the JSON
// decode failure for corrupt rows so the service can decide to skip them.
type Record struct {
	Entry
	ItemsErr error
}

// Repository abstracts history log storage.
type Repository interface {
	List(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, e Entry) error
	DeleteByHash(ctx context.Context, hash string) error
}

// SheetRepository stores the log in an .xlsx worksheet.
type SheetRepository struct {
	table *sheets.Table
}

// NewSheetRepository binds the repository to the workbook at path.
func NewSheetRepository(path string) *SheetRepository {
	return &SheetRepository{table: sheets.NewTable(path, "History", HistoryColumns)}
}

// List returns every logged row in workbook order.
func (r *SheetRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: history log: %v", httpx.ErrUnavailable, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, decodeRow(row))
	}
	return records, nil
}

// Append adds a finalized quotation to the log.
func (r *SheetRepository) Append(ctx context.Context, e Entry) error {
	items, err := json.Marshal(e.Items)
	if err != nil {
		return fmt.Errorf("history: encode items: %w", err)
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("history: encode details: %w", err)
	}

	row := map[string]string{
		colUserEmail:     e.UserEmail,
		colTimestamp:     e.Timestamp,
		colCompanyName:   e.CompanyName,
		colContactPerson: e.ContactPerson,
		colTotal:         strconv.FormatFloat(e.Total, 'f', 2, 64),
		colItems:         string(items),
		colPDFFilename:   e.PDFFilename,
		colHash:          e.Hash,
		colDetails:       string(details),
	}
	if err := r.table.Append(ctx, row); err != nil {
		return fmt.Errorf("%w: history log: %v", httpx.ErrUnavailable, err)
	}
	return nil
}

// DeleteByHash removes the row whose effective hash matches. The index is
// resolved in the same pass that deletes, against the freshest read, because
// deletions shift the rows below them.
func (r *SheetRepository) DeleteByHash(ctx context.Context, hash string) error {
	rows, err := r.table.Rows(ctx)
	if err != nil {
		return fmt.Errorf("%w: history log: %v", httpx.ErrUnavailable, err)
	}
	for i, row := range rows {
		if decodeRow(row).EffectiveHash() == hash {
			if err := r.table.Delete(ctx, i); err != nil {
				return fmt.Errorf("%w: history log: %v", httpx.ErrUnavailable, err)
			}
			return nil
		}
	}
	return httpx.ErrNotFound
}

func decodeRow(row map[string]string) Record {
	total, _ := strconv.ParseFloat(strings.TrimSpace(row[colTotal]), 64)
	rec := Record{Entry: Entry{
		UserEmail:     row[colUserEmail],
		Timestamp:     row[colTimestamp],
		CompanyName:   row[colCompanyName],
		ContactPerson: row[colContactPerson],
		Total:         total,
		PDFFilename:   row[colPDFFilename],
		Hash:          strings.TrimSpace(row[colHash]),
	}}

	if raw := strings.TrimSpace(row[colItems]); raw != "" {
		rec.ItemsErr = json.Unmarshal([]byte(raw), &rec.Items)
	}
	if raw := strings.TrimSpace(row[colDetails]); raw != "" {
		var details quotation.CompanyDetails
		if err := json.Unmarshal([]byte(raw), &details); err == nil {
			rec.Details = details
			rec.DetailsPresent = true
		}
	}
	return rec
}
