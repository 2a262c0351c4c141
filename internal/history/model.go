// Package history keeps the append-only log of finalized quotations in a
// spreadsheet workbook so it stays readable outside the application.
package history

import (
	"time"

	"github.com/flaketech/quotebuilder/internal/quotation"
)

// timestampLayout matches what the log has always stored; changing it would
// break fallback hashes for existing rows.
const timestampLayout = "2006-01-02 15:04:05"

// Entry is one finalized quotation in the log.
type Entry struct {
	UserEmail     string                   `json:"user_email"`
	Timestamp     string                   `json:"timestamp"`
	CompanyName   string                   `json:"company_name"`
	ContactPerson string                   `json:"contact_person"`
	Total         float64                  `json:"total"`
	Items         []quotation.LineItem     `json:"items"`
	PDFFilename   string                   `json:"pdf_filename"`
	Hash          string                   `json:"hash"`
	Details       quotation.CompanyDetails `json:"details"`
	// DetailsPresent distinguishes rows written before details were logged;
	// regeneration for those falls back to house defaults.
	DetailsPresent bool `json:"details_present"`
}

// EffectiveHash returns the stored content hash, or the derived fallback for
// rows persisted before hashes were recorded.
func (e Entry) EffectiveHash() string {
	if e.Hash != "" {
		return e.Hash
	}
	return quotation.FallbackHash(e.CompanyName, e.Timestamp, e.Total)
}

// Snapshot rebuilds a renderable snapshot from the stored row. Fees and the
// overall discount are not logged separately, so regenerated documents carry
// the per-line discounts only; the logged details block is kept verbatim.
func (e Entry) Snapshot() quotation.Snapshot {
	doc := quotation.Document{
		Details: e.Details,
		Lines:   e.Items,
	}
	if !e.DetailsPresent {
		defaults := quotation.DefaultDetails(time.Now())
		defaults.CompanyName = e.CompanyName
		defaults.ContactPerson = e.ContactPerson
		doc.Details = defaults
	}
	return doc.Snapshot()
}

// NewEntry builds a log entry from a finalized snapshot.
func NewEntry(userEmail string, snap quotation.Snapshot, pdfFilename string, now time.Time) Entry {
	return Entry{
		UserEmail:      userEmail,
		Timestamp:      now.Format(timestampLayout),
		CompanyName:    snap.Details.CompanyName,
		ContactPerson:  snap.Details.ContactPerson,
		Total:          snap.Totals.FinalTotal,
		Items:          snap.Lines,
		PDFFilename:    pdfFilename,
		Hash:           snap.Hash,
		Details:        snap.Details,
		DetailsPresent: true,
	}
}
