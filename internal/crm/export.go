package crm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flaketech/quotebuilder/internal/pricing"
	"github.com/flaketech/quotebuilder/internal/quotation"
)

const quoteStage = "Created"

// Exporter maps finalized snapshots onto CRM quotes.
type Exporter struct {
	logger *slog.Logger
	client *Client
}

// NewExporter constructs an Exporter.
func NewExporter(logger *slog.Logger, client *Client) *Exporter {
	return &Exporter{logger: logger, client: client}
}

// Export mirrors the snapshot into the CRM. Lines whose SKU does not resolve
// are dropped with a warning; a missing owner drops the owner link only. A
// missing account or a rejected POST fails the export, which callers treat
// as a warning, never as a reason to touch local state.
func (e *Exporter) Export(ctx context.Context, snap quotation.Snapshot, userEmail string) ([]string, error) {
	var warnings []string

	account, err := e.client.FindAccount(ctx, snap.Details.CompanyName)
	if err != nil {
		return warnings, err
	}

	quote := Quote{
		Subject:       "Quotation for " + snap.Details.CompanyName,
		AccountID:     account.ID,
		Stage:         quoteStage,
		QuoteDate:     snap.Details.CurrentDate,
		ValidTill:     snap.Details.ValidTill,
		Currency:      "EGP",
		Adjustment:    pricing.Round2(snap.Totals.ShippingFee + snap.Totals.InstallationFee),
		GrandTotal:    snap.Totals.GrandTotal,
		BillingStreet: snap.Details.Address,
		Terms:         termsText(snap.Details),
	}

	owner, err := e.client.FindOwner(ctx, userEmail)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("owner not linked: %v", err))
		e.logger.Warn("crm owner lookup failed", slog.String("email", userEmail), slog.Any("error", err))
	} else {
		quote.OwnerID = owner.ID
	}

	for i, result := range snap.Totals.Lines {
		line := snap.Lines[i]
		product, err := e.client.FindProduct(ctx, line.SKU)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %q dropped: %v", line.Item, err))
			e.logger.Warn("crm product lookup failed", slog.String("sku", line.SKU), slog.Any("error", err))
			continue
		}
		gross := pricing.Round2(line.UnitPrice * float64(line.Quantity))
		quote.Lines = append(quote.Lines, QuoteLine{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  pricing.Round2(gross - result.Total),
		})
	}
	if len(quote.Lines) == 0 {
		return warnings, fmt.Errorf("crm: no exportable lines for %q", snap.Details.CompanyName)
	}

	if err := e.client.CreateQuote(ctx, quote); err != nil {
		return warnings, err
	}
	e.logger.Info("crm export done",
		slog.String("company", snap.Details.CompanyName),
		slog.Int("lines", len(quote.Lines)),
		slog.Int("warnings", len(warnings)))
	return warnings, nil
}

func termsText(d quotation.CompanyDetails) string {
	return fmt.Sprintf("Warranty: %s. Down payment: %.0f%%. Delivery: %s. %s",
		d.Warranty, d.DownPaymentPercent, d.Delivery, d.VATNote)
}
