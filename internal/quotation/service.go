package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flaketech/quotebuilder/internal/catalog"
	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/pricing"
)

// Service owns the quotation building workflow for a session.
type Service struct {
	logger  *slog.Logger
	store   *Store
	catalog *catalog.Service
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, store *Store, catalogService *catalog.Service) *Service {
	return &Service{logger: logger, store: store, catalog: catalogService}
}

// DetailsInput carries the company/terms/payment form fields.
type DetailsInput struct {
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
	Address       string `json:"address"`

	Warranty           string  `json:"warranty"`
	DownPaymentPercent float64 `json:"down_payment"`
	Delivery           string  `json:"delivery"`
	VATNote            string  `json:"vat_note"`
	ShippingNote       string  `json:"shipping_note"`
	VATRate            float64 `json:"vat_rate"`

	Bank          string `json:"bank"`
	IBAN          string `json:"iban"`
	AccountNumber string `json:"account_number"`
	LegalCompany  string `json:"company"`
	TaxID         string `json:"tax_id"`
	RegNo         string `json:"reg_no"`
}

// LineInput is one requested line item. UnitPrice and Description override
// the catalog values when set; Custom lines skip the catalog lookup.
type LineInput struct {
	Item            string   `json:"item"`
	Description     *string  `json:"description,omitempty"`
	UnitPrice       *float64 `json:"unit_price,omitempty"`
	Quantity        int      `json:"quantity"`
	DiscountPercent float64  `json:"discount_percent"`
	Custom          bool     `json:"custom"`
	SKU             string   `json:"sku"`
	Warranty        string   `json:"warranty"`
	Color           string   `json:"color"`
	ImageURL        string   `json:"image_url"`
}

// LinesInput replaces the document's line items and fee settings.
type LinesInput struct {
	Lines                  []LineInput `json:"lines"`
	ShippingFee            float64     `json:"shipping_fee"`
	InstallationFee        float64     `json:"installation_fee"`
	OverallDiscountPercent float64     `json:"overall_discount_percent"`
}

// SubmitDetails validates and stores the company details. Resubmitting
// enters edit mode: existing line items are preserved.
func (s *Service) SubmitDetails(ctx context.Context, sessionID string, in DetailsInput, preparedBy, preparedByEmail string) (*Document, error) {
	if strings.TrimSpace(in.CompanyName) == "" || strings.TrimSpace(in.ContactPerson) == "" || strings.TrimSpace(in.ContactPhone) == "" {
		return nil, fmt.Errorf("%w: company name, contact person and phone are required", httpx.ErrValidation)
	}
	if !ValidPhone(in.ContactPhone) {
		return nil, fmt.Errorf("%w: invalid phone number", httpx.ErrValidation)
	}
	if in.DownPaymentPercent < 0 || in.DownPaymentPercent > 100 {
		return nil, fmt.Errorf("%w: down payment must be between 0 and 100", httpx.ErrValidation)
	}
	if in.VATRate != 0 && !pricing.ValidVATRate(in.VATRate) {
		return nil, fmt.Errorf("%w: vat rate must be %.2f or %.2f", httpx.ErrValidation, pricing.VATRateReduced, pricing.VATRateStandard)
	}

	doc, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	d := &doc.Details
	d.CompanyName = strings.TrimSpace(in.CompanyName)
	d.ContactPerson = strings.TrimSpace(in.ContactPerson)
	d.ContactEmail = strings.TrimSpace(in.ContactEmail)
	d.ContactPhone = strings.TrimSpace(in.ContactPhone)
	d.Address = strings.TrimSpace(in.Address)
	d.PreparedBy = preparedBy
	d.PreparedByEmail = preparedByEmail
	d.CurrentDate = now.Format(dateLayout)
	d.ValidTill = now.AddDate(0, 0, 10).Format(dateLayout)
	if in.Warranty != "" {
		d.Warranty = in.Warranty
	}
	if in.Delivery != "" {
		d.Delivery = in.Delivery
	}
	if in.VATNote != "" {
		d.VATNote = in.VATNote
	}
	if in.ShippingNote != "" {
		d.ShippingNote = in.ShippingNote
	}
	if in.Bank != "" {
		d.Bank = in.Bank
	}
	if in.IBAN != "" {
		d.IBAN = in.IBAN
	}
	if in.AccountNumber != "" {
		d.AccountNumber = in.AccountNumber
	}
	if in.LegalCompany != "" {
		d.LegalCompany = in.LegalCompany
	}
	if in.TaxID != "" {
		d.TaxID = in.TaxID
	}
	if in.RegNo != "" {
		d.RegNo = in.RegNo
	}
	d.DownPaymentPercent = in.DownPaymentPercent
	if in.VATRate != 0 {
		doc.VATRate = in.VATRate
	}
	doc.DetailsSubmitted = true

	if err := s.store.Save(ctx, sessionID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SetLines replaces the document's line items, resolving catalog products
// and applying per-line overrides.
func (s *Service) SetLines(ctx context.Context, sessionID string, in LinesInput) (*Document, error) {
	if in.ShippingFee < 0 || in.InstallationFee < 0 {
		return nil, fmt.Errorf("%w: fees must be non-negative", httpx.ErrValidation)
	}
	if in.OverallDiscountPercent < 0 || in.OverallDiscountPercent > 100 {
		return nil, fmt.Errorf("%w: overall discount must be between 0 and 100", httpx.ErrValidation)
	}

	doc, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !doc.DetailsSubmitted {
		return nil, fmt.Errorf("%w: submit company details first", httpx.ErrValidation)
	}

	lines := make([]LineItem, 0, len(in.Lines))
	for i, l := range in.Lines {
		if strings.TrimSpace(l.Item) == "" {
			return nil, fmt.Errorf("%w: line %d: item name required", httpx.ErrValidation, i+1)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d: quantity must be at least 1", httpx.ErrValidation, i+1)
		}
		if l.DiscountPercent < 0 || l.DiscountPercent > 100 {
			return nil, fmt.Errorf("%w: line %d: discount must be between 0 and 100", httpx.ErrValidation, i+1)
		}

		item := LineItem{
			Item:            strings.TrimSpace(l.Item),
			Quantity:        l.Quantity,
			DiscountPercent: l.DiscountPercent,
			Custom:          l.Custom,
			SKU:             l.SKU,
			Warranty:        l.Warranty,
			Color:           l.Color,
			ImageURL:        l.ImageURL,
		}

		if !l.Custom {
			product, found, err := s.catalog.Get(ctx, item.Item)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, fmt.Errorf("%w: line %d: unknown product %q", httpx.ErrValidation, i+1, item.Item)
			}
			item.Description = product.Description
			item.UnitPrice = product.SellingPrice
			item.Color = product.Color
			item.Dimensions = product.Dimensions
			item.Warranty = product.Warranty
			item.SKU = product.SKU
			item.ImageURL = product.ImageURL
		}

		// Per-quotation overrides win over catalog values.
		if l.Description != nil {
			item.Description = *l.Description
		}
		if l.UnitPrice != nil {
			if *l.UnitPrice < 0 {
				return nil, fmt.Errorf("%w: line %d: unit price must be non-negative", httpx.ErrValidation, i+1)
			}
			item.UnitPrice = *l.UnitPrice
		}
		lines = append(lines, item)
	}

	doc.Lines = lines
	doc.ShippingFee = in.ShippingFee
	doc.InstallationFee = in.InstallationFee
	if doc.OverallDiscountPercent != in.OverallDiscountPercent {
		// A changed request invalidates any prior escalation approval.
		doc.EscalationApproved = false
		doc.EscalationApprovedBy = ""
	}
	doc.OverallDiscountPercent = in.OverallDiscountPercent

	if err := s.store.Save(ctx, sessionID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApproveEscalation records an admin approval for an over-cap overall
// discount. The approved document applies the fixed escalated rate.
func (s *Service) ApproveEscalation(ctx context.Context, sessionID, approver string) (*Document, error) {
	doc, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if doc.OverallDiscountPercent <= pricing.MaxDiscountPercent {
		return nil, fmt.Errorf("%w: escalation applies only to overall discounts above %.0f%%", httpx.ErrValidation, pricing.MaxDiscountPercent)
	}
	snap := doc.Snapshot()
	if snap.Totals.ItemLevelMode {
		return nil, fmt.Errorf("%w: overall discount is disabled when line discounts are applied", httpx.ErrValidation)
	}
	doc.EscalationApproved = true
	doc.EscalationApprovedBy = approver
	if err := s.store.Save(ctx, sessionID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// StartNew resets the session's document, keeping terms and payment defaults.
func (s *Service) StartNew(ctx context.Context, sessionID string) (*Document, error) {
	doc, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc.Reset(time.Now())
	if err := s.store.Save(ctx, sessionID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CurrentSnapshot returns the immutable view of the session's document.
func (s *Service) CurrentSnapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	doc, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return doc.Snapshot(), nil
}

// Restore loads a historical quotation back into the session for editing.
func (s *Service) Restore(ctx context.Context, sessionID string, details CompanyDetails, lines []LineItem) (*Document, error) {
	doc, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc.Details = details
	doc.DetailsSubmitted = true
	doc.Lines = lines
	if err := s.store.Save(ctx, sessionID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
