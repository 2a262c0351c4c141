package quotation

import (
	"regexp"
	"time"

	"github.com/flaketech/quotebuilder/internal/pricing"
)

// phonePattern accepts digits with an optional leading plus, nothing else.
var phonePattern = regexp.MustCompile(`^\+?\d+$`)

const dateLayout = "Monday, January 02, 2006"

// CompanyDetails carries the customer, terms and payment fields collected
// before line items are added. Contact email and address are optional.
type CompanyDetails struct {
	CompanyName   string `json:"company_name" validate:"required"`
	ContactPerson string `json:"contact_person" validate:"required"`
	ContactEmail  string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone  string `json:"contact_phone" validate:"required"`
	Address       string `json:"address"`

	PreparedBy      string `json:"prepared_by"`
	PreparedByEmail string `json:"prepared_by_email"`
	CurrentDate     string `json:"current_date"`
	ValidTill       string `json:"valid_till"`
	Validity        string `json:"quotation_validity"`

	Warranty           string  `json:"warranty"`
	DownPaymentPercent float64 `json:"down_payment" validate:"gte=0,lte=100"`
	Delivery           string  `json:"delivery"`
	VATNote            string  `json:"vat_note"`
	ShippingNote       string  `json:"shipping_note"`

	Bank          string `json:"bank"`
	IBAN          string `json:"iban"`
	AccountNumber string `json:"account_number"`
	LegalCompany  string `json:"company"`
	TaxID         string `json:"tax_id"`
	RegNo         string `json:"reg_no"`
}

// DefaultDetails returns the form defaults for a new quotation. Contact
// fields stay empty; terms and payment carry the house defaults.
func DefaultDetails(now time.Time) CompanyDetails {
	return CompanyDetails{
		CurrentDate:        now.Format(dateLayout),
		ValidTill:          now.AddDate(0, 0, 10).Format(dateLayout),
		Validity:           "30 days",
		Warranty:           "1 year",
		DownPaymentPercent: 50,
		Delivery:           "Expected in 3-4 weeks",
		VATNote:            "Prices exclude 14% VAT",
		ShippingNote:       "Shipping & Installation fees to be added",
		Bank:               "CIB",
		IBAN:               "EG340010015100000100049865966",
		AccountNumber:      "100049865966",
		LegalCompany:       "FlakeTech for Trading Company",
		TaxID:              "626180228",
		RegNo:              "15971",
	}
}

// ValidPhone reports whether the phone matches the digits-with-optional-plus rule.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// LineItem is one quotation line. Description and unit price default from the
// catalog but stay editable per quotation; that override is deliberate.
type LineItem struct {
	Item            string  `json:"item"`
	Description     string  `json:"description"`
	Color           string  `json:"color"`
	Dimensions      string  `json:"dimensions"`
	Warranty        string  `json:"warranty"`
	SKU             string  `json:"sku"`
	ImageURL        string  `json:"image_url"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	// Custom marks free-form items not backed by the catalog.
	Custom bool `json:"custom,omitempty"`
}

// Document is the mutable per-session quotation being built.
type Document struct {
	Details          CompanyDetails `json:"details"`
	DetailsSubmitted bool           `json:"details_submitted"`
	Lines            []LineItem     `json:"lines"`

	ShippingFee            float64 `json:"shipping_fee"`
	InstallationFee        float64 `json:"installation_fee"`
	VATRate                float64 `json:"vat_rate"`
	OverallDiscountPercent float64 `json:"overall_discount_percent"`

	EscalationApproved   bool   `json:"escalation_approved"`
	EscalationApprovedBy string `json:"escalation_approved_by,omitempty"`
}

// NewDocument returns a fresh document with house defaults.
func NewDocument(now time.Time) *Document {
	return &Document{
		Details: DefaultDetails(now),
		VATRate: pricing.VATRateStandard,
	}
}

// Reset starts a new quotation: terms and payment defaults are preserved,
// contact fields and line items are cleared.
func (d *Document) Reset(now time.Time) {
	terms := d.Details
	fresh := DefaultDetails(now)
	fresh.Warranty = terms.Warranty
	fresh.DownPaymentPercent = terms.DownPaymentPercent
	fresh.Delivery = terms.Delivery
	fresh.VATNote = terms.VATNote
	fresh.ShippingNote = terms.ShippingNote
	fresh.Bank = terms.Bank
	fresh.IBAN = terms.IBAN
	fresh.AccountNumber = terms.AccountNumber
	fresh.LegalCompany = terms.LegalCompany
	fresh.TaxID = terms.TaxID
	fresh.RegNo = terms.RegNo

	d.Details = fresh
	d.DetailsSubmitted = false
	d.Lines = nil
	d.ShippingFee = 0
	d.InstallationFee = 0
	d.VATRate = pricing.VATRateStandard
	d.OverallDiscountPercent = 0
	d.EscalationApproved = false
	d.EscalationApprovedBy = ""
}

// Snapshot is the immutable view consumed by the renderer, history store and
// CRM export.
type Snapshot struct {
	Details CompanyDetails `json:"details"`
	Lines   []LineItem     `json:"lines"`
	Totals  pricing.Totals `json:"totals"`
	Hash    string         `json:"hash"`
}

// Snapshot computes totals and the content hash for the current state.
func (d *Document) Snapshot() Snapshot {
	lines := make([]pricing.Line, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, pricing.Line{
			Ref:             l.Item,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			DiscountPercent: l.DiscountPercent,
		})
	}
	totals := pricing.Compute(pricing.Input{
		Lines:                  lines,
		ShippingFee:            d.ShippingFee,
		InstallationFee:        d.InstallationFee,
		VATRate:                d.VATRate,
		OverallDiscountPercent: d.OverallDiscountPercent,
		EscalationApproved:     d.EscalationApproved,
	})

	items := make([]LineItem, len(d.Lines))
	copy(items, d.Lines)

	snap := Snapshot{
		Details: d.Details,
		Lines:   items,
		Totals:  totals,
	}
	snap.Hash = ContentHash(items, totals.FinalTotal, d.Details)
	return snap
}
