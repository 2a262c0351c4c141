package quotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPhone(t *testing.T) {
	valid := []string{"+201001234567", "0100123", "123456"}
	for _, p := range valid {
		assert.True(t, ValidPhone(p), p)
	}
	invalid := []string{"", "+", "12 34", "12-34", "phone", "+20a1"}
	for _, p := range invalid {
		assert.False(t, ValidPhone(p), p)
	}
}

func TestDefaultDetails(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d := DefaultDetails(now)

	assert.Equal(t, "Sunday, March 01, 2026", d.CurrentDate)
	assert.Equal(t, "Wednesday, March 11, 2026", d.ValidTill)
	assert.Equal(t, "1 year", d.Warranty)
	assert.Equal(t, 50.0, d.DownPaymentPercent)
	assert.Equal(t, "CIB", d.Bank)
	assert.Empty(t, d.CompanyName)
}

func TestResetKeepsTermsClearsContact(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := NewDocument(now)
	doc.Details.CompanyName = "Acme Corp"
	doc.Details.ContactPerson = "Jane"
	doc.Details.Warranty = "2 years"
	doc.Details.Bank = "HSBC"
	doc.Lines = []LineItem{{Item: "Desk", Quantity: 1, UnitPrice: 10}}
	doc.ShippingFee = 50
	doc.OverallDiscountPercent = 15
	doc.EscalationApproved = true

	doc.Reset(now.AddDate(0, 1, 0))

	assert.Empty(t, doc.Details.CompanyName)
	assert.Empty(t, doc.Details.ContactPerson)
	assert.Equal(t, "2 years", doc.Details.Warranty)
	assert.Equal(t, "HSBC", doc.Details.Bank)
	assert.Empty(t, doc.Lines)
	assert.Zero(t, doc.ShippingFee)
	assert.Zero(t, doc.OverallDiscountPercent)
	assert.False(t, doc.EscalationApproved)
	assert.False(t, doc.DetailsSubmitted)
}

func TestSnapshotHashDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	build := func() *Document {
		doc := NewDocument(now)
		doc.Details.CompanyName = "Acme Corp"
		doc.Lines = []LineItem{
			{Item: "Desk", SKU: "DSK-1", Quantity: 2, UnitPrice: 100},
			{Item: "Chair", SKU: "CHR-2", Quantity: 4, UnitPrice: 25, DiscountPercent: 10},
		}
		return doc
	}

	first := build().Snapshot()
	second := build().Snapshot()
	require.NotEmpty(t, first.Hash)
	assert.Equal(t, first.Hash, second.Hash)

	changed := build()
	changed.Lines[0].Quantity = 3
	assert.NotEqual(t, first.Hash, changed.Snapshot().Hash)
}

func TestFallbackHashDeterministic(t *testing.T) {
	a := FallbackHash("Acme", "2026-03-01 09:00:00", 512.5)
	b := FallbackHash("Acme", "2026-03-01 09:00:00", 512.50)
	c := FallbackHash("Acme", "2026-03-01 09:00:01", 512.5)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
