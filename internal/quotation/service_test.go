package quotation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaketech/quotebuilder/internal/catalog"
	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/pricing"
)

type stubCatalog struct {
	products []catalog.Product
}

func (c *stubCatalog) List(context.Context) ([]catalog.Product, error) {
	return c.products, nil
}

func (c *stubCatalog) Upsert(context.Context, catalog.Product) error { return nil }

func (c *stubCatalog) Delete(context.Context, string) error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat := catalog.NewService(slog.Default(), &stubCatalog{products: []catalog.Product{
		{Name: "Desk", SellingPrice: 100, Description: "Oak desk", SKU: "DSK-1", Warranty: "2 years"},
		{Name: "Chair", SellingPrice: 25, SKU: "CHR-2"},
	}}, nil, time.Minute)

	store := NewStore(client, time.Hour)
	return NewService(slog.Default(), store, cat)
}

func submitDetails(t *testing.T, svc *Service, sessionID string) {
	t.Helper()
	_, err := svc.SubmitDetails(context.Background(), sessionID, DetailsInput{
		CompanyName:   "Acme Corp",
		ContactPerson: "Jane Doe",
		ContactPhone:  "+201001234567",
	}, "Sales Rep", "rep@flaketech.com")
	require.NoError(t, err)
}

func TestSubmitDetailsValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitDetails(ctx, "s1", DetailsInput{ContactPerson: "Jane", ContactPhone: "123"}, "", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.SubmitDetails(ctx, "s1", DetailsInput{
		CompanyName: "Acme", ContactPerson: "Jane", ContactPhone: "12 34",
	}, "", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.SubmitDetails(ctx, "s1", DetailsInput{
		CompanyName: "Acme", ContactPerson: "Jane", ContactPhone: "1234", VATRate: 0.2,
	}, "", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSetLinesResolvesCatalogProducts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	submitDetails(t, svc, "s1")

	doc, err := svc.SetLines(ctx, "s1", LinesInput{
		Lines: []LineInput{
			{Item: "Desk", Quantity: 2},
			{Item: "Bespoke Shelf", Quantity: 1, Custom: true, SKU: "CUSTOM"},
		},
	})
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)

	assert.Equal(t, 100.0, doc.Lines[0].UnitPrice)
	assert.Equal(t, "Oak desk", doc.Lines[0].Description)
	assert.Equal(t, "DSK-1", doc.Lines[0].SKU)
	assert.Zero(t, doc.Lines[1].UnitPrice)
}

func TestSetLinesOverrides(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	submitDetails(t, svc, "s1")

	desc := "Refinished oak desk"
	price := 90.0
	doc, err := svc.SetLines(ctx, "s1", LinesInput{
		Lines: []LineInput{{Item: "Desk", Quantity: 1, Description: &desc, UnitPrice: &price}},
	})
	require.NoError(t, err)
	assert.Equal(t, desc, doc.Lines[0].Description)
	assert.Equal(t, price, doc.Lines[0].UnitPrice)
}

func TestSetLinesRejections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Details must come first.
	_, err := svc.SetLines(ctx, "s1", LinesInput{Lines: []LineInput{{Item: "Desk", Quantity: 1}}})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	submitDetails(t, svc, "s1")

	_, err = svc.SetLines(ctx, "s1", LinesInput{Lines: []LineInput{{Item: "Ghost", Quantity: 1}}})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.SetLines(ctx, "s1", LinesInput{Lines: []LineInput{{Item: "Desk", Quantity: 0}}})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.SetLines(ctx, "s1", LinesInput{ShippingFee: -1})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestEscalationLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	submitDetails(t, svc, "s1")

	_, err := svc.SetLines(ctx, "s1", LinesInput{
		Lines:                  []LineInput{{Item: "Desk", Quantity: 10}},
		OverallDiscountPercent: 25,
	})
	require.NoError(t, err)

	// Unapproved over-cap discount is zeroed.
	snap, err := svc.CurrentSnapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, snap.Totals.OverallDiscount)
	assert.NotEmpty(t, snap.Totals.Warnings)

	doc, err := svc.ApproveEscalation(ctx, "s1", "manager@flaketech.com")
	require.NoError(t, err)
	assert.True(t, doc.EscalationApproved)
	assert.Equal(t, "manager@flaketech.com", doc.EscalationApprovedBy)

	snap, err = svc.CurrentSnapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, pricing.EscalatedDiscountPercent, snap.Totals.OverallDiscountPercent)

	// Changing the requested discount voids the approval.
	doc, err = svc.SetLines(ctx, "s1", LinesInput{
		Lines:                  []LineInput{{Item: "Desk", Quantity: 10}},
		OverallDiscountPercent: 30,
	})
	require.NoError(t, err)
	assert.False(t, doc.EscalationApproved)
}

func TestEscalationRequiresOverCapOverallDiscount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	submitDetails(t, svc, "s1")

	_, err := svc.SetLines(ctx, "s1", LinesInput{
		Lines:                  []LineInput{{Item: "Desk", Quantity: 1}},
		OverallDiscountPercent: 15,
	})
	require.NoError(t, err)

	_, err = svc.ApproveEscalation(ctx, "s1", "manager@flaketech.com")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	// Line-level discounts disable the overall discount entirely.
	_, err = svc.SetLines(ctx, "s1", LinesInput{
		Lines:                  []LineInput{{Item: "Desk", Quantity: 1, DiscountPercent: 10}},
		OverallDiscountPercent: 25,
	})
	require.NoError(t, err)
	_, err = svc.ApproveEscalation(ctx, "s1", "manager@flaketech.com")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestStartNewAndRestore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	submitDetails(t, svc, "s1")

	_, err := svc.SetLines(ctx, "s1", LinesInput{Lines: []LineInput{{Item: "Desk", Quantity: 2}}})
	require.NoError(t, err)
	before, err := svc.CurrentSnapshot(ctx, "s1")
	require.NoError(t, err)

	doc, err := svc.StartNew(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, doc.Lines)
	assert.Empty(t, doc.Details.CompanyName)

	doc, err = svc.Restore(ctx, "s1", before.Details, before.Lines)
	require.NoError(t, err)
	assert.True(t, doc.DetailsSubmitted)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, before.Hash, doc.Snapshot().Hash)
}

func TestDocumentsAreIsolatedPerSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	submitDetails(t, svc, "s1")

	snap, err := svc.CurrentSnapshot(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, snap.Details.CompanyName)
}
