package crm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaketech/quotebuilder/internal/quotation"
)

func exportSnapshot(t *testing.T) quotation.Snapshot {
	t.Helper()
	doc := quotation.NewDocument(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	doc.Details.CompanyName = "Acme Corp"
	doc.Details.ContactPerson = "Jane Doe"
	doc.Details.ContactPhone = "+2010012345"
	doc.ShippingFee = 50
	doc.InstallationFee = 25
	doc.Lines = []quotation.LineItem{
		{Item: "Desk", SKU: "DSK-1", Quantity: 2, UnitPrice: 100, DiscountPercent: 10},
		{Item: "Mystery", SKU: "NOPE", Quantity: 1, UnitPrice: 40},
	}
	return doc.Snapshot()
}

func crmServer(t *testing.T, quotes *[]Quote) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Acme Corp" {
			_ = json.NewEncoder(w).Encode([]Account{{ID: "acc-1", Name: "Acme Corp"}})
			return
		}
		_ = json.NewEncoder(w).Encode([]Account{})
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Owner{{ID: "usr-9", Email: "buyer@flaketech.com", Active: true}})
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sku") == "DSK-1" {
			_ = json.NewEncoder(w).Encode([]Product{{ID: "prd-7", SKU: "DSK-1"}})
			return
		}
		_ = json.NewEncoder(w).Encode([]Product{})
	})
	mux.HandleFunc("POST /quotes", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		var q Quote
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		*quotes = append(*quotes, q)
		w.WriteHeader(http.StatusCreated)
	})
	return httptest.NewServer(mux)
}

func TestExportDropsUnresolvedSKUs(t *testing.T) {
	var quotes []Quote
	srv := crmServer(t, &quotes)
	defer srv.Close()

	exporter := NewExporter(slog.Default(), NewClient(srv.URL, "test-token", 10*time.Second))
	warnings, err := exporter.Export(context.Background(), exportSnapshot(t), "buyer@flaketech.com")
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Mystery")

	require.Len(t, quotes, 1)
	q := quotes[0]
	assert.Equal(t, "acc-1", q.AccountID)
	assert.Equal(t, "usr-9", q.OwnerID)
	assert.Equal(t, 75.0, q.Adjustment)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, "prd-7", q.Lines[0].ProductID)
	// 2 x 100 at 10% off: 20.00 absolute discount.
	assert.Equal(t, 20.0, q.Lines[0].Discount)
}

func TestExportUnknownAccountFails(t *testing.T) {
	var quotes []Quote
	srv := crmServer(t, &quotes)
	defer srv.Close()

	snap := exportSnapshot(t)
	snap.Details.CompanyName = "Ghost LLC"

	exporter := NewExporter(slog.Default(), NewClient(srv.URL, "test-token", 10*time.Second))
	_, err := exporter.Export(context.Background(), snap, "buyer@flaketech.com")
	require.Error(t, err)
	assert.Empty(t, quotes)
}

func TestExportRejectedPostFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Account{{ID: "acc-1", Name: "Acme Corp"}})
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Owner{})
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Product{{ID: "prd-7", SKU: "DSK-1"}})
	})
	mux.HandleFunc("POST /quotes", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exporter := NewExporter(slog.Default(), NewClient(srv.URL, "", 10*time.Second))
	warnings, err := exporter.Export(context.Background(), exportSnapshot(t), "buyer@flaketech.com")
	require.Error(t, err)
	// Missing owner and the unresolved SKU still warn before the POST fails.
	assert.Len(t, warnings, 2)
}
