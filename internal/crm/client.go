// Package crm mirrors finalized quotations into the external CRM. The export
// is best effort: any failure is reported as a warning and never blocks or
// rolls back local state.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin JSON client for the CRM REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a Client. timeout bounds every call; the CRM sits
// outside our infrastructure and has no SLA.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Account is a CRM customer record.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Owner is a CRM user record.
type Owner struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// Product is a CRM product record.
type Product struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

// QuoteLine is one exported line item.
type QuoteLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	// Discount is the absolute amount, not a percentage.
	Discount float64 `json:"discount"`
}

// Quote is the export payload.
type Quote struct {
	Subject    string  `json:"subject"`
	AccountID  string  `json:"account_id"`
	OwnerID    string  `json:"owner_id,omitempty"`
	Stage      string  `json:"stage"`
	QuoteDate  string  `json:"quote_date"`
	ValidTill  string  `json:"valid_till"`
	Currency   string  `json:"currency"`
	Adjustment float64 `json:"adjustment"`
	GrandTotal float64 `json:"grand_total"`

	BillingStreet string `json:"billing_street,omitempty"`
	Terms         string `json:"terms,omitempty"`

	Lines []QuoteLine `json:"line_items"`
}

// FindAccount resolves an account by exact name match.
func (c *Client) FindAccount(ctx context.Context, name string) (Account, error) {
	var accounts []Account
	if err := c.get(ctx, "/accounts", url.Values{"name": {name}}, &accounts); err != nil {
		return Account{}, err
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("crm: account %q not found", name)
}

// FindOwner resolves an active CRM user by email.
func (c *Client) FindOwner(ctx context.Context, email string) (Owner, error) {
	var owners []Owner
	if err := c.get(ctx, "/users", url.Values{"email": {email}}, &owners); err != nil {
		return Owner{}, err
	}
	for _, o := range owners {
		if o.Active && strings.EqualFold(o.Email, email) {
			return o, nil
		}
	}
	return Owner{}, fmt.Errorf("crm: active user %q not found", email)
}

// FindProduct resolves a product by SKU.
func (c *Client) FindProduct(ctx context.Context, sku string) (Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", url.Values{"sku": {sku}}, &products); err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if strings.EqualFold(p.SKU, sku) {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("crm: product with sku %q not found", sku)
}

// CreateQuote posts the quote.
func (c *Client) CreateQuote(ctx context.Context, q Quote) error {
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("crm: encode quote: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quotes", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm: create quote: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("crm: create quote: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm: get %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crm: get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("crm: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
