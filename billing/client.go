package billing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	invoiceLimit   = 10
)

// Client wraps the HTTP calls to the billing provider. A client built
// without credentials is valid but disabled: aggregation then serves local
// subscription data only.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClientFromEnv constructs a Client using environment variables.
//
// Expected variables:
//   - STRIPE_SECRET_KEY: provider API key; when absent the client is disabled
//   - STRIPE_API_BASE: optional override for the API base URL
func NewClientFromEnv() *Client {
	logger := log.With().Str("component", "billing").Logger()

	apiKey := strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	if apiKey == "" {
		logger.Info().Msg("billing provider credentials not configured")
		return &Client{log: logger}
	}

	baseURL := strings.TrimSpace(os.Getenv("STRIPE_API_BASE"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(15 * time.Second)

	return &Client{http: httpClient, log: logger}
}

// Enabled reports whether provider credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.http != nil
}

// CustomerView is the reduced customer profile returned to API consumers.
type CustomerView struct {
	ID      string    `json:"id"`
	Email   *string   `json:"email"`
	Name    *string   `json:"name"`
	Created time.Time `json:"created"`
}

// PaymentMethodView is a card payment method reduced to its display fields.
type PaymentMethodView struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// InvoiceView is an invoice reduced to its display fields. AmountPaid is in
// the currency's minor unit.
type InvoiceView struct {
	ID               string    `json:"id"`
	Number           *string   `json:"number"`
	AmountPaid       int64     `json:"amount_paid"`
	Currency         string    `json:"currency"`
	Status           *string   `json:"status"`
	Created          time.Time `json:"created"`
	InvoicePDF       *string   `json:"invoice_pdf"`
	HostedInvoiceURL *string   `json:"hosted_invoice_url"`
}

// Wire shapes: the subset of provider fields we consume.

type customerPayload struct {
	ID      string  `json:"id"`
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Created int64   `json:"created"`
}

type cardDetails struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

type paymentMethodPayload struct {
	ID   string       `json:"id"`
	Type string       `json:"type"`
	Card *cardDetails `json:"card"`
}

type paymentMethodListPayload struct {
	Data []paymentMethodPayload `json:"data"`
}

type invoicePayload struct {
	ID               string  `json:"id"`
	Number           *string `json:"number"`
	AmountPaid       int64   `json:"amount_paid"`
	Currency         string  `json:"currency"`
	Status           *string `json:"status"`
	Created          int64   `json:"created"`
	InvoicePDF       *string `json:"invoice_pdf"`
	HostedInvoiceURL *string `json:"hosted_invoice_url"`
}

type invoiceListPayload struct {
	Data []invoicePayload `json:"data"`
}

// FetchCustomer retrieves a customer profile by provider id.
func (c *Client) FetchCustomer(ctx context.Context, customerID string) (*CustomerView, error) {
	var payload customerPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		Get("/v1/customers/" + customerID)
	if err != nil {
		return nil, fmt.Errorf("billing: fetch customer: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing: fetch customer: %s", resp.Status())
	}

	return &CustomerView{
		ID:      payload.ID,
		Email:   payload.Email,
		Name:    payload.Name,
		Created: time.Unix(payload.Created, 0).UTC(),
	}, nil
}

// ListCardPaymentMethods retrieves the customer's card payment methods.
// Entries without card details are silently dropped.
func (c *Client) ListCardPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethodView, error) {
	var payload paymentMethodListPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"customer": customerID,
			"type":     "card",
		}).
		SetResult(&payload).
		Get("/v1/payment_methods")
	if err != nil {
		return nil, fmt.Errorf("billing: list payment methods: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing: list payment methods: %s", resp.Status())
	}

	methods := make([]PaymentMethodView, 0, len(payload.Data))
	for _, pm := range payload.Data {
		if pm.Card == nil {
			continue
		}
		methods = append(methods, PaymentMethodView{
			Brand:    pm.Card.Brand,
			Last4:    pm.Card.Last4,
			ExpMonth: pm.Card.ExpMonth,
			ExpYear:  pm.Card.ExpYear,
		})
	}
	return methods, nil
}

// ListRecentInvoices retrieves up to the 10 most recent invoices.
func (c *Client) ListRecentInvoices(ctx context.Context, customerID string) ([]InvoiceView, error) {
	var payload invoiceListPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"customer": customerID,
			"limit":    fmt.Sprintf("%d", invoiceLimit),
		}).
		SetResult(&payload).
		Get("/v1/invoices")
	if err != nil {
		return nil, fmt.Errorf("billing: list invoices: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("billing: list invoices: %s", resp.Status())
	}

	invoices := make([]InvoiceView, 0, len(payload.Data))
	for _, inv := range payload.Data {
		invoices = append(invoices, InvoiceView{
			ID:               inv.ID,
			Number:           inv.Number,
			AmountPaid:       inv.AmountPaid,
			Currency:         inv.Currency,
			Status:           inv.Status,
			Created:          time.Unix(inv.Created, 0).UTC(),
			InvoicePDF:       inv.InvoicePDF,
			HostedInvoiceURL: inv.HostedInvoiceURL,
		})
	}
	return invoices, nil
}
