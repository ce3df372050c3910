// Package payments wraps the hosted-checkout payment collaborator (Stripe).
// It exposes a narrow Provider interface so services and tests never touch
// the SDK directly: the application only ever creates checkout sessions,
// retrieves their payment status, and verifies webhook payloads.
package payments

import (
	"context"
	"encoding/json"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

// PaymentStatusPaid is the sentinel payment status the confirmation flow
// branches on. Any other status leaves the booking pending.
const PaymentStatusPaid = "paid"

// Session is the subset of a hosted checkout session this application
// consumes: the id to track, the URL to redirect the client to, and the
// payment status reported on retrieval.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
}

// Paid reports whether the session reached the paid sentinel status.
func (s *Session) Paid() bool { return s.PaymentStatus == PaymentStatusPaid }

// SessionParams carries everything needed to open a hosted checkout session.
// UnitAmount is in minor currency units (amount × 100).
type SessionParams struct {
	CustomerEmail string
	Currency      string
	UnitAmount    int64
	ProductName   string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Provider is the contract the booking/payment services depend on.
// Implementations must be safe for concurrent use.
type Provider interface {
	// CreateSession opens a hosted checkout session and returns its id and
	// redirect URL.
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
	// RetrieveSession fetches the current payment status of a session.
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}

// Client is the Stripe-backed Provider. It finds or creates a Stripe
// customer per email so repeat buyers keep a single payment profile.
type Client struct {
	api *client.API
}

// New constructs a Stripe-backed client with the given secret API key.
func New(apiKey string) *Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Client{api: sc}
}

// CreateSession implements Provider. Side-effect order matters: the customer
// is resolved first, then the session is opened; the caller persists its
// booking afterwards and owns reconciliation if that insert fails.
func (c *Client) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	cust, err := c.findOrCreateCustomer(ctx, p.CustomerEmail)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(cust.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductName),
					},
				},
			},
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: sess.ID, URL: sess.URL, PaymentStatus: string(sess.PaymentStatus)}, nil
}

// RetrieveSession implements Provider.
func (c *Client) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: sess.ID, URL: sess.URL, PaymentStatus: string(sess.PaymentStatus)}, nil
}

// findOrCreateCustomer looks a customer up by email and creates one when the
// listing comes back empty.
func (c *Client) findOrCreateCustomer(ctx context.Context, email string) (*stripe.Customer, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Filters.AddFilter("limit", "", "1")

	it := c.api.Customers.List(listParams)
	if it.Next() {
		return it.Customer(), nil
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	createParams := &stripe.CustomerParams{Email: stripe.String(email)}
	createParams.Context = ctx
	return c.api.Customers.New(createParams)
}

// VerifyWebhook validates a Stripe webhook signature and extracts the
// checkout session id when the event reports a completed checkout. The
// second return value is false for every other event type.
func VerifyWebhook(payload []byte, sigHeader, secret string) (sessionID string, completed bool, err error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return "", false, err
	}
	if event.Type != "checkout.session.completed" {
		return "", false, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", false, err
	}
	return sess.ID, true, nil
}
