// internal/provider/stripe.go
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeCheckout implements CheckoutProvider on Stripe Checkout. Calls go
// through a circuit breaker so a provider outage fails fast instead of
// stacking up foreground requests; there is no retry loop, a failed attempt
// is surfaced to the member who may start a fresh one.
type StripeCheckout struct {
	breaker *gobreaker.CircuitBreaker
}

// NewStripeCheckout configures the Stripe API key and returns a provider.
func NewStripeCheckout(apiKey string) *StripeCheckout {
	stripelib.Key = apiKey
	return &StripeCheckout{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "stripe-checkout",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// CreateSession creates a hosted checkout session for a single line item.
func (s *StripeCheckout) CreateSession(ctx context.Context, in SessionInput) (*Session, error) {
	params := &stripelib.CheckoutSessionParams{
		Mode:          stripelib.String(string(stripelib.CheckoutSessionModePayment)),
		SuccessURL:    stripelib.String(in.SuccessURL),
		CancelURL:     stripelib.String(in.CancelURL),
		CustomerEmail: stripelib.String(in.CustomerEmail),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Quantity: stripelib.Int64(1),
				PriceData: &stripelib.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripelib.String(in.Currency),
					UnitAmount: stripelib.Int64(in.Amount),
					ProductData: &stripelib.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripelib.String(in.Description),
					},
				},
			},
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return session.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session create: %w", err)
	}

	cs := result.(*stripelib.CheckoutSession)
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

// GetSession retrieves a session's settlement status.
func (s *StripeCheckout) GetSession(ctx context.Context, id string) (*SessionStatus, error) {
	params := &stripelib.CheckoutSessionParams{}
	params.Context = ctx

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return session.Get(id, params)
	})
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session get: %w", err)
	}

	cs := result.(*stripelib.CheckoutSession)
	return &SessionStatus{
		ID:       cs.ID,
		Paid:     cs.PaymentStatus == stripelib.CheckoutSessionPaymentStatusPaid,
		Amount:   cs.AmountTotal,
		Currency: string(cs.Currency),
	}, nil
}
