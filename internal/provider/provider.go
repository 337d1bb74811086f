// internal/provider/provider.go

// Package provider abstracts the hosted checkout provider. The engine only
// ever creates a session, hands the member to the provider's checkout URL,
// and later asks whether the session settled; the provider's internals stay
// out of scope.
package provider

import "context"

// SessionInput describes one checkout session to create. Amount is in
// integer minor units.
type SessionInput struct {
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the provider-issued handle for one payment attempt. ID is opaque
// and never reused across attempts.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the provider's view of a session when verification runs.
type SessionStatus struct {
	ID       string
	Paid     bool
	Amount   int64
	Currency string
}

// CheckoutProvider is the hosted checkout collaborator.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, in SessionInput) (*Session, error)
	GetSession(ctx context.Context, id string) (*SessionStatus, error)
}
