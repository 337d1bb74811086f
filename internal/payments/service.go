// internal/payments/service.go
package payments

import "context"

// Service defines the interface for the payment session service.
type Service interface {
	// CreateSession validates the request, prices the payment, creates a
	// hosted checkout session, and records it. No membership state changes.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error)

	// VerifySession confirms a session settled with the provider and applies
	// the membership update exactly once. Re-verifying a settled session
	// returns the recorded outcome without applying anything twice.
	VerifySession(ctx context.Context, sessionID string) (*VerificationResult, error)

	// Invoice renders the invoice for a verified session.
	Invoice(ctx context.Context, sessionID string) (*InvoiceDocument, error)
}
