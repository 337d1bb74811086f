// internal/payments/domain.go
package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/lewismosage/acna-sub005/internal/tiers"
)

// PaymentType distinguishes what a checkout session pays for.
type PaymentType string

const (
	PaymentInitial PaymentType = "initial"
	PaymentRenewal PaymentType = "renewal"
	PaymentUpgrade PaymentType = "upgrade"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentInitial, PaymentRenewal, PaymentUpgrade:
		return true
	}
	return false
}

// RequiresMembershipType reports whether a tier key is mandatory for t.
func (t PaymentType) RequiresMembershipType() bool {
	return t == PaymentRenewal || t == PaymentUpgrade
}

// SessionStatus is the durable status of a session row. Intermediate client
// states (redirected, verification pending) are ephemeral view state and are
// never persisted.
type SessionStatus string

const (
	SessionRequested SessionStatus = "requested"
	SessionVerified  SessionStatus = "verified"
	SessionFailed    SessionStatus = "failed"
)

// PaymentSession is one payment attempt against the hosted checkout provider.
// A session is never reused: a fresh attempt after failure gets a brand-new
// provider-issued identifier.
type PaymentSession struct {
	SessionID     string        `json:"session_id"`
	PaymentType   PaymentType   `json:"payment_type"`
	TargetTierKey string        `json:"target_tier_key"`
	AmountDue     tiers.Cents   `json:"amount_due"`
	Status        SessionStatus `json:"status"`
	Email         string        `json:"email"`
	UserID        string        `json:"user_id"`
	MembershipID  string        `json:"membership_id"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CreateSessionSchemaVersion is the current wire schema for session creation.
const CreateSessionSchemaVersion = 1

// CreateSessionRequest is the versioned request that starts a payment
// attempt. It is validated in full before any network call is made.
type CreateSessionRequest struct {
	SchemaVersion  int         `json:"schema_version"`
	PaymentType    PaymentType `json:"payment_type"`
	MembershipType string      `json:"membership_type,omitempty"`
	Email          string      `json:"email"`
	UserID         string      `json:"user_id"`
	MembershipID   string      `json:"membership_id"`
}

// Validate checks the request against the current schema.
func (r CreateSessionRequest) Validate() error {
	if r.SchemaVersion != CreateSessionSchemaVersion {
		return fmt.Errorf("%w: unsupported schema version %d", ErrInvalidRequest, r.SchemaVersion)
	}
	if !r.PaymentType.Valid() {
		return fmt.Errorf("%w: unknown payment type %q", ErrInvalidRequest, r.PaymentType)
	}
	if r.MembershipType == "" {
		if r.PaymentType.RequiresMembershipType() {
			return ErrMissingMembershipType
		}
		return fmt.Errorf("%w: membership_type is required", ErrInvalidRequest)
	}
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	if r.MembershipID == "" {
		return fmt.Errorf("%w: membership_id is required", ErrInvalidRequest)
	}
	return nil
}

// CreateSessionResponse hands the opaque session identifier and the hosted
// checkout URL back to the client.
type CreateSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// VerificationUser is the member snapshot included with a verification result.
type VerificationUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	JoinDate string `json:"join_date"`
}

// VerificationResult reports a settled session. Verifying the same session
// again yields an identical result without re-applying the update.
type VerificationResult struct {
	MembershipType string           `json:"membership_type"`
	ValidUntil     string           `json:"valid_until"`
	Amount         tiers.Cents      `json:"amount"`
	AmountDisplay  string           `json:"amount_display"`
	User           VerificationUser `json:"user"`
	InvoiceNumber  string           `json:"invoice_number"`
}

// InvoiceDocument is a rendered invoice for a verified session.
type InvoiceDocument struct {
	Number string
	PDF    []byte
}

var (
	ErrInvalidRequest        = errors.New("invalid payment request")
	ErrMissingMembershipType = errors.New("membership type is required for renewal and upgrade payments")
	ErrSessionCreation       = errors.New("checkout session creation failed")
	ErrSessionNotFound       = errors.New("payment session not found")
	ErrVerification          = errors.New("payment verification failed")
)

// Error codes carried on the wire so clients can map failures back to the
// taxonomy without string matching.
const (
	CodeValidation            = "validation_error"
	CodeMissingMembershipType = "missing_membership_type"
	CodeNotFound              = "not_found"
	CodeInvalidUpgrade        = "invalid_upgrade"
	CodeSessionCreation       = "session_creation_error"
	CodeVerification          = "verification_error"
	CodeInternal              = "internal_error"
)
