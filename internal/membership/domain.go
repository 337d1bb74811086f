// internal/membership/domain.go
package membership

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lewismosage/acna-sub005/internal/tiers"
)

// Record is a member's canonical membership record. The backend owns it; API
// consumers hold a read-mostly snapshot for the duration of one interactive
// session.
type Record struct {
	ID           uuid.UUID `json:"id"`
	MembershipID string    `json:"membership_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`

	MembershipClass string `json:"membership_class"`
	IsActiveMember  bool   `json:"is_active_member"`

	// ValidUntil is the stored expiry date in YYYY-MM-DD form, kept raw so
	// that unparseable values surface as StatusUnknown instead of being
	// masked. Empty means no tracked expiry.
	ValidUntil string `json:"valid_until,omitempty"`

	PaidAmount tiers.Cents `json:"paid_amount"`
	JoinDate   string      `json:"join_date,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Version    int         `json:"version"`
}

// FullName returns the member's display name.
func (r *Record) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	default:
		return r.FirstName + " " + r.LastName
	}
}

// Upgrade is the durable membership update applied when a payment session
// verifies. SessionID ties the update back to the checkout session that paid
// for it.
type Upgrade struct {
	MembershipID string      `json:"membership_id"`
	NewClass     string      `json:"new_class"`
	ValidUntil   string      `json:"valid_until"`
	PaidAmount   tiers.Cents `json:"paid_amount"`
	SessionID    string      `json:"session_id"`
}

var (
	ErrNotFound         = errors.New("membership record not found")
	ErrRecordAmbiguous  = errors.New("membership search matched more than one record")
	ErrIncompleteRecord = errors.New("membership record is missing class or paid amount")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// MembershipUpgradedEvent is journaled when a verified payment session applies
// a tier change.
type MembershipUpgradedEvent struct {
	ID         uuid.UUID   `json:"id"`
	NewClass   string      `json:"new_class"`
	ValidUntil string      `json:"valid_until"`
	PaidAmount tiers.Cents `json:"paid_amount"`
	SessionID  string      `json:"session_id"`
}
