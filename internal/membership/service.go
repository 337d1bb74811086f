// internal/membership/service.go
package membership

import "context"

// SearchQuery carries the partial identity fields a caller supplies. Any
// subset may be set; exact matching semantics belong to the store.
type SearchQuery struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// IsEmpty reports whether no identity field was supplied.
func (q SearchQuery) IsEmpty() bool {
	return q.FirstName == "" && q.LastName == "" && q.Email == "" && q.Phone == ""
}

// Service defines the interface for the membership service.
type Service interface {
	// Search resolves a partial identity to exactly one record. It fails with
	// ErrNotFound when nothing matches, ErrRecordAmbiguous when more than one
	// record matches, and ErrIncompleteRecord when the matched record lacks a
	// membership class or paid amount.
	Search(ctx context.Context, q SearchQuery) (*Record, error)

	// GetByMembershipID retrieves a record by its opaque membership identifier.
	GetByMembershipID(ctx context.Context, membershipID string) (*Record, error)

	// ApplyUpgrade atomically applies a verified tier change, new validity
	// date, and updated paid amount. Concurrent applications for the same
	// record are serialized by the event journal's version check.
	ApplyUpgrade(ctx context.Context, u Upgrade) (*Record, error)
}
