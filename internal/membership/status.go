// internal/membership/status.go
package membership

import "time"

// Status is a member's lifecycle status derived from the record.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpired      Status = "expired"
	StatusExpiringSoon Status = "expiring_soon"

	// StatusUnknown flags an unparseable expiry date. Callers must surface it
	// as a data-quality warning; it is never folded into active.
	StatusUnknown Status = "unknown"
)

// DefaultWarningWindow is the lookahead period before expiry during which an
// otherwise-active membership is flagged for renewal.
const DefaultWarningWindow = 30 * 24 * time.Hour

const dateLayout = "2006-01-02"

// Evaluate derives a status from the activity flag, the raw stored expiry
// date, and now. The activity flag is authoritative: an inactive member is
// expired regardless of any date. An empty validUntil means no tracked expiry.
func Evaluate(isActiveMember bool, validUntil string, now time.Time, warningWindow time.Duration) Status {
	if !isActiveMember {
		return StatusExpired
	}
	if validUntil == "" {
		return StatusActive
	}
	expiry, err := time.Parse(dateLayout, validUntil)
	if err != nil {
		return StatusUnknown
	}
	if expiry.Before(now) {
		return StatusExpired
	}
	if !expiry.After(now.Add(warningWindow)) {
		return StatusExpiringSoon
	}
	return StatusActive
}

// Status evaluates the record with the default warning window.
func (r *Record) Status(now time.Time) Status {
	return Evaluate(r.IsActiveMember, r.ValidUntil, now, DefaultWarningWindow)
}
