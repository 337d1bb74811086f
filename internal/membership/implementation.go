// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lewismosage/acna-sub005/internal/eventstore"
	"github.com/lewismosage/acna-sub005/internal/tiers"
)

// service implements the Service interface against the Postgres read model,
// journaling upgrades through the event store.
type service struct {
	eventStore  *eventstore.EventStore
	db          *sql.DB
	rateLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(es *eventstore.EventStore, db *sql.DB) Service {
	return &service{
		eventStore:  es,
		db:          db,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

const recordColumns = `
	id, membership_id, first_name, last_name, email, COALESCE(phone, ''),
	membership_class, is_active_member, COALESCE(valid_until, ''),
	paid_amount, COALESCE(join_date, ''), created_at, updated_at, version
`

// Search resolves a partial identity to exactly one record.
func (s *service) Search(ctx context.Context, q SearchQuery) (*Record, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if q.IsEmpty() {
		return nil, fmt.Errorf("%w: no search fields supplied", ErrNotFound)
	}

	var conds []string
	var args []interface{}
	add := func(cond, value string) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Email != "" {
		add("LOWER(email) = LOWER($%d)", q.Email)
	}
	if q.FirstName != "" {
		add("LOWER(first_name) = LOWER($%d)", q.FirstName)
	}
	if q.LastName != "" {
		add("LOWER(last_name) = LOWER($%d)", q.LastName)
	}
	if q.Phone != "" {
		add("phone = $%d", q.Phone)
	}

	// LIMIT 2 is enough to distinguish "exactly one" from "ambiguous".
	query := fmt.Sprintf(`SELECT %s FROM members WHERE %s LIMIT 2`,
		recordColumns, strings.Join(conds, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	defer rows.Close()

	var matches []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return validateComplete(matches[0])
	default:
		// The portal assumes backend-enforced uniqueness; until that contract
		// is confirmed, more than one match is a hard error, never a silent
		// pick of the first row.
		return nil, ErrRecordAmbiguous
	}
}

// GetByMembershipID retrieves a record by its opaque membership identifier.
func (s *service) GetByMembershipID(ctx context.Context, membershipID string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE membership_id = $1`, recordColumns)
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, membershipID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", membershipID, err)
	}
	return validateComplete(record)
}

// ApplyUpgrade journals a MembershipUpgraded event and updates the read model.
// The event append carries the record's current version; a concurrent upgrade
// of the same record surfaces as eventstore.ErrConcurrencyConflict.
func (s *service) ApplyUpgrade(ctx context.Context, u Upgrade) (*Record, error) {
	record, err := s.GetByMembershipID(ctx, u.MembershipID)
	if err != nil {
		return nil, err
	}

	eventData := MembershipUpgradedEvent{
		ID:         record.ID,
		NewClass:   u.NewClass,
		ValidUntil: u.ValidUntil,
		PaidAmount: u.PaidAmount,
		SessionID:  u.SessionID,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}

	// The journal is the concurrency arbiter. Records imported from the
	// association's backend start with an empty journal regardless of their
	// read-model version, so the append anchors on the journal's own version.
	journalVersion, err := s.eventStore.GetCurrentVersion(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("read journal version: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   record.ID,
		AggregateType: "membership",
		EventType:     "MembershipUpgraded",
		EventData:     jsonData,
		Version:       journalVersion + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, record.ID, "membership", journalVersion, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("append upgrade event: %w", err)
	}

	query := `
		UPDATE members
		SET membership_class = $1, is_active_member = TRUE, valid_until = NULLIF($2, ''),
		    paid_amount = $3, version = $4, updated_at = NOW()
		WHERE id = $5
	`
	if _, err := s.db.ExecContext(ctx, query, u.NewClass, u.ValidUntil, int64(u.PaidAmount), record.Version+1, record.ID); err != nil {
		return nil, fmt.Errorf("update read model: %w", err)
	}

	log.Info().
		Str("membership_id", u.MembershipID).
		Str("new_class", u.NewClass).
		Str("session_id", u.SessionID).
		Msg("membership upgrade applied")

	return s.GetByMembershipID(ctx, u.MembershipID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	record := &Record{}
	var class sql.NullString
	var paid sql.NullInt64
	err := row.Scan(
		&record.ID,
		&record.MembershipID,
		&record.FirstName,
		&record.LastName,
		&record.Email,
		&record.Phone,
		&class,
		&record.IsActiveMember,
		&record.ValidUntil,
		&paid,
		&record.JoinDate,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.Version,
	)
	if err != nil {
		return nil, err
	}
	if class.Valid {
		record.MembershipClass = class.String
	}
	if paid.Valid {
		record.PaidAmount = tiers.Cents(paid.Int64)
	} else {
		record.PaidAmount = -1 // sentinel for validateComplete
	}
	return record, nil
}

// validateComplete enforces the caller-side contract: a usable record carries
// both a membership class and a paid amount.
func validateComplete(record *Record) (*Record, error) {
	if record.MembershipClass == "" || record.PaidAmount < 0 {
		return nil, fmt.Errorf("%w: membership %s", ErrIncompleteRecord, record.MembershipID)
	}
	return record, nil
}
