// internal/payments/implementation_test.go
package payments

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/lewismosage/acna-sub005/internal/membership"
	"github.com/lewismosage/acna-sub005/internal/provider"
	"github.com/lewismosage/acna-sub005/internal/tiers"
)

// setupTestDB connects to a PostgreSQL database for testing, skipping the
// test when none is reachable.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	getenv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getenv("PGHOST", "localhost"),
		getenv("PGPORT", "5432"),
		getenv("PGUSER", "user"),
		getenv("PGPASSWORD", "password"),
		getenv("PGDATABASE", "testdb"),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS payment_sessions (
			session_id TEXT PRIMARY KEY,
			payment_type TEXT NOT NULL,
			target_tier TEXT NOT NULL,
			amount_due BIGINT NOT NULL,
			status TEXT NOT NULL,
			email TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			membership_id TEXT NOT NULL,
			invoice_number TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS invoice_downloads (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			downloaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// fakeCheckout hands out provider sessions without any network. paid controls
// what GetSession reports.
type fakeCheckout struct {
	mu          sync.Mutex
	paid        bool
	getCalls    int
	lastCreated provider.SessionInput
}

func (f *fakeCheckout) CreateSession(ctx context.Context, in provider.SessionInput) (*provider.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreated = in
	id := "cs_test_" + ulid.Make().String()
	return &provider.Session{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

func (f *fakeCheckout) GetSession(ctx context.Context, id string) (*provider.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return &provider.SessionStatus{ID: id, Paid: f.paid, Amount: f.lastCreated.Amount, Currency: "usd"}, nil
}

// fakeMembers keeps one record in memory and counts upgrade applications.
type fakeMembers struct {
	mu       sync.Mutex
	record   membership.Record
	upgrades int
}

func (f *fakeMembers) Search(ctx context.Context, q membership.SearchQuery) (*membership.Record, error) {
	return f.GetByMembershipID(ctx, f.record.MembershipID)
}

func (f *fakeMembers) GetByMembershipID(ctx context.Context, membershipID string) (*membership.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if membershipID != f.record.MembershipID {
		return nil, membership.ErrNotFound
	}
	r := f.record
	return &r, nil
}

func (f *fakeMembers) ApplyUpgrade(ctx context.Context, u membership.Upgrade) (*membership.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.MembershipID != f.record.MembershipID {
		return nil, membership.ErrNotFound
	}
	f.upgrades++
	f.record.MembershipClass = u.NewClass
	f.record.ValidUntil = u.ValidUntil
	f.record.PaidAmount = u.PaidAmount
	f.record.Version++
	r := f.record
	return &r, nil
}

func newTestService(db *sql.DB, members membership.Service, checkout provider.CheckoutProvider) *service {
	return &service{
		db:       db,
		members:  members,
		checkout: checkout,
		opts: Options{
			SuccessURL: "https://portal.example.org/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  "https://portal.example.org/cancel",
			Currency:   "usd",
		},
		tracer:      otel.Tracer("test/payments"),
		now:         func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) },
		verifyLocks: make(map[string]*sync.Mutex),
	}
}

func associateRecord() membership.Record {
	return membership.Record{
		ID:              uuid.New(),
		MembershipID:    "ACNA-0042",
		FirstName:       "Amara",
		LastName:        "Okafor",
		Email:           "amara.okafor@example.org",
		MembershipClass: tiers.KeyAssociate,
		IsActiveMember:  true,
		ValidUntil:      "2026-04-01",
		PaidAmount:      4000,
		JoinDate:        "2021-06-01",
		Version:         3,
	}
}

func TestVerifySessionAppliesUpgradeOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	members := &fakeMembers{record: associateRecord()}
	checkout := &fakeCheckout{paid: true}
	svc := newTestService(db, members, checkout)
	ctx := context.Background()

	resp, err := svc.CreateSession(ctx, CreateSessionRequest{
		SchemaVersion:  CreateSessionSchemaVersion,
		PaymentType:    PaymentUpgrade,
		MembershipType: tiers.KeyInstitutional,
		Email:          "amara.okafor@example.org",
		UserID:         "usr_01",
		MembershipID:   "ACNA-0042",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.CheckoutURL, resp.SessionID)

	// Upgrade price is the fee delta: 300.00 minus the 40.00 already paid.
	assert.Equal(t, int64(26000), checkout.lastCreated.Amount)

	first, err := svc.VerifySession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, tiers.KeyInstitutional, first.MembershipType)
	assert.Equal(t, "2027-03-15", first.ValidUntil)
	assert.Equal(t, tiers.Cents(26000), first.Amount)
	assert.Equal(t, "260.00", first.AmountDisplay)
	assert.Equal(t, "Amara Okafor", first.User.Name)
	assert.NotEmpty(t, first.InvoiceNumber)
	assert.Equal(t, 1, members.upgrades)

	// Re-verifying the settled session replays the recorded outcome without a
	// second membership update or provider round trip.
	second, err := svc.VerifySession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, first.MembershipType, second.MembershipType)
	assert.Equal(t, first.Amount, second.Amount)
	assert.Equal(t, 1, members.upgrades)
	assert.Equal(t, 1, checkout.getCalls)
}

func TestVerifySessionLifetimeClearsExpiry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	record := associateRecord()
	record.MembershipClass = tiers.KeyFullProfessional
	record.PaidAmount = 8000
	members := &fakeMembers{record: record}
	svc := newTestService(db, members, &fakeCheckout{paid: true})
	ctx := context.Background()

	resp, err := svc.CreateSession(ctx, CreateSessionRequest{
		SchemaVersion:  CreateSessionSchemaVersion,
		PaymentType:    PaymentUpgrade,
		MembershipType: tiers.KeyLifetime,
		Email:          record.Email,
		MembershipID:   record.MembershipID,
	})
	require.NoError(t, err)

	result, err := svc.VerifySession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, tiers.KeyLifetime, result.MembershipType)
	assert.Empty(t, result.ValidUntil)
	assert.Empty(t, members.record.ValidUntil)
}

func TestVerifySessionUnpaidFailsSession(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	members := &fakeMembers{record: associateRecord()}
	checkout := &fakeCheckout{paid: false}
	svc := newTestService(db, members, checkout)
	ctx := context.Background()

	resp, err := svc.CreateSession(ctx, CreateSessionRequest{
		SchemaVersion:  CreateSessionSchemaVersion,
		PaymentType:    PaymentRenewal,
		MembershipType: tiers.KeyAssociate,
		Email:          "amara.okafor@example.org",
		MembershipID:   "ACNA-0042",
	})
	require.NoError(t, err)

	_, err = svc.VerifySession(ctx, resp.SessionID)
	require.ErrorIs(t, err, ErrVerification)
	assert.Equal(t, 0, members.upgrades)

	// The failed session stays failed: completing payment later does not
	// resurrect it.
	checkout.paid = true
	_, err = svc.VerifySession(ctx, resp.SessionID)
	require.ErrorIs(t, err, ErrVerification)
	assert.Equal(t, 0, members.upgrades)
	assert.Equal(t, 1, checkout.getCalls)
}

func TestVerifySessionUnknownSession(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(db, &fakeMembers{record: associateRecord()}, &fakeCheckout{paid: true})
	_, err := svc.VerifySession(context.Background(), "cs_missing_"+ulid.Make().String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInvoiceOnlyForVerifiedSessions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	members := &fakeMembers{record: associateRecord()}
	svc := newTestService(db, members, &fakeCheckout{paid: true})
	ctx := context.Background()

	resp, err := svc.CreateSession(ctx, CreateSessionRequest{
		SchemaVersion:  CreateSessionSchemaVersion,
		PaymentType:    PaymentUpgrade,
		MembershipType: tiers.KeyInstitutional,
		Email:          "amara.okafor@example.org",
		MembershipID:   "ACNA-0042",
	})
	require.NoError(t, err)

	_, err = svc.Invoice(ctx, resp.SessionID)
	require.ErrorIs(t, err, ErrVerification)

	result, err := svc.VerifySession(ctx, resp.SessionID)
	require.NoError(t, err)

	doc, err := svc.Invoice(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, result.InvoiceNumber, doc.Number)
	assert.True(t, len(doc.PDF) > 0)
	assert.Equal(t, "%PDF", string(doc.PDF[:4]))
}
