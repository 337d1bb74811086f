// internal/payments/implementation.go
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lewismosage/acna-sub005/internal/eventstore"
	"github.com/lewismosage/acna-sub005/internal/membership"
	"github.com/lewismosage/acna-sub005/internal/provider"
	"github.com/lewismosage/acna-sub005/internal/tiers"
)

// Options configures the payment session service.
type Options struct {
	// SuccessURL is where the provider sends the member after paying. It must
	// contain the provider's session-id template so the identifier comes back
	// with the redirect.
	SuccessURL string
	CancelURL  string
	Currency   string
}

// service implements the Service interface.
type service struct {
	db       *sql.DB
	members  membership.Service
	checkout provider.CheckoutProvider
	opts     Options
	tracer   trace.Tracer
	now      func() time.Time

	// verifyLocks serializes in-process verification per membership so two
	// near-simultaneous completions cannot both apply an upgrade. Across
	// processes the event journal's version check provides the same guarantee.
	mu          sync.Mutex
	verifyLocks map[string]*sync.Mutex
}

// NewService creates a new payment session service instance.
func NewService(db *sql.DB, members membership.Service, checkout provider.CheckoutProvider, opts Options) Service {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &service{
		db:          db,
		members:     members,
		checkout:    checkout,
		opts:        opts,
		tracer:      otel.Tracer("acna/payments"),
		now:         time.Now,
		verifyLocks: make(map[string]*sync.Mutex),
	}
}

// CreateSession prices the payment and opens a hosted checkout session.
func (s *service) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	target, ok := tiers.Get(req.MembershipType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", tiers.ErrUnknownTier, req.MembershipType)
	}

	record, err := s.members.GetByMembershipID(ctx, req.MembershipID)
	if err != nil {
		return nil, err
	}

	amount := target.Fee
	if req.PaymentType == PaymentUpgrade {
		amount, err = tiers.UpgradeCost(target, record.MembershipClass, record.PaidAmount)
		if err != nil {
			return nil, err
		}
	}

	session, err := s.checkout.CreateSession(ctx, provider.SessionInput{
		Amount:        int64(amount),
		Currency:      s.opts.Currency,
		Description:   fmt.Sprintf("ACNA %s membership (%s)", target.DisplayName, req.PaymentType),
		CustomerEmail: req.Email,
		SuccessURL:    s.opts.SuccessURL,
		CancelURL:     s.opts.CancelURL,
		Metadata: map[string]string{
			"payment_type":    string(req.PaymentType),
			"membership_type": req.MembershipType,
			"membership_id":   req.MembershipID,
			"user_id":         req.UserID,
		},
	})
	if err != nil {
		SessionsCreatedTotal.WithLabelValues(string(req.PaymentType), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSessionCreation, err)
	}

	query := `
		INSERT INTO payment_sessions
			(session_id, payment_type, target_tier, amount_due, status, email, user_id, membership_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID, string(req.PaymentType), req.MembershipType, int64(amount),
		string(SessionRequested), req.Email, req.UserID, req.MembershipID)
	if err != nil {
		return nil, fmt.Errorf("record payment session: %w", err)
	}

	SessionsCreatedTotal.WithLabelValues(string(req.PaymentType), "ok").Inc()
	log.Info().
		Str("session_id", session.ID).
		Str("payment_type", string(req.PaymentType)).
		Str("membership_id", req.MembershipID).
		Str("amount", amount.String()).
		Msg("checkout session created")

	return &CreateSessionResponse{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// VerifySession confirms settlement with the provider and applies the
// membership update exactly once.
func (s *service) VerifySession(ctx context.Context, sessionID string) (*VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "payments.verify",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Status == SessionVerified {
		VerificationsTotal.WithLabelValues("replayed").Inc()
		return s.verifiedResult(ctx, sess)
	}
	if sess.Status == SessionFailed {
		return nil, fmt.Errorf("%w: session already failed, start a new attempt", ErrVerification)
	}

	lock := s.lockFor(sess.MembershipID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent verifier may have settled the
	// session while this request waited.
	sess, err = s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == SessionVerified {
		VerificationsTotal.WithLabelValues("replayed").Inc()
		return s.verifiedResult(ctx, sess)
	}

	status, err := s.checkout.GetSession(ctx, sessionID)
	if err != nil {
		VerificationsTotal.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if !status.Paid {
		if err := s.markSessionFailed(ctx, sessionID); err != nil {
			return nil, err
		}
		VerificationsTotal.WithLabelValues("unpaid").Inc()
		span.SetAttributes(attribute.Bool("session.paid", false))
		return nil, fmt.Errorf("%w: session is unpaid or expired", ErrVerification)
	}

	target, ok := tiers.Get(sess.TargetTierKey)
	if !ok {
		return nil, fmt.Errorf("%w: session targets unknown tier %q", ErrVerification, sess.TargetTierKey)
	}

	// Lifetime memberships carry no tracked expiry; everything else runs a
	// year from settlement.
	validUntil := s.now().AddDate(1, 0, 0).Format("2006-01-02")
	if target.Key == tiers.KeyLifetime {
		validUntil = ""
	}

	record, err := s.members.ApplyUpgrade(ctx, membership.Upgrade{
		MembershipID: sess.MembershipID,
		NewClass:     target.Key,
		ValidUntil:   validUntil,
		PaidAmount:   target.Fee,
		SessionID:    sessionID,
	})
	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		// A concurrent verifier won the version race. If it settled this very
		// session, hand back its outcome; otherwise the membership moved under
		// us and the member must restart from a fresh lookup.
		sess, rerr := s.getSession(ctx, sessionID)
		if rerr == nil && sess.Status == SessionVerified {
			VerificationsTotal.WithLabelValues("replayed").Inc()
			return s.verifiedResult(ctx, sess)
		}
		VerificationsTotal.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: membership changed concurrently", ErrVerification)
	}
	if err != nil {
		VerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	invoiceNumber := "INV-" + ulid.Make().String()
	query := `
		UPDATE payment_sessions
		SET status = $1, invoice_number = $2, updated_at = NOW()
		WHERE session_id = $3
	`
	if _, err := s.db.ExecContext(ctx, query, string(SessionVerified), invoiceNumber, sessionID); err != nil {
		return nil, fmt.Errorf("record verification: %w", err)
	}

	VerificationsTotal.WithLabelValues("verified").Inc()
	span.SetAttributes(attribute.Bool("session.paid", true))
	log.Info().
		Str("session_id", sessionID).
		Str("membership_id", sess.MembershipID).
		Str("new_class", target.Key).
		Str("invoice_number", invoiceNumber).
		Msg("payment session verified")

	return &VerificationResult{
		MembershipType: target.Key,
		ValidUntil:     validUntil,
		Amount:         sess.AmountDue,
		AmountDisplay:  sess.AmountDue.String(),
		User: VerificationUser{
			Name:     record.FullName(),
			Email:    record.Email,
			JoinDate: record.JoinDate,
		},
		InvoiceNumber: invoiceNumber,
	}, nil
}

// Invoice renders the invoice PDF for a verified session.
func (s *service) Invoice(ctx context.Context, sessionID string) (*InvoiceDocument, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != SessionVerified {
		return nil, fmt.Errorf("%w: invoice is only available for verified sessions", ErrVerification)
	}

	record, err := s.members.GetByMembershipID(ctx, sess.MembershipID)
	if err != nil {
		return nil, err
	}
	target, _ := tiers.Get(sess.TargetTierKey)

	pdf, err := renderInvoice(invoiceData{
		Number:      sess.InvoiceNumber,
		Date:        sess.UpdatedAt,
		MemberName:  record.FullName(),
		MemberEmail: record.Email,
		Description: fmt.Sprintf("ACNA %s membership (%s)", target.DisplayName, sess.PaymentType),
		Amount:      sess.AmountDue,
	})
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}

	// Download tracking is non-critical telemetry: losing an increment is an
	// acceptable tradeoff against blocking the download.
	s.recordDownload(ctx, sessionID)
	InvoiceDownloadsTotal.Inc()

	return &InvoiceDocument{Number: sess.InvoiceNumber, PDF: pdf}, nil
}

func (s *service) recordDownload(ctx context.Context, sessionID string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoice_downloads (session_id, downloaded_at) VALUES ($1, NOW())`, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("invoice download counter lost")
	}
}

func (s *service) markSessionFailed(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payment_sessions SET status = $1, updated_at = NOW() WHERE session_id = $2`,
		string(SessionFailed), sessionID)
	if err != nil {
		return fmt.Errorf("record session failure: %w", err)
	}
	return nil
}

// verifiedResult rebuilds the outcome of an already-verified session from
// durable state, so replayed verifications are byte-for-byte equivalent.
func (s *service) verifiedResult(ctx context.Context, sess *PaymentSession) (*VerificationResult, error) {
	record, err := s.members.GetByMembershipID(ctx, sess.MembershipID)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{
		MembershipType: record.MembershipClass,
		ValidUntil:     record.ValidUntil,
		Amount:         sess.AmountDue,
		AmountDisplay:  sess.AmountDue.String(),
		User: VerificationUser{
			Name:     record.FullName(),
			Email:    record.Email,
			JoinDate: record.JoinDate,
		},
		InvoiceNumber: sess.InvoiceNumber,
	}, nil
}

func (s *service) getSession(ctx context.Context, sessionID string) (*PaymentSession, error) {
	query := `
		SELECT session_id, payment_type, target_tier, amount_due, status, email,
		       user_id, membership_id, COALESCE(invoice_number, ''), created_at, updated_at
		FROM payment_sessions
		WHERE session_id = $1
	`
	sess := &PaymentSession{}
	var paymentType, status string
	var amount int64
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&sess.SessionID,
		&paymentType,
		&sess.TargetTierKey,
		&amount,
		&status,
		&sess.Email,
		&sess.UserID,
		&sess.MembershipID,
		&sess.InvoiceNumber,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	sess.PaymentType = PaymentType(paymentType)
	sess.AmountDue = tiers.Cents(amount)
	sess.Status = SessionStatus(status)
	return sess, nil
}

func (s *service) lockFor(membershipID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.verifyLocks[membershipID]
	if !ok {
		lock = &sync.Mutex{}
		s.verifyLocks[membershipID] = lock
	}
	return lock
}
