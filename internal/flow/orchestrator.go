// internal/flow/orchestrator.go

// Package flow drives one payment attempt from the consumer side: request a
// checkout session, hand off to the hosted page, resume on return, and verify.
// The orchestrator is per-attempt view state; the durable record of the
// attempt lives with the backend.
package flow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lewismosage/acna-sub005/internal/payments"
)

// State is where a payment attempt currently stands. Transitions only move
// forward; a failed attempt is abandoned and a new orchestrator started.
type State string

const (
	StateIdle                State = "idle"
	StateRequested           State = "requested"
	StateRedirected          State = "redirected"
	StateVerificationPending State = "verification_pending"
	StateVerified            State = "verified"
	StateFailed              State = "failed"
)

var (
	ErrInvalidTransition = errors.New("operation not valid in current payment state")
	ErrNoSessionFound    = errors.New("no session found on return from checkout")
)

// Backend is the payment surface the orchestrator talks to, either in-process
// or over HTTP via the API client.
type Backend interface {
	CreateCheckoutSession(ctx context.Context, req payments.CreateSessionRequest) (*payments.CreateSessionResponse, error)
	VerifyPayment(ctx context.Context, sessionID string) (*payments.VerificationResult, error)
}

// Orchestrator tracks a single payment attempt. Safe for concurrent use,
// though an attempt is normally driven by one goroutine.
type Orchestrator struct {
	backend Backend

	mu          sync.Mutex
	state       State
	sessionID   string
	checkoutURL string
	result      *payments.VerificationResult
}

func New(backend Backend) *Orchestrator {
	return &Orchestrator{backend: backend, state: StateIdle}
}

// State returns the attempt's current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SessionID returns the provider-issued identifier once a session exists.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Start validates the request and opens a checkout session. Validation runs
// in full before any network call; a validation failure leaves the attempt
// idle so the caller can correct the request and start again.
func (o *Orchestrator) Start(ctx context.Context, req payments.CreateSessionRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, o.state)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	resp, err := o.backend.CreateCheckoutSession(ctx, req)
	if err != nil {
		o.state = StateFailed
		return err
	}

	o.state = StateRequested
	o.sessionID = resp.SessionID
	o.checkoutURL = resp.CheckoutURL
	log.Debug().Str("session_id", resp.SessionID).Msg("payment attempt started")
	return nil
}

// Redirect hands back the hosted checkout URL and marks the attempt as having
// left for the provider's page.
func (o *Orchestrator) Redirect() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateRequested {
		return "", fmt.Errorf("%w: redirect from %s", ErrInvalidTransition, o.state)
	}
	o.state = StateRedirected
	return o.checkoutURL, nil
}

// Resume picks the attempt back up from the provider's return redirect. The
// session identifier must come back in the query and match the one this
// attempt opened; anything else fails the attempt.
func (o *Orchestrator) Resume(query url.Values) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateRedirected {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, o.state)
	}

	sessionID := query.Get("session_id")
	if sessionID == "" {
		o.state = StateFailed
		return ErrNoSessionFound
	}
	if sessionID != o.sessionID {
		o.state = StateFailed
		return fmt.Errorf("%w: returned session does not match this attempt", ErrNoSessionFound)
	}

	o.state = StateVerificationPending
	return nil
}

// Verify asks the backend to confirm settlement. On a verified attempt it
// returns the cached result without another backend call.
func (o *Orchestrator) Verify(ctx context.Context) (*payments.VerificationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateVerified {
		return o.result, nil
	}
	if o.state != StateVerificationPending {
		return nil, fmt.Errorf("%w: verify from %s", ErrInvalidTransition, o.state)
	}

	result, err := o.backend.VerifyPayment(ctx, o.sessionID)
	if err != nil {
		o.state = StateFailed
		return nil, err
	}

	o.state = StateVerified
	o.result = result
	log.Debug().Str("session_id", o.sessionID).Msg("payment attempt verified")
	return result, nil
}

// Result returns the verification outcome, or nil before the attempt settles.
func (o *Orchestrator) Result() *payments.VerificationResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}
