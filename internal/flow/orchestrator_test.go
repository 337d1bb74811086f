// internal/flow/orchestrator_test.go
package flow

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewismosage/acna-sub005/internal/payments"
	"github.com/lewismosage/acna-sub005/internal/tiers"
)

type scriptedBackend struct {
	createResp  *payments.CreateSessionResponse
	createErr   error
	verifyResp  *payments.VerificationResult
	verifyErr   error
	createCalls int
	verifyCalls int
}

func (b *scriptedBackend) CreateCheckoutSession(ctx context.Context, req payments.CreateSessionRequest) (*payments.CreateSessionResponse, error) {
	b.createCalls++
	return b.createResp, b.createErr
}

func (b *scriptedBackend) VerifyPayment(ctx context.Context, sessionID string) (*payments.VerificationResult, error) {
	b.verifyCalls++
	return b.verifyResp, b.verifyErr
}

func upgradeRequest() payments.CreateSessionRequest {
	return payments.CreateSessionRequest{
		SchemaVersion:  payments.CreateSessionSchemaVersion,
		PaymentType:    payments.PaymentUpgrade,
		MembershipType: tiers.KeyInstitutional,
		Email:          "amara.okafor@example.org",
		MembershipID:   "ACNA-0042",
	}
}

func happyBackend() *scriptedBackend {
	return &scriptedBackend{
		createResp: &payments.CreateSessionResponse{
			SessionID:   "cs_test_123",
			CheckoutURL: "https://checkout.example.com/cs_test_123",
		},
		verifyResp: &payments.VerificationResult{
			MembershipType: tiers.KeyInstitutional,
			ValidUntil:     "2027-03-15",
			Amount:         26000,
			AmountDisplay:  "260.00",
			InvoiceNumber:  "INV-01HXYZ",
		},
	}
}

func TestOrchestratorHappyPath(t *testing.T) {
	backend := happyBackend()
	o := New(backend)
	ctx := context.Background()

	require.Equal(t, StateIdle, o.State())
	require.NoError(t, o.Start(ctx, upgradeRequest()))
	require.Equal(t, StateRequested, o.State())
	assert.Equal(t, "cs_test_123", o.SessionID())

	checkoutURL, err := o.Redirect()
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/cs_test_123", checkoutURL)
	require.Equal(t, StateRedirected, o.State())

	require.NoError(t, o.Resume(url.Values{"session_id": {"cs_test_123"}}))
	require.Equal(t, StateVerificationPending, o.State())

	result, err := o.Verify(ctx)
	require.NoError(t, err)
	require.Equal(t, StateVerified, o.State())
	assert.Equal(t, "INV-01HXYZ", result.InvoiceNumber)
}

func TestOrchestratorValidationFailureStaysIdle(t *testing.T) {
	backend := happyBackend()
	o := New(backend)

	req := upgradeRequest()
	req.MembershipType = ""
	err := o.Start(context.Background(), req)
	require.ErrorIs(t, err, payments.ErrMissingMembershipType)

	// No network call was made and the attempt can be restarted with a
	// corrected request.
	assert.Equal(t, 0, backend.createCalls)
	assert.Equal(t, StateIdle, o.State())
	require.NoError(t, o.Start(context.Background(), upgradeRequest()))
}

func TestOrchestratorResumeWithoutSessionFails(t *testing.T) {
	cases := []struct {
		name  string
		query url.Values
	}{
		{"missing session_id", url.Values{}},
		{"mismatched session_id", url.Values{"session_id": {"cs_other_999"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := New(happyBackend())
			ctx := context.Background()
			require.NoError(t, o.Start(ctx, upgradeRequest()))
			_, err := o.Redirect()
			require.NoError(t, err)

			err = o.Resume(tc.query)
			require.ErrorIs(t, err, ErrNoSessionFound)
			assert.Equal(t, StateFailed, o.State())

			// A failed attempt is terminal.
			_, err = o.Verify(ctx)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestOrchestratorTransitionGuards(t *testing.T) {
	backend := happyBackend()
	ctx := context.Background()

	t.Run("redirect before start", func(t *testing.T) {
		o := New(backend)
		_, err := o.Redirect()
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("resume before redirect", func(t *testing.T) {
		o := New(backend)
		require.NoError(t, o.Start(ctx, upgradeRequest()))
		err := o.Resume(url.Values{"session_id": {"cs_test_123"}})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("verify before resume", func(t *testing.T) {
		o := New(backend)
		require.NoError(t, o.Start(ctx, upgradeRequest()))
		_, err := o.Verify(ctx)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("second start rejected", func(t *testing.T) {
		o := New(backend)
		require.NoError(t, o.Start(ctx, upgradeRequest()))
		err := o.Start(ctx, upgradeRequest())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestOrchestratorVerifyIsIdempotent(t *testing.T) {
	backend := happyBackend()
	o := New(backend)
	ctx := context.Background()

	require.NoError(t, o.Start(ctx, upgradeRequest()))
	_, err := o.Redirect()
	require.NoError(t, err)
	require.NoError(t, o.Resume(url.Values{"session_id": {"cs_test_123"}}))

	first, err := o.Verify(ctx)
	require.NoError(t, err)
	second, err := o.Verify(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, backend.verifyCalls)
}

func TestOrchestratorVerifyFailure(t *testing.T) {
	backend := happyBackend()
	backend.verifyErr = errors.New("session is unpaid or expired")
	o := New(backend)
	ctx := context.Background()

	require.NoError(t, o.Start(ctx, upgradeRequest()))
	_, err := o.Redirect()
	require.NoError(t, err)
	require.NoError(t, o.Resume(url.Values{"session_id": {"cs_test_123"}}))

	_, err = o.Verify(ctx)
	require.Error(t, err)
	assert.Equal(t, StateFailed, o.State())
	assert.Nil(t, o.Result())
}
