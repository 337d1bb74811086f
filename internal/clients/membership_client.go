// internal/clients/membership_client.go

// Package clients holds HTTP clients for the portal's backend surfaces. The
// flow orchestrator drives a payment attempt through MembershipClient, which
// maps wire errors back onto the domain sentinels so callers branch on
// errors.Is rather than status codes.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lewismosage/acna-sub005/internal/membership"
	"github.com/lewismosage/acna-sub005/internal/payments"
	"github.com/lewismosage/acna-sub005/internal/tiers"
)

type MembershipClient struct {
	baseURL string
	http    *http.Client
}

func NewMembershipClient(baseURL string) *MembershipClient {
	return &MembershipClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SearchRecord resolves a partial identity to one record with its derived
// status and upgrade options.
func (c *MembershipClient) SearchRecord(ctx context.Context, q membership.SearchQuery) (*membership.SearchResponse, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/membership-search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, searchError(resp)
	}

	var result membership.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TiersResponse is the catalog listing, with upgrade options when the request
// named a membership.
type TiersResponse struct {
	Tiers            []tiers.TierDefinition     `json:"tiers"`
	EligibleUpgrades []membership.UpgradeOption `json:"eligible_upgrades,omitempty"`
}

// ListTiers fetches the ordered tier catalog. A non-empty membershipID also
// returns that member's eligible upgrades.
func (c *MembershipClient) ListTiers(ctx context.Context, membershipID string) (*TiersResponse, error) {
	endpoint := c.baseURL + "/tiers"
	if membershipID != "" {
		endpoint += "?membership_id=" + url.QueryEscape(membershipID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, searchError(resp)
	}

	var result TiersResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateCheckoutSession opens a hosted checkout session for a validated
// request.
func (c *MembershipClient) CreateCheckoutSession(ctx context.Context, r payments.CreateSessionRequest) (*payments.CreateSessionResponse, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-checkout-session", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, paymentError(resp)
	}

	var result payments.CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyPayment confirms a session settled. Safe to call repeatedly for the
// same session.
func (c *MembershipClient) VerifyPayment(ctx context.Context, sessionID string) (*payments.VerificationResult, error) {
	endpoint := c.baseURL + "/verify-payment?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, paymentError(resp)
	}

	var result payments.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadInvoice fetches the invoice PDF for a verified session.
func (c *MembershipClient) DownloadInvoice(ctx context.Context, sessionID string) ([]byte, error) {
	endpoint := c.baseURL + "/download-invoice?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, paymentError(resp)
	}
	return io.ReadAll(resp.Body)
}

// searchError maps a membership surface error response back to the domain
// sentinels.
func searchError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return membership.ErrNotFound
	case http.StatusConflict:
		return membership.ErrRecordAmbiguous
	case http.StatusUnprocessableEntity:
		return membership.ErrIncompleteRecord
	case http.StatusTooManyRequests:
		return membership.ErrRateLimited
	}
	return fmt.Errorf("membership request failed with status %d: %s", resp.StatusCode, body.Error)
}

// paymentError maps a payment surface error response back to the domain
// sentinels via its wire code.
func paymentError(resp *http.Response) error {
	var body payments.ErrorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch body.Code {
	case payments.CodeMissingMembershipType:
		return payments.ErrMissingMembershipType
	case payments.CodeValidation:
		return fmt.Errorf("%w: %s", payments.ErrInvalidRequest, body.Error)
	case payments.CodeNotFound:
		if resp.Request != nil && resp.Request.URL.Path == "/create-checkout-session" {
			return membership.ErrNotFound
		}
		return fmt.Errorf("%w: %s", payments.ErrSessionNotFound, body.Error)
	case payments.CodeSessionCreation:
		return fmt.Errorf("%w: %s", payments.ErrSessionCreation, body.Error)
	case payments.CodeVerification:
		return fmt.Errorf("%w: %s", payments.ErrVerification, body.Error)
	}
	return fmt.Errorf("payment request failed with status %d: %s", resp.StatusCode, body.Error)
}
