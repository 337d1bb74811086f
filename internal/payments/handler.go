// internal/payments/handler.go
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lewismosage/acna-sub005/internal/membership"
	"github.com/lewismosage/acna-sub005/internal/tiers"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ErrorBody is the wire shape of a payment error. Code lets clients map the
// failure back to the error taxonomy without matching message strings.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HandleCreateSession serves POST /create-checkout-session.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	resp, err := h.service.CreateSession(r.Context(), req)
	if err != nil {
		status, code := createStatusCode(err)
		writeErr(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleVerifyPayment serves GET /verify-payment?session_id=…
func (h *Handler) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeErr(w, http.StatusBadRequest, CodeValidation, "session_id is required")
		return
	}

	result, err := h.service.VerifySession(r.Context(), sessionID)
	if err != nil {
		status, code := verifyStatusCode(err)
		writeErr(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleDownloadInvoice serves GET /download-invoice?session_id=…
func (h *Handler) HandleDownloadInvoice(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeErr(w, http.StatusBadRequest, CodeValidation, "session_id is required")
		return
	}

	doc, err := h.service.Invoice(r.Context(), sessionID)
	if err != nil {
		status, code := verifyStatusCode(err)
		writeErr(w, status, code, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice-"+doc.Number+".pdf"))
	if _, err := w.Write(doc.PDF); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("payments: write invoice")
	}
}

func createStatusCode(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingMembershipType):
		return http.StatusBadRequest, CodeMissingMembershipType
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, tiers.ErrUnknownTier):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, membership.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, tiers.ErrInvalidUpgrade):
		// Eligible tiers never reach here; this is an internal-consistency
		// fault, not a member-facing condition.
		return http.StatusInternalServerError, CodeInvalidUpgrade
	case errors.Is(err, ErrSessionCreation):
		return http.StatusBadGateway, CodeSessionCreation
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func verifyStatusCode(err error) (int, string) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, membership.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrVerification):
		return http.StatusPaymentRequired, CodeVerification
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("payments: encode response")
	}
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorBody{Error: msg, Code: code})
}
