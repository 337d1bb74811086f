// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lewismosage/acna-sub005/internal/tiers"
)

type Handler struct {
	service Service
	now     func() time.Time
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// UpgradeOption is one eligible upgrade with its prorated cost. CostDisplay is
// the only place cents are rendered as a decimal string.
type UpgradeOption struct {
	Tier        tiers.TierDefinition `json:"tier"`
	Cost        tiers.Cents          `json:"cost"`
	CostDisplay string               `json:"cost_display"`
}

// SearchResponse is the envelope the portal renders after a lookup: the
// record snapshot, its derived status, and the upgrade choices in catalog
// order.
type SearchResponse struct {
	Record           *Record         `json:"record"`
	Status           Status          `json:"status"`
	EligibleUpgrades []UpgradeOption `json:"eligible_upgrades"`
}

// HandleSearch serves POST /membership-search.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var q SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.IsEmpty() {
		writeError(w, http.StatusBadRequest, "at least one search field is required")
		return
	}

	record, err := h.service.Search(r.Context(), q)
	if err != nil {
		writeError(w, searchStatusCode(err), err.Error())
		return
	}

	resp := SearchResponse{
		Record:           record,
		Status:           record.Status(h.now()),
		EligibleUpgrades: upgradeOptions(record),
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTiers serves GET /tiers: the ordered catalog, optionally annotated
// with eligibility for a given membership.
func (h *Handler) HandleTiers(w http.ResponseWriter, r *http.Request) {
	membershipID := r.URL.Query().Get("membership_id")
	if membershipID == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"tiers": tiers.Catalog})
		return
	}

	record, err := h.service.GetByMembershipID(r.Context(), membershipID)
	if err != nil {
		writeError(w, searchStatusCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tiers":             tiers.Catalog,
		"eligible_upgrades": upgradeOptions(record),
	})
}

func upgradeOptions(record *Record) []UpgradeOption {
	eligible := tiers.EligibleUpgrades(record.MembershipClass, record.PaidAmount)
	options := make([]UpgradeOption, 0, len(eligible))
	for _, t := range eligible {
		cost, err := tiers.UpgradeCost(t, record.MembershipClass, record.PaidAmount)
		if err != nil {
			// EligibleUpgrades guarantees the precondition; a failure here is
			// an internal-consistency fault worth logging, not showing.
			log.Error().Err(err).Str("tier", t.Key).Msg("eligible tier rejected by price calculator")
			continue
		}
		options = append(options, UpgradeOption{Tier: t, Cost: cost, CostDisplay: cost.String()})
	}
	return options
}

func searchStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRecordAmbiguous):
		return http.StatusConflict
	case errors.Is(err, ErrIncompleteRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("membership: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
