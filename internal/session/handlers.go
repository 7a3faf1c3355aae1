package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/Sallahudin001/proposal-engine/internal/common"
)

// Handler exposes the pricing session operations over HTTP.
type Handler struct {
	Mgr      *Manager
	Validate *validator.Validate
}

type toggleAddonPayload struct {
	ServiceKey string `json:"serviceKey" validate:"required"`
	AddonID    string `json:"addonId" validate:"required"`
	Selected   *bool  `json:"selected" validate:"required"`
}

type toggleUpsellPayload struct {
	UpsellID string `json:"upsellId" validate:"required"`
	Selected *bool  `json:"selected" validate:"required"`
}

type toggleOfferPayload struct {
	OfferID  string `json:"offerId" validate:"required"`
	Selected *bool  `json:"selected" validate:"required"`
}

// Open loads (or returns) the pricing session for a proposal and renders a
// full view: derived pricing, addon groups and the offer catalog.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"proposalId": s.ProposalID(),
			"pricing":    s.CurrentPricing(),
			"addons":     s.AddonGroups(),
			"catalog":    s.Catalog(),
			"timers":     s.Timers(),
		},
	})
}

// CloseSession tears down the session, stopping its countdown.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.Mgr.Close(chi.URLParam(r, "proposalID"))
	w.WriteHeader(http.StatusNoContent)
}

// Pricing returns the current derived (subtotal, total, monthlyPayment).
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s.CurrentPricing()})
}

// ToggleAddon flips an addon selection with optimistic pricing and rollback on
// persistence failure.
func (h *Handler) ToggleAddon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload toggleAddonPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := s.ToggleAddon(r.Context(), payload.ServiceKey, payload.AddonID, *payload.Selected); err != nil {
		if errors.Is(err, ErrPersistFailed) {
			// The optimistic update has been rolled back; tell the caller so
			// the failure is visible rather than silent.
			common.JSONError(w, http.StatusBadGateway, "PERSIST_FAILED",
				"addon selection could not be saved and was reverted", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "toggle failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s.CurrentPricing()})
}

// ToggleUpsell flips a lifestyle upsell selection.
func (h *Handler) ToggleUpsell(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload toggleUpsellPayload
	if !h.decode(w, r, &payload) {
		return
	}
	s.ToggleUpsell(payload.UpsellID, *payload.Selected)
	common.JSON(w, http.StatusOK, map[string]any{"data": s.CurrentPricing()})
}

// ToggleOffer flips a rep-selected special offer.
func (h *Handler) ToggleOffer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload toggleOfferPayload
	if !h.decode(w, r, &payload) {
		return
	}
	s.ToggleSpecialOffer(payload.OfferID, *payload.Selected)
	common.JSON(w, http.StatusOK, map[string]any{"data": s.CurrentPricing()})
}

// Timers returns display strings for every live offer countdown.
func (h *Handler) Timers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s.Timers()})
}

// Timer returns the display string for one offer countdown, 404 when the
// offer is untimed or already expired.
func (h *Handler) Timer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	display, ok := s.FormatTimer(chi.URLParam(r, "offerID"))
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "offer has no live timer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"display": display}})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	proposalID := chi.URLParam(r, "proposalID")
	if proposalID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "proposal id required", nil)
		return nil, false
	}
	s, err := h.Mgr.Open(r.Context(), proposalID)
	if err != nil {
		if errors.Is(err, ErrProposalNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "proposal not found", nil)
			return nil, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to open pricing session", nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return false
		}
	}
	return true
}
