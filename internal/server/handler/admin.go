package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arbstack/flasharb/internal/bridge"
	"github.com/arbstack/flasharb/internal/capital"
	"github.com/arbstack/flasharb/internal/domain"
	"github.com/arbstack/flasharb/internal/engine"
	"github.com/arbstack/flasharb/internal/venue"
)

// AdminHandler exposes the venue, provider, bridge, and token-allowlist
// controls. Every mutation takes effect on the next attempt; running attempts
// are not interrupted.
type AdminHandler struct {
	venues    *venue.Registry
	providers *capital.Registry
	bridges   *bridge.Registry
	validator *engine.Validator
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	venues *venue.Registry,
	providers *capital.Registry,
	bridges *bridge.Registry,
	validator *engine.Validator,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		venues:    venues,
		providers: providers,
		bridges:   bridges,
		validator: validator,
		logger:    logHandler(logger, "admin"),
	}
}

// ListVenues responds with all registered venues.
// GET /api/venues
func (h *AdminHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.venues.List())
}

// SetVenueEnabled flips one venue's enabled flag.
// PUT /api/venues/{id}/enabled
func (h *AdminHandler) SetVenueEnabled(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, func(enabled bool) error {
		return h.venues.SetEnabled(r.PathValue("id"), enabled)
	})
}

// ListProviders responds with all registered capital providers.
// GET /api/providers
func (h *AdminHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.providers.List())
}

// SetProviderEnabled flips one provider's enabled flag.
// PUT /api/providers/{id}/enabled
func (h *AdminHandler) SetProviderEnabled(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, func(enabled bool) error {
		return h.providers.SetEnabled(r.PathValue("id"), enabled)
	})
}

// ListBridges responds with all registered bridges.
// GET /api/bridges
func (h *AdminHandler) ListBridges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bridges.List())
}

// SetBridgeEnabled flips one bridge's enabled flag, keyed by network pair.
// PUT /api/bridges/{from}/{to}/enabled
func (h *AdminHandler) SetBridgeEnabled(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, func(enabled bool) error {
		return h.bridges.SetEnabled(r.PathValue("from"), r.PathValue("to"), enabled)
	})
}

// ListTokens responds with the current token allowlist.
// GET /api/tokens
func (h *AdminHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.validator.AllowedTokens())
}

// AllowToken adds a token to the allowlist.
// POST /api/tokens/{token}
func (h *AdminHandler) AllowToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	h.validator.AllowToken(token)
	h.logger.Info("token allowed", slog.String("token", token))
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// DenyToken removes a token from the allowlist.
// DELETE /api/tokens/{token}
func (h *AdminHandler) DenyToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	h.validator.DenyToken(token)
	h.logger.Info("token denied", slog.String("token", token))
	w.WriteHeader(http.StatusNoContent)
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *AdminHandler) setEnabled(w http.ResponseWriter, r *http.Request, apply func(bool) error) {
	var body enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := apply(body.Enabled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not registered")
			return
		}
		h.logger.Error("set enabled", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, body)
}
