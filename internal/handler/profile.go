package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ecoroute/internal/identity"
	"ecoroute/internal/request"
	"ecoroute/internal/session"
)

// ProfileHandler serves the signed-in identity's own view.
type ProfileHandler struct {
	identities IdentityService
	requests   RequestService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(identities IdentityService, requests RequestService) *ProfileHandler {
	return &ProfileHandler{identities: identities, requests: requests}
}

// Me handles GET /reporters/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.identities.Profile(r.Context(), ident.ID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reporter not found")
			return
		}
		zap.L().Error("failed to load profile", zap.String("identity_id", ident.ID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	garbage, err := h.requests.ListByOwner(r.Context(), request.KindGarbage, ident.ID)
	if err != nil {
		zap.L().Error("failed to list garbage requests", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	recyclable, err := h.requests.ListByOwner(r.Context(), request.KindRecyclable, ident.ID)
	if err != nil {
		zap.L().Error("failed to list recyclable requests", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identity":               toIdentityResponse(profile),
		"garbage_request_ids":    profile.GarbageRequests,
		"recyclable_request_ids": profile.RecyclableRequests,
		"garbage_requests":       toRequestResponses(garbage),
		"recyclable_requests":    toRequestResponses(recyclable),
	})
}

// AdminMe handles GET /admin/me
func (h *ProfileHandler) AdminMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	admin, err := h.identities.Profile(r.Context(), ident.ID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, http.StatusNotFound, "administrator not found")
			return
		}
		zap.L().Error("failed to load administrator", zap.String("identity_id", ident.ID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if admin.Role != identity.RoleAdministrator {
		writeError(w, http.StatusNotFound, "administrator not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"identity": toIdentityResponse(admin)})
}
