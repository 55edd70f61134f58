package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecoroute/internal/request"
)

// RequestService is the request surface used by the HTTP layer.
// *request.Manager satisfies it.
type RequestService interface {
	List(ctx context.Context, kind request.Kind) ([]*request.IntakeRequest, error)
	ListByOwner(ctx context.Context, kind request.Kind, ownerID uuid.UUID) ([]*request.IntakeRequest, error)
	Complete(ctx context.Context, kind request.Kind, id uuid.UUID) (*request.IntakeRequest, error)
}

// AdminRequestsHandler handles administrator review of requests.
type AdminRequestsHandler struct {
	requests RequestService
}

// NewAdminRequestsHandler creates a new admin requests handler.
func NewAdminRequestsHandler(requests RequestService) *AdminRequestsHandler {
	return &AdminRequestsHandler{requests: requests}
}

// requestResponse is the JSON response for an intake request.
type requestResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	OwnerID       string  `json:"owner_id"`
	OwnerUsername string  `json:"owner_username,omitempty"`
	Description   string  `json:"description"`
	Location      string  `json:"location"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	CompletedAt   string  `json:"completed_at,omitempty"`
}

func toRequestResponse(req *request.IntakeRequest) requestResponse {
	resp := requestResponse{
		ID:            req.ID.String(),
		Kind:          string(req.Kind),
		OwnerID:       req.OwnerID.String(),
		OwnerUsername: req.OwnerUsername,
		Description:   req.Description,
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Status:        string(req.Status),
		CreatedAt:     req.CreatedAt.UTC().Format(time.RFC3339),
	}
	if req.CompletedAt != nil {
		resp.CompletedAt = req.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toRequestResponses(reqs []*request.IntakeRequest) []requestResponse {
	out := make([]requestResponse, len(reqs))
	for i, req := range reqs {
		out[i] = toRequestResponse(req)
	}
	return out
}

// List handles GET /admin/requests/{kind}
func (h *AdminRequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, err := request.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown request kind")
		return
	}

	reqs, err := h.requests.List(r.Context(), kind)
	if err != nil {
		zap.L().Error("failed to list requests", zap.String("kind", string(kind)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requests": toRequestResponses(reqs),
		"count":    len(reqs),
	})
}

// Complete handles POST /admin/requests/{kind}/{id}/complete
func (h *AdminRequestsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	kind, err := request.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown request kind")
		return
	}

	id, err := parseRequestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}

	req, err := h.requests.Complete(r.Context(), kind, id)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		zap.L().Error("failed to complete request", zap.String("request_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to complete request")
		return
	}

	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

// parseRequestID extracts the request ID from the URL path.
func parseRequestID(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		return uuid.Nil, errors.New("missing request ID")
	}
	return uuid.Parse(idStr)
}
