package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecoroute/internal/identity"
	"ecoroute/internal/session"
)

var errTrailingData = errors.New("unexpected data after JSON body")

// IdentityService is the identity surface used by the HTTP layer.
// *identity.Manager satisfies it.
type IdentityService interface {
	CreateReporter(ctx context.Context, input identity.CreateInput) (*identity.Identity, error)
	CreateAdministrator(ctx context.Context, input identity.CreateInput, passkey string) (*identity.Identity, error)
	AuthenticateReporter(ctx context.Context, email, password string) (*identity.Identity, error)
	AuthenticateAdministrator(ctx context.Context, email, password, passkey string) (*identity.Identity, error)
	Profile(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
}

// TokenSigner issues session tokens. *jwtauth.Codec satisfies it.
type TokenSigner interface {
	Sign(subject, email, role string) (string, error)
	TTL() time.Duration
}

// SessionsHandler handles registration, login and logout.
type SessionsHandler struct {
	identities IdentityService
	tokens     TokenSigner
	gate       *session.Gate
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(identities IdentityService, tokens TokenSigner, gate *session.Gate) *SessionsHandler {
	return &SessionsHandler{identities: identities, tokens: tokens, gate: gate}
}

// createReporterRequest is the JSON request for POST /reporters.
type createReporterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createAdminRequest is the JSON request for POST /admin.
type createAdminRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Passkey  string `json:"passkey"`
}

// loginRequest is the JSON request for POST /reporters/login and POST /admin/login.
// Passkey is required for administrators only.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Passkey  string `json:"passkey,omitempty"`
}

// identityResponse is the JSON response for an identity. The hash is never exposed.
type identityResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toIdentityResponse(i *identity.Identity) identityResponse {
	resp := identityResponse{
		ID:       i.ID.String(),
		Username: i.Username,
		Email:    i.Email,
		Role:     string(i.Role),
	}
	if !i.CreatedAt.IsZero() {
		resp.CreatedAt = i.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// CreateReporter handles POST /reporters
func (h *SessionsHandler) CreateReporter(w http.ResponseWriter, r *http.Request) {
	var req createReporterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.identities.CreateReporter(r.Context(), identity.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeIdentityError(w, err, "failed to create reporter")
		return
	}

	h.startSession(w, session.KindReporter, ident, http.StatusCreated)
}

// LoginReporter handles POST /reporters/login
func (h *SessionsHandler) LoginReporter(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.identities.AuthenticateReporter(r.Context(), req.Email, req.Password)
	if err != nil {
		writeIdentityError(w, err, "failed to log in")
		return
	}

	h.startSession(w, session.KindReporter, ident, http.StatusOK)
}

// CreateAdministrator handles POST /admin
func (h *SessionsHandler) CreateAdministrator(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.identities.CreateAdministrator(r.Context(), identity.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, req.Passkey)
	if err != nil {
		writeIdentityError(w, err, "failed to create administrator")
		return
	}

	h.startSession(w, session.KindAdministrator, ident, http.StatusCreated)
}

// LoginAdministrator handles POST /admin/login
func (h *SessionsHandler) LoginAdministrator(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ident, err := h.identities.AuthenticateAdministrator(r.Context(), req.Email, req.Password, req.Passkey)
	if err != nil {
		writeIdentityError(w, err, "failed to log in")
		return
	}

	h.startSession(w, session.KindAdministrator, ident, http.StatusOK)
}

// Logout handles GET /logout. Both session cookies are cleared.
func (h *SessionsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.gate.ClearCookie(w, session.KindReporter)
	h.gate.ClearCookie(w, session.KindAdministrator)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *SessionsHandler) startSession(w http.ResponseWriter, kind session.Kind, ident *identity.Identity, status int) {
	token, err := h.tokens.Sign(ident.ID.String(), ident.Email, string(ident.Role))
	if err != nil {
		zap.L().Error("failed to sign session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	h.gate.SetCookie(w, kind, token, h.tokens.TTL())
	writeJSON(w, status, map[string]any{
		"identity": toIdentityResponse(ident),
		"token":    token,
	})
}

// writeIdentityError maps identity errors to responses. Credential failures
// never say whether the email or the password was wrong.
func writeIdentityError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, identity.ErrInvalidPasskey):
		writeError(w, http.StatusUnauthorized, "invalid passkey")
	default:
		zap.L().Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
