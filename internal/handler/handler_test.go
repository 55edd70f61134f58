package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"ecoroute/internal/identity"
	"ecoroute/internal/jwtauth"
	"ecoroute/internal/request"
	"ecoroute/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeIdentities implements IdentityService and session.IdentityLookup.
type fakeIdentities struct {
	byKey    map[string]*identity.Identity
	password map[string]string
	passkey  string
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{
		byKey:    map[string]*identity.Identity{},
		password: map[string]string{},
		passkey:  "letmein",
	}
}

func (f *fakeIdentities) add(ident *identity.Identity, password string) {
	key := string(ident.Role) + ":" + ident.Email
	f.byKey[key] = ident
	f.password[key] = password
}

func (f *fakeIdentities) create(input identity.CreateInput, role identity.Role) (*identity.Identity, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, identity.ErrInvalidInput
	}
	if len(input.Password) < 8 {
		return nil, identity.ErrWeakPassword
	}
	if len(input.Password) > 72 {
		return nil, identity.ErrPasswordTooLong
	}
	if _, ok := f.byKey[string(role)+":"+input.Email]; ok {
		return nil, identity.ErrEmailTaken
	}
	ident := &identity.Identity{
		ID:        uuid.New(),
		Username:  input.Username,
		Email:     input.Email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	f.add(ident, input.Password)
	return ident, nil
}

func (f *fakeIdentities) authenticate(email, password string, role identity.Role) (*identity.Identity, error) {
	key := string(role) + ":" + email
	ident, ok := f.byKey[key]
	if !ok || f.password[key] != password {
		return nil, identity.ErrInvalidCredentials
	}
	return ident, nil
}

func (f *fakeIdentities) CreateReporter(_ context.Context, input identity.CreateInput) (*identity.Identity, error) {
	return f.create(input, identity.RoleReporter)
}

func (f *fakeIdentities) CreateAdministrator(_ context.Context, input identity.CreateInput, passkey string) (*identity.Identity, error) {
	if passkey != f.passkey {
		return nil, identity.ErrInvalidPasskey
	}
	return f.create(input, identity.RoleAdministrator)
}

func (f *fakeIdentities) AuthenticateReporter(_ context.Context, email, password string) (*identity.Identity, error) {
	return f.authenticate(email, password, identity.RoleReporter)
}

func (f *fakeIdentities) AuthenticateAdministrator(_ context.Context, email, password, passkey string) (*identity.Identity, error) {
	if passkey != f.passkey {
		return nil, identity.ErrInvalidPasskey
	}
	return f.authenticate(email, password, identity.RoleAdministrator)
}

func (f *fakeIdentities) Profile(_ context.Context, id uuid.UUID) (*identity.Identity, error) {
	for _, ident := range f.byKey {
		if ident.ID == id {
			return ident, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string, role identity.Role) (*identity.Identity, error) {
	ident, ok := f.byKey[string(role)+":"+email]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return ident, nil
}

// fakeRequests implements RequestService.
type fakeRequests struct {
	byOwner map[request.Kind][]*request.IntakeRequest
}

func (f *fakeRequests) List(_ context.Context, kind request.Kind) ([]*request.IntakeRequest, error) {
	return f.byOwner[kind], nil
}

func (f *fakeRequests) ListByOwner(_ context.Context, kind request.Kind, ownerID uuid.UUID) ([]*request.IntakeRequest, error) {
	var out []*request.IntakeRequest
	for _, req := range f.byOwner[kind] {
		if req.OwnerID == ownerID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRequests) Complete(_ context.Context, _ request.Kind, _ uuid.UUID) (*request.IntakeRequest, error) {
	return nil, request.ErrNotFound
}

type testEnv struct {
	codec      *jwtauth.Codec
	identities *fakeIdentities
	router     http.Handler
}

func newTestEnv(t *testing.T, deps Deps) *testEnv {
	t.Helper()
	codec, err := jwtauth.NewCodec(jwtauth.Config{Secret: testSecret, TTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	identities := newFakeIdentities()

	deps.Tokens = codec
	deps.Identities = identities
	deps.Gate = session.NewGate(codec, identities)
	if deps.Requests == nil {
		deps.Requests = &fakeRequests{}
	}
	return &testEnv{codec: codec, identities: identities, router: NewRouter(deps)}
}

// reporter registers a reporter and returns it with a signed token.
func (e *testEnv) reporter(t *testing.T, username string) (*identity.Identity, string) {
	t.Helper()
	ident := &identity.Identity{ID: uuid.New(), Username: username, Email: username + "@example.com", Role: identity.RoleReporter}
	e.identities.add(ident, "password123")
	return ident, e.sign(t, ident)
}

// administrator registers an administrator and returns it with a signed token.
func (e *testEnv) administrator(t *testing.T) (*identity.Identity, string) {
	t.Helper()
	ident := &identity.Identity{ID: uuid.New(), Username: "root", Email: "root@example.com", Role: identity.RoleAdministrator}
	e.identities.add(ident, "password123")
	return ident, e.sign(t, ident)
}

func (e *testEnv) sign(t *testing.T, ident *identity.Identity) string {
	t.Helper()
	token, err := e.codec.Sign(ident.ID.String(), ident.Email, string(ident.Role))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCookie(req *http.Request, name, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: name, Value: token})
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// errorResponse mirrors the body written by writeError.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	return resp.Error.Message
}
