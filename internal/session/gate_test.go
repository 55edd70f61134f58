package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"ecoroute/internal/identity"
	"ecoroute/internal/jwtauth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// mockIdentities implements IdentityLookup for testing.
type mockIdentities struct {
	identities map[string]*identity.Identity
	err        error
	calls      int
}

func (m *mockIdentities) GetByEmail(_ context.Context, email string, role identity.Role) (*identity.Identity, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	ident, ok := m.identities[string(role)+":"+email]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return ident, nil
}

func newCodec(t *testing.T) *jwtauth.Codec {
	t.Helper()
	codec, err := jwtauth.NewCodec(jwtauth.Config{Secret: testSecret, TTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec
}

func sign(t *testing.T, codec *jwtauth.Codec, ident *identity.Identity) string {
	t.Helper()
	token, err := codec.Sign(ident.ID.String(), ident.Email, string(ident.Role))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return token
}

var (
	ana = &identity.Identity{ID: uuid.New(), Username: "ana", Email: "ana@example.com", Role: identity.RoleReporter}
	eve = &identity.Identity{ID: uuid.New(), Username: "eve", Email: "eve@example.com", Role: identity.RoleAdministrator}
)

func newStore() *mockIdentities {
	return &mockIdentities{identities: map[string]*identity.Identity{
		"reporter:ana@example.com":      ana,
		"administrator:eve@example.com": eve,
	}}
}

func TestAuthorize_Reporter(t *testing.T) {
	codec := newCodec(t)
	store := newStore()
	gate := NewGate(codec, store)

	got, err := gate.Authorize(context.Background(), KindReporter, sign(t, codec, ana))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Username != "ana" {
		t.Errorf("expected ana, got %q", got.Username)
	}
	if store.calls != 1 {
		t.Errorf("expected one store lookup, got %d", store.calls)
	}
}

func TestAuthorize_ReporterDeleted(t *testing.T) {
	codec := newCodec(t)
	gone := &identity.Identity{ID: uuid.New(), Email: "gone@example.com", Role: identity.RoleReporter}
	gate := NewGate(codec, newStore())

	_, err := gate.Authorize(context.Background(), KindReporter, sign(t, codec, gone))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorize_StoreErrorIsUnauthenticated(t *testing.T) {
	codec := newCodec(t)
	store := newStore()
	store.err = errors.New("connection refused")
	gate := NewGate(codec, store)

	_, err := gate.Authorize(context.Background(), KindReporter, sign(t, codec, ana))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorize_Rejections(t *testing.T) {
	codec := newCodec(t)
	other, err := jwtauth.NewCodec(jwtauth.Config{Secret: strings.Repeat("z", 32), TTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	tests := []struct {
		name  string
		kind  Kind
		token string
	}{
		{"empty token", KindReporter, ""},
		{"garbage token", KindReporter, "not.a.jwt"},
		{"foreign signature", KindReporter, sign(t, other, ana)},
		{"admin token on reporter gate", KindReporter, sign(t, codec, eve)},
		{"reporter token on admin gate", KindAdministrator, sign(t, codec, ana)},
		{"unknown kind", Kind("janitor"), sign(t, codec, ana)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(codec, newStore())
			_, err := gate.Authorize(context.Background(), tt.kind, tt.token)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestAuthorize_AdministratorStateless(t *testing.T) {
	codec := newCodec(t)
	store := newStore()
	gate := NewGate(codec, store)

	// The identity is absent from the store, yet the signature alone is accepted.
	ghost := &identity.Identity{ID: uuid.New(), Email: "ghost@example.com", Role: identity.RoleAdministrator}

	got, err := gate.Authorize(context.Background(), KindAdministrator, sign(t, codec, ghost))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "ghost@example.com" || got.ID != ghost.ID {
		t.Errorf("expected identity from claims, got %+v", got)
	}
	if store.calls != 0 {
		t.Errorf("expected no store lookups, got %d", store.calls)
	}
	if gate.AdminRevalidate() {
		t.Error("expected admin revalidation to be off by default")
	}
}

func TestAuthorize_AdministratorRevalidate(t *testing.T) {
	codec := newCodec(t)
	store := newStore()
	gate := NewGate(codec, store, WithAdminRevalidate(true))

	got, err := gate.Authorize(context.Background(), KindAdministrator, sign(t, codec, eve))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Username != "eve" {
		t.Errorf("expected eve from the store, got %q", got.Username)
	}

	ghost := &identity.Identity{ID: uuid.New(), Email: "ghost@example.com", Role: identity.RoleAdministrator}
	_, err = gate.Authorize(context.Background(), KindAdministrator, sign(t, codec, ghost))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if store.calls != 2 {
		t.Errorf("expected two store lookups, got %d", store.calls)
	}
}
