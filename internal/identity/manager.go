package identity

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Domain errors
var (
	ErrNotFound           = errors.New("identity not found")
	ErrInvalidInput       = errors.New("username, email and password are required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidPasskey     = errors.New("invalid passkey")
)

const (
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes and the library rejects it outright.
	maxPasswordLength = 72
)

// timingPadPassword is hashed once so failed lookups cost one Verify too.
const timingPadPassword = "ecoroute-timing-pad"

// Manager handles business logic for identities.
type Manager struct {
	ds           *Datastore
	hasher       PasswordHasher
	adminPasskey string

	padOnce sync.Once
	padHash string
}

// NewManager creates a new identity manager.
func NewManager(ds *Datastore, hasher PasswordHasher, adminPasskey string) *Manager {
	return &Manager{
		ds:           ds,
		hasher:       hasher,
		adminPasskey: adminPasskey,
	}
}

// CreateInput holds the input for registering an identity.
type CreateInput struct {
	Username string
	Email    string
	Password string
}

// CreateReporter registers a new reporter.
func (m *Manager) CreateReporter(ctx context.Context, input CreateInput) (*Identity, error) {
	return m.create(ctx, input, RoleReporter)
}

// CreateAdministrator registers a new administrator.
// The passkey must match the configured shared secret exactly.
func (m *Manager) CreateAdministrator(ctx context.Context, input CreateInput, passkey string) (*Identity, error) {
	if !m.passkeyMatches(passkey) {
		return nil, ErrInvalidPasskey
	}
	return m.create(ctx, input, RoleAdministrator)
}

// AuthenticateReporter verifies reporter credentials.
func (m *Manager) AuthenticateReporter(ctx context.Context, email, password string) (*Identity, error) {
	return m.authenticate(ctx, email, password, RoleReporter)
}

// AuthenticateAdministrator verifies the passkey and administrator credentials.
func (m *Manager) AuthenticateAdministrator(ctx context.Context, email, password, passkey string) (*Identity, error) {
	if !m.passkeyMatches(passkey) {
		return nil, ErrInvalidPasskey
	}
	return m.authenticate(ctx, email, password, RoleAdministrator)
}

// GetByEmail retrieves an identity by email within a role.
func (m *Manager) GetByEmail(ctx context.Context, email string, role Role) (*Identity, error) {
	identity, err := m.ds.GetByEmail(ctx, normalizeEmail(email), role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "identity: get by email")
	}
	return identity, nil
}

// Profile returns an identity with its request collections populated in creation order.
func (m *Manager) Profile(ctx context.Context, id uuid.UUID) (*Identity, error) {
	identity, err := m.ds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "identity: get by id")
	}

	refs, err := m.ds.ListRequestRefs(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "identity: list request refs")
	}

	for _, ref := range refs {
		switch ref.Kind {
		case RefKindGarbage:
			identity.GarbageRequests = append(identity.GarbageRequests, ref.RequestID)
		case RefKindRecyclable:
			identity.RecyclableRequests = append(identity.RecyclableRequests, ref.RequestID)
		default:
			zap.L().Warn("identity: unknown request ref kind",
				zap.String("identity_id", id.String()),
				zap.String("kind", ref.Kind),
			)
		}
	}

	return identity, nil
}

func (m *Manager) create(ctx context.Context, input CreateInput, role Role) (*Identity, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(input.Password) > maxPasswordLength {
		return nil, ErrPasswordTooLong
	}

	// Check for an existing registration first so a duplicate never hashes a password.
	if _, err := m.ds.GetByEmail(ctx, email, role); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(err, "identity: check existing email")
	}

	hash, err := m.hasher.Hash(input.Password)
	if err != nil {
		return nil, eris.Wrap(err, "identity: hash password")
	}

	identity := &Identity{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	if err := m.ds.Create(ctx, identity); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, eris.Wrap(err, "identity: create")
	}

	return identity, nil
}

func (m *Manager) authenticate(ctx context.Context, email, password string, role Role) (*Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := m.ds.GetByEmail(ctx, email, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown emails still pay for a hash comparison.
			m.hasher.Verify(password, m.timingPad())
			return nil, ErrInvalidCredentials
		}
		return nil, eris.Wrap(err, "identity: authenticate")
	}

	if !m.hasher.Verify(password, identity.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return identity, nil
}

func (m *Manager) timingPad() string {
	m.padOnce.Do(func() {
		hash, err := m.hasher.Hash(timingPadPassword)
		if err != nil {
			zap.L().Warn("identity: failed to hash timing pad", zap.Error(err))
			return
		}
		m.padHash = hash
	})
	return m.padHash
}

func (m *Manager) passkeyMatches(passkey string) bool {
	if m.adminPasskey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(passkey), []byte(m.adminPasskey)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
