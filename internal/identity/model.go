package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes reporters from administrators.
// Email uniqueness is enforced per role.
type Role string

const (
	RoleReporter      Role = "reporter"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleReporter || r == RoleAdministrator
}

// Identity represents a reporter or an administrator.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`

	// Back-references to owned requests, in creation order.
	// Only populated by Manager.Profile.
	GarbageRequests    []uuid.UUID `json:"garbage_requests,omitempty"`
	RecyclableRequests []uuid.UUID `json:"recyclable_requests,omitempty"`
}

// RequestRef is one entry of a reporter's request collections.
type RequestRef struct {
	Kind      string
	RequestID uuid.UUID
}

// Request kinds as stored in identity_request_refs.
const (
	RefKindGarbage    = "garbage"
	RefKindRecyclable = "recyclable"
)
