package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// DBTX is the interface for database operations.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Datastore handles database operations for identities.
// It returns raw database errors; translation belongs in the Manager.
type Datastore struct {
	db DBTX
}

// NewDatastore creates a new identity datastore.
func NewDatastore(db DBTX) *Datastore {
	return &Datastore{db: db}
}

// Create inserts a new identity.
func (ds *Datastore) Create(ctx context.Context, identity *Identity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}

	query := `
		INSERT INTO identities (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return ds.db.QueryRowContext(ctx, query,
		identity.ID, identity.Username, identity.Email, identity.PasswordHash, string(identity.Role),
	).Scan(&identity.CreatedAt)
}

// GetByEmail retrieves an identity by email within a role.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByEmail(ctx context.Context, email string, role Role) (*Identity, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM identities WHERE email = $1 AND role = $2`

	identity := &Identity{}
	err := ds.db.QueryRowContext(ctx, query, email, string(role)).Scan(
		&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash,
		&identity.Role, &identity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// GetByID retrieves an identity by ID.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM identities WHERE id = $1`

	identity := &Identity{}
	err := ds.db.QueryRowContext(ctx, query, id).Scan(
		&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash,
		&identity.Role, &identity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// ListRequestRefs returns the identity's request references in insertion order.
func (ds *Datastore) ListRequestRefs(ctx context.Context, identityID uuid.UUID) ([]RequestRef, error) {
	query := `
		SELECT kind, request_id
		FROM identity_request_refs WHERE identity_id = $1
		ORDER BY seq`

	rows, err := ds.db.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var refs []RequestRef
	for rows.Next() {
		var ref RequestRef
		if err := rows.Scan(&ref.Kind, &ref.RequestID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
