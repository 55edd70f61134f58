package request

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Datastore handles persistence operations for intake requests.
// It performs only database operations and returns raw errors.
type Datastore struct {
	db *sql.DB
}

// NewDatastore creates a new request datastore.
func NewDatastore(db *sql.DB) *Datastore {
	return &Datastore{db: db}
}

// Create inserts the request and appends it to the owner's reference list
// in a single transaction.
func (ds *Datastore) Create(ctx context.Context, req *IntakeRequest) (err error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, description, location, latitude, longitude, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`, req.Kind.table())

	err = tx.QueryRowContext(ctx, insert,
		req.ID, req.OwnerID, req.Description, req.Location, req.Latitude, req.Longitude, string(req.Status),
	).Scan(&req.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identity_request_refs (identity_id, kind, request_id)
		VALUES ($1, $2, $3)`,
		req.OwnerID, string(req.Kind), req.ID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const selectColumns = `
		SELECT r.id, r.owner_id, i.username, r.description, r.location,
		       r.latitude, r.longitude, r.status, r.created_at, r.completed_at
		FROM %s r
		JOIN identities i ON i.id = r.owner_id`

// GetByID retrieves a request with its owner's username.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*IntakeRequest, error) {
	query := fmt.Sprintf(selectColumns, kind.table()) + `
		WHERE r.id = $1`

	return scanRequest(kind, ds.db.QueryRowContext(ctx, query, id))
}

// List retrieves all requests of a kind, oldest first.
func (ds *Datastore) List(ctx context.Context, kind Kind) ([]*IntakeRequest, error) {
	query := fmt.Sprintf(selectColumns, kind.table()) + `
		ORDER BY r.created_at, r.id`

	return ds.query(ctx, kind, query)
}

// ListByOwner retrieves one identity's requests of a kind, oldest first.
func (ds *Datastore) ListByOwner(ctx context.Context, kind Kind, ownerID uuid.UUID) ([]*IntakeRequest, error) {
	query := fmt.Sprintf(selectColumns, kind.table()) + `
		WHERE r.owner_id = $1
		ORDER BY r.created_at, r.id`

	return ds.query(ctx, kind, query, ownerID)
}

// MarkCompleted moves a pending request to completed.
// Returns the number of rows affected; zero means missing or already completed.
func (ds *Datastore) MarkCompleted(ctx context.Context, kind Kind, id uuid.UUID) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'completed', completed_at = now()
		WHERE id = $1 AND status = 'pending'`, kind.table())

	result, err := ds.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (ds *Datastore) query(ctx context.Context, kind Kind, query string, args ...any) ([]*IntakeRequest, error) {
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*IntakeRequest
	for rows.Next() {
		req, err := scanRequest(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(kind Kind, row scanner) (*IntakeRequest, error) {
	req := &IntakeRequest{Kind: kind}
	var completedAt sql.NullTime
	err := row.Scan(
		&req.ID, &req.OwnerID, &req.OwnerUsername, &req.Description, &req.Location,
		&req.Latitude, &req.Longitude, &req.Status, &req.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		req.CompletedAt = &t
	}
	return req, nil
}
