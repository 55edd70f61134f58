// Package request stores garbage and recyclable intake requests.
package request

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ecoroute/internal/geo"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound    = errors.New("request not found")
	ErrInvalidKind = errors.New("unknown request kind")
	ErrInvalidData = errors.New("owner, description and valid coordinates are required")
)

// Manager handles business logic for intake requests.
type Manager struct {
	ds *Datastore
}

// NewManager creates a new request manager.
func NewManager(ds *Datastore) *Manager {
	return &Manager{ds: ds}
}

// CreateInput holds the fields of a new request.
type CreateInput struct {
	Kind        Kind
	OwnerID     uuid.UUID
	Description string
	Latitude    float64
	Longitude   float64
}

// Create persists a pending request owned by input.OwnerID and records it
// in the owner's reference list.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*IntakeRequest, error) {
	if _, err := ParseKind(string(input.Kind)); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if input.OwnerID == uuid.Nil || description == "" || !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, ErrInvalidData
	}

	req := &IntakeRequest{
		Kind:        input.Kind,
		OwnerID:     input.OwnerID,
		Description: description,
		Location:    FormatLocation(input.Latitude, input.Longitude),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Status:      StatusPending,
	}

	if err := m.ds.Create(ctx, req); err != nil {
		return nil, eris.Wrapf(err, "failed to create %s request", input.Kind)
	}

	zap.L().Info("request created",
		zap.String("kind", string(req.Kind)),
		zap.String("request_id", req.ID.String()),
		zap.String("owner_id", req.OwnerID.String()),
	)
	return req, nil
}

// List returns every request of a kind with owner usernames populated.
func (m *Manager) List(ctx context.Context, kind Kind) ([]*IntakeRequest, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	reqs, err := m.ds.List(ctx, kind)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to list %s requests", kind)
	}
	return reqs, nil
}

// ListByOwner returns one identity's requests of a kind.
func (m *Manager) ListByOwner(ctx context.Context, kind Kind, ownerID uuid.UUID) ([]*IntakeRequest, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	reqs, err := m.ds.ListByOwner(ctx, kind, ownerID)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to list %s requests by owner", kind)
	}
	return reqs, nil
}

// Complete marks a request completed. Completing an already-completed
// request is a no-op that returns the stored record unchanged.
func (m *Manager) Complete(ctx context.Context, kind Kind, id uuid.UUID) (*IntakeRequest, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	affected, err := m.ds.MarkCompleted(ctx, kind, id)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to complete %s request", kind)
	}

	req, err := m.ds.GetByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "failed to get %s request", kind)
	}

	if affected > 0 {
		zap.L().Info("request completed",
			zap.String("kind", string(kind)),
			zap.String("request_id", id.String()),
		)
	}
	return req, nil
}
