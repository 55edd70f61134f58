// Package geocode turns coordinates into display addresses.
package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ecoroute/internal/geo"
)

var (
	// ErrResolution is returned when no address could be obtained.
	ErrResolution = eris.New("address resolution failed")
	// ErrInvalidCoordinates is returned for out-of-range input.
	ErrInvalidCoordinates = eris.New("invalid coordinates")
)

// Lookup performs a reverse geocode against some provider.
type Lookup interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, lat, lon float64) (string, error)

// Reverse implements Lookup.
func (f LookupFunc) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return f(ctx, lat, lon)
}

// Resolver validates coordinates and surfaces provider failures as ErrResolution.
// It never substitutes a default address.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the display address for (lat, lon).
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return "", ErrInvalidCoordinates
	}

	addr, err := r.lookup.Reverse(ctx, lat, lon)
	if err != nil {
		zap.L().Warn("reverse geocode failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return "", eris.Wrapf(ErrResolution, "reverse %f,%f: %v", lat, lon, err)
	}

	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", eris.Wrapf(ErrResolution, "reverse %f,%f: empty address", lat, lon)
	}
	return addr, nil
}
