package geo

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Kind selects one of the registry's center lists.
type Kind string

const (
	KindGarbage   Kind = "garbage"
	KindRecycling Kind = "recycling"
)

// Registry holds the static center lists, loaded once at startup.
type Registry struct {
	Garbage   []Center `yaml:"garbage"`
	Recycling []Center `yaml:"recycling"`
}

// Centers returns the list for kind, or nil for an unknown kind.
func (r *Registry) Centers(kind Kind) []Center {
	switch kind {
	case KindGarbage:
		return r.Garbage
	case KindRecycling:
		return r.Recycling
	default:
		return nil
	}
}

// Nearest returns the center of the given kind closest to (lat, lon).
func (r *Registry) Nearest(kind Kind, lat, lon float64) (Center, error) {
	return Nearest(lat, lon, r.Centers(kind))
}

// LoadRegistry reads a YAML registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read center registry %s", path)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates a YAML registry document.
// An empty list is allowed here; lookups against it return ErrNoCenters.
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrap(err, "failed to parse center registry")
	}

	for kind, centers := range map[Kind][]Center{KindGarbage: reg.Garbage, KindRecycling: reg.Recycling} {
		for i, c := range centers {
			if c.Name == "" || c.Email == "" {
				return nil, eris.Errorf("%s center %d: name and email are required", kind, i)
			}
			if !ValidCoordinates(c.Latitude, c.Longitude) {
				return nil, eris.Errorf("%s center %q: coordinates out of range", kind, c.Name)
			}
		}
		if len(centers) == 0 {
			zap.L().Warn("center registry has no entries", zap.String("kind", string(kind)))
		}
	}

	return &reg, nil
}
