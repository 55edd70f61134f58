// Package geo selects the service center nearest to a reported location.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusKm is the mean radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// ErrNoCenters is returned when a lookup runs against an empty registry.
var ErrNoCenters = eris.New("no centers configured")

// Center is a service center that receives intake notifications.
type Center struct {
	Name      string  `yaml:"name" json:"name"`
	Email     string  `yaml:"email" json:"email"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Point returns the center's coordinates.
func (c Center) Point() Point {
	return Point{Latitude: c.Latitude, Longitude: c.Longitude}
}

// ValidCoordinates reports whether lat and lon lie within [-90,90] and [-180,180].
// NaN is rejected.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the center closest to (lat, lon).
// Ties go to the earliest center in the list.
func Nearest(lat, lon float64, centers []Center) (Center, error) {
	if len(centers) == 0 {
		return Center{}, ErrNoCenters
	}

	origin := Point{Latitude: lat, Longitude: lon}
	best := 0
	bestDist := Distance(origin, centers[0].Point())
	for i := 1; i < len(centers); i++ {
		if d := Distance(origin, centers[i].Point()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return centers[best], nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
