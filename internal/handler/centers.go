package handler

import (
	"errors"
	"net/http"
	"strconv"

	"ecoroute/internal/geo"
)

// nearestCenterHandler handles GET /centers/nearest?kind=&lat=&lon=
func nearestCenterHandler(registry *geo.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		kind := geo.Kind(q.Get("kind"))
		if kind == "" {
			kind = geo.KindGarbage
		}
		if kind != geo.KindGarbage && kind != geo.KindRecycling {
			writeError(w, http.StatusBadRequest, "kind must be garbage or recycling")
			return
		}

		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
		if latErr != nil || lonErr != nil || !geo.ValidCoordinates(lat, lon) {
			writeError(w, http.StatusBadRequest, "invalid coordinates")
			return
		}

		center, err := registry.Nearest(kind, lat, lon)
		if err != nil {
			if errors.Is(err, geo.ErrNoCenters) {
				writeError(w, http.StatusInternalServerError, "no centers configured")
				return
			}
			writeError(w, http.StatusInternalServerError, "center lookup failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"center":      center,
			"distance_km": geo.Distance(geo.Point{Latitude: lat, Longitude: lon}, center.Point()),
		})
	}
}
