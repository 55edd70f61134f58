package intake

import (
	"fmt"
	"strconv"
	"strings"

	"ecoroute/internal/geo"
	"ecoroute/internal/identity"
	"ecoroute/internal/request"
)

const mapsURL = "https://www.google.com/maps?q="

func subject(k request.Kind) string {
	if k == request.KindRecyclable {
		return "Recycling Items Report"
	}
	return "Garbage Report"
}

func describe(k request.Kind, address string) string {
	if k == request.KindRecyclable {
		return "Items to be recycled reported at " + address
	}
	return "Garbage reported at " + address
}

type bodyInput struct {
	Kind       request.Kind
	ReportedAt string
	Resolved   string
	Latitude   float64
	Longitude  float64
	Center     geo.Center
	Reporter   *identity.Identity
}

// composeBody renders the plain-text notification.
func composeBody(in bodyInput) string {
	lat := strconv.FormatFloat(in.Latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(in.Longitude, 'f', -1, 64)

	var b strings.Builder
	if in.Kind == request.KindRecyclable {
		fmt.Fprintf(&b, "Items to be recycled reported at: %s\n", in.ReportedAt)
	} else {
		fmt.Fprintf(&b, "Garbage reported at: %s\n", in.ReportedAt)
	}
	if in.Resolved != "" {
		fmt.Fprintf(&b, "Resolved address: %s\n", in.Resolved)
	}
	fmt.Fprintf(&b, "Latitude: %s, Longitude: %s\n", lat, lon)
	fmt.Fprintf(&b, "View on map: %s%s,%s\n", mapsURL, lat, lon)
	if in.Kind == request.KindRecyclable {
		fmt.Fprintf(&b, "Nearest recycling center: %s\n", in.Center.Name)
	} else {
		fmt.Fprintf(&b, "Nearest center: %s\n", in.Center.Name)
	}
	fmt.Fprintf(&b, "User: %s (%s)\n", in.Reporter.Username, in.Reporter.Email)
	return b.String()
}
