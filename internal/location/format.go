package location

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vbonduro/wastecapture/internal/domain"
)

// minAddressLen is the shortest address considered more useful than raw
// coordinates.
const minAddressLen = 10

var bareCoordinates = regexp.MustCompile(`^-?\d+(\.\d+)?,\s*-?\d+(\.\d+)?$`)

// FormatLocation returns the address when it is a real address, otherwise
// the coordinates to 6 decimal places.
func FormatLocation(loc domain.Location) string {
	if usableAddress(loc.Address) {
		return loc.Address
	}
	return coordinates(loc.Latitude, loc.Longitude, 6)
}

// ShortLocation returns the last two components of a usable address (usually
// city and country), otherwise the coordinates to 4 decimal places.
func ShortLocation(loc domain.Location) string {
	if !usableAddress(loc.Address) {
		return coordinates(loc.Latitude, loc.Longitude, 4)
	}
	parts := strings.Split(loc.Address, ",")
	if len(parts) < 2 {
		return loc.Address
	}
	tail := parts[len(parts)-2:]
	for i := range tail {
		tail[i] = strings.TrimSpace(tail[i])
	}
	return strings.Join(tail, ", ")
}

// FormatAddress joins the non-empty components of p, most specific first. A
// result shorter than minAddressLen is retried with a coarser layout, then
// with the provider's display name. The result may still be short or empty.
func FormatAddress(p Place) string {
	address := joinNonEmpty(
		p.StreetNumber,
		firstNonEmpty(p.Street, p.Name),
		firstNonEmpty(p.District, p.Subregion),
		p.City,
		p.Region,
		p.PostalCode,
		p.Country,
	)
	if len(address) >= minAddressLen {
		return address
	}

	address = joinNonEmpty(p.Name, firstNonEmpty(p.City, p.Subregion), p.Region, p.Country)
	if len(address) >= minAddressLen {
		return address
	}

	if d := strings.TrimSpace(p.DisplayName); d != "" {
		return d
	}
	return address
}

func usableAddress(address string) bool {
	address = strings.TrimSpace(address)
	return len(address) >= minAddressLen && !bareCoordinates.MatchString(address)
}

func coordinates(lat, lon float64, precision int) string {
	return fmt.Sprintf("%.*f, %.*f", precision, lat, precision, lon)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
