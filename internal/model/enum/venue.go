package enum

import "strings"

// Venue is the execution counterparty of a symbol.
type Venue uint8

const (
	_venue_beg Venue = iota
	VenueDukascopy
	VenueFXCM
	VenueGlobex
	VenueIdealPro
	VenueLMAX
	_venue_end
)

var venueNames = [...]string{
	VenueDukascopy: "DUKASCOPY",
	VenueFXCM:      "FXCM",
	VenueGlobex:    "GLOBEX",
	VenueIdealPro:  "IDEALPRO",
	VenueLMAX:      "LMAX",
}

func (v Venue) IsAvailable() bool {
	return v > _venue_beg && v < _venue_end
}

func (v Venue) String() string {
	if !v.IsAvailable() {
		return "UNKNOWN"
	}
	return venueNames[v]
}

// ParseVenue resolves a venue token case-insensitively.
func ParseVenue(s string) (Venue, bool) {
	for v := _venue_beg + 1; v < _venue_end; v++ {
		if strings.EqualFold(venueNames[v], s) {
			return v, true
		}
	}
	return _venue_beg, false
}
