package model

import (
	"strings"

	"execgate/internal/model/enum"
	"execgate/pkg/exception"
)

// Symbol is an instrument code paired with its venue.
type Symbol struct {
	Code  string
	Venue enum.Venue
}

// NewSymbol uppercases the code.
func NewSymbol(code string, venue enum.Venue) Symbol {
	return Symbol{Code: strings.ToUpper(code), Venue: venue}
}

// ParseSymbol reads the "<CODE>.<VENUE>" form, case-insensitive.
func ParseSymbol(s string) (Symbol, error) {
	idx := strings.LastIndexByte(s, '.')
	if idx <= 0 || idx == len(s)-1 {
		return Symbol{}, exception.ErrMalformedEvent
	}
	venue, ok := enum.ParseVenue(s[idx+1:])
	if !ok {
		return Symbol{}, exception.ErrUnknownVenue
	}
	return NewSymbol(s[:idx], venue), nil
}

func (s Symbol) IsZero() bool {
	return s.Code == "" || !s.Venue.IsAvailable()
}

func (s Symbol) String() string {
	return s.Code + "." + s.Venue.String()
}
