package model

import (
	"testing"

	"execgate/internal/model/enum"
	"execgate/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	testCases := []struct {
		desc     string
		input    string
		expected Symbol
		err      error
	}{
		{"upper", "AUDUSD.FXCM", Symbol{Code: "AUDUSD", Venue: enum.VenueFXCM}, nil},
		{"lower", "audusd.fxcm", Symbol{Code: "AUDUSD", Venue: enum.VenueFXCM}, nil},
		{"dotted code", "es.z8.globex", Symbol{Code: "ES.Z8", Venue: enum.VenueGlobex}, nil},
		{"unknown venue", "audusd.nowhere", Symbol{}, exception.ErrUnknownVenue},
		{"no venue", "audusd", Symbol{}, exception.ErrMalformedEvent},
		{"empty code", ".fxcm", Symbol{}, exception.ErrMalformedEvent},
		{"trailing dot", "audusd.", Symbol{}, exception.ErrMalformedEvent},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s, err := ParseSymbol(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestSymbolEquality(t *testing.T) {
	assert.Equal(t, NewSymbol("audusd", enum.VenueFXCM), Symbol{Code: "AUDUSD", Venue: enum.VenueFXCM})
	assert.NotEqual(t, NewSymbol("AUDUSD", enum.VenueFXCM), NewSymbol("GBPUSD", enum.VenueFXCM))
	assert.Equal(t, "AUDUSD.FXCM", NewSymbol("audusd", enum.VenueFXCM).String())
	assert.True(t, Symbol{}.IsZero())
}
