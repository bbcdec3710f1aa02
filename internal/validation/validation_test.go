package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidatePosition_Valid(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"san francisco", 37.77, -122.42},
		{"origin", 0, 0},
		{"north pole", 90, 0},
		{"south pole", -90, 0},
		{"date line east", 0, 180},
		{"date line west", 0, -180},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ValidatePosition(tc.lat, tc.lon)
			if err != nil {
				t.Fatalf("ValidatePosition(%v, %v) error = %v", tc.lat, tc.lon, err)
			}
			if pos.Latitude != tc.lat || pos.Longitude != tc.lon {
				t.Errorf("ValidatePosition() = %+v", pos)
			}
		})
	}
}

func TestValidatePosition_OutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     error
	}{
		{"lat too high", 90.01, 0, ErrLatitudeOutOfRange},
		{"lat too low", -91, 0, ErrLatitudeOutOfRange},
		{"lat NaN", math.NaN(), 0, ErrLatitudeOutOfRange},
		{"lon too high", 0, 180.5, ErrLongitudeOutOfRange},
		{"lon too low", 0, -181, ErrLongitudeOutOfRange},
		{"lon inf", 0, math.Inf(1), ErrLongitudeOutOfRange},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidatePosition(tc.lat, tc.lon)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateReason(t *testing.T) {
	got, err := ValidateReason("  User denied Geolocation  ")
	if err != nil {
		t.Fatalf("ValidateReason() error = %v", err)
	}
	if got != "User denied Geolocation" {
		t.Errorf("ValidateReason() = %q", got)
	}

	if got, err := ValidateReason(""); err != nil || got != "" {
		t.Errorf("ValidateReason(empty) = %q, %v", got, err)
	}
}

func TestValidateReason_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"too long", strings.Repeat("a", MaxReasonLength+1), ErrReasonTooLong},
		{"newline", "denied\nnow", ErrReasonInvalidChars},
		{"escape", "denied\x1b[31m", ErrReasonInvalidChars},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateReason(tc.input)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateReason_UnicodeLength(t *testing.T) {
	// Length is measured in runes, not bytes.
	if _, err := ValidateReason(strings.Repeat("é", MaxReasonLength)); err != nil {
		t.Errorf("ValidateReason() error = %v for %d runes", err, MaxReasonLength)
	}
}
