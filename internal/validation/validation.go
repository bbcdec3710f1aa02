package validation

import (
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/kjstillabower/infohub/internal/models"
)

// ErrLatitudeOutOfRange is returned when latitude is outside [-90, 90] or not finite.
var ErrLatitudeOutOfRange = errors.New("latitude out of range")

// ErrLongitudeOutOfRange is returned when longitude is outside [-180, 180] or not finite.
var ErrLongitudeOutOfRange = errors.New("longitude out of range")

// ErrReasonTooLong is returned when a browser-reported geolocation reason exceeds the maximum.
var ErrReasonTooLong = errors.New("reason too long")

// ErrReasonInvalidChars is returned when a reason contains control characters.
var ErrReasonInvalidChars = errors.New("reason contains invalid characters")

// MaxReasonLength bounds geolocation failure reasons echoed back to users (in runes).
const MaxReasonLength = 200

// ValidatePosition checks coordinate bounds for positions reported by the
// browser or set in configuration.
func ValidatePosition(lat, lon float64) (models.Position, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return models.Position{}, ErrLatitudeOutOfRange
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return models.Position{}, ErrLongitudeOutOfRange
	}
	return models.Position{Latitude: lat, Longitude: lon}, nil
}

// ValidateReason trims a geolocation failure reason and rejects control
// characters and overlong input. An empty reason is allowed; the caller
// substitutes a default.
func ValidateReason(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) > MaxReasonLength {
		return "", ErrReasonTooLong
	}
	for _, c := range r {
		if unicode.IsControl(c) {
			return "", ErrReasonInvalidChars
		}
	}
	return s, nil
}
