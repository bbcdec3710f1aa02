package dashboard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kjstillabower/infohub/internal/models"
)

// pending is shown in place of converted amounts until rates are loaded.
const pending = "..."

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParsePrincipal reads the user's INR amount the way a browser number field
// is read: the longest leading decimal literal, or 0 when there is none.
func ParsePrincipal(input string) float64 {
	s := strings.TrimLeft(input, " \t\n\r\v\f")
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// Convert returns principal expressed in USD and EUR with two decimals.
func Convert(principal string, rates *models.CurrencyRates) (usd, eur string) {
	if rates == nil {
		return pending, pending
	}
	amount := ParsePrincipal(principal)
	return fixed(amount*rates.USD, 2), fixed(amount*rates.EUR, 2)
}

// RatesLine describes the loaded rates at five decimals.
func RatesLine(rates *models.CurrencyRates) string {
	if rates == nil {
		return ""
	}
	return fmt.Sprintf("Current rates: 1 INR = $%s USD / €%s EUR", fixed(rates.USD, 5), fixed(rates.EUR, 5))
}

// RoundTemperature rounds to the nearest degree with halves going up, so
// 18.5 shows as 19 and -2.5 as -2.
func RoundTemperature(celsius float64) int {
	return int(math.Floor(celsius + 0.5))
}

// DisplayIcon falls back to CLOUD for anything outside the known set.
func DisplayIcon(icon models.WeatherIcon) models.WeatherIcon {
	if icon.Valid() {
		return icon
	}
	return models.IconCloud
}

func fixed(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Trim(s, "-0.") == "" {
		// avoid "-0.00"
		s = strings.TrimPrefix(s, "-")
	}
	return s
}
