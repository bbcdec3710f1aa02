package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kjstillabower/infohub/internal/models"
)

func TestParsePrincipal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1000", 1000},
		{"  250.5", 250.5},
		{"12abc", 12},
		{".5", 0.5},
		{"-40", -40},
		{"1e3", 1000},
		{"abc", 0},
		{"", 0},
		{"-", 0},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParsePrincipal(tc.in))
		})
	}
}

func TestConvert(t *testing.T) {
	rates := &models.CurrencyRates{USD: 0.012, EUR: 0.011}

	usd, eur := Convert("1000", rates)
	assert.Equal(t, "12.00", usd)
	assert.Equal(t, "11.00", eur)

	usd, eur = Convert("", rates)
	assert.Equal(t, "0.00", usd)
	assert.Equal(t, "0.00", eur)

	usd, eur = Convert("1000", nil)
	assert.Equal(t, "...", usd)
	assert.Equal(t, "...", eur)
}

func TestConvert_NoNegativeZero(t *testing.T) {
	usd, _ := Convert("-0.0001", &models.CurrencyRates{USD: 0.012, EUR: 0.011})
	assert.Equal(t, "0.00", usd)
}

func TestRatesLine(t *testing.T) {
	assert.Equal(t, "Current rates: 1 INR = $0.01200 USD / €0.01100 EUR",
		RatesLine(&models.CurrencyRates{USD: 0.012, EUR: 0.011}))
	assert.Empty(t, RatesLine(nil))
}

func TestRoundTemperature(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{18.6, 19},
		{18.5, 19},
		{18.4, 18},
		{0, 0},
		{-2.5, -2},
		{-2.6, -3},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RoundTemperature(tc.in), "RoundTemperature(%v)", tc.in)
	}
}

func TestDisplayIcon(t *testing.T) {
	for _, icon := range models.WeatherIcons {
		assert.Equal(t, icon, DisplayIcon(icon))
	}
	assert.Equal(t, models.IconCloud, DisplayIcon("SNOW"))
	assert.Equal(t, models.IconCloud, DisplayIcon(""))
}
