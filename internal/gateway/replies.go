package gateway

import (
	"fmt"
	"math"
	"strings"

	"github.com/kjstillabower/infohub/internal/models"
)

// Reply shapes use pointers so a missing field is distinguishable from a zero value.

type weatherReply struct {
	Location           *string  `json:"location"`
	TemperatureCelsius *float64 `json:"temperatureCelsius"`
	Condition          *string  `json:"condition"`
	Icon               *string  `json:"icon"`
	Humidity           *float64 `json:"humidity"`
	WindSpeedKph       *float64 `json:"windSpeedKph"`
}

func (r *weatherReply) validate() error {
	var missing []string
	if r.Location == nil {
		missing = append(missing, "location")
	}
	if r.TemperatureCelsius == nil {
		missing = append(missing, "temperatureCelsius")
	}
	if r.Condition == nil {
		missing = append(missing, "condition")
	}
	if r.Icon == nil {
		missing = append(missing, "icon")
	}
	if r.Humidity == nil {
		missing = append(missing, "humidity")
	}
	if r.WindSpeedKph == nil {
		missing = append(missing, "windSpeedKph")
	}
	if err := missingFields(missing); err != nil {
		return err
	}

	if !models.WeatherIcon(*r.Icon).Valid() {
		return fmt.Errorf("icon %q is not one of %v", *r.Icon, models.WeatherIcons)
	}
	if !finite(*r.TemperatureCelsius) {
		return fmt.Errorf("temperatureCelsius is not finite")
	}
	if !finite(*r.Humidity) || *r.Humidity < 0 || *r.Humidity > 100 {
		return fmt.Errorf("humidity %v out of range [0, 100]", *r.Humidity)
	}
	if !finite(*r.WindSpeedKph) || *r.WindSpeedKph < 0 {
		return fmt.Errorf("windSpeedKph %v is negative", *r.WindSpeedKph)
	}
	return nil
}

func (r *weatherReply) toModel() models.WeatherData {
	return models.WeatherData{
		Location:           *r.Location,
		TemperatureCelsius: *r.TemperatureCelsius,
		Condition:          *r.Condition,
		Icon:               models.WeatherIcon(*r.Icon),
		Humidity:           *r.Humidity,
		WindSpeedKph:       *r.WindSpeedKph,
	}
}

type currencyReply struct {
	Rates *struct {
		USD *float64 `json:"USD"`
		EUR *float64 `json:"EUR"`
	} `json:"rates"`
}

func (r *currencyReply) validate() error {
	if r.Rates == nil {
		return missingFields([]string{"rates"})
	}
	var missing []string
	if r.Rates.USD == nil {
		missing = append(missing, "rates.USD")
	}
	if r.Rates.EUR == nil {
		missing = append(missing, "rates.EUR")
	}
	if err := missingFields(missing); err != nil {
		return err
	}
	if !finite(*r.Rates.USD) || *r.Rates.USD <= 0 {
		return fmt.Errorf("rates.USD %v must be positive", *r.Rates.USD)
	}
	if !finite(*r.Rates.EUR) || *r.Rates.EUR <= 0 {
		return fmt.Errorf("rates.EUR %v must be positive", *r.Rates.EUR)
	}
	return nil
}

func (r *currencyReply) toModel() models.CurrencyRates {
	return models.CurrencyRates{USD: *r.Rates.USD, EUR: *r.Rates.EUR}
}

type quoteReply struct {
	Quote  *string `json:"quote"`
	Author *string `json:"author"`
}

func (r *quoteReply) validate() error {
	var missing []string
	if r.Quote == nil || strings.TrimSpace(*r.Quote) == "" {
		missing = append(missing, "quote")
	}
	if r.Author == nil || strings.TrimSpace(*r.Author) == "" {
		missing = append(missing, "author")
	}
	return missingFields(missing)
}

func (r *quoteReply) toModel() models.QuoteData {
	return models.QuoteData{Quote: *r.Quote, Author: *r.Author}
}

func missingFields(names []string) error {
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("missing required fields: %s", strings.Join(names, ", "))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
