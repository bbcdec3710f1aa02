package models

import (
	"fmt"
	"strings"
)

// WeatherIcon is the closed set of icon names the weather widget can render.
type WeatherIcon string

const (
	IconSun   WeatherIcon = "SUN"
	IconCloud WeatherIcon = "CLOUD"
	IconRain  WeatherIcon = "RAIN"
	IconWind  WeatherIcon = "WIND"
	IconStorm WeatherIcon = "STORM"
	IconFog   WeatherIcon = "FOG"
)

// WeatherIcons lists the allowed icons in the order they are offered to the model.
var WeatherIcons = []WeatherIcon{IconSun, IconCloud, IconRain, IconStorm, IconWind, IconFog}

// Valid reports whether i is one of WeatherIcons.
func (i WeatherIcon) Valid() bool {
	for _, known := range WeatherIcons {
		if i == known {
			return true
		}
	}
	return false
}

type WeatherData struct {
	Location           string      `json:"location"`
	TemperatureCelsius float64     `json:"temperatureCelsius"`
	Condition          string      `json:"condition"`
	Icon               WeatherIcon `json:"icon"`
	Humidity           float64     `json:"humidity"`
	WindSpeedKph       float64     `json:"windSpeedKph"`
}

// CurrencyRates are conversion factors expressed as units per 1 INR.
type CurrencyRates struct {
	USD float64 `json:"USD"`
	EUR float64 `json:"EUR"`
}

type QuoteData struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Tab selects which widget the dashboard shell displays.
type Tab string

const (
	TabWeather  Tab = "WEATHER"
	TabCurrency Tab = "CURRENCY"
	TabQuote    Tab = "QUOTE"
)

// Tabs lists every tab in navigation order.
var Tabs = []Tab{TabWeather, TabCurrency, TabQuote}

// ParseTab accepts a tab name in any case.
func ParseTab(s string) (Tab, error) {
	t := Tab(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Tabs {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Label is the navigation caption for t.
func (t Tab) Label() string {
	switch t {
	case TabWeather:
		return "Weather"
	case TabCurrency:
		return "Currency"
	case TabQuote:
		return "Quote"
	default:
		return string(t)
	}
}
