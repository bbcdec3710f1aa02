package dashboard

import (
	"github.com/kjstillabower/infohub/internal/models"
	"github.com/kjstillabower/infohub/internal/widget"
)

// View is the render-ready state of a dashboard. It is recomputed from the
// controllers on every call and never stored.
type View struct {
	ActiveTab models.Tab   `json:"activeTab"`
	Tabs      []TabView    `json:"tabs"`
	Weather   WeatherView  `json:"weather"`
	Currency  CurrencyView `json:"currency"`
	Quote     QuoteView    `json:"quote"`
}

type TabView struct {
	ID     models.Tab `json:"id"`
	Label  string     `json:"label"`
	Active bool       `json:"active"`
}

type WeatherView struct {
	State       widget.State        `json:"state"`
	Error       string              `json:"error,omitempty"`
	Data        *models.WeatherData `json:"data,omitempty"`
	Temperature int                 `json:"temperature"`
	Icon        models.WeatherIcon  `json:"icon,omitempty"`
}

type CurrencyView struct {
	State     widget.State          `json:"state"`
	Error     string                `json:"error,omitempty"`
	Rates     *models.CurrencyRates `json:"rates,omitempty"`
	Principal string                `json:"principal"`
	USD       string                `json:"usd"`
	EUR       string                `json:"eur"`
	RatesLine string                `json:"ratesLine,omitempty"`
}

type QuoteView struct {
	State      widget.State      `json:"state"`
	Error      string            `json:"error,omitempty"`
	Data       *models.QuoteData `json:"data,omitempty"`
	Refreshing bool              `json:"refreshing"`
}

func weatherView(s widget.Snapshot[models.WeatherData]) WeatherView {
	v := WeatherView{State: s.State, Error: s.Err, Data: s.Value}
	if s.Value != nil {
		v.Temperature = RoundTemperature(s.Value.TemperatureCelsius)
		v.Icon = DisplayIcon(s.Value.Icon)
	}
	return v
}

func currencyView(s widget.Snapshot[models.CurrencyRates], principal string) CurrencyView {
	usd, eur := Convert(principal, s.Value)
	return CurrencyView{
		State:     s.State,
		Error:     s.Err,
		Rates:     s.Value,
		Principal: principal,
		USD:       usd,
		EUR:       eur,
		RatesLine: RatesLine(s.Value),
	}
}

func quoteView(s widget.Snapshot[models.QuoteData]) QuoteView {
	return QuoteView{
		State:      s.State,
		Error:      s.Err,
		Data:       s.Value,
		Refreshing: s.Loading(),
	}
}
