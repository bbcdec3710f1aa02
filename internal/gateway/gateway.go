// Package gateway turns dashboard data requests into structured-output calls
// against the generative model and validates the replies into domain types.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/infohub/internal/client"
	"github.com/kjstillabower/infohub/internal/models"
	"github.com/kjstillabower/infohub/internal/observability"
)

// Gateway issues exactly one generator call per fetch. It holds no mutable
// state, so all methods are safe for concurrent use.
type Gateway struct {
	gen    client.Generator
	model  string
	logger *zap.Logger
}

// New returns a Gateway using gen. An empty model leaves the choice to gen.
func New(gen client.Generator, model string, logger *zap.Logger) (*Gateway, error) {
	if gen == nil {
		return nil, errors.New("gateway: generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{gen: gen, model: model, logger: logger}, nil
}

var (
	weatherSchema = client.Object(map[string]*client.Schema{
		"location":           client.String("City or area name"),
		"temperatureCelsius": client.Number("Temperature in Celsius"),
		"condition":          client.String("Brief weather condition, e.g., 'Partly Cloudy'"),
		"icon":               client.Enum("An icon name from the allowed list", iconNames()...),
		"humidity":           client.Number("Humidity percentage"),
		"windSpeedKph":       client.Number("Wind speed in kilometers per hour"),
	}, "location", "temperatureCelsius", "condition", "icon", "humidity", "windSpeedKph")

	currencySchema = client.Object(map[string]*client.Schema{
		"rates": client.Object(map[string]*client.Schema{
			"USD": client.Number(""),
			"EUR": client.Number(""),
		}, "USD", "EUR"),
	}, "rates")

	quoteSchema = client.Object(map[string]*client.Schema{
		"quote":  client.String(""),
		"author": client.String(""),
	}, "quote", "author")
)

const (
	currencyPrompt = "Provide the current conversion rates from 1 INR to USD and EUR. Respond in JSON format with the schema provided."
	quotePrompt    = "Generate a short, impactful motivational quote. Respond in JSON format with the schema provided."
)

func iconNames() []string {
	names := make([]string, len(models.WeatherIcons))
	for i, icon := range models.WeatherIcons {
		names[i] = string(icon)
	}
	return names
}

func weatherPrompt(lat, lon float64) string {
	quoted := make([]string, 0, len(models.WeatherIcons))
	for _, name := range iconNames() {
		quoted = append(quoted, "'"+name+"'")
	}
	return fmt.Sprintf(
		"Provide the current weather for latitude %s and longitude %s. Also provide a suitable icon name from this list: [%s]. Respond in JSON format with the schema provided.",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		strings.Join(quoted, ", "),
	)
}

// FetchWeather asks the model for current weather at the given coordinates.
func (g *Gateway) FetchWeather(ctx context.Context, lat, lon float64) (models.WeatherData, error) {
	var reply weatherReply
	if err := g.generate(ctx, OpWeather, weatherPrompt(lat, lon), weatherSchema, &reply); err != nil {
		return models.WeatherData{}, err
	}
	return reply.toModel(), nil
}

// FetchCurrencyRates asks the model for 1 INR in USD and EUR.
func (g *Gateway) FetchCurrencyRates(ctx context.Context) (models.CurrencyRates, error) {
	var reply currencyReply
	if err := g.generate(ctx, OpCurrency, currencyPrompt, currencySchema, &reply); err != nil {
		return models.CurrencyRates{}, err
	}
	return reply.toModel(), nil
}

// FetchQuote asks the model for a short motivational quote.
func (g *Gateway) FetchQuote(ctx context.Context) (models.QuoteData, error) {
	var reply quoteReply
	if err := g.generate(ctx, OpQuote, quotePrompt, quoteSchema, &reply); err != nil {
		return models.QuoteData{}, err
	}
	return reply.toModel(), nil
}

// validator is implemented by the reply shapes in replies.go.
type validator interface {
	validate() error
}

func (g *Gateway) generate(ctx context.Context, op Operation, prompt string, schema *client.Schema, out validator) error {
	text, err := g.gen.GenerateContent(ctx, client.GenerateRequest{
		Operation: string(op),
		Model:     g.model,
		Prompt:    prompt,
		Schema:    schema,
	})
	if err != nil {
		return g.fail(ctx, op, ErrUpstream, err)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return g.fail(ctx, op, ErrMalformedResponse, fmt.Errorf("parse reply: %w", err))
	}
	if err := out.validate(); err != nil {
		return g.fail(ctx, op, ErrMalformedResponse, err)
	}
	return nil
}

func (g *Gateway) fail(ctx context.Context, op Operation, kind, cause error) error {
	kindLabel := "upstream"
	if errors.Is(kind, ErrMalformedResponse) {
		kindLabel = "malformed"
	}
	observability.GatewayFailuresTotal.WithLabelValues(string(op), kindLabel).Inc()
	observability.LoggerFromContext(ctx, g.logger).Error("gateway fetch failed",
		zap.String("operation", string(op)),
		zap.String("kind", kindLabel),
		zap.String("category", string(client.CategorizeError(cause))),
		zap.Error(cause),
	)
	return &FetchError{Operation: op, Kind: kind, cause: cause}
}
