package gateway

import "errors"

// Operation identifies one of the three gateway calls.
type Operation string

const (
	OpWeather  Operation = "weather"
	OpCurrency Operation = "currency"
	OpQuote    Operation = "quote"
)

// Failure kinds. Match with errors.Is against a *FetchError.
var (
	// ErrUpstream covers transport failures and non-success replies from the model API.
	ErrUpstream = errors.New("upstream call failed")
	// ErrMalformedResponse covers replies that are not JSON or do not satisfy the schema.
	ErrMalformedResponse = errors.New("malformed response")
)

var userMessages = map[Operation]string{
	OpWeather:  "Failed to fetch weather data. Please try again.",
	OpCurrency: "Failed to fetch currency rates. Please try again.",
	OpQuote:    "Failed to fetch a quote. Please try again.",
}

// FetchError is returned by every failing gateway call. Its text is the
// user-facing message for the operation and never includes the cause.
type FetchError struct {
	Operation Operation
	Kind      error
	cause     error
}

func (e *FetchError) Error() string {
	if msg, ok := userMessages[e.Operation]; ok {
		return msg
	}
	return "Failed to fetch data. Please try again."
}

func (e *FetchError) Unwrap() error {
	return e.Kind
}

// Cause returns the underlying error for logging.
func (e *FetchError) Cause() error {
	return e.cause
}

// UserMessage returns the message shown to users for op.
func UserMessage(op Operation) string {
	return (&FetchError{Operation: op}).Error()
}
