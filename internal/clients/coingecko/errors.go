package coingecko

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited is returned when CoinGecko answers 429.
	ErrRateLimited = errors.New("coingecko: rate limited")
	// ErrMalformedPayload is returned when a 2xx body does not have the expected shape.
	ErrMalformedPayload = errors.New("coingecko: malformed payload")
)

// HTTPError is a non-2xx response other than 429.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("coingecko: HTTP %d from %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether the upstream did not know the requested resource.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// fallbackReason classifies an error for logs and the detail response.
func fallbackReason(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.As(err, &httpErr) && httpErr.IsNotFound():
		return "not_found"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "unreachable"
	}
}
