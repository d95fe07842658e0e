package marketcheck

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse means a page body did not match the expected shape,
// e.g. the listings field was present but not an array. A malformed page
// poisons the whole fetch.
var ErrMalformedResponse = errors.New("unexpected API response format: listings is not a list")

// APIError is a non-success HTTP status from the search API. The body is
// kept (truncated) because the API puts its diagnostics there.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("MarketCheck API error %d: %s", e.StatusCode, e.Body)
}
